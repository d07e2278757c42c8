//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMongoCacheIntegration(t *testing.T) {
	uri := os.Getenv("ACTIVITYGRAPH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ACTIVITYGRAPH_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := NewMongoCache(ctx, uri, "activitygraph_test", "cache_"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("NewMongoCache: %v", err)
	}
	defer func() {
		_ = c.coll.Drop(context.Background())
		c.Close()
	}()

	exerciseCache(t, c)

	now := time.Now()
	c.now = func() time.Time { return now }
	if err := c.Set(ctx, "short", []byte("v"), time.Second); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss before the TTL monitor runs")
	}
}
