package pipeline

import (
	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/feed"
)

func feedStatus() feed.Status {
	return feed.Status{
		GitHub: feed.State[activity.Event]{Items: []activity.Event{{ID: "1", CreatedAt: at}}},
		Npm:    feed.State[activity.Package]{Items: []activity.Package{{Name: "x", Version: "1.0.0"}}},
	}
}
