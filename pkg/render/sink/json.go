package sink

import (
	"encoding/json"

	"github.com/matzehuels/activitygraph/pkg/lanegraph"
)

// RenderJSON serializes g with indentation. The output can be read back
// with [lanegraph.UnmarshalGraph].
func RenderJSON(g *lanegraph.Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}
