package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/install"
)

type planJSON struct {
	Nodes []nodeJSON `json:"nodes"`
	Edges []edgeJSON `json:"edges"`
}

type nodeJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	StoreDir string `json:"store_dir,omitempty"`
	Depth    int    `json:"depth"`
	Removed  bool   `json:"removed,omitempty"`
}

type edgeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WriteJSON encodes plan steps as a node/edge document. Nodes keep the
// depth and store directory of their first visit.
func WriteJSON(steps []install.Step, w io.Writer) error {
	out := planJSON{Nodes: []nodeJSON{}, Edges: []edgeJSON{}}

	var nodes graph.Set
	seen := make(map[edgeJSON]bool)
	for _, s := range steps {
		id := s.Identity.String()
		if nodes.Add(s.Identity) {
			out.Nodes = append(out.Nodes, nodeJSON{
				ID:       id,
				Name:     s.Identity.Name,
				Version:  s.Identity.Version,
				StoreDir: s.Plan.StoreDir,
				Depth:    s.Depth,
				Removed:  s.Removed,
			})
		}
		if s.Parent == (graph.Identity{}) {
			continue
		}
		e := edgeJSON{From: s.Parent.String(), To: id}
		if !seen[e] {
			seen[e] = true
			out.Edges = append(out.Edges, e)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
