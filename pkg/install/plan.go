package install

import (
	"context"

	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/layout"
)

// Step is one visit of a dry-run walk.
type Step struct {
	Identity graph.Identity
	Parent   graph.Identity   // zero for the root
	Plan     layout.StorePlan // empty for the root and removed dependencies
	Depth    int
	Removed  bool
	// First is true on the visit that would materialize the identity.
	First bool
}

// PlanOnly walks src the way Install does without touching the filesystem
// and returns every visit in order.
func PlanOnly(ctx context.Context, src graph.Source, storeRoot string) ([]Step, error) {
	var steps []Step
	var seen graph.Set
	err := graph.Walk(ctx, src, func(ctx context.Context, dep *graph.Node, recurse func() error, path graph.Path) error {
		step := Step{Identity: dep.Identity, Depth: path.Depth()}
		if parent := path.Parent(); parent != nil {
			step.Parent = parent.Identity
		}
		switch {
		case path.IsRoot():
		case dep.Removed():
			step.Removed = true
			steps = append(steps, step)
			return nil
		default:
			step.Plan = layout.Plan(storeRoot, dep.Identity, path)
			step.First = seen.Add(dep.Identity)
		}
		steps = append(steps, step)
		return recurse()
	})
	return steps, err
}
