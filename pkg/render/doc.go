// Package render exports an install plan as a node-link diagram or JSON.
//
// [ToDOT] turns the steps of a dry-run walk (see install.PlanOnly) into
// Graphviz DOT source. Every distinct package identity becomes one box and
// every parent/child relation observed during the walk becomes one edge.
// Removed optional dependencies are drawn dashed and grey.
//
//	steps, err := install.PlanOnly(ctx, project.Source, ".store")
//	dot := render.ToDOT(steps, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [WriteJSON] writes the same nodes and edges as a JSON document.
//
// SVG rendering runs Graphviz in-process through [github.com/goccy/go-graphviz].
package render
