package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/install"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the store directory and walk depth to each label.
	Detailed bool
}

const dotHeader = `digraph plan {
  rankdir=TB;
  bgcolor="transparent";
  ranksep=0.5;
  nodesep=0.3;
  node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14, margin="0.2,0.1"];

`

// ToDOT converts plan steps to Graphviz DOT source. Nodes appear in first-visit
// order and duplicate edges are collapsed.
func ToDOT(steps []install.Step, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(dotHeader)

	var (
		nodes graph.Set
		edges = make(map[[2]string]bool)
		order [][2]string
	)
	for _, s := range steps {
		id := s.Identity.String()
		if nodes.Add(s.Identity) {
			label := fmtLabel(s, opts.Detailed)
			attrs := fmtAttrs(s, label)
			fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
		}
		if s.Parent == (graph.Identity{}) {
			continue
		}
		e := [2]string{s.Parent.String(), id}
		if !edges[e] {
			edges[e] = true
			order = append(order, e)
		}
	}

	buf.WriteByte('\n')
	for _, e := range order {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e[0], e[1])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(s install.Step, detailed bool) string {
	label := s.Identity.Name + "\n" + s.Identity.Version
	if s.Identity.Version == "" {
		label = s.Identity.Name
	}
	if !detailed {
		return label
	}

	parts := []string{fmt.Sprintf("depth: %d", s.Depth)}
	if s.Plan.StoreDir != "" {
		parts = append(parts, "store: "+s.Plan.StoreDir)
	}
	if s.Removed {
		parts = append(parts, "removed")
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(s install.Step, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case s.Removed:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	case s.Depth == 1:
		attrs = append(attrs, "fillcolor=\"#e8eefc\"")
	case s.Depth == 2:
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return scalableSVG(buf.Bytes()), nil
}

var viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+) ([0-9.]+) ([0-9.]+) ([0-9.]+)"`)

// scalableSVG rewrites the root <svg> tag that Graphviz emits (sizes in pt,
// a viewBox offset by its margin) into one sized in user units with a zero
// origin, so browsers scale the plan instead of clipping it. Nested <svg>
// elements and output without a viewBox are left alone.
func scalableSVG(svg []byte) []byte {
	open := bytes.Index(svg, []byte("<svg"))
	if open < 0 {
		return svg
	}
	end := bytes.IndexByte(svg[open:], '>')
	if end < 0 {
		return svg
	}
	end += open + 1

	m := viewBoxRe.FindSubmatch(svg[open:end])
	if m == nil {
		return svg
	}
	w, errW := strconv.ParseFloat(string(m[3]), 64)
	h, errH := strconv.ParseFloat(string(m[4]), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return svg
	}

	var out bytes.Buffer
	out.Grow(len(svg))
	out.Write(svg[:open])
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f" role="img" aria-label="install plan">`, w, h, w, h)
	out.Write(svg[end:])
	return out.Bytes()
}
