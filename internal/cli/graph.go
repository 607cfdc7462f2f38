package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodestore/pkg/render"
)

const (
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatJSON = "json"
)

func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the install plan as a diagram or JSON",
		Example: `  nodestore graph > deps.dot
  nodestore graph --format svg -o deps.svg
  nodestore graph --format json | jq '.nodes | length'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatDOT && format != formatSVG && format != formatJSON {
				return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatDOT, formatSVG, formatJSON)
			}
			steps, project, err := c.plan(cmd)
			if err != nil || project == nil {
				return err
			}

			var data []byte
			switch format {
			case formatJSON:
				var buf bytes.Buffer
				if err := render.WriteJSON(steps, &buf); err != nil {
					return err
				}
				data = buf.Bytes()
			case formatSVG:
				dot := render.ToDOT(steps, render.Options{Detailed: detailed})
				if data, err = render.RenderSVG(cmd.Context(), dot); err != nil {
					return err
				}
			default:
				data = []byte(render.ToDOT(steps, render.Options{Detailed: detailed}))
			}

			if output == "" || output == "-" {
				_, err := c.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			c.ui.success("Wrote %s graph of %s", format, project.Root())
			c.ui.file(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot, svg or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include store paths and depth in labels")
	return cmd
}
