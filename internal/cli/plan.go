package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/install"
	"github.com/matzehuels/nodestore/pkg/lockfile"
)

func (c *CLI) planCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the store layout an install would produce",
		Long: `Plan walks the lock file exactly like install but touches nothing. Each line
is one visit: the package, the store directory it lives in and the link that
exposes it to its parent. Packages seen before are marked "reused".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, project, err := c.plan(cmd)
			if err != nil || project == nil {
				return err
			}

			c.ui.info("%s (lockfileVersion %d)", project.Root(), project.LockVersion)
			unique := 0
			for _, s := range steps {
				if s.Depth == 1 {
					continue
				}
				c.ui.pkg(s.Depth, planIcon(s), s.Identity.String(), planNote(s))
				if s.First {
					unique++
				}
			}
			c.ui.stats(stat{unique, "packages"}, stat{len(steps) - 1, "visits"})
			return nil
		},
	}
}

// plan loads the project and walks it dry. A nil project with a nil error
// means there is nothing to plan.
func (c *CLI) plan(cmd *cobra.Command) ([]install.Step, *lockfile.Project, error) {
	ctx := cmd.Context()
	cfg, dir, err := c.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	project, err := c.loadProject(ctx, dir, cfg.Production)
	if err != nil || project == nil {
		return nil, nil, err
	}
	steps, err := install.PlanOnly(ctx, project.Source, cfg.StoreRoot)
	if err != nil {
		return nil, nil, err
	}
	return steps, project, nil
}

func planIcon(s install.Step) string {
	switch {
	case s.Removed:
		return iconSkip
	case s.First:
		return iconAdd
	default:
		return iconArrow
	}
}

func planNote(s install.Step) string {
	if s.Removed {
		return "optional, not installed"
	}
	var parts []string
	if !s.First {
		parts = append(parts, "reused")
	}
	parts = append(parts, fmt.Sprintf("%s -> %s", s.Plan.LinkPath, s.Plan.LinkTarget))
	return strings.Join(parts, ", ")
}

// loadProject reads the lock file. An unsupported lock file is reported and
// yields a nil project.
func (c *CLI) loadProject(ctx context.Context, dir string, production bool) (*lockfile.Project, error) {
	project, err := lockfile.Load(dir, lockfile.Options{Production: production})
	if err == nil {
		loggerFromContext(ctx).Debug("loaded project", "root", project.Root(), "lockfileVersion", project.LockVersion)
		return project, nil
	}
	if errors.Fatal(err) {
		return nil, err
	}
	loggerFromContext(ctx).Warn("nothing installed", "reason", errors.UserMessage(err))
	c.ui.warning("%s", errors.UserMessage(err))
	return nil, nil
}
