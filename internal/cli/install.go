package cli

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodestore/pkg/cache"
	"github.com/matzehuels/nodestore/pkg/config"
	"github.com/matzehuels/nodestore/pkg/install"
	"github.com/matzehuels/nodestore/pkg/lifecycle"
	"github.com/matzehuels/nodestore/pkg/observability"
	"github.com/matzehuels/nodestore/pkg/source"
)

func (c *CLI) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the project's locked dependencies",
		Long: `Install reads package.json and package-lock.json from the project directory,
materializes every dependency into node_modules/<store-root>, links it and
runs lifecycle scripts. Running it again on an installed project changes
nothing.`,
		Args: cobra.NoArgs,
		RunE: c.runInstall,
	}
}

func (c *CLI) runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, dir, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	project, err := c.loadProject(ctx, dir, cfg.Production)
	if err != nil || project == nil {
		return err
	}

	store := c.newCache(cfg)
	defer store.Close()

	in := install.New(dir, install.Options{
		StoreRoot:     cfg.StoreRoot,
		IgnoreScripts: cfg.IgnoreScripts,
		Materializer:  c.newResolver(cfg, store),
		Runner:        &lifecycle.ShellRunner{Shell: cfg.Shell, Stdout: c.out, Stderr: c.errOut},
		Logger:        logger,
	})

	hooks := newProgressHooks(c.ui)
	defer observability.Use(hooks, hooks)()

	t := startTimer(logger)
	res, err := in.Install(ctx, project.Source)
	if err != nil {
		return err
	}
	t.done("install finished", "root", project.Root(), "run", res.RunID)

	c.ui.success("Installed %s in %s", project.Root(), res.Duration.Round(time.Millisecond))
	c.ui.stats(
		stat{res.Counters.Unpacked, "unpacked"},
		stat{res.Counters.Linked, "linked"},
		stat{res.Counters.Bins, "bins"},
		stat{res.Counters.Shims, "shims"},
		stat{res.Counters.Scripts, "scripts"},
		stat{res.Counters.Skipped, "skipped"},
		stat{hooks.cacheHits(), "verified from cache"},
	)
	return nil
}

func (c *CLI) newResolver(cfg config.Config, store cache.Cache) *source.Resolver {
	return source.NewResolver(source.Options{
		Extractor:     source.TarExtractor{Command: cfg.TarCommand},
		Cache:         store,
		SkipIntegrity: cfg.SkipIntegrity,
		Logger:        c.Logger,
	})
}

// =============================================================================
// Progress
// =============================================================================

// progressHooks prints one stdout line per package and script as an install
// run reports them.
type progressHooks struct {
	observability.NoopInstallHooks
	observability.NoopCacheHooks

	ui   *ui
	mu   sync.Mutex
	hits int
}

func newProgressHooks(u *ui) *progressHooks {
	return &progressHooks{ui: u}
}

func (h *progressHooks) OnPackage(_ context.Context, pkg, outcome string, depth int) {
	switch outcome {
	case observability.OutcomeExtracted, observability.OutcomeLinked:
		h.ui.pkg(depth, iconAdd, pkg, outcome)
	case observability.OutcomeSkipped:
		h.ui.pkg(depth, iconSkip, pkg, "optional, not installed")
	}
}

func (h *progressHooks) OnScript(_ context.Context, pkg, event string, d time.Duration, err error) {
	if err != nil {
		h.ui.errorf("%s %s failed", pkg, event)
		return
	}
	h.ui.info("%s %s (%s)", pkg, event, d.Round(time.Millisecond))
}

func (h *progressHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	h.hits++
	h.mu.Unlock()
}

func (h *progressHooks) cacheHits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits
}
