package cli

import (
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodestore/pkg/buildinfo"
	"github.com/matzehuels/nodestore/pkg/cache"
	"github.com/matzehuels/nodestore/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "nodestore"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out    io.Writer // progress and summaries
	errOut io.Writer // logs and script stderr
	ui     *ui
	flags  flags
}

// flags are the persistent flags shared by every command.
type flags struct {
	dir           string
	storeRoot     string
	ignoreScripts bool
	skipIntegrity bool
	production    bool
	noCache       bool
	verbose       bool
}

// New creates a CLI writing progress to out and logs to errOut.
func New(out, errOut io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(errOut, level),
		out:    out,
		errOut: errOut,
		ui:     newUI(out),
	}
}

// SetLogLevel updates the logger's level. Caller reporting follows debug.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	c.Logger.SetReportCaller(level <= log.DebugLevel)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Invoked without a subcommand it installs the project.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "nodestore installs package-lock.json projects into a flat store",
		Long: `nodestore materializes the dependencies recorded in package-lock.json into a
content-addressed store under node_modules/.store, links every package to
exactly the dependencies it declared, writes executable shims for bin
entries and runs lifecycle scripts bottom-up.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.flags.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
		RunE: c.runInstall,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.dir, "dir", "C", ".", "project directory")
	pf.StringVar(&c.flags.storeRoot, "store-root", "", "store directory name under node_modules (default \".store\")")
	pf.BoolVar(&c.flags.ignoreScripts, "ignore-scripts", false, "do not run lifecycle scripts")
	pf.BoolVar(&c.flags.skipIntegrity, "skip-integrity", false, "do not verify archive digests")
	pf.BoolVar(&c.flags.production, "production", false, "leave out devDependencies")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the integrity cache")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.installCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig resolves the project directory and layers flags that were set
// explicitly over the project's configuration.
func (c *CLI) loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	dir, err := filepath.Abs(c.flags.dir)
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return cfg, dir, err
	}

	set := cmd.Flags().Changed
	if set("store-root") {
		cfg.StoreRoot = c.flags.storeRoot
	}
	if set("ignore-scripts") {
		cfg.IgnoreScripts = c.flags.ignoreScripts
	}
	if set("skip-integrity") {
		cfg.SkipIntegrity = c.flags.skipIntegrity
	}
	if set("production") {
		cfg.Production = c.flags.production
	}
	if set("no-cache") {
		cfg.NoCache = c.flags.noCache
	}
	return cfg, dir, cfg.Validate()
}

// newCache opens the integrity cache, falling back to a null cache when it is
// disabled or its directory cannot be created.
func (c *CLI) newCache(cfg config.Config) cache.Cache {
	if cfg.NoCache {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		c.Logger.Warn("cache disabled", "dir", cfg.CacheDir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}
