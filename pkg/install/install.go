// Package install composes the walker, layout planner, source resolver,
// linker, shim generator and script scheduler into a single install pass.
//
// The pass is one depth-first walk. For each dependency the installer
// materializes its store entry (once per identity), links it where the path
// that reached it expects, exposes a root dependency's executables, installs
// its children, and finally runs its scripts (once per identity). After the
// root's subtree completes, .bin links are rewritten into shims and the root
// package's own scripts run.
//
//	in := install.New(dir, install.Options{Logger: logger})
//	res, err := in.Install(ctx, src)
package install

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/layout"
	"github.com/matzehuels/nodestore/pkg/lifecycle"
	"github.com/matzehuels/nodestore/pkg/linker"
	"github.com/matzehuels/nodestore/pkg/manifest"
	"github.com/matzehuels/nodestore/pkg/observability"
	"github.com/matzehuels/nodestore/pkg/shim"
	"github.com/matzehuels/nodestore/pkg/source"
)

// Materializer puts a dependency's contents at its store directory.
type Materializer interface {
	Materialize(ctx context.Context, node *graph.Node, storeDir string) (source.Outcome, error)
}

// ShimGenerator rewrites .bin links under a project directory.
type ShimGenerator interface {
	Generate(ctx context.Context, projectDir string) (int, error)
}

// Options configures an Installer. Zero values select the defaults noted.
type Options struct {
	StoreRoot     string           // layout.DefaultStoreRoot
	IgnoreScripts bool             // run no lifecycle scripts
	Materializer  Materializer     // source.NewResolver with defaults
	Shims         ShimGenerator    // shim.NewGenerator(StoreRoot)
	Runner        lifecycle.Runner // lifecycle.ShellRunner
	FS            linker.FS        // linker.NewOS()
	Logger        *log.Logger      // log.Default()
}

// Installer performs install runs for one project directory. An Installer
// holds no per-run state and may be reused; each Install call starts fresh.
type Installer struct {
	dir       string
	storeRoot string
	source    Materializer
	links     *linker.Linker
	shims     ShimGenerator
	scripts   *lifecycle.Scheduler
	logger    *log.Logger
}

// New creates an Installer for the project at dir.
func New(dir string, opts Options) *Installer {
	if opts.StoreRoot == "" {
		opts.StoreRoot = layout.DefaultStoreRoot
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Materializer == nil {
		opts.Materializer = source.NewResolver(source.Options{Logger: opts.Logger})
	}
	if opts.Shims == nil {
		opts.Shims = shim.NewGenerator(opts.StoreRoot, shim.WithLogger(opts.Logger))
	}
	scripts := lifecycle.NewScheduler(opts.Runner, dir, opts.StoreRoot,
		lifecycle.WithIgnoreScripts(opts.IgnoreScripts),
		lifecycle.WithLogger(opts.Logger))
	return &Installer{
		dir:       dir,
		storeRoot: opts.StoreRoot,
		source:    opts.Materializer,
		links:     linker.New(opts.FS, dir, opts.Logger),
		shims:     opts.Shims,
		scripts:   scripts,
		logger:    opts.Logger,
	}
}

// Install walks src and builds the store under the project directory. The
// first fatal error aborts the run; the store may be left partially
// populated.
func (in *Installer) Install(ctx context.Context, src graph.Source) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New(), State: &State{}}
	logger := in.logger.With("run", res.RunID.String()[:8])

	root := src.Root()
	rootName := ""
	if root != nil {
		rootName = root.NameVersion()
	}
	observability.Install().OnInstallStart(ctx, res.RunID.String(), rootName)

	r := &run{Installer: in, res: res, logger: logger}
	err := graph.Walk(ctx, src, r.visit)

	res.Duration = time.Since(start)
	observability.Install().OnInstallComplete(ctx, res.RunID.String(), res.State.Unpacked.Len(), res.Duration, err)
	if err != nil {
		return res, err
	}
	logger.Debug("install complete", "unpacked", res.Counters.Unpacked, "linked", res.Counters.Linked, "duration", res.Duration)
	return res, nil
}

// run carries the state of one Install call.
type run struct {
	*Installer
	res    *Result
	logger *log.Logger
}

func (r *run) visit(ctx context.Context, dep *graph.Node, recurse func() error, path graph.Path) error {
	r.res.Counters.Visited++

	if path.IsRoot() {
		return r.visitRoot(ctx, recurse)
	}
	if dep.Removed() {
		r.logger.Info("skipping removed optional dependency", "name", dep.Name, "path", path.String())
		r.res.Counters.Skipped++
		observability.Install().OnPackage(ctx, dep.Name, observability.OutcomeSkipped, path.Depth())
		return nil
	}

	plan := layout.Plan(r.storeRoot, dep.Identity, path)
	storeDir := r.links.Abs(plan.StoreDir)

	outcome := observability.OutcomeReused
	if !r.res.State.Unpacked.Has(dep.Identity) {
		out, err := r.source.Materialize(ctx, dep, storeDir)
		if err != nil {
			return err
		}
		if out.Materialized() {
			r.res.State.Unpacked.Add(dep.Identity)
			r.res.Counters.Unpacked++
		}
		outcome = out.String()
	}
	observability.Install().OnPackage(ctx, dep.NameVersion(), outcome, path.Depth())

	linked, err := r.links.EnsureLink(plan.LinkPath, plan.LinkTarget)
	if err != nil {
		return err
	}
	if linked == linker.Created {
		r.res.Counters.Linked++
	}

	if path.IsRootDependency() {
		if err := r.linkBins(dep, storeDir); err != nil {
			return err
		}
	}

	if err := recurse(); err != nil {
		return err
	}

	n, err := r.scripts.RunDependency(ctx, &r.res.State.Scripted, dep.Identity, storeDir)
	r.res.Counters.Scripts += n
	return err
}

func (r *run) visitRoot(ctx context.Context, recurse func() error) error {
	if err := recurse(); err != nil {
		return err
	}

	n, err := r.shims.Generate(ctx, r.dir)
	r.res.Counters.Shims = n
	if err != nil {
		return err
	}

	n, err = r.scripts.RunRoot(ctx)
	r.res.Counters.Scripts += n
	return err
}

func (r *run) linkBins(dep *graph.Node, storeDir string) error {
	m, err := manifest.Read(storeDir)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(m.Bin) == 0 {
		return nil
	}
	bins, err := r.links.LinkBins(filepath.ToSlash(layout.BinDir), dep.Name, m.Bin)
	r.res.Counters.Bins += len(bins)
	return err
}
