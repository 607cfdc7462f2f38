// Package lifecycle runs package lifecycle scripts.
//
// The root package runs [RootScripts] once, after every dependency is
// installed and binaries are shimmed. Each dependency runs
// [DependencyScripts] after its own children are installed, at most once per
// run no matter how many parents reach it.
package lifecycle

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/layout"
	"github.com/matzehuels/nodestore/pkg/manifest"
	"github.com/matzehuels/nodestore/pkg/observability"
)

// RootScripts are the events run for the package being installed, in order.
var RootScripts = []string{
	"preinstall",
	"install",
	"postinstall",
	"prepublish",
	"preprepare",
	"prepare",
	"postprepare",
}

// DependencyScripts are the events run for every installed dependency.
var DependencyScripts = []string{"preinstall", "install", "postinstall"}

// Scheduler decides which scripts run, where, and with what environment.
type Scheduler struct {
	runner     Runner
	projectDir string
	storeRoot  string
	ignore     bool
	logger     *log.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithIgnoreScripts disables script execution. Dependencies are still
// recorded as scripted.
func WithIgnoreScripts(ignore bool) Option {
	return func(s *Scheduler) { s.ignore = ignore }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a Scheduler for projectDir. A nil runner uses a
// ShellRunner writing to the process's stdout and stderr.
func NewScheduler(runner Runner, projectDir, storeRoot string, opts ...Option) *Scheduler {
	if runner == nil {
		runner = &ShellRunner{}
	}
	if storeRoot == "" {
		storeRoot = layout.DefaultStoreRoot
	}
	s := &Scheduler{
		runner:     runner,
		projectDir: projectDir,
		storeRoot:  storeRoot,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunRoot runs the root package's scripts from projectDir/package.json and
// returns how many ran. Events the manifest does not declare are skipped.
func (s *Scheduler) RunRoot(ctx context.Context) (int, error) {
	m, err := readManifest(s.projectDir)
	if err != nil || m == nil {
		return 0, err
	}
	id := graph.Identity{Name: m.Name, Version: m.Version}
	env := s.env(id, []string{filepath.Join(s.projectDir, layout.ModulesDir)})
	return s.run(ctx, id, s.projectDir, m, RootScripts, env)
}

// RunDependency runs id's scripts unless scripted already holds id. dir is
// the package's store directory. id is added to scripted whether or not it
// declares any scripts.
func (s *Scheduler) RunDependency(ctx context.Context, scripted *graph.Set, id graph.Identity, dir string) (int, error) {
	if scripted.Has(id) {
		return 0, nil
	}
	m, err := readManifest(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	if m != nil {
		modules := filepath.Join(s.projectDir, layout.ModulesDir)
		env := s.env(id, []string{
			filepath.Join(modules, s.storeRoot, layout.StoreKey(id), layout.ModulesDir),
			filepath.Join(dir, layout.ModulesDir),
			modules,
		})
		count, err = s.run(ctx, id, dir, m, DependencyScripts, env)
	}
	scripted.Add(id)
	return count, err
}

func (s *Scheduler) run(ctx context.Context, id graph.Identity, dir string, m *manifest.Manifest, events []string, env []string) (int, error) {
	count := 0
	for _, event := range events {
		command, ok := m.Script(event)
		if !ok {
			continue
		}
		if s.ignore {
			s.logger.Debug("ignoring script", "package", id.NameVersion(), "event", event)
			continue
		}
		s.logger.Info("running script", "package", id.NameVersion(), "event", event)
		start := time.Now()
		err := s.runner.Run(ctx, Script{
			Package: id,
			Event:   event,
			Command: command,
			Dir:     dir,
			Env:     append(env[:len(env):len(env)], "npm_lifecycle_event="+event),
		})
		observability.Install().OnScript(ctx, id.NameVersion(), event, time.Since(start), err)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// env builds the variables shared by every script of one package.
func (s *Scheduler) env(id graph.Identity, nodePath []string) []string {
	bin := filepath.Join(s.projectDir, layout.ModulesDir, layout.BinDirName)
	path := bin
	if p := os.Getenv("PATH"); p != "" {
		path += string(os.PathListSeparator) + p
	}
	return []string{
		"NODE_PATH=" + strings.Join(nodePath, string(os.PathListSeparator)),
		"PATH=" + path,
		"npm_package_name=" + id.Name,
		"npm_package_version=" + id.Version,
	}
}

// readManifest returns nil without error when dir has no package.json.
func readManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.Read(dir)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return m, err
}
