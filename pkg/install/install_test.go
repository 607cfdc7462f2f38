package install

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/lifecycle"
	"github.com/matzehuels/nodestore/pkg/shim"
	"github.com/matzehuels/nodestore/pkg/source"
)

// fakeSource materializes packages by writing files straight into the
// store directory.
type fakeSource struct {
	files map[string]map[string]string // nameVersion -> file -> contents
	calls []string
}

func (f *fakeSource) Materialize(_ context.Context, node *graph.Node, storeDir string) (source.Outcome, error) {
	if node.Removed() {
		return source.Skipped, nil
	}
	f.calls = append(f.calls, node.NameVersion())
	files := f.files[node.NameVersion()]
	if _, ok := files["package.json"]; !ok {
		files = mergeFiles(files, map[string]string{
			"package.json": `{"name":"` + node.Name + `","version":"` + node.Version + `"}`,
		})
	}
	for name, body := range files {
		p := filepath.Join(storeDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return source.Skipped, err
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return source.Skipped, err
		}
	}
	return source.Extracted, nil
}

func mergeFiles(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

type noShims struct{}

func (noShims) Generate(context.Context, string) (int, error) { return 0, nil }

type recordingRunner struct {
	events []string
}

func (r *recordingRunner) Run(_ context.Context, s lifecycle.Script) error {
	r.events = append(r.events, s.Package.Name+":"+s.Event)
	return nil
}

func ident(nv string) graph.Identity {
	id, _ := graph.ParseNameVersion(nv)
	return id
}

// buildGraph creates a graph rooted at "app@1.0.0". adj maps a node to its
// children in order; every non-root node gets an archive-looking locator.
func buildGraph(t *testing.T, order []string, adj map[string][]string) *graph.Graph {
	t.Helper()
	g, err := graph.NewGraph(graph.Node{Identity: ident("app@1.0.0")})
	require.NoError(t, err)
	for _, nv := range order {
		require.NoError(t, g.AddNode(graph.Node{Identity: ident(nv), Resolved: graph.Locator("/archives/" + nv + ".tgz")}))
	}
	for _, from := range append([]string{"app@1.0.0"}, order...) {
		for _, to := range adj[from] {
			require.NoError(t, g.AddEdge(graph.Edge{From: ident(from), To: ident(to)}))
		}
	}
	return g
}

func newInstaller(dir string, src Materializer, runner lifecycle.Runner) *Installer {
	return New(dir, Options{
		Materializer: src,
		Shims:        noShims{},
		Runner:       runner,
		Logger:       log.New(io.Discard),
	})
}

func readLink(t *testing.T, dir, rel string) string {
	t.Helper()
	target, err := os.Readlink(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return filepath.ToSlash(target)
}

func TestInstallEndToEnd(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, []string{"pkgA@1.0.0", "pkgB@1.0.0"}, map[string][]string{
		"app@1.0.0":  {"pkgA@1.0.0"},
		"pkgA@1.0.0": {"pkgB@1.0.0"},
	})
	src := &fakeSource{}

	res, err := newInstaller(dir, src, &recordingRunner{}).Install(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, ".store/pkgA@1.0.0/node_modules/pkgA", readLink(t, dir, "node_modules/pkgA"))
	assert.Equal(t, "../../pkgB@1.0.0/node_modules/pkgB", readLink(t, dir, "node_modules/.store/pkgA@1.0.0/node_modules/pkgB"))
	assert.FileExists(t, filepath.Join(dir, "node_modules", ".store", "pkgA@1.0.0", "node_modules", "pkgB", "package.json"),
		"pkgB must be reachable from pkgA's private node_modules")

	assert.Equal(t, []graph.Identity{ident("pkgA@1.0.0"), ident("pkgB@1.0.0")}, res.State.Unpacked.List())
	assert.Equal(t, []graph.Identity{ident("pkgB@1.0.0"), ident("pkgA@1.0.0")}, res.State.Scripted.List(),
		"children are scripted before their parents")
	assert.Equal(t, Counters{Visited: 3, Unpacked: 2, Linked: 2}, res.Counters)
	assert.NotEqual(t, uuid.Nil, res.RunID)
}

// writeTarball writes a gzipped package archive with the usual "package/"
// wrapper directory.
func writeTarball(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		hdr := &tar.Header{Name: "package/" + name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestInstallEndToEndArchives(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs tar and sh")
	}
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}

	archives := t.TempDir()
	pkgA := filepath.Join(archives, "pkgA-1.0.0.tgz")
	pkgB := filepath.Join(archives, "pkgB-1.0.0.tgz")
	writeTarball(t, pkgA, map[string]string{
		"package.json": `{"name":"pkgA","version":"1.0.0"}`,
		"index.js":     `module.exports = require("pkgB")`,
	})
	writeTarball(t, pkgB, map[string]string{
		"package.json": `{"name":"pkgB","version":"1.0.0","scripts":{"postinstall":"touch built"}}`,
		"index.js":     `module.exports = 1`,
	})

	g, err := graph.NewGraph(graph.Node{Identity: ident("app@1.0.0")})
	require.NoError(t, err)
	require.NoError(t, g.AddNode(graph.Node{Identity: ident("pkgA@1.0.0"), Resolved: graph.Locator(pkgA)}))
	require.NoError(t, g.AddNode(graph.Node{Identity: ident("pkgB@1.0.0"), Resolved: graph.Locator("file:" + pkgB)}))
	require.NoError(t, g.AddEdge(graph.Edge{From: ident("app@1.0.0"), To: ident("pkgA@1.0.0")}))
	require.NoError(t, g.AddEdge(graph.Edge{From: ident("pkgA@1.0.0"), To: ident("pkgB@1.0.0")}))

	dir := t.TempDir()
	res, err := New(dir, Options{Logger: log.New(io.Discard)}).Install(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, ".store/pkgA@1.0.0/node_modules/pkgA", readLink(t, dir, "node_modules/pkgA"))
	assert.Equal(t, "../../pkgB@1.0.0/node_modules/pkgB", readLink(t, dir, "node_modules/.store/pkgA@1.0.0/node_modules/pkgB"))
	store := filepath.Join(dir, "node_modules", ".store")
	assert.FileExists(t, filepath.Join(store, "pkgA@1.0.0", "node_modules", "pkgA", "index.js"))
	assert.FileExists(t, filepath.Join(store, "pkgA@1.0.0", "node_modules", "pkgB", "package.json"))
	assert.FileExists(t, filepath.Join(store, "pkgB@1.0.0", "node_modules", "pkgB", "built"))

	assert.ElementsMatch(t, []graph.Identity{ident("pkgA@1.0.0"), ident("pkgB@1.0.0")}, res.State.Unpacked.List())
	assert.ElementsMatch(t, []graph.Identity{ident("pkgA@1.0.0"), ident("pkgB@1.0.0")}, res.State.Scripted.List())
	assert.Equal(t, 2, res.Counters.Unpacked)
	assert.Equal(t, 1, res.Counters.Scripts)
}

func TestInstallSharedDependency(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, []string{"a@1.0.0", "b@1.0.0", "c@1.0.0"}, map[string][]string{
		"app@1.0.0": {"a@1.0.0", "b@1.0.0"},
		"a@1.0.0":   {"c@1.0.0"},
		"b@1.0.0":   {"c@1.0.0"},
	})
	script := `"scripts":{"install":"true"}`
	src := &fakeSource{files: map[string]map[string]string{
		"a@1.0.0": {"package.json": `{"name":"a","version":"1.0.0",` + script + `}`},
		"b@1.0.0": {"package.json": `{"name":"b","version":"1.0.0",` + script + `}`},
		"c@1.0.0": {"package.json": `{"name":"c","version":"1.0.0",` + script + `}`},
	}}
	runner := &recordingRunner{}

	res, err := newInstaller(dir, src, runner).Install(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@1.0.0", "c@1.0.0", "b@1.0.0"}, src.calls, "c is materialized once")
	assert.Equal(t, []string{"c:install", "a:install", "b:install"}, runner.events, "c is scripted once")
	assert.Equal(t, "../../c@1.0.0/node_modules/c", readLink(t, dir, "node_modules/.store/a@1.0.0/node_modules/c"))
	assert.Equal(t, "../../c@1.0.0/node_modules/c", readLink(t, dir, "node_modules/.store/b@1.0.0/node_modules/c"))
	assert.Equal(t, 4, res.Counters.Linked)
	assert.Equal(t, 3, res.Counters.Scripts)
}

func TestInstallIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, []string{"a@1.0.0", "b@1.0.0"}, map[string][]string{
		"app@1.0.0": {"a@1.0.0"},
		"a@1.0.0":   {"b@1.0.0"},
	})
	in := newInstaller(dir, &fakeSource{}, &recordingRunner{})

	_, err := in.Install(context.Background(), g)
	require.NoError(t, err)
	res, err := in.Install(context.Background(), g)
	require.NoError(t, err)

	assert.Zero(t, res.Counters.Linked, "second run finds every link in place")
	assert.Equal(t, 2, res.State.Unpacked.Len(), "state is per run")
}

func TestInstallScopedPackages(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, []string{"@org/a@1.0.0", "@org/b@2.0.0"}, map[string][]string{
		"app@1.0.0":    {"@org/a@1.0.0"},
		"@org/a@1.0.0": {"@org/b@2.0.0"},
	})

	_, err := newInstaller(dir, &fakeSource{}, &recordingRunner{}).Install(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, "../.store/@org+a@1.0.0/node_modules/@org/a", readLink(t, dir, "node_modules/@org/a"))
	assert.Equal(t, "../../../@org+b@2.0.0/node_modules/@org/b",
		readLink(t, dir, "node_modules/.store/@org+a@1.0.0/node_modules/@org/b"))
	assert.FileExists(t, filepath.Join(dir, "node_modules", ".store", "@org+a@1.0.0", "node_modules", "@org", "b", "package.json"))
}

func TestInstallSkipsRemovedOptional(t *testing.T) {
	dir := t.TempDir()
	g, err := graph.NewGraph(graph.Node{Identity: ident("app@1.0.0")})
	require.NoError(t, err)
	require.NoError(t, g.AddNode(graph.Node{Identity: graph.Identity{Name: "fsevents"}}))
	require.NoError(t, g.AddEdge(graph.Edge{From: ident("app@1.0.0"), To: graph.Identity{Name: "fsevents"}}))
	src := &fakeSource{}

	res, err := newInstaller(dir, src, &recordingRunner{}).Install(context.Background(), g)
	require.NoError(t, err)

	assert.Empty(t, src.calls)
	assert.Zero(t, res.State.Unpacked.Len())
	assert.Zero(t, res.State.Scripted.Len())
	assert.Equal(t, 1, res.Counters.Skipped)
	_, err = os.Lstat(filepath.Join(dir, "node_modules", "fsevents"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallCycle(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, []string{"a@1.0.0", "b@1.0.0"}, map[string][]string{
		"app@1.0.0": {"a@1.0.0"},
		"a@1.0.0":   {"b@1.0.0"},
		"b@1.0.0":   {"a@1.0.0"},
	})

	res, err := newInstaller(dir, &fakeSource{}, &recordingRunner{}).Install(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counters.Visited)
}

func TestInstallCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.Symlink("elsewhere", filepath.Join(dir, "node_modules", "a")))
	g := buildGraph(t, []string{"a@1.0.0"}, map[string][]string{"app@1.0.0": {"a@1.0.0"}})
	runner := &recordingRunner{}

	_, err := newInstaller(dir, &fakeSource{}, runner).Install(context.Background(), g)
	assert.True(t, errors.Is(err, errors.ErrCodeSymlinkCollision))
	assert.Empty(t, runner.events)
}

func TestInstallRootScriptsRunLast(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"name":"app","version":"1.0.0","scripts":{"prepare":"true","postinstall":"true"}}`), 0o644))
	g := buildGraph(t, []string{"a@1.0.0"}, map[string][]string{"app@1.0.0": {"a@1.0.0"}})
	src := &fakeSource{files: map[string]map[string]string{
		"a@1.0.0": {"package.json": `{"name":"a","version":"1.0.0","scripts":{"postinstall":"true"}}`},
	}}
	runner := &recordingRunner{}

	_, err := newInstaller(dir, src, runner).Install(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:postinstall", "app:postinstall", "app:prepare"}, runner.events)
}

func TestInstallBinsAndShims(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, []string{"tool@1.0.0"}, map[string][]string{"app@1.0.0": {"tool@1.0.0"}})
	src := &fakeSource{files: map[string]map[string]string{
		"tool@1.0.0": {
			"package.json": `{"name":"tool","version":"1.0.0","bin":{"tool":"bin/tool.js"}}`,
			"bin/tool.js":  "#!/usr/bin/env node\nconsole.log('hi')\n",
		},
	}}
	gen := shim.NewGenerator(".store", shim.WithLogger(log.New(io.Discard)),
		shim.WithLookPath(func(string) (string, error) { return "/usr/bin/node", nil }))
	in := New(dir, Options{
		Materializer: src,
		Shims:        gen,
		Runner:       &recordingRunner{},
		Logger:       log.New(io.Discard),
	})

	res, err := in.Install(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counters.Bins)
	assert.Equal(t, 1, res.Counters.Shims)

	info, err := os.Lstat(filepath.Join(dir, "node_modules", ".bin", "tool"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	data, err := os.ReadFile(filepath.Join(dir, "node_modules", ".bin", "tool"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `exec /usr/bin/node "$n/tool/bin/tool.js" "$@"`)
}

func TestInstallDirectoryLocators(t *testing.T) {
	dir := t.TempDir()
	ext := t.TempDir()
	for _, name := range []string{"a", "b"} {
		pkg := filepath.Join(ext, name)
		require.NoError(t, os.MkdirAll(pkg, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(pkg, "package.json"),
			[]byte(`{"name":"`+name+`","version":"1.0.0"}`), 0o644))
	}
	g, err := graph.NewGraph(graph.Node{Identity: ident("app@1.0.0")})
	require.NoError(t, err)
	require.NoError(t, g.AddNode(graph.Node{Identity: ident("a@1.0.0"), Resolved: graph.Locator(filepath.Join(ext, "a"))}))
	require.NoError(t, g.AddNode(graph.Node{Identity: ident("b@1.0.0"), Resolved: graph.Locator("file:" + filepath.Join(ext, "b"))}))
	require.NoError(t, g.AddEdge(graph.Edge{From: ident("app@1.0.0"), To: ident("a@1.0.0")}))
	require.NoError(t, g.AddEdge(graph.Edge{From: ident("a@1.0.0"), To: ident("b@1.0.0")}))

	logger := log.New(io.Discard)
	in := New(dir, Options{
		Materializer: source.NewResolver(source.Options{Logger: logger}),
		Shims:        noShims{},
		Runner:       &recordingRunner{},
		Logger:       logger,
	})
	res, err := in.Install(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counters.Unpacked)
	assert.FileExists(t, filepath.Join(dir, "node_modules", ".store", "a@1.0.0", "node_modules", "b", "package.json"))
}

func TestInstallCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := buildGraph(t, []string{"a@1.0.0"}, map[string][]string{"app@1.0.0": {"a@1.0.0"}})

	_, err := newInstaller(t.TempDir(), &fakeSource{}, &recordingRunner{}).Install(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanOnly(t *testing.T) {
	g := buildGraph(t, []string{"a@1.0.0", "c@1.0.0", "b@1.0.0"}, map[string][]string{
		"app@1.0.0": {"a@1.0.0", "b@1.0.0"},
		"a@1.0.0":   {"c@1.0.0"},
		"b@1.0.0":   {"c@1.0.0"},
	})

	steps, err := PlanOnly(context.Background(), g, "")
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.Equal(t, ident("app@1.0.0"), steps[0].Identity)
	assert.True(t, steps[0].Plan.Empty())

	assert.Equal(t, ident("c@1.0.0"), steps[2].Identity)
	assert.True(t, steps[2].First)
	assert.Equal(t, "node_modules/.store/a@1.0.0/node_modules/c", steps[2].Plan.LinkPath)

	assert.Equal(t, ident("c@1.0.0"), steps[4].Identity)
	assert.False(t, steps[4].First)
	assert.Equal(t, steps[2].Plan.StoreDir, steps[4].Plan.StoreDir)
	assert.Equal(t, "node_modules/.store/b@1.0.0/node_modules/c", steps[4].Plan.LinkPath)
}
