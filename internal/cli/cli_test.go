package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/nodestore/pkg/errors"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := New(&out, &errOut, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

// monorepo writes a project whose dependencies are workspace links, so an
// install needs neither archives nor a network.
func monorepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NODESTORE_CACHE_DIR", t.TempDir())
	writeFiles(t, dir, map[string]string{
		"package.json": `{"name": "mono", "version": "1.0.0",
		  "dependencies": {"lib": "*"},
		  "scripts": {"postinstall": "touch installed.marker"}}`,
		"package-lock.json": `{
		  "lockfileVersion": 3,
		  "packages": {
		    "": {"name": "mono", "version": "1.0.0", "dependencies": {"lib": "*"}},
		    "packages/lib": {"name": "lib", "version": "0.3.0", "dependencies": {"util": "*"}},
		    "packages/util": {"name": "util", "version": "0.1.0"},
		    "node_modules/lib": {"resolved": "packages/lib", "link": true},
		    "node_modules/util": {"resolved": "packages/util", "link": true}
		  }
		}`,
		"packages/lib/package.json":  `{"name": "lib", "version": "0.3.0"}`,
		"packages/util/package.json": `{"name": "util", "version": "0.1.0"}`,
	})
	return dir
}

func TestInstallCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh and symlinks")
	}
	dir := monorepo(t)

	out, _, err := runCLI(t, "install", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "+ lib@0.3.0 linked")
	assert.Contains(t, out, "Installed mono@1.0.0")
	assert.FileExists(t, filepath.Join(dir, "node_modules", "lib", "package.json"))
	assert.FileExists(t, filepath.Join(dir, "node_modules", ".store", "lib@0.3.0", "node_modules", "util", "package.json"))
	assert.FileExists(t, filepath.Join(dir, "installed.marker"))

	out, _, err = runCLI(t, "--dir", dir)
	require.NoError(t, err, "install is the default command")
	assert.Contains(t, out, "Installed mono@1.0.0")
	assert.NotContains(t, out, "linked", "second run changes nothing")
}

func TestInstallIgnoreScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs symlinks")
	}
	dir := monorepo(t)

	_, _, err := runCLI(t, "install", "--dir", dir, "--ignore-scripts", "--no-cache")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "installed.marker"))
}

func TestInstallUnsupportedLock(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"package.json": `{"name": "app"}`,
		"yarn.lock":    "# yarn lockfile v1\n",
	})

	out, _, err := runCLI(t, "install", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "yarn.lock")
	assert.Contains(t, out, "yarn projects are not installed")
	assert.NoDirExists(t, filepath.Join(dir, "node_modules"))
}

func TestInstallMissingManifest(t *testing.T) {
	_, _, err := runCLI(t, "install", "--dir", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)
}

func TestInvalidStoreRootFlag(t *testing.T) {
	dir := monorepo(t)
	_, _, err := runCLI(t, "plan", "--dir", dir, "--store-root", "a/b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestPlanCommand(t *testing.T) {
	dir := monorepo(t)

	out, _, err := runCLI(t, "plan", "--dir", dir, "--store-root", ".pkgs")
	require.NoError(t, err)
	assert.Contains(t, out, "mono@1.0.0 (lockfileVersion 3)")
	assert.Contains(t, out, "+ lib@0.3.0 node_modules/lib -> .pkgs/lib@0.3.0/node_modules/lib")
	assert.Contains(t, out, "+ util@0.1.0 node_modules/.pkgs/lib@0.3.0/node_modules/util -> ../../util@0.1.0/node_modules/util")
	assert.NoDirExists(t, filepath.Join(dir, "node_modules"), "plan touches nothing")
}

func TestGraphCommand(t *testing.T) {
	dir := monorepo(t)

	out, _, err := runCLI(t, "graph", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph plan {")
	assert.Contains(t, out, `"mono@1.0.0" -> "lib@0.3.0";`)
	assert.Contains(t, out, `"lib@0.3.0" -> "util@0.1.0";`)

	file := filepath.Join(t.TempDir(), "deps.dot")
	out, _, err = runCLI(t, "graph", "--dir", dir, "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, file)
	assert.FileExists(t, file)

	out, _, err = runCLI(t, "graph", "--dir", dir, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"store_dir": "node_modules/.store/lib@0.3.0/node_modules/lib"`)

	_, _, err = runCLI(t, "graph", "--dir", dir, "--format", "png")
	assert.ErrorContains(t, err, `unknown format "png"`)
}

func TestStoreCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs symlinks")
	}
	dir := monorepo(t)

	out, _, err := runCLI(t, "store", "ls", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Store is empty")

	_, _, err = runCLI(t, "install", "--dir", dir, "--ignore-scripts")
	require.NoError(t, err)
	stale := filepath.Join(dir, "node_modules", ".store", "old@0.0.1")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	out, _, err = runCLI(t, "store", "ls", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `lib\s+0\.3\.0`, out)
	assert.Regexp(t, `old\s+0\.0\.1`, out)

	out, _, err = runCLI(t, "store", "prune", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "- old@0.0.1")
	assert.NoDirExists(t, stale)
	assert.DirExists(t, filepath.Join(dir, "node_modules", ".store", "util@0.1.0"))
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version: ")
	assert.Contains(t, out, "commit: ")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := runCLI(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "nodestore")
		})
	}

	_, _, err := runCLI(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestUIPlainOutsideTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, termenv.Ascii, colorProfile(&buf))

	u := newUI(&buf)
	u.success("done %d", 3)
	u.pkg(3, iconAdd, "a@1.0.0", "extracted")
	u.stats(stat{2, "linked"}, stat{0, "bins"})
	assert.Equal(t, "✓ done 3\n  + a@1.0.0 extracted\n  2 linked\n", buf.String())
}
