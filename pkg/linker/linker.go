// Package linker creates the symlinks that stitch the package store
// together, refusing to silently replace a link that points elsewhere.
package linker

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodestore/pkg/errors"
)

// Result describes what EnsureLink did.
type Result int

const (
	// Created means the link did not exist and was created.
	Created Result = iota
	// Unchanged means the link already pointed at the requested target.
	Unchanged
)

func (r Result) String() string {
	if r == Created {
		return "created"
	}
	return "unchanged"
}

// Linker creates links below a project directory. Relative link paths are
// resolved against that directory; link targets are written verbatim.
type Linker struct {
	fs     FS
	root   string
	logger *log.Logger
}

// New creates a Linker rooted at dir. A nil fs uses the OS filesystem and a
// nil logger uses log.Default().
func New(fsys FS, dir string, logger *log.Logger) *Linker {
	if fsys == nil {
		fsys = NewOS()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Linker{fs: fsys, root: dir, logger: logger}
}

// Root returns the project directory the linker resolves paths against.
func (l *Linker) Root() string { return l.root }

// Abs resolves a slash-separated project-relative path.
func (l *Linker) Abs(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.root, p)
}

// EnsureLink makes linkPath a symlink to target.
//
// A missing link is created along with its parent directories. A link that
// already points at target is left alone. A link pointing anywhere else, or
// any non-link file at linkPath, is a SYMLINK_COLLISION: two positions in the
// tree disagree about what the name should resolve to.
func (l *Linker) EnsureLink(linkPath, target string) (Result, error) {
	abs := l.Abs(linkPath)
	target = filepath.FromSlash(target)

	info, err := l.fs.Lstat(abs)
	switch {
	case os.IsNotExist(err):
		if err := l.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return 0, errors.Wrap(errors.ErrCodeInternal, err, "create parent of %s", linkPath)
		}
		if err := l.fs.Symlink(target, abs); err != nil {
			return 0, errors.Wrap(errors.ErrCodeInternal, err, "link %s -> %s", linkPath, target)
		}
		l.logger.Debug("linked", "path", linkPath, "target", target)
		return Created, nil
	case err != nil:
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", linkPath)
	}

	if info.Mode()&fs.ModeSymlink == 0 {
		return 0, errors.New(errors.ErrCodeSymlinkCollision,
			"%s exists and is not a symlink (wanted -> %s)", linkPath, target)
	}

	current, err := l.fs.Readlink(abs)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "read link %s", linkPath)
	}
	if filepath.Clean(current) != filepath.Clean(target) {
		return 0, errors.New(errors.ErrCodeSymlinkCollision,
			"%s points at %s, refusing to repoint it at %s", linkPath, current, target)
	}
	return Unchanged, nil
}

// Exists reports whether anything (including a dangling link) is at p.
func (l *Linker) Exists(p string) bool {
	_, err := l.fs.Lstat(l.Abs(p))
	return err == nil || !os.IsNotExist(err)
}
