// Package source turns a dependency's locator into contents in the package
// store.
//
// Locators arrive pre-resolved from the lock file and come in three kinds:
//
//   - archive: absolute path to a packed tarball, extracted into the store
//   - directory: absolute path to an unpacked package, symlinked into the store
//   - removed: empty, an optional dependency pruned from resolution
//
// Network sources are resolved upstream and never reach this package.
package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
)

// Kind classifies a locator.
type Kind int

const (
	KindRemoved Kind = iota
	KindArchive
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindDirectory:
		return "directory"
	default:
		return "removed"
	}
}

// Classify reports what kind of locator loc is and the filesystem path it
// names. A "file:" prefix is accepted. Relative paths, URLs and paths that do
// not exist are INVALID_SOURCE_LOCATOR.
func Classify(loc graph.Locator) (Kind, string, error) {
	if loc.Empty() {
		return KindRemoved, "", nil
	}
	p := strings.TrimPrefix(strings.TrimSpace(string(loc)), "file:")
	if strings.Contains(p, "://") || !filepath.IsAbs(p) {
		return 0, "", errors.New(errors.ErrCodeInvalidSourceLocator,
			"%q is not an absolute local path", string(loc))
	}

	info, err := os.Stat(p)
	if err != nil {
		return 0, "", errors.Wrap(errors.ErrCodeInvalidSourceLocator, err, "%s", p)
	}
	switch {
	case info.IsDir():
		return KindDirectory, p, nil
	case info.Mode().IsRegular():
		return KindArchive, p, nil
	}
	return 0, "", errors.New(errors.ErrCodeInvalidSourceLocator,
		"%s is neither a regular file nor a directory", p)
}
