package linker

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/nodestore/pkg/errors"
)

// BinLink is one executable exposed in node_modules/.bin.
type BinLink struct {
	Name   string // file name under .bin
	Path   string // project-relative link path
	Target string // link target, relative to the .bin directory
}

// BinLinks computes the .bin entries for a root dependency. bins maps
// executable names to package-relative files as declared in package.json.
// Entries are returned sorted by name; invalid names and files that escape
// the package are reported as INVALID_MANIFEST.
func BinLinks(binDir, pkgName string, bins map[string]string) ([]BinLink, error) {
	names := make([]string, 0, len(bins))
	for name := range bins {
		names = append(names, name)
	}
	sort.Strings(names)

	links := make([]BinLink, 0, len(names))
	for _, name := range names {
		if err := errors.ValidateBinName(name); err != nil {
			return nil, err
		}
		file := path.Clean(strings.TrimPrefix(filepath.ToSlash(bins[name]), "./"))
		if file == "." || file == ".." || strings.HasPrefix(file, "../") || path.IsAbs(file) {
			return nil, errors.New(errors.ErrCodeInvalidManifest,
				"%s: bin %q points outside the package (%s)", pkgName, name, bins[name])
		}
		links = append(links, BinLink{
			Name:   name,
			Path:   path.Join(binDir, name),
			Target: path.Join("..", pkgName, file),
		})
	}
	return links, nil
}

// LinkBins exposes a root dependency's executables in node_modules/.bin.
//
// A regular file already sitting at a bin path is a generated shim from an
// earlier run and is kept. A bin already linked to a different package is
// left alone with a warning; the first package to claim a name keeps it.
// Targets are made executable. It returns the links that now exist.
func (l *Linker) LinkBins(binDir, pkgName string, bins map[string]string) ([]BinLink, error) {
	links, err := BinLinks(binDir, pkgName, bins)
	if err != nil {
		return nil, err
	}

	var linked []BinLink
	for _, bl := range links {
		abs := l.Abs(bl.Path)
		if info, err := l.fs.Lstat(abs); err == nil && info.Mode().IsRegular() {
			l.logger.Debug("keeping generated shim", "bin", bl.Name)
			linked = append(linked, bl)
			continue
		}

		if _, err := l.EnsureLink(bl.Path, bl.Target); err != nil {
			if errors.Is(err, errors.ErrCodeSymlinkCollision) {
				l.logger.Warn("bin already provided by another package", "bin", bl.Name, "package", pkgName)
				continue
			}
			return linked, err
		}

		if err := l.makeExecutable(filepath.Join(filepath.Dir(abs), filepath.FromSlash(bl.Target))); err != nil {
			l.logger.Warn("bin target is missing", "bin", bl.Name, "package", pkgName, "err", err)
		}
		linked = append(linked, bl)
	}
	return linked, nil
}

func (l *Linker) makeExecutable(p string) error {
	info, err := l.fs.Stat(p)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode&0o111 == 0o111 {
		return nil
	}
	return l.fs.Chmod(p, mode|0o111)
}
