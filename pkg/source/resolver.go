package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodestore/pkg/cache"
	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/observability"
)

// Outcome reports what Materialize did for a node.
type Outcome int

const (
	// Skipped: the node is a removed optional dependency.
	Skipped Outcome = iota
	// Extracted: an archive was unpacked into the store directory.
	Extracted
	// Linked: the store directory was symlinked to an external directory.
	Linked
	// Present: the store directory already existed for a directory locator.
	Present
)

func (o Outcome) String() string {
	switch o {
	case Extracted:
		return observability.OutcomeExtracted
	case Linked:
		return observability.OutcomeLinked
	case Present:
		return observability.OutcomePresent
	default:
		return observability.OutcomeSkipped
	}
}

// Materialized reports whether the node now has contents in the store.
func (o Outcome) Materialized() bool { return o != Skipped }

// Options configures a Resolver.
type Options struct {
	Extractor     Extractor   // defaults to TarExtractor{}
	Cache         cache.Cache // remembers verified archives; defaults to NullCache
	SkipIntegrity bool        // do not check archive digests
	Logger        *log.Logger // defaults to log.Default()
}

// Resolver materializes dependencies into the package store.
type Resolver struct {
	extractor     Extractor
	cache         cache.Cache
	skipIntegrity bool
	logger        *log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		extractor:     opts.Extractor,
		cache:         opts.Cache,
		skipIntegrity: opts.SkipIntegrity,
		logger:        opts.Logger,
	}
	if r.extractor == nil {
		r.extractor = TarExtractor{}
	}
	if r.cache == nil {
		r.cache = cache.NewNullCache()
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Materialize puts node's contents at storeDir, an absolute path.
//
// Archives are verified against the node's integrity string and extracted.
// Directories are symlinked into place unless storeDir already exists.
// Removed optional dependencies are logged and skipped.
func (r *Resolver) Materialize(ctx context.Context, node *graph.Node, storeDir string) (Outcome, error) {
	if node.Removed() {
		r.logger.Info("skipping removed optional dependency", "name", node.Name)
		return Skipped, nil
	}

	kind, p, err := Classify(node.Resolved)
	if err != nil {
		return Skipped, err
	}

	switch kind {
	case KindArchive:
		if err := r.verify(ctx, node, p); err != nil {
			return Skipped, err
		}
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			return Skipped, errors.Wrap(errors.ErrCodeInternal, err, "create %s", storeDir)
		}
		r.logger.Debug("extracting", "package", node.NameVersion(), "archive", p)
		if err := r.extractor.Extract(ctx, p, storeDir); err != nil {
			return Skipped, err
		}
		return Extracted, nil

	case KindDirectory:
		if _, err := os.Lstat(storeDir); err == nil {
			return Present, nil
		}
		if err := os.MkdirAll(filepath.Dir(storeDir), 0o755); err != nil {
			return Skipped, errors.Wrap(errors.ErrCodeInternal, err, "create parent of %s", storeDir)
		}
		if err := os.Symlink(p, storeDir); err != nil {
			return Skipped, errors.Wrap(errors.ErrCodeInternal, err, "link %s -> %s", storeDir, p)
		}
		r.logger.Debug("linked local package", "package", node.NameVersion(), "dir", p)
		return Linked, nil
	}

	// A non-root node with an empty locator but a version: the lock file
	// kept the entry without saying where it comes from.
	return Skipped, errors.New(errors.ErrCodeInvalidSourceLocator,
		"%s has no resolved location", node.NameVersion())
}

func (r *Resolver) verify(ctx context.Context, node *graph.Node, archive string) error {
	if r.skipIntegrity || node.Integrity == "" {
		return nil
	}
	digest, ok, err := ParseIntegrity(node.Integrity)
	if err != nil {
		return err
	}
	if !ok {
		r.logger.Debug("no supported integrity algorithm", "package", node.NameVersion())
		return nil
	}

	info, err := os.Stat(archive)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSourceLocator, err, "%s", archive)
	}
	key := cache.ArchiveKey(archive, info.Size(), info.ModTime(), node.Integrity)
	if _, hit, err := r.cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "integrity")
		return nil
	}
	observability.Cache().OnCacheMiss(ctx, "integrity")

	f, err := os.Open(archive)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "open %s", archive)
	}
	defer f.Close()
	if err := digest.Verify(f); err != nil {
		if errors.Is(err, errors.ErrCodeIntegrityMismatch) {
			return errors.New(errors.ErrCodeIntegrityMismatch,
				"%s: %s does not match %s", node.NameVersion(), archive, digest.Algorithm)
		}
		return err
	}

	if err := r.cache.Set(ctx, key, []byte(digest.Algorithm), 0); err != nil {
		r.logger.Warn("failed to record verified archive", "archive", archive, "err", err)
		return nil
	}
	observability.Cache().OnCacheSet(ctx, "integrity", len(digest.Algorithm))
	return nil
}
