package install

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/matzehuels/nodestore/pkg/errors"
	"github.com/matzehuels/nodestore/pkg/graph"
	"github.com/matzehuels/nodestore/pkg/layout"
)

// StoreEntry is one directory under node_modules/<store-root>.
type StoreEntry struct {
	Key      string
	Identity graph.Identity // zero when Key does not parse
	Parsed   bool
}

// ListStore returns the store entries of the project at dir sorted by key.
// A project without a store has no entries.
func ListStore(dir, storeRoot string) ([]StoreEntry, error) {
	root := storePath(dir, storeRoot)
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", root)
	}

	var out []StoreEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		se := StoreEntry{Key: e.Name()}
		if id, err := layout.ParseStoreKey(e.Name()); err == nil {
			se.Identity, se.Parsed = id, true
		}
		out = append(out, se)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Prune removes store entries that no step of plan would materialize and
// returns their keys. Links pointing into removed entries are left dangling
// until the next install rewrites them.
func Prune(dir, storeRoot string, plan []Step) ([]string, error) {
	live := make(map[string]bool)
	for _, s := range plan {
		if s.First {
			live[layout.StoreKey(s.Identity)] = true
		}
	}

	entries, err := ListStore(dir, storeRoot)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if live[e.Key] {
			continue
		}
		p := filepath.Join(storePath(dir, storeRoot), e.Key)
		if err := os.RemoveAll(p); err != nil {
			return removed, errors.Wrap(errors.ErrCodeInternal, err, "remove %s", p)
		}
		removed = append(removed, e.Key)
	}
	return removed, nil
}

func storePath(dir, storeRoot string) string {
	if storeRoot == "" {
		storeRoot = layout.DefaultStoreRoot
	}
	return filepath.Join(dir, layout.ModulesDir, storeRoot)
}
