// Package observability lets the install packages report progress without
// depending on whoever consumes it.
//
// Emitters call [Install] or [Cache] and invoke the returned hooks. Until a
// consumer registers its own implementation the hooks do nothing. The CLI uses
// [Use] to print per-package progress for the duration of one command.
package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Package outcomes passed to InstallHooks.OnPackage.
const (
	OutcomeExtracted = "extracted"
	OutcomeLinked    = "linked"
	OutcomePresent   = "present"
	OutcomeReused    = "reused"
	OutcomeSkipped   = "skipped"
)

// InstallHooks receives events from an install run.
type InstallHooks interface {
	OnInstallStart(ctx context.Context, runID, root string)
	// OnPackage fires once per visited dependency with one of the Outcome
	// constants.
	OnPackage(ctx context.Context, pkg, outcome string, depth int)
	OnScript(ctx context.Context, pkg, event string, duration time.Duration, err error)
	// OnInstallComplete fires whether or not the run succeeded.
	OnInstallComplete(ctx context.Context, runID string, packages int, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups. keyType names the kind of
// entry, e.g. "integrity".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopInstallHooks ignores every event. Embed it to implement only a subset.
type NoopInstallHooks struct{}

func (NoopInstallHooks) OnInstallStart(context.Context, string, string)                       {}
func (NoopInstallHooks) OnPackage(context.Context, string, string, int)                       {}
func (NoopInstallHooks) OnScript(context.Context, string, string, time.Duration, error)       {}
func (NoopInstallHooks) OnInstallComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type registry struct {
	install InstallHooks
	cache   CacheHooks
}

var (
	writeMu sync.Mutex
	active  atomic.Pointer[registry]
)

func init() { Reset() }

// update applies f to a copy of the active registry and publishes the copy.
func update(f func(*registry)) {
	writeMu.Lock()
	defer writeMu.Unlock()
	next := *active.Load()
	f(&next)
	active.Store(&next)
}

// SetInstallHooks replaces the install hooks. nil is ignored.
func SetInstallHooks(h InstallHooks) {
	if h == nil {
		return
	}
	update(func(r *registry) { r.install = h })
}

// SetCacheHooks replaces the cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	update(func(r *registry) { r.cache = h })
}

// Install returns the active install hooks.
func Install() InstallHooks { return active.Load().install }

// Cache returns the active cache hooks.
func Cache() CacheHooks { return active.Load().cache }

// Use registers install and cache hooks (either may be nil to keep the
// current one) and returns a func that restores the previous pair.
func Use(install InstallHooks, cache CacheHooks) (restore func()) {
	prev := active.Load()
	SetInstallHooks(install)
	SetCacheHooks(cache)
	return func() {
		update(func(r *registry) { *r = *prev })
	}
}

// Reset restores the no-op hooks.
func Reset() {
	writeMu.Lock()
	defer writeMu.Unlock()
	active.Store(&registry{install: NoopInstallHooks{}, cache: NoopCacheHooks{}})
}
