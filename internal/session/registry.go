package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ashureev/chameleon/internal/chat"
	"github.com/ashureev/chameleon/internal/i18n"
)

const (
	defaultCacheSize = 1024
	saveTimeout      = 5 * time.Second
)

// Listener receives every committed state change of a live conversation.
type Listener func(key string, st chat.State)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Deps      chat.Dependencies
	Store     Store
	CacheSize int
	// Options returns the controller options for a new or restored
	// conversation.
	Options func(key string) []chat.Option
	Logger  *slog.Logger
}

type entry struct {
	key      string
	ctrl     *chat.Controller
	lastSeen atomic.Int64
	pins     int // guarded by Registry.mu

	saveMu   sync.Mutex
	savedRev uint64
}

// Registry keeps the live controllers of recently used conversations and
// persists every change to the snapshot store.
type Registry struct {
	deps    chat.Dependencies
	store   Store
	options func(key string) []chat.Option
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	cache  *lru.Cache[string, *entry]
	pinned map[string]*entry

	subsMu  sync.RWMutex
	subs    map[uint64]Listener
	nextSub uint64
}

// NewRegistry creates a Registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(defaultTTL)
	}

	r := &Registry{
		deps:    cfg.Deps,
		store:   cfg.Store,
		options: cfg.Options,
		logger:  cfg.Logger,
		now:     time.Now,
		pinned:  make(map[string]*entry),
		subs:    make(map[uint64]Listener),
	}
	cache, err := lru.NewWithEvict[string, *entry](cfg.CacheSize, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Get returns the live controller for key. A conversation not in memory is
// restored from the snapshot store, or started in lang when none exists.
func (r *Registry) Get(ctx context.Context, key string, lang i18n.Language) *chat.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(ctx, key, lang).ctrl
}

// Pin returns the controller for key like Get and keeps it live until
// release is called: it is neither reaped nor dropped by cache eviction.
// Long-lived connections pin the conversation they serve.
func (r *Registry) Pin(ctx context.Context, key string, lang i18n.Language) (ctrl *chat.Controller, release func()) {
	r.mu.Lock()
	e := r.getLocked(ctx, key, lang)
	e.pins++
	r.pinned[key] = e
	r.mu.Unlock()

	var once sync.Once
	return e.ctrl, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.pins--
			e.lastSeen.Store(r.now().UnixNano())
			if e.pins == 0 && r.pinned[key] == e {
				delete(r.pinned, key)
			}
		})
	}
}

func (r *Registry) getLocked(ctx context.Context, key string, lang i18n.Language) *entry {
	if e, ok := r.cache.Get(key); ok {
		e.lastSeen.Store(r.now().UnixNano())
		return e
	}
	// Evicted from the cache while a connection still holds it.
	if e, ok := r.pinned[key]; ok {
		e.lastSeen.Store(r.now().UnixNano())
		r.cache.Add(key, e)
		return e
	}

	var opts []chat.Option
	if r.options != nil {
		opts = r.options(key)
	}

	e := &entry{key: key}
	rec, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Failed to load session snapshot", "session", key, "error", err)
	}
	if rec != nil {
		e.ctrl = chat.Restore(r.deps, rec.Snapshot, opts...)
		e.savedRev = rec.Snapshot.Revision
		r.logger.Debug("Session restored", "session", key, "revision", rec.Snapshot.Revision)
	} else {
		e.ctrl = chat.New(r.deps, lang, opts...)
		r.logger.Debug("Session created", "session", key, "language", e.ctrl.Language())
	}
	e.lastSeen.Store(r.now().UnixNano())

	e.ctrl.OnChange(func(st chat.State) {
		e.lastSeen.Store(r.now().UnixNano())
		r.persist(e)
		r.publish(key, st)
	})
	r.cache.Add(key, e)
	return e
}

// Subscribe registers fn for state changes of every live conversation. The
// returned function removes it.
func (r *Registry) Subscribe(fn Listener) func() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.subs, id)
	}
}

// Len returns the number of live conversations.
func (r *Registry) Len() int { return r.cache.Len() }

// Reap drops live conversations idle for longer than idle. Pinned and
// loading conversations are kept. Snapshots stay in the store. It returns
// the number dropped.
func (r *Registry) Reap(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := r.now().Add(-idle).UnixNano()
	dropped := 0
	for _, key := range r.cache.Keys() {
		e, ok := r.cache.Peek(key)
		if !ok || e.pins > 0 || e.lastSeen.Load() >= threshold {
			continue
		}
		if state := e.ctrl.State(); state.IsLoading {
			continue
		}
		if r.cache.Remove(key) {
			dropped++
		}
	}
	return dropped
}

func (r *Registry) onEvict(key string, e *entry) {
	r.persist(e)
	r.logger.Debug("Session evicted from memory", "session", key)
}

func (r *Registry) persist(e *entry) {
	snap := e.ctrl.Snapshot()

	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if snap.Revision <= e.savedRev {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.store.Save(ctx, &Record{ID: e.key, Snapshot: snap}); err != nil {
		r.logger.Warn("Failed to save session snapshot", "session", e.key, "error", err)
		return
	}
	e.savedRev = snap.Revision
}

func (r *Registry) publish(key string, st chat.State) {
	r.subsMu.RLock()
	subs := make([]Listener, 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.subsMu.RUnlock()

	for _, fn := range subs {
		fn(key, st)
	}
}
