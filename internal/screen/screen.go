// Package screen scopes requests and live subscriptions to one mounted
// screen instance. Results that arrive after the instance was left or
// replaced are dropped.
package screen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/partnest/sparesync/internal/appstate"
	"github.com/partnest/sparesync/internal/live"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
)

// Options tunes a Registry.
type Options struct {
	Logger      *logger.Logger
	LiveMetrics *metrics.LiveMetrics
}

// Registry tracks the current instance of every screen name.
type Registry struct {
	store   *appstate.Store
	channel live.Channel
	logg    *logger.Logger
	metrics *metrics.LiveMetrics

	mu      sync.Mutex
	current map[string]*Screen
	nextGen uint64
}

// NewRegistry builds a registry dispatching into store and opening live
// channels through channel.
func NewRegistry(store *appstate.Store, channel live.Channel, opts Options) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if channel == nil {
		return nil, fmt.Errorf("live channel required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Registry{
		store:   store,
		channel: channel,
		logg:    logg,
		metrics: opts.LiveMetrics,
		current: make(map[string]*Screen),
	}, nil
}

// Enter mounts a new instance of name. A previous instance of the same name
// is left first, which closes its live channels and cancels its requests.
func (r *Registry) Enter(parent context.Context, name string) (*Screen, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("screen name required")
	}
	if parent == nil {
		parent = context.Background()
	}

	if prev := r.Current(name); prev != nil {
		if err := prev.Leave(); err != nil {
			r.logg.Warn(r.logg.WithField(prev.ctx, "error", err.Error()), "screen.leave.failed")
		}
	}

	r.mu.Lock()
	r.nextGen++
	gen := r.nextGen
	ctx, cancel := context.WithCancel(parent)
	ctx = r.logg.WithScreen(ctx, name, gen)
	s := &Screen{
		name:       name,
		generation: gen,
		registry:   r,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.scope = live.NewScope(ctx, r.channel, live.ScopeOptions{Logger: r.logg, Metrics: r.metrics})
	raced := r.current[name]
	r.current[name] = s
	r.mu.Unlock()

	if raced != nil {
		_ = raced.Leave()
	}
	r.logg.Debug(ctx, "screen.enter")
	return s, nil
}

// Current returns the mounted instance of name, or nil.
func (r *Registry) Current(name string) *Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[name]
}

// LeaveAll leaves every mounted screen.
func (r *Registry) LeaveAll() error {
	r.mu.Lock()
	screens := make([]*Screen, 0, len(r.current))
	for _, s := range r.current {
		screens = append(screens, s)
	}
	r.mu.Unlock()

	var firstErr error
	for _, s := range screens {
		if err := s.Leave(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) isCurrent(s *Screen) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[s.name] == s
}

func (r *Registry) release(s *Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current[s.name] == s {
		delete(r.current, s.name)
	}
}

// Screen is one mounted instance. It implements appstate.Sink.
type Screen struct {
	name       string
	generation uint64
	registry   *Registry
	ctx        context.Context
	cancel     context.CancelFunc
	scope      *live.Scope

	mu   sync.RWMutex
	left bool
	once sync.Once
	err  error
}

// Name returns the screen name.
func (s *Screen) Name() string { return s.name }

// Generation increases every time a screen is entered.
func (s *Screen) Generation() uint64 { return s.generation }

// Context is cancelled when the screen is left.
func (s *Screen) Context() context.Context { return s.ctx }

// Live returns the scope owning this instance's push channels.
func (s *Screen) Live() *live.Scope { return s.scope }

// Active reports whether this instance is still mounted and current.
func (s *Screen) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.left && s.registry.isCurrent(s)
}

// State returns the shared application state.
func (s *Screen) State() appstate.State {
	return s.registry.store.State()
}

// Dispatch forwards action to the store while this instance is current and
// drops it otherwise.
func (s *Screen) Dispatch(action appstate.Action) appstate.State {
	s.Apply(action)
	return s.registry.store.State()
}

// Apply is Dispatch reporting whether the action was applied.
func (s *Screen) Apply(action appstate.Action) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.left || !s.registry.isCurrent(s) {
		s.registry.logg.Debug(s.registry.logg.WithField(s.ctx, "action", appstate.Name(action)), "screen.stale.dropped")
		return false
	}
	s.registry.store.Dispatch(action)
	return true
}

// Subscribe opens a live channel for topic that replaces the matching state.
func (s *Screen) Subscribe(topic live.Topic) error {
	apply, err := live.ApplierFor(topic.Class, s)
	if err != nil {
		return err
	}
	return s.scope.Subscribe(topic, apply)
}

// Leave cancels in-flight requests and closes every live channel. Only the
// first call does work.
func (s *Screen) Leave() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.left = true
		s.mu.Unlock()

		s.cancel()
		s.err = s.scope.Close()
		s.registry.release(s)
		s.registry.logg.Debug(s.ctx, "screen.leave")
	})
	return s.err
}
