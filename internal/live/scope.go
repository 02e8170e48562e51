package live

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/partnest/sparesync/pkg/enums"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
)

// ErrScopeClosed is returned when subscribing on a closed scope.
var ErrScopeClosed = errors.New("live scope closed")

// Applier consumes one snapshot. Returning an error logs it; the stream keeps running.
// An Applier may subscribe or unsubscribe other classes on its own scope, but
// not its own class: that waits for the running Applier to return.
type Applier func(ctx context.Context, snap Snapshot) error

// ScopeOptions tunes a Scope.
type ScopeOptions struct {
	Logger  *logger.Logger
	Metrics *metrics.LiveMetrics
}

// Scope owns at most one subscription per resource class for one screen
// instance. Close releases all of them.
type Scope struct {
	ctx     context.Context
	ch      Channel
	logg    *logger.Logger
	metrics *metrics.LiveMetrics

	mu     sync.Mutex
	subs   map[enums.ResourceClass]*subscription
	closed bool
}

type subscription struct {
	topic  Topic
	stream Stream
	done   chan struct{}
}

// NewScope builds a scope bound to ctx. Receive loops stop when ctx ends.
func NewScope(ctx context.Context, ch Channel, opts ScopeOptions) *Scope {
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Scope{
		ctx:     ctx,
		ch:      ch,
		logg:    logg,
		metrics: opts.Metrics,
		subs:    make(map[enums.ResourceClass]*subscription),
	}
}

// Subscribe opens topic and applies each snapshot with apply. Any existing
// subscription for the same class is closed first.
func (s *Scope) Subscribe(topic Topic, apply Applier) error {
	if apply == nil {
		return fmt.Errorf("live applier required")
	}
	if err := topic.Validate(); err != nil {
		return err
	}

	// Streams are released outside the lock: a receive loop may be inside an
	// Applier that calls back into the scope.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScopeClosed
	}
	existing := s.subs[topic.Class]
	delete(s.subs, topic.Class)
	s.mu.Unlock()

	var closeErr error
	if existing != nil {
		closeErr = s.release(existing)
	}

	stream, err := s.ch.Open(s.ctx, topic)
	if err != nil {
		return multierr.Append(closeErr, fmt.Errorf("open %s channel: %w", topic.Class, err))
	}
	sub := &subscription{topic: topic, stream: stream, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return multierr.Combine(closeErr, stream.Close(), ErrScopeClosed)
	}
	raced := s.subs[topic.Class]
	s.subs[topic.Class] = sub
	s.mu.Unlock()

	s.metrics.Opened(topic.Class.String())
	s.logg.Debug(s.logCtx(topic), "live.open")
	go s.receive(sub, apply)

	if raced != nil {
		closeErr = multierr.Append(closeErr, s.release(raced))
	}
	return closeErr
}

// Unsubscribe closes the subscription for class, if any.
func (s *Scope) Unsubscribe(class enums.ResourceClass) error {
	s.mu.Lock()
	sub, ok := s.subs[class]
	delete(s.subs, class)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.release(sub)
}

// Close releases every subscription. It is safe to call more than once.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = map[enums.ResourceClass]*subscription{}
	s.mu.Unlock()

	classes := make([]string, 0, len(subs))
	for class := range subs {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)

	var err error
	for _, class := range classes {
		err = multierr.Append(err, s.release(subs[enums.ResourceClass(class)]))
	}
	return err
}

// Active lists the classes with an open subscription, sorted.
func (s *Scope) Active() []enums.ResourceClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]enums.ResourceClass, 0, len(s.subs))
	for class := range s.subs {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Scope) release(sub *subscription) error {
	err := sub.stream.Close()
	<-sub.done
	s.metrics.Closed(sub.topic.Class.String())
	s.logg.Debug(s.logCtx(sub.topic), "live.close")
	return err
}

func (s *Scope) receive(sub *subscription, apply Applier) {
	defer close(sub.done)
	snaps := sub.stream.Snapshots()
	for {
		select {
		case <-s.ctx.Done():
			// drain until the stream is closed so the producer never blocks
			for range snaps {
			}
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := apply(s.ctx, snap); err != nil {
				s.logg.Error(s.logCtx(sub.topic), "live.apply.failed", err)
				continue
			}
			s.metrics.Message(sub.topic.Class.String())
		}
	}
}

func (s *Scope) logCtx(topic Topic) context.Context {
	return s.logg.WithFields(s.ctx, map[string]any{
		"class":   topic.Class.String(),
		"user_id": topic.UserID.String(),
	})
}
