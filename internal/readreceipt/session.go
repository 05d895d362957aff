// Package readreceipt decides when displayed messages count as read and
// reports them to the server in batches.
//
// A Session belongs to one conversation view. The view reports how much of
// each message is on screen; a message that stays visible for the dwell time
// is marked read locally and queued. A periodic flush sends one request per
// conversation with every queued address. Requests that failed on the network
// or were throttled are queued again until MaxRetries is exhausted; any other
// failure drops the batch. The local read state is never rolled back.
package readreceipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type Config struct {
	// VisibleThreshold is the on-screen fraction (0,1] that counts as visible.
	VisibleThreshold float64
	Dwell            time.Duration
	FlushInterval    time.Duration
	// MaxRetries bounds how many times an address that failed transiently is
	// queued again.
	MaxRetries int
}

func DefaultConfig() Config {
	return Config{
		VisibleThreshold: 0.6,
		Dwell:            2 * time.Second,
		FlushInterval:    2 * time.Second,
		MaxRetries:       3,
	}
}

// Marker reports confirmed reads for one conversation.
type Marker interface {
	MarkMessagesAsRead(ctx context.Context, conversationID string, addresses []string) error
}

// Message is the part of a fetched message the session needs.
type Message struct {
	Address         string
	ConversationID  string
	Recipient       string
	ReadByRecipient bool
}

var ErrClosed = errors.New("read receipt session closed")

type tracked struct {
	msg       Message
	timer     *clock.Timer
	gen       uint64
	localRead bool
}

type pendingRead struct {
	address        string
	conversationID string
	attempts       int
}

type Session struct {
	cfg    Config
	viewer string
	marker Marker
	clock  clock.Clock
	log    *zap.SugaredLogger

	mu       sync.Mutex
	tracked  map[string]*tracked
	pending  []pendingRead
	queued   map[string]bool
	flushing bool
	closed   bool

	stopLoop context.CancelFunc
	loopDone chan struct{}
}

type Option func(*Session)

func WithClock(c clock.Clock) Option { return func(s *Session) { s.clock = c } }

// NewSession creates a session for viewerID. Only messages addressed to the
// viewer and still unread are observed.
func NewSession(viewerID string, marker Marker, cfg Config, log *zap.SugaredLogger, opts ...Option) (*Session, error) {
	if cfg.VisibleThreshold <= 0 || cfg.VisibleThreshold > 1 {
		return nil, fmt.Errorf("visible threshold must be in (0,1], got %v", cfg.VisibleThreshold)
	}
	if cfg.Dwell <= 0 || cfg.FlushInterval <= 0 {
		return nil, errors.New("dwell and flush interval must be positive")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	s := &Session{
		cfg:     cfg,
		viewer:  viewerID,
		marker:  marker,
		clock:   clock.New(),
		log:     log,
		tracked: make(map[string]*tracked),
		queued:  make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) eligible(m Message) bool {
	return m.Recipient == s.viewer && !m.ReadByRecipient
}

// Track replaces the displayed message list. Entries are matched by address,
// so a running dwell timer survives a refresh that still contains its message.
func (s *Session) Track(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	keep := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		if !s.eligible(m) {
			continue
		}
		keep[m.Address] = true
		if t, ok := s.tracked[m.Address]; ok {
			t.msg = m
			continue
		}
		s.tracked[m.Address] = &tracked{msg: m}
	}
	for addr, t := range s.tracked {
		if keep[addr] {
			continue
		}
		// still queued for the server: keep the optimistic state
		if t.localRead && s.queued[addr] {
			continue
		}
		s.cancelTimer(t)
		delete(s.tracked, addr)
	}
}

// SetVisibility reports the on-screen fraction of a message.
func (s *Session) SetVisibility(address string, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	t, ok := s.tracked[address]
	if !ok || t.localRead {
		return
	}

	if fraction >= s.cfg.VisibleThreshold {
		if t.timer != nil {
			return
		}
		t.gen++
		gen := t.gen
		t.timer = s.clock.AfterFunc(s.cfg.Dwell, func() { s.dwellElapsed(address, gen) })
		return
	}
	s.cancelTimer(t)
}

func (s *Session) cancelTimer(t *tracked) {
	if t.timer == nil {
		return
	}
	t.timer.Stop()
	t.timer = nil
	// invalidates a callback that already fired but has not run yet
	t.gen++
}

func (s *Session) dwellElapsed(address string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	t, ok := s.tracked[address]
	if !ok || t.gen != gen || t.timer == nil {
		return
	}
	t.timer = nil
	t.localRead = true
	s.enqueue(pendingRead{address: address, conversationID: t.msg.ConversationID})
}

func (s *Session) enqueue(p pendingRead) {
	if s.queued[p.address] {
		return
	}
	s.queued[p.address] = true
	s.pending = append(s.pending, p)
}

// IsRead reports whether the viewer has read the message as far as this
// session knows, including reads not yet confirmed by the server.
func (s *Session) IsRead(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracked[address]
	return ok && t.localRead
}

// Pending returns the queued addresses in enqueue order.
func (s *Session) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pending))
	for i, p := range s.pending {
		out[i] = p.address
	}
	return out
}

func retryable(err error) bool {
	return errors.Is(err, apperr.ErrNetwork) || errors.Is(err, apperr.ErrRateLimited)
}

// Flush sends queued reads, one call per conversation. It returns at once
// when another flush is still in flight. Failures are logged and returned
// joined; transient ones are queued again while retries remain.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.flushing || len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.flushing = true
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	var order []string
	groups := make(map[string][]pendingRead)
	for _, p := range batch {
		if _, ok := groups[p.conversationID]; !ok {
			order = append(order, p.conversationID)
		}
		groups[p.conversationID] = append(groups[p.conversationID], p)
	}

	var errs []error
	var failed []pendingRead
	var done []pendingRead // sent or rejected; no longer queued
	for _, conv := range order {
		items := groups[conv]
		addrs := make([]string, len(items))
		for i, p := range items {
			addrs[i] = p.address
		}
		if err := s.marker.MarkMessagesAsRead(ctx, conv, addrs); err != nil {
			s.log.Warnw("read receipt flush failed", "conversation_id", conv, "count", len(addrs), "err", err)
			errs = append(errs, err)
			if !retryable(err) {
				done = append(done, items...)
				continue
			}
			failed = append(failed, items...)
			continue
		}
		done = append(done, items...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushing = false
	for _, p := range done {
		delete(s.queued, p.address)
	}
	for _, p := range failed {
		p.attempts++
		if p.attempts > s.cfg.MaxRetries {
			delete(s.queued, p.address)
			s.log.Warnw("read receipt dropped after retries", "address", p.address, "attempts", p.attempts)
			continue
		}
		s.pending = append(s.pending, p)
	}
	return errors.Join(errs...)
}

// Start runs the periodic flush until ctx is done or Close is called.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.stopLoop != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.stopLoop = cancel
	s.loopDone = make(chan struct{})
	done := s.loopDone
	s.mu.Unlock()

	ticker := s.clock.Ticker(s.cfg.FlushInterval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Flush(ctx)
			}
		}
	}()
}

// Close cancels every dwell timer and the flush loop, then sends what is
// already queued. Queued addresses name their own conversation, so the final
// flush cannot touch another view's state.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	for _, t := range s.tracked {
		s.cancelTimer(t)
	}
	stop, done := s.stopLoop, s.loopDone
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	return s.Flush(ctx)
}
