// Package service implements the conversation operations: sending, fetching,
// read receipts, unread counts and the admin inbox.
package service

import (
	"context"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/crypto"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/identity"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/kafka"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/metrics"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultPreviewLength = 50
	decryptErrorMarker   = "decryption_failed"
	publishTimeout       = 2 * time.Second
)

// UnreadCache is the cache-aside store for unread totals. SetAt must refuse
// the write when an Invalidate for the user happened after Generation.
type UnreadCache interface {
	Get(ctx context.Context, userID string) (int, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	SetAt(ctx context.Context, userID string, n int, gen int64) (bool, error)
	Invalidate(ctx context.Context, userIDs ...string) error
}

type Config struct {
	PreviewLength int
}

type Service struct {
	store   repository.Store
	users   identity.Resolver
	cache   UnreadCache
	events  kafka.Publisher
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	cfg     Config
	now     func() time.Time
}

type Option func(*Service)

func WithUnreadCache(c UnreadCache) Option { return func(s *Service) { s.cache = c } }

func WithPublisher(p kafka.Publisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store repository.Store, users identity.Resolver, log *zap.SugaredLogger, cfg Config, opts ...Option) *Service {
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}
	s := &Service{
		store:  store,
		users:  users,
		events: kafka.NopPublisher{},
		log:    log,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// view decrypts m. A decryption failure is reported on the view, not returned.
func (s *Service) view(c *domain.Conversation, key []byte, index int) domain.MessageView {
	m := c.Messages[index]
	v := domain.MessageView{
		Address:         addressFor(c, index),
		MessageID:       m.ID.Hex(),
		ConversationID:  c.ID.Hex(),
		Sender:          m.Sender,
		Recipient:       c.Recipient(m),
		CreatedAt:       m.CreatedAt,
		ReadBySender:    m.ReadBySender,
		ReadByRecipient: m.ReadByRecipient,
	}
	pt, err := crypto.Decrypt(m.Ciphertext, m.IV, key)
	if err != nil {
		s.metrics.DecryptFailure()
		s.log.Warnw("message decryption failed", "conversation_id", c.ID.Hex(), "index", index)
		v.Error = decryptErrorMarker
		return v
	}
	v.Content = string(pt)
	return v
}

func conversationKey(c *domain.Conversation) []byte {
	return crypto.DeriveKey(c.Participants[0], c.Participants[1])
}

func (s *Service) invalidateUnread(ctx context.Context, userIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.log.Warnw("unread cache invalidate failed", "users", userIDs, "err", err)
	}
}

// publish is best effort; a broker outage never fails the operation.
func (s *Service) publish(ctx context.Context, ev kafka.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.EventPublishFailed()
		s.log.Warnw("event publish failed", "type", ev.Type, "conversation_id", ev.ConversationID, "err", err)
	}
}
