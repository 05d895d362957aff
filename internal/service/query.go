package service

import (
	"context"
	"errors"
	"sort"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/crypto"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/domain"
)

// GetConversation returns the decrypted history between userID and otherID in
// stored order. Admins may always read; everyone else needs an active package.
// A pair that never talked yields an empty list.
func (s *Service) GetConversation(ctx context.Context, userID, otherID string) ([]domain.MessageView, error) {
	if userID == otherID {
		return nil, apperr.Invalid("cannot open a conversation with yourself")
	}
	user, err := s.users.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.ResolveUser(ctx, otherID); err != nil {
		return nil, err
	}
	if !user.CanMessage() {
		return nil, apperr.ErrPackageRequired
	}

	conv, err := s.store.FindByParticipants(ctx, userID, otherID)
	if errors.Is(err, apperr.ErrConversationNotFound) {
		return []domain.MessageView{}, nil
	}
	if err != nil {
		return nil, err
	}

	key := conversationKey(conv)
	out := make([]domain.MessageView, len(conv.Messages))
	for i := range conv.Messages {
		out[i] = s.view(conv, key, i)
	}
	return out, nil
}

// UnreadCount sums messages addressed to userID that are still unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var gen int64
	cacheable := false
	if s.cache != nil {
		n, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.Warnw("unread cache read failed", "user", userID, "err", err)
		}
		s.metrics.UnreadCache(ok)
		if ok {
			return n, nil
		}
		// taken before the store read so a concurrent change voids the write
		if gen, err = s.cache.Generation(ctx, userID); err == nil {
			cacheable = true
		} else {
			s.log.Warnw("unread cache generation read failed", "user", userID, "err", err)
		}
	}

	convs, err := s.store.FindByParticipant(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, c := range convs {
		total += c.UnreadFor(userID)
	}

	if cacheable {
		if _, err := s.cache.SetAt(ctx, userID, total, gen); err != nil {
			s.log.Warnw("unread cache write failed", "user", userID, "err", err)
		}
	}
	return total, nil
}

// ListAdminConversations builds the admin inbox, most recently active first.
func (s *Service) ListAdminConversations(ctx context.Context, adminID string) ([]domain.ConversationSummary, error) {
	admin, err := s.users.ResolveUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, apperr.ErrUnauthorized
	}

	convs, err := s.store.FindByParticipant(ctx, adminID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		otherID := c.Other(adminID)
		sum := domain.ConversationSummary{
			ConversationID: c.ID.Hex(),
			OtherUser:      domain.Participant{ID: otherID},
			UnreadCount:    c.UnreadFor(adminID),
			LastUpdated:    c.LastUpdated,
		}
		if u, err := s.users.ResolveUser(ctx, otherID); err == nil {
			sum.OtherUser.DisplayName = u.DisplayName
		} else if !errors.Is(err, apperr.ErrUserNotFound) {
			s.log.Warnw("resolve conversation participant failed", "user", otherID, "err", err)
		}
		if last := c.Last(); last != nil {
			sum.LastMessage = s.preview(c, *last)
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

func (s *Service) preview(c *domain.Conversation, m domain.Message) *domain.MessagePreview {
	p := &domain.MessagePreview{Sender: m.Sender, CreatedAt: m.CreatedAt}
	pt, err := crypto.Decrypt(m.Ciphertext, m.IV, conversationKey(c))
	if err != nil {
		s.metrics.DecryptFailure()
		s.log.Warnw("preview decryption failed", "conversation_id", c.ID.Hex())
		p.Error = decryptErrorMarker
		return p
	}
	p.Content = Truncate(string(pt), s.cfg.PreviewLength)
	return p
}

// Truncate cuts s to n runes and appends "..." when anything was removed.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// SortByAttention orders an inbox by unread count, then by last activity.
func SortByAttention(summaries []domain.ConversationSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.UnreadCount != b.UnreadCount {
			return a.UnreadCount > b.UnreadCount
		}
		return a.LastUpdated.After(b.LastUpdated)
	})
}
