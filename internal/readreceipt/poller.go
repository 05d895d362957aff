package readreceipt

import (
	"context"
	"time"
)

// FetchFunc loads the current message list of the viewed conversation.
type FetchFunc func(ctx context.Context) ([]Message, error)

// Poll refreshes the tracked list every interval until ctx is done. Fetch
// errors are logged and the next tick tries again.
func (s *Session) Poll(ctx context.Context, interval time.Duration, fetch FetchFunc) {
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()
	s.refresh(ctx, fetch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, fetch)
		}
	}
}

func (s *Session) refresh(ctx context.Context, fetch FetchFunc) {
	msgs, err := fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warnw("conversation poll failed", "err", err)
		}
		return
	}
	s.Track(msgs)
}
