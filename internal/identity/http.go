package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type HTTPConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
	MaxFailures     uint32
	OpenTimeout     time.Duration
}

// HTTPResolver asks the account service over HTTP. 5xx and transport errors
// are retried with exponential backoff; repeated failures open the breaker.
type HTTPResolver struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	conf HTTPConfig
}

func NewHTTPResolver(conf HTTPConfig, log *zap.SugaredLogger) *HTTPResolver {
	if conf.Timeout <= 0 {
		conf.Timeout = 5 * time.Second
	}
	if conf.RetryMaxElapsed <= 0 {
		conf.RetryMaxElapsed = 3 * time.Second
	}
	if conf.MaxFailures == 0 {
		conf.MaxFailures = 5
	}
	if conf.OpenTimeout <= 0 {
		conf.OpenTimeout = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:        "identity",
		MaxRequests: 1,
		Timeout:     conf.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= conf.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperr.ErrUserNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &HTTPResolver{
		base: strings.TrimRight(conf.BaseURL, "/"),
		http: &http.Client{Timeout: conf.Timeout},
		cb:   gobreaker.NewCircuitBreaker(st),
		conf: conf,
	}
}

func (r *HTTPResolver) ResolveUser(ctx context.Context, id string) (*User, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		return r.fetchWithRetry(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: identity service unavailable", apperr.ErrNetwork)
		}
		return nil, err
	}
	return res.(*User), nil
}

func (r *HTTPResolver) fetchWithRetry(ctx context.Context, id string) (*User, error) {
	var u *User
	op := func() error {
		got, err := r.fetch(ctx, id)
		if err != nil {
			return err
		}
		u = got
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.conf.RetryMaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, id string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(apperr.ErrUserNotFound)
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: identity service status %d", apperr.ErrNetwork, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("identity service status %d", resp.StatusCode))
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode user: %w", err))
	}
	if u.ID == "" {
		u.ID = id
	}
	return &u, nil
}
