package readreceipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"golang.org/x/time/rate"
)

// ErrRejected marks a request the server refused on its merits. Sending it
// again cannot succeed.
var ErrRejected = errors.New("request rejected")

// HTTPClient talks to the conversation API on behalf of one user. Requests
// are paced by a token bucket so fast scrolling cannot flood the server.
type HTTPClient struct {
	base    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewHTTPClient(baseURL, token string, requestsPerSecond float64, timeout time.Duration) *HTTPClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		base:    strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) MarkMessagesAsRead(ctx context.Context, conversationID string, addresses []string) error {
	body, err := json.Marshal(map[string][]string{"addresses": addresses})
	if err != nil {
		return err
	}
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/read-batch"
	_, err = c.do(ctx, http.MethodPost, path, body)
	return err
}

// FetchConversation returns the messages exchanged with otherUserID.
func (c *HTTPClient) FetchConversation(ctx context.Context, otherUserID string) ([]Message, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/conversations/with/"+url.PathEscape(otherUserID), nil)
	if err != nil {
		return nil, err
	}
	var views []struct {
		Address         string `json:"address"`
		ConversationID  string `json:"conversation_id"`
		Recipient       string `json:"recipient_id"`
		ReadByRecipient bool   `json:"read_by_recipient"`
	}
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	out := make([]Message, len(views))
	for i, v := range views {
		out[i] = Message{
			Address:         v.Address,
			ConversationID:  v.ConversationID,
			Recipient:       v.Recipient,
			ReadByRecipient: v.ReadByRecipient,
		}
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: server status %d", apperr.ErrNetwork, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: server status %d", apperr.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w (%d %s): %s", ErrRejected, resp.StatusCode, env.Code, env.Message)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return env.Data, nil
}
