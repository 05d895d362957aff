package readreceipt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientMarkMessagesAsRead(t *testing.T) {
	var got struct {
		Addresses []string `json:"addresses"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/conversations/c1/read-batch", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"ok","data":{"updated":2}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok", 100, time.Second)
	require.NoError(t, c.MarkMessagesAsRead(context.Background(), "c1", []string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, got.Addresses)
}

func TestHTTPClientErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadGateway)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"status":"error","code":"INVALID_ADDRESS","message":"bad"}`))
	}))
	defer srv.Close()
	c := NewHTTPClient(srv.URL, "tok", 100, time.Second)

	err := c.MarkMessagesAsRead(context.Background(), "c1", []string{"a"})
	assert.ErrorIs(t, err, apperr.ErrNetwork)

	status.Store(http.StatusBadRequest)
	err = c.MarkMessagesAsRead(context.Background(), "c1", []string{"a"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNetwork)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "INVALID_ADDRESS")

	status.Store(http.StatusTooManyRequests)
	err = c.MarkMessagesAsRead(context.Background(), "c1", []string{"a"})
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.NotErrorIs(t, err, ErrRejected)

	srv.Close()
	err = c.MarkMessagesAsRead(context.Background(), "c1", []string{"a"})
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestHTTPClientFetchConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/conversations/with/u1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","data":[
			{"address":"m1_c_0","conversation_id":"c","recipient_id":"a1","read_by_recipient":false,"content":"hi"},
			{"address":"m1_c_1","conversation_id":"c","recipient_id":"u1","read_by_recipient":true}
		]}`))
	}))
	defer srv.Close()

	msgs, err := NewHTTPClient(srv.URL, "tok", 100, time.Second).FetchConversation(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Address: "m1_c_0", ConversationID: "c", Recipient: "a1"}, msgs[0])
	assert.True(t, msgs[1].ReadByRecipient)
}
