package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/config"
)

func testConfig() config.GraphConfig {
	return config.GraphConfig{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		Sender:       "noreply@example.com",
		MaxRetries:   3,
		Backoff:      time.Millisecond,
	}
}

type fakeGraph struct {
	tokenCalls int32
	sendCalls  int32
	failFirst  int32
	failStatus int
	lastBody   sendMailRequest
}

func (f *fakeGraph) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v1.0/users/noreply@example.com/sendMail", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.sendCalls, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if n <= f.failFirst {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(f.failStatus)
			return
		}
		json.NewDecoder(r.Body).Decode(&f.lastBody)
		w.WriteHeader(http.StatusAccepted)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeGraph) *GraphClient {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c := NewGraphClient(testConfig(), WithBaseURLs(srv.URL, srv.URL))
	c.sleep = func(time.Duration) {}
	return c
}

func TestSendMailCachesToken(t *testing.T) {
	f := &fakeGraph{}
	c := newTestClient(t, f)

	require.NoError(t, c.SendMail(context.Background(), []string{"a@example.com"}, "Hello", "Body"))
	require.NoError(t, c.SendMail(context.Background(), []string{"b@example.com"}, "Hello", "Body"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.sendCalls))
	assert.Equal(t, "b@example.com", f.lastBody.Message.ToRecipients[0].EmailAddress.Address)
	assert.Equal(t, "Text", f.lastBody.Message.Body.ContentType)
}

func TestSendMailRetriesTransientFailures(t *testing.T) {
	f := &fakeGraph{failFirst: 2, failStatus: http.StatusServiceUnavailable}
	c := newTestClient(t, f)

	require.NoError(t, c.SendMail(context.Background(), []string{"a@example.com"}, "s", "b"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.sendCalls))
}

func TestSendMailGivesUpOnPermanentFailure(t *testing.T) {
	f := &fakeGraph{failFirst: 10, failStatus: http.StatusBadRequest}
	c := newTestClient(t, f)

	err := c.SendMail(context.Background(), []string{"a@example.com"}, "s", "b")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sendCalls))
}

func TestSendMailExhaustsRetries(t *testing.T) {
	f := &fakeGraph{failFirst: 10, failStatus: http.StatusTooManyRequests}
	c := newTestClient(t, f)

	require.Error(t, c.SendMail(context.Background(), []string{"a@example.com"}, "s", "b"))
	assert.Equal(t, int32(4), atomic.LoadInt32(&f.sendCalls))
}

func TestDisabledWithoutCredentials(t *testing.T) {
	c := NewGraphClient(config.GraphConfig{TenantID: "t"})
	assert.False(t, c.Enabled())
	assert.ErrorIs(t, c.SendMail(context.Background(), []string{"a@example.com"}, "s", "b"), ErrDisabled)
}

func TestBackoff(t *testing.T) {
	c := NewGraphClient(config.GraphConfig{Backoff: time.Second})
	assert.Equal(t, time.Second, c.backoff(0, ""))
	assert.Equal(t, 4*time.Second, c.backoff(2, ""))
	assert.Equal(t, 7*time.Second, c.backoff(0, "7"))
}
