package agentclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/namastexlabs/automagik-omni-go/domains/agent"
	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Send_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(agent.Response{Message: "hi there"})
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Send(context.Background(), srv.URL, "secret", agent.Request{Message: "hello"}, 2000)
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Message)
}

func TestHTTPClient_Send_TerminalOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := New()
	_, err := c.Send(context.Background(), srv.URL, "", agent.Request{Message: "hello"}, 2000)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "a 4xx must not be retried")

	var pe *pkgError.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pkgError.AgentHTTPKind(http.StatusBadRequest), pe.Kind)
}

func TestHTTPClient_Send_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(agent.Response{Message: "recovered"})
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Send(context.Background(), srv.URL, "", agent.Request{Message: "hello"}, 2000)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Message)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestHTTPClient_Send_ExhaustsRetriesOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Send(context.Background(), srv.URL, "", agent.Request{Message: "hello"}, 2000)
	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, atomic.LoadInt32(&calls))
}

func TestHTTPClient_Send_CancelledContextDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	c := New()
	_, err := c.Send(ctx, srv.URL, "", agent.Request{Message: "hello"}, 2000)
	require.Error(t, err)
}

func TestBackoffWithJitter_StaysWithinCap(t *testing.T) {
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffWithJitter(attempt)
		assert.LessOrEqual(t, d, capBackoff)
		assert.Greater(t, d, time.Duration(0))
	}
}
