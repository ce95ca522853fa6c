// Package agentclient implements the HTTP client that forwards inbound
// messages to a tenant's configured agent endpoint and parses its reply.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/namastexlabs/automagik-omni-go/domains/agent"
	pkgError "github.com/namastexlabs/automagik-omni-go/pkg/error"
	"github.com/sirupsen/logrus"
)

const (
	maxAttempts = 3
	baseBackoff = 250 * time.Millisecond
	capBackoff  = 4 * time.Second
)

// HTTPClient is the agent.Client implementation used in production. Each
// attempt gets its own per-call timeout derived from timeoutMs; network
// errors and 5xx responses are retried with exponential backoff and
// jitter, 4xx responses are terminal.
type HTTPClient struct {
	transport *http.Transport
}

func New() *HTTPClient {
	return &HTTPClient{transport: http.DefaultTransport.(*http.Transport).Clone()}
}

var _ agent.Client = (*HTTPClient)(nil)

func (c *HTTPClient) Send(ctx context.Context, url, apiKey string, req agent.Request, timeoutMs int) (agent.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return agent.Response{}, err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := backoffWithJitter(attempt)
			logrus.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"wait_ms": wait.Milliseconds(),
			}).Warn("retrying agent request")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return agent.Response{}, pkgError.NewPipelineError(pkgError.KindCancelled, ctx.Err())
			}
		}

		resp, retryable, err := c.attempt(ctx, url, apiKey, body, timeoutMs)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return agent.Response{}, err
		}
	}
	return agent.Response{}, lastErr
}

func (c *HTTPClient) attempt(ctx context.Context, url, apiKey string, body []byte, timeoutMs int) (agent.Response, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return agent.Response{}, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Transport: c.transport}
	resp, err := client.Do(httpReq)
	if err != nil {
		return agent.Response{}, true, pkgError.NewPipelineError(pkgError.KindAgentNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return agent.Response{}, true, pkgError.NewPipelineError(pkgError.KindAgentNetwork, err)
	}

	if resp.StatusCode >= 500 {
		return agent.Response{}, true, pkgError.NewPipelineError(
			pkgError.AgentHTTPKind(resp.StatusCode),
			fmt.Errorf("agent returned %d: %s", resp.StatusCode, truncate(respBody, 256)))
	}
	if resp.StatusCode >= 400 {
		return agent.Response{}, false, pkgError.NewPipelineError(
			pkgError.AgentHTTPKind(resp.StatusCode),
			fmt.Errorf("agent returned %d: %s", resp.StatusCode, truncate(respBody, 256)))
	}

	var out agent.Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return agent.Response{}, false, pkgError.NewPipelineError(pkgError.KindParseFailed, err)
	}
	return out, false, nil
}

func backoffWithJitter(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<uint(attempt-1))
	if d > capBackoff {
		d = capBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
