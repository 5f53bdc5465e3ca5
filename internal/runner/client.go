package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clickload/internal/scenario"
)

// maxCapturedBody bounds how much of a response is kept for token capture.
const maxCapturedBody = 64 << 10

// userClient sends one virtual user's requests and records their outcome.
type userClient struct {
	r       *Runner
	profile string
	userID  string
}

func (c *userClient) Do(ctx context.Context, req *scenario.Request) (*scenario.Response, error) {
	url := strings.TrimRight(c.r.Cfg.Host, "/") + req.Path

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", req.Name, err)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}

	c.r.inflight.Add(1)
	defer c.r.inflight.Add(-1)

	start := time.Now()
	resp, err := c.r.Client.Do(httpReq)

	var (
		status  int
		payload []byte
		size    int64
	)
	if err == nil {
		status = resp.StatusCode
		payload, err = io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
		rest, _ := io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		size = int64(len(payload)) + rest
	}
	latency := time.Since(start)

	// Requests cut short by the end of the run are not part of the results.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	ok, reason := scenario.Classify(req.Expect, status, err)
	c.r.record(RequestResult{
		TimeStamp: start,
		Profile:   c.profile,
		UserID:    c.userID,
		Method:    req.Method,
		Name:      req.Name,
		URL:       url,
		Status:    status,
		Latency:   latency,
		Bytes:     size,
		Success:   ok,
		Failure:   reason,
	})

	if err != nil {
		return nil, err
	}
	return &scenario.Response{Status: status, Body: payload, Success: ok}, nil
}
