package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

type refreshResult struct {
	err error
}

// refreshCall is one in-flight refresh. Waiters hold buffered channels so
// delivery never blocks; they are answered in arrival order.
type refreshCall struct {
	waiters []chan refreshResult
}

func (rc *refreshCall) fail(err error) {
	for _, ch := range rc.waiters {
		ch <- refreshResult{err: err}
	}
	rc.waiters = nil
}

// waitForRefresh joins the in-flight refresh, starting one if none exists,
// and blocks until it settles or ctx is done. The refresh itself keeps
// running for the other waiters when one caller's ctx expires.
func (c *Client) waitForRefresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionExpired
	}
	ch := make(chan refreshResult, 1)
	if c.refresh == nil {
		call := &refreshCall{waiters: []chan refreshResult{ch}}
		c.refresh = call
		c.mu.Unlock()
		go c.runRefresh(call)
	} else {
		c.refresh.waiters = append(c.refresh.waiters, ch)
		c.mu.Unlock()
	}

	select {
	case res := <-ch:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runRefresh performs the actual POST /v1/auth/refresh and settles every
// waiter. If Close superseded this call the waiters were already failed
// and the outcome is discarded.
func (c *Client) runRefresh(call *refreshCall) {
	token, err := c.refreshOnce()

	c.mu.Lock()
	if c.refresh != call {
		c.mu.Unlock()
		return
	}
	c.refresh = nil
	if err == nil {
		c.access = token
	} else {
		// A dead session must not keep replaying a stale token.
		c.access = ""
	}
	waiters := call.waiters
	call.waiters = nil
	c.mu.Unlock()

	res := refreshResult{err: err}
	for _, ch := range waiters {
		ch <- res
	}
}

// refreshOnce exchanges the refresh cookie for a new token pair. A 401
// means the session is gone for good; other failures are passed through so
// transient outages are distinguishable from revocation.
func (c *Client) refreshOnce() (string, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/auth/refresh", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return "", ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
			msg = apiErr.Error
		}
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}

	var env authEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", err
	}
	return env.AccessToken, nil
}
