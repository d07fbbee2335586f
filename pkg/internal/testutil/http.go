// Package testutil provides the scripted HTTP transport shared by the
// package tests. It deliberately depends on nothing inside this module so
// every package, pkg/github included, can import it from its tests.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ScriptedTransport is an http.RoundTripper that replays a fixed sequence
// of responses, one per request, regardless of URL. Rate limit tests need
// the same URL to answer differently across attempts, which a URL-keyed
// mock cannot express.
type ScriptedTransport struct {
	mu       sync.Mutex
	steps    []step
	requests []*http.Request
}

type step struct {
	resp *http.Response
	err  error
}

// Respond appends a JSON response to the script.
func (t *ScriptedTransport) Respond(statusCode int, body string, header http.Header) *ScriptedTransport {
	if header == nil {
		header = make(http.Header)
	}
	t.steps = append(t.steps, step{resp: &http.Response{
		StatusCode: statusCode,
		Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}})
	return t
}

// Fail appends a transport-level error to the script.
func (t *ScriptedTransport) Fail(err error) *ScriptedTransport {
	t.steps = append(t.steps, step{err: err})
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if len(t.steps) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader(`{"message":"not found"}`)),
			Header:     make(http.Header),
		}, nil
	}
	next := t.steps[0]
	t.steps = t.steps[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.resp, nil
}

// Requests returns every request seen so far.
func (t *ScriptedTransport) Requests() []*http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	reqs := make([]*http.Request, len(t.requests))
	copy(reqs, t.requests)
	return reqs
}

// RequestCount returns how many requests were issued.
func (t *ScriptedTransport) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
