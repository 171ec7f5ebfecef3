// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package azuretesting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/juju/errors"
)

type cannedResponse struct {
	status int
	body   []byte
	err    error
}

// MockSender is a policy.Transporter that returns canned responses in
// order, repeating the last one once the queue is drained.
type MockSender struct {
	// PathPattern, if non-empty, is assumed to be a regular expression
	// that must match the request path.
	PathPattern string

	// Method, if non-empty, must match the request method.
	Method string

	mu        sync.Mutex
	responses []cannedResponse
}

// AppendResponse queues a response with the given status and body.
func (m *MockSender) AppendResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, cannedResponse{status: status, body: []byte(body)})
}

// AppendError queues a transport error.
func (m *MockSender) AppendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, cannedResponse{err: err})
}

// Do is part of the policy.Transporter interface.
func (m *MockSender) Do(req *http.Request) (*http.Response, error) {
	if m.Method != "" && req.Method != m.Method {
		return nil, fmt.Errorf("request method %q did not match %q", req.Method, m.Method)
	}
	if m.PathPattern != "" {
		matched, err := regexp.MatchString(m.PathPattern, req.URL.Path)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, fmt.Errorf(
				"request path %q did not match pattern %q",
				req.URL.Path, m.PathPattern,
			)
		}
	}

	m.mu.Lock()
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return nil, errors.New("no response queued")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if resp.err != nil {
		return nil, resp.err
	}
	return &http.Response{
		Status:     http.StatusText(resp.status),
		StatusCode: resp.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(resp.body)),
		Request:    req,
	}, nil
}

// NewSenderWithValue returns a sender answering with the JSON encoding
// of v and status OK.
func NewSenderWithValue(v any) *MockSender {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	sender := &MockSender{}
	sender.AppendResponse(http.StatusOK, string(body))
	return sender
}

// NewErrorSender returns a sender answering with an Azure error body.
func NewErrorSender(status int, code, message string) *MockSender {
	sender := &MockSender{}
	sender.AppendResponse(status, fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, code, message))
	return sender
}

// RecordedRequest holds the parts of a request a test asserts on.
type RecordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// Senders is a policy.Transporter that hands each request to the next
// sender in the list, recording the request.
type Senders struct {
	mu       sync.Mutex
	senders  []policy.Transporter
	requests []RecordedRequest
}

// NewSenders returns a Senders handing requests to the given senders
// in order.
func NewSenders(senders ...policy.Transporter) *Senders {
	return &Senders{senders: senders}
}

// Do is part of the policy.Transporter interface.
func (s *Senders) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Body:   body,
	})
	if len(s.senders) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("unexpected %s request for %q", req.Method, req.URL.Path)
	}
	sender := s.senders[0]
	s.senders = s.senders[1:]
	s.mu.Unlock()

	return sender.Do(req)
}

// Requests returns the requests seen so far.
func (s *Senders) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Remaining returns the number of senders not yet used.
func (s *Senders) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.senders)
}

// FakeCredential is an azcore.TokenCredential that hands out a fixed
// token.
type FakeCredential struct{}

// GetToken is part of the azcore.TokenCredential interface.
func (FakeCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     "fake-token",
		ExpiresOn: time.Now().Add(time.Hour),
	}, nil
}

// ClientOptions returns ARM client options sending requests through
// the given transport, with retries disabled.
func ClientOptions(transport policy.Transporter) *arm.ClientOptions {
	return &arm.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Transport: transport,
			Retry: policy.RetryOptions{
				MaxRetries: -1,
			},
		},
	}
}
