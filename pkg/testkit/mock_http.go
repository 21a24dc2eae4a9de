package testkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport is an http.RoundTripper answering from the "httprequest"
// steps of a scenario. Install it on pkg/http's DefaultClient:
//
//	mt := testkit.NewMockTransport(s)
//	planthttp.DefaultClient.Transport = mt
//	defer planthttp.ResetTransport()
type MockTransport struct {
	mu      sync.Mutex
	steps   []httpMock
	strict  bool
	unmatch []string
}

type httpMock struct {
	step  MockStep
	calls int
}

func NewMockTransport(s *Scenario) *MockTransport {
	mt := &MockTransport{strict: s.IsMockRequired}
	for _, step := range s.NetUtilMockStep {
		if step.Method == "httprequest" && step.IsMock {
			mt.steps = append(mt.steps, httpMock{step: step})
		}
	}
	return mt
}

// RoundTrip answers with the first step whose matchUrl prefixes the
// request URL.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	url := req.URL.String()
	for i := range mt.steps {
		m := &mt.steps[i]
		if m.step.MatchURL != "" && !strings.HasPrefix(url, m.step.MatchURL) {
			continue
		}
		m.calls++
		return buildResponse(req, m.step.ReturnData)
	}

	mt.unmatch = append(mt.unmatch, url)
	if mt.strict {
		return nil, fmt.Errorf("testkit: unexpected outgoing call to %s", url)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Request:    req,
	}, nil
}

// AssertAllCalled returns one error per step that was never used.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, m := range mt.steps {
		if m.calls == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step for %q was never called", m.step.MatchURL))
		}
	}
	return errs
}

// Unmatched lists URLs that had no step.
func (mt *MockTransport) Unmatched() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]string(nil), mt.unmatch...)
}

func decodeBody(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(b64)
	}
	if err != nil {
		return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
	}
	return raw, nil
}

func buildResponse(req *http.Request, rd MockReturnData) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	body, err := decodeBody(rd.Body)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}
