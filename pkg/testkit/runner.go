package testkit

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	planthttp "github.com/plantnet/plantnet-server/pkg/http"
)

// Run executes the scenario at path against handler as a subtest.
//
// For each scenario the runner installs a MockTransport on the outgoing
// HTTP client, arms the function mocks, fires the request, then asserts
// the status, the body and that every isMock step was used.
func Run(t *testing.T, handler http.Handler, path string) {
	t.Helper()

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", path, err)
	}
	t.Run(s.Name, func(t *testing.T) { runScenario(t, handler, s) })
}

// RunDir runs every scenario in dir against one shared handler.
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()
	RunDirFresh(t, dir, func(*testing.T) http.Handler { return handler })
}

// RunDirFresh runs every scenario in dir, building a new handler for each
// so scenarios cannot observe each other's writes.
func RunDirFresh(t *testing.T, dir string, build func(t *testing.T) http.Handler) {
	t.Helper()

	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Errorf("%v", err)
	}
	if len(scenarios) == 0 {
		t.Fatalf("testkit: nothing to run in %q", dir)
	}

	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) { runScenario(t, build(t), s) })
	}
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario) {
	t.Helper()

	var body io.Reader
	if p := s.RequestBodyPath(); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("[%s] read request file %q: %v", s.Name, p, err)
		}
		body = bytes.NewReader(data)
	}

	mt := NewMockTransport(s)
	original := planthttp.DefaultClient.Transport
	planthttp.DefaultClient.Transport = mt
	defer func() { planthttp.DefaultClient.Transport = original }()

	resetAllMockers()
	defer resetAllMockers()
	if err := ArmFuncMocks(s); err != nil {
		t.Fatalf("[%s] arm func mocks: %v", s.Name, err)
	}

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), s.RequestURL, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code)

	if p := s.ResponseBodyPath(); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", s.Name, p, err)
		} else {
			AssertJSONBody(t, s, expected, rec.Body.Bytes())
		}
	}

	AssertMocksAllCalled(t, s, mt)
}
