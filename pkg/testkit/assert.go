package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wildcard in an expected body matches any value at that position, for
// generated ids and timestamps.
const Wildcard = "<any>"

func AssertStatusCode(t *testing.T, s *Scenario, got int) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch", s.Name)
}

// AssertJSONBody compares both documents after decoding, so key order and
// whitespace never matter.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var want, got interface{}
	require.NoError(t, json.Unmarshal(expected, &want), "[%s] expected response file is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &got), "[%s] response is not JSON\nbody: %s", s.Name, actual) {
		return
	}

	assert.Equal(t, want, mask(want, got), "[%s] response body mismatch", s.Name)
}

// mask copies got, replacing every value whose expected counterpart is
// Wildcard.
func mask(want, got interface{}) interface{} {
	if w, ok := want.(string); ok && w == Wildcard {
		return Wildcard
	}
	switch w := want.(type) {
	case map[string]interface{}:
		g, ok := got.(map[string]interface{})
		if !ok {
			return got
		}
		out := make(map[string]interface{}, len(g))
		for k, v := range g {
			out[k] = mask(w[k], v)
		}
		return out
	case []interface{}:
		g, ok := got.([]interface{})
		if !ok {
			return got
		}
		out := make([]interface{}, len(g))
		for i, v := range g {
			if i < len(w) {
				out[i] = mask(w[i], v)
			} else {
				out[i] = v
			}
		}
		return out
	}
	return got
}

// AssertMocksAllCalled fails for every isMock step the request never used.
func AssertMocksAllCalled(t *testing.T, s *Scenario, mt *MockTransport) {
	t.Helper()
	for _, err := range mt.AssertAllCalled() {
		assert.NoError(t, err, "[%s]", s.Name)
	}
	for _, err := range AssertFuncMocksCalled(s) {
		assert.NoError(t, err, "[%s]", s.Name)
	}
}
