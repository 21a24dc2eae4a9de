package http_test

import (
	"context"
	"io"
	gohttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planthttp "github.com/plantnet/plantnet-server/pkg/http"
)

type roundTrip func(*gohttp.Request) (*gohttp.Response, error)

func (f roundTrip) RoundTrip(r *gohttp.Request) (*gohttp.Response, error) { return f(r) }

func reply(r *gohttp.Request, code int, body string) *gohttp.Response {
	return &gohttp.Response{
		StatusCode: code,
		Header:     gohttp.Header{"Cache-Control": {"max-age=60"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int
	planthttp.DefaultClient.Transport = roundTrip(func(r *gohttp.Request) (*gohttp.Response, error) {
		calls++
		assert.Equal(t, gohttp.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		if calls == 1 {
			return reply(r, gohttp.StatusServiceUnavailable, ""), nil
		}
		return reply(r, gohttp.StatusOK, `{"kid":"pem"}`), nil
	})
	t.Cleanup(planthttp.ResetTransport)

	resp, err := planthttp.Get("https://certs.example.com").
		WithContext(context.Background()).
		Retry(2, time.Millisecond).
		Send()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, resp.Throw())

	var keys map[string]string
	require.NoError(t, resp.JSON(&keys))
	assert.Equal(t, "pem", keys["kid"])
	assert.Equal(t, "max-age=60", resp.Header("Cache-Control"))
}

func TestGetReturnsClientErrorsWithoutRetry(t *testing.T) {
	var calls int
	planthttp.DefaultClient.Transport = roundTrip(func(r *gohttp.Request) (*gohttp.Response, error) {
		calls++
		return reply(r, gohttp.StatusNotFound, "gone"), nil
	})
	t.Cleanup(planthttp.ResetTransport)

	resp, err := planthttp.Get("https://certs.example.com").Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, resp.OK())
	assert.ErrorContains(t, resp.Throw(), "404")
}

func TestGetGivesUpAfterLastAttempt(t *testing.T) {
	planthttp.DefaultClient.Transport = roundTrip(func(r *gohttp.Request) (*gohttp.Response, error) {
		return reply(r, gohttp.StatusBadGateway, ""), nil
	})
	t.Cleanup(planthttp.ResetTransport)

	_, err := planthttp.Get("https://certs.example.com").Retry(2, time.Millisecond).Send()
	assert.ErrorContains(t, err, "all 2 attempts failed")
}
