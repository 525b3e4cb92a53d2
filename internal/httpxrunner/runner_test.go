package httpxrunner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/projectdiscovery/httpx/runner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Probe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Server", "TestServer")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><head><title>Test Page</title></head></html>"))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.TLSGrab = false
	config.TechDetect = false

	result, err := NewRunner(config, zerolog.Nop()).Probe(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "Test Page", result.Title)
	assert.Equal(t, "TestServer", result.WebServer)
	assert.False(t, result.HasTLS())
}

func TestRunner_ProbeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(nil, zerolog.Nop()).Probe(ctx, "https://a.example")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_BuildOptions(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 7
	config.CustomHeaders = map[string]string{"X-Test": "1"}

	r := NewRunner(config, zerolog.Nop())
	opts := r.buildOptions("https://a.example", func(runner.Result) {})

	assert.Equal(t, []string{"https://a.example"}, []string(opts.InputTargetHost))
	assert.Equal(t, 7, opts.Timeout)
	assert.Equal(t, 1, opts.Threads)
	assert.True(t, opts.TLSGrab)
	assert.True(t, opts.TechDetect)
	assert.True(t, opts.Silent)
	assert.Len(t, opts.CustomHeaders, 1)
}

func TestProbeResultMapper_MapResult(t *testing.T) {
	mapper := NewProbeResultMapper(zerolog.Nop())
	now := time.Now()

	res := runner.Result{
		Input:        "https://a.example",
		URL:          "https://a.example/home",
		Method:       "GET",
		StatusCode:   200,
		Title:        "Home",
		WebServer:    "nginx",
		Timestamp:    now,
		ResponseTime: "1.2s",
		Technologies: []string{"Nginx", "PHP"},
		ResponseHeaders: map[string]interface{}{
			"x_powered_by": "PHP/8.1",
			"set_cookie":   []interface{}{"a=1", "b=2"},
		},
	}

	got := mapper.MapResult(res)
	assert.Equal(t, "https://a.example", got.InputURL)
	assert.Equal(t, "https://a.example/home", got.FinalURL)
	assert.Equal(t, 200, got.StatusCode)
	assert.Equal(t, "nginx", got.WebServer)
	assert.Equal(t, now, got.Timestamp)
	assert.InDelta(t, 1.2, got.Duration, 0.01)
	assert.Equal(t, []string{"Nginx", "PHP"}, got.Technologies)
	assert.Equal(t, "PHP/8.1", got.Headers["x-powered-by"])
	assert.Equal(t, "a=1, b=2", got.Headers["set-cookie"])
	assert.Nil(t, got.TLS)
	assert.True(t, got.IsSuccess())
}

func TestProbeResultMapper_EdgeCases(t *testing.T) {
	mapper := NewProbeResultMapper(zerolog.Nop())

	empty := mapper.MapResult(runner.Result{})
	assert.Empty(t, empty.Headers)
	assert.Empty(t, empty.Technologies)

	bad := mapper.MapResult(runner.Result{ResponseTime: "not-a-duration", Error: "connection refused"})
	assert.Zero(t, bad.Duration)
	assert.False(t, bad.IsSuccess())
}
