package playback

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	name    string
	data    []byte
	openErr error
}

func (m *memSource) Name() string { return m.name }
func (m *memSource) Size() int64  { return int64(len(m.data)) }
func (m *memSource) Open() (io.ReadSeekCloser, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return readSeekNopCloser{bytes.NewReader(m.data)}, nil
}

type readSeekNopCloser struct{ *bytes.Reader }

func (readSeekNopCloser) Close() error { return nil }

const testBase = "http://127.0.0.1:8765"

func tokenFrom(t *testing.T, url string) string {
	t.Helper()
	token, ok := strings.CutPrefix(url, testBase+playPrefix)
	require.True(t, ok, "unexpected URL %s", url)
	return token
}

func TestRegistryAllocateRevoke(t *testing.T) {
	reg := NewRegistry(testBase + "/")
	src := &memSource{name: "lec1.mp4", data: []byte("0123456789")}

	a := reg.Allocate(src)
	b := reg.Allocate(src)
	assert.NotEqual(t, a, b, "each allocation must get a fresh URL")
	assert.True(t, strings.HasPrefix(a, testBase+playPrefix))
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Resolve(tokenFrom(t, a))
	require.True(t, ok)
	assert.Equal(t, src, got)

	reg.Revoke(a)
	_, ok = reg.Resolve(tokenFrom(t, a))
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())

	// Unknown, foreign and repeated revocations are harmless.
	reg.Revoke(a)
	reg.Revoke("http://elsewhere/play/x")
	reg.Revoke(testBase + playPrefix + "not-a-uuid")
	assert.Equal(t, 1, reg.Len())

	assert.Equal(t, 1, reg.RevokeAll())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryConcurrentUse(t *testing.T) {
	reg := NewRegistry(testBase)
	src := &memSource{name: "a.mp4"}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				url := reg.Allocate(src)
				reg.Resolve(strings.TrimPrefix(url, testBase+playPrefix))
				reg.Revoke(url)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}

func TestServerHealth(t *testing.T) {
	reg := NewRegistry(testBase)
	reg.Allocate(&memSource{name: "a.mp4"})
	srv := NewServer(reg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["live_urls"])
}

func TestServerStream(t *testing.T) {
	reg := NewRegistry(testBase)
	url := reg.Allocate(&memSource{name: "lec1.mp4", data: []byte("0123456789")})
	srv := NewServer(reg)
	path := strings.TrimPrefix(url, testBase)

	t.Run("full body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
		assert.Equal(t, "0123456789", rec.Body.String())
	})

	t.Run("range request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Range", "bytes=2-5")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "bytes 2-5/10", rec.Header().Get("Content-Range"))
		assert.Equal(t, "2345", rec.Body.String())
	})

	t.Run("head", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("Content-Length"))
		assert.Empty(t, rec.Body.String())
	})

	t.Run("revoked", func(t *testing.T) {
		reg.Revoke(url)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "revoked")
	})
}

func TestServerOpenFailure(t *testing.T) {
	reg := NewRegistry(testBase)
	url := reg.Allocate(&memSource{name: "gone.mp4", openErr: errors.New("vanished")})
	srv := NewServer(reg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(url, testBase), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStreamMetrics(t *testing.T) {
	reg := NewRegistry(testBase)
	srv := NewServer(reg)

	allocated := testutil.ToFloat64(URLsAllocatedTotal)
	revoked := testutil.ToFloat64(URLsRevokedTotal)
	ok := testutil.ToFloat64(StreamRequestsTotal.WithLabelValues("ok"))
	missing := testutil.ToFloat64(StreamRequestsTotal.WithLabelValues("not_found"))
	streamed := testutil.ToFloat64(StreamBytesTotal)

	url := reg.Allocate(&memSource{name: "lec1.mp4", data: []byte("0123456789")})
	path := strings.TrimPrefix(url, testBase)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	reg.Revoke(url)
	reg.Revoke(url)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, allocated+1, testutil.ToFloat64(URLsAllocatedTotal))
	assert.Equal(t, revoked+1, testutil.ToFloat64(URLsRevokedTotal), "double revoke counts once")
	assert.Equal(t, ok+1, testutil.ToFloat64(StreamRequestsTotal.WithLabelValues("ok")))
	assert.Equal(t, missing+1, testutil.ToFloat64(StreamRequestsTotal.WithLabelValues("not_found")))
	assert.Equal(t, streamed+10, testutil.ToFloat64(StreamBytesTotal))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vidshelf_playback_stream_requests_total")
}

func TestServerServeAndShutdown(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	reg := NewRegistry("http://" + ln.Addr().String())
	url := reg.Allocate(&memSource{name: "clip.webm", data: []byte("webm")})
	srv := NewServer(reg)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get(url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "webm", string(body))
	assert.Equal(t, "video/webm", resp.Header.Get("Content-Type"))

	require.NoError(t, srv.Shutdown(t.Context()))
	assert.NoError(t, <-done)
}

func TestServerShutdownBeforeServe(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(NewRegistry("http://" + ln.Addr().String()))
	require.NoError(t, srv.Shutdown(t.Context()))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept running after Shutdown")
	}

	_, err = net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	assert.Error(t, err, "listener still accepting after Shutdown")
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.MKV":     "video/x-matroska",
		"a.mov":     "video/quicktime",
		"notes.pdf": "application/pdf",
		"blob":      "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
}

func TestLauncher(t *testing.T) {
	disabled := NewLauncher("   ")
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Launch("http://x"))

	l := NewLauncher("true --fullscreen")
	assert.True(t, l.Enabled())
	assert.Equal(t, "true", l.Command())

	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}
	assert.NoError(t, l.Launch("http://127.0.0.1/play/x"))

	missing := NewLauncher("definitely-not-a-player-binary")
	assert.Error(t, missing.Launch("http://x"))
}
