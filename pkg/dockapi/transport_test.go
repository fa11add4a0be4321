package dockapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingSocketIsFatal(t *testing.T) {
	_, err := New(Options{SocketPath: filepath.Join(t.TempDir(), "absent.sock")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine socket not found")
}

func TestNew_StripsUnixPrefix(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	reused, err := New(Options{SocketPath: "unix://" + client.SocketPath()})
	require.NoError(t, err)
	assert.Equal(t, client.SocketPath(), reused.SocketPath())
}

func TestDetectSocket_HonorsDockerHost(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	t.Setenv("DOCKER_HOST", "unix://"+client.SocketPath())

	path, err := DetectSocket()
	require.NoError(t, err)
	assert.Equal(t, client.SocketPath(), path)
}

func TestDo_JSONBodySetsContentType(t *testing.T) {
	var gotContentType string
	var gotBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(t, w, http.StatusOK, `{"ok": true}`)
	})

	client := newTestClient(t, mux)
	resp, err := client.do(context.Background(), apiRequest{
		method: http.MethodPost,
		path:   "/echo",
		body:   map[string]any{"Image": "alpine"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "alpine", gotBody["Image"])
}

func TestDo_RawBodySentVerbatim(t *testing.T) {
	payload := []byte{0x1f, 0x8b, 0x00, 0xff}
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		got, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		assert.Equal(t, "application/x-tar", r.Header.Get("Content-Type"))
		assert.Equal(t, int64(len(payload)), r.ContentLength)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, mux)
	_, err := client.do(context.Background(), apiRequest{
		method:  http.MethodPut,
		path:    "/upload",
		rawBody: payload,
		headers: map[string]string{"Content-Type": "application/x-tar"},
	})
	require.NoError(t, err)
}

func TestQueryEncoding(t *testing.T) {
	q := url.Values{}
	queryBool(q, "all", true)
	queryBool(q, "force", false)
	require.NoError(t, queryJSON(q, "filters", map[string][]string{"status": {"running"}}))

	assert.Equal(t, "true", q.Get("all"))
	assert.Equal(t, "false", q.Get("force"))
	assert.JSONEq(t, `{"status":["running"]}`, q.Get("filters"))
}

func TestDo_ErrorEnvelopeParsed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, `{"message": "container is running"}`)
	})

	client := newTestClient(t, mux)
	_, err := client.do(context.Background(), apiRequest{method: http.MethodDelete, path: "/fail"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "container is running", apiErr.Message)
}

func TestDo_ErrorRawBodyFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("backend blew up"))
	})

	client := newTestClient(t, mux)
	_, err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/fail"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "backend blew up", apiErr.Message)
}

func TestDo_NonJSONBodyPassesThroughAsText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	client := newTestClient(t, mux)
	resp, err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/_ping"})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.text())
}

func TestDoStream_HandleStaysOpen(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("first\n"))
		flusher.Flush()
		_, _ = w.Write([]byte("second\n"))
	})

	client := newTestClient(t, mux)
	rc, err := client.doStream(context.Background(), apiRequest{method: http.MethodGet, path: "/events"})
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(body))
}

func TestDo_TimeoutApplies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	sockClient := newTestClient(t, mux)
	client, err := New(Options{SocketPath: sockClient.SocketPath(), Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/slow"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPingVersionInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"Version": "26.1.4", "ApiVersion": "1.45", "Os": "linux", "Arch": "amd64"}`)
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"ServerVersion": "26.1.4", "Containers": 3}`)
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	version, err := client.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "26.1.4", version.Version)
	assert.Equal(t, "1.45", version.APIVersion)

	info, err := client.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(3), info["Containers"])
}
