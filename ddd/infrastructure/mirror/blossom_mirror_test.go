package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct{}

func (s *stubSigner) PublicKey() string { return "client-pubkey" }

func (s *stubSigner) Sign(event *nostr.Event) error {
	event.ID = "signed-event"
	event.Sig = "stub-sig"
	return nil
}

func TestBlossomMirror_Mirror(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/mirror", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://blossom.example.com/abc.mp4"})
	}))
	defer srv.Close()

	m := NewBlossomMirror([]string{srv.URL}, &stubSigner{}, time.Second)
	mirrored, err := m.Mirror(context.Background(), "https://cdn.example.com/v.mp4", "deadbeef", 1024)

	require.NoError(t, err)
	assert.Equal(t, "https://blossom.example.com/abc.mp4", mirrored)
	assert.JSONEq(t, `{"url":"https://cdn.example.com/v.mp4"}`, string(gotBody))

	// 授权头是base64编码的已签名事件
	require.True(t, strings.HasPrefix(gotAuth, "Nostr "))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(gotAuth, "Nostr "))
	require.NoError(t, err)

	var ev nostr.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, kindMirrorAuth, ev.Kind)
	assert.Equal(t, "client-pubkey", ev.PubKey)
	assert.Equal(t, "upload", ev.Tags[0][1])
	assert.Equal(t, "deadbeef", ev.Tags.GetFirst([]string{"x"}).Value())
	assert.Equal(t, "1024", ev.Tags.GetFirst([]string{"size"}).Value())
}

func TestBlossomMirror_ServerWithoutURLKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewBlossomMirror([]string{srv.URL}, &stubSigner{}, time.Second)
	mirrored, err := m.Mirror(context.Background(), "https://cdn.example.com/v.mp4", "", 0)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v.mp4", mirrored)
}

func TestBlossomMirror_FallsBackToNextServer(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://good.example.com/v.mp4"})
	}))
	defer good.Close()

	m := NewBlossomMirror([]string{bad.URL, good.URL}, &stubSigner{}, time.Second)
	mirrored, err := m.Mirror(context.Background(), "https://cdn.example.com/v.mp4", "", 0)

	require.NoError(t, err)
	assert.Equal(t, "https://good.example.com/v.mp4", mirrored)
}

func TestBlossomMirror_AllServersFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	m := NewBlossomMirror([]string{bad.URL}, &stubSigner{}, time.Second)
	_, err := m.Mirror(context.Background(), "https://cdn.example.com/v.mp4", "", 0)
	assert.Error(t, err)
}

func TestBlossomMirror_NoServersConfigured(t *testing.T) {
	m := NewBlossomMirror(nil, &stubSigner{}, time.Second)
	_, err := m.Mirror(context.Background(), "https://cdn.example.com/v.mp4", "", 0)
	assert.Error(t, err)
}
