package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type refreshBackend struct {
	validToken   string
	refreshCalls atomic.Int32
	failRefresh  bool
	// alwaysReject makes every protected call return 401.
	alwaysReject bool
}

func (b *refreshBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/refresh":
		b.refreshCalls.Add(1)
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if b.failRefresh || body.RefreshToken != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid refresh token"}`)
			return
		}
		b.validToken = "access-2"
		_, _ = io.WriteString(w, `{"access_token":"access-2","refresh_token":"refresh-2","token_type":"bearer"}`)
	case "/api/v1/deployment/stats":
		if b.alwaysReject || r.Header.Get("Authorization") != "Bearer "+b.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"total_deployments":3}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
	}
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *credentials.ScopedStore, *int) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := credentials.NewScopedStore(credentials.NewMemoryStorage(), credentials.NewMemoryStorage())
	redirects := 0
	c, err := New(Options{
		BaseURL:       srv.URL,
		Credentials:   store,
		OnAuthFailure: func() { redirects++ },
	})
	require.NoError(t, err)
	return c, store, &redirects
}

func TestClientRefreshesOnceAndReplays(t *testing.T) {
	backend := &refreshBackend{validToken: "access-1"}
	c, store, redirects := newTestClient(t, backend)
	require.NoError(t, store.Save(credentials.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"}, true))

	var out struct {
		Total int `json:"total_deployments"`
	}
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodGet, Path: "deployment/stats"}, &out))
	require.Equal(t, 3, out.Total)
	require.Equal(t, int32(1), backend.refreshCalls.Load())
	require.Equal(t, 0, *redirects)

	at, err := store.AccessToken()
	require.NoError(t, err)
	require.Equal(t, "access-2", at)
	rt, err := store.RefreshToken()
	require.NoError(t, err)
	require.Equal(t, "refresh-2", rt)
}

func TestClientSecond401IsReturnedWithoutAnotherRefresh(t *testing.T) {
	backend := &refreshBackend{validToken: "access-1", alwaysReject: true}
	c, store, redirects := newTestClient(t, backend)
	require.NoError(t, store.Save(credentials.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"}, false))

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "deployment/stats"}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnauthorized))
	require.False(t, errors.Is(err, ErrLoginRequired))
	require.Equal(t, int32(1), backend.refreshCalls.Load())
	require.Equal(t, 0, *redirects)
}

func TestClientRefreshFailureClearsCredentials(t *testing.T) {
	backend := &refreshBackend{validToken: "access-1", failRefresh: true}
	c, store, redirects := newTestClient(t, backend)
	require.NoError(t, store.Save(credentials.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"}, true))

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "deployment/stats"}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLoginRequired))
	require.Equal(t, 1, *redirects)

	at, err := store.AccessToken()
	require.NoError(t, err)
	require.Empty(t, at)
	rm, err := store.RememberMe()
	require.NoError(t, err)
	require.False(t, rm)
}

func TestClientMissingRefreshTokenRedirects(t *testing.T) {
	backend := &refreshBackend{validToken: "access-1"}
	c, store, redirects := newTestClient(t, backend)
	require.NoError(t, store.Save(credentials.Tokens{AccessToken: "stale"}, false))

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "deployment/stats"}, nil)
	require.True(t, errors.Is(err, ErrLoginRequired))
	require.Equal(t, int32(0), backend.refreshCalls.Load())
	require.Equal(t, 1, *redirects)
}

func TestClientAnonymousRequestSkipsRefresh(t *testing.T) {
	backend := &refreshBackend{validToken: "access-1"}
	c, _, redirects := newTestClient(t, backend)

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "deployment/stats", Anonymous: true}, nil)
	require.True(t, errors.Is(err, ErrUnauthorized))
	require.Equal(t, int32(0), backend.refreshCalls.Load())
	require.Equal(t, 0, *redirects)
}

func TestClientSendsHeaders(t *testing.T) {
	var got http.Header
	var gotPath string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.RequestURI()
		_, _ = io.WriteString(w, `[]`)
	})
	c, store, _ := newTestClient(t, h)
	require.NoError(t, store.Save(credentials.Tokens{AccessToken: "tok"}, true))

	ctx := WithRequestID(context.Background(), "req-42")
	var out []any
	require.NoError(t, c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/deployment/",
		Query:  map[string][]string{"limit": {"5"}},
	}, &out))
	require.Equal(t, "/api/v1/deployment/?limit=5", gotPath)
	require.Equal(t, "Bearer tok", got.Get("Authorization"))
	require.Equal(t, "req-42", got.Get("X-Request-ID"))
	require.Equal(t, "application/json", got.Get("Accept"))
}

func TestErrorDetailExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"Deployment not found"}`, "Deployment not found"},
		{"validation", `{"detail":[{"loc":["body","email"],"msg":"field required"},{"loc":["body"],"msg":"bad"}]}`, "email: field required; body: bad"},
		{"message", `{"message":"boom"}`, "boom"},
		{"html", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extractDetail([]byte(tt.body)))
		})
	}
}

func TestMessageFallback(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Unsupported file type"}`)
	})
	c, _, _ := newTestClient(t, h)

	err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "voice/transcribe", Anonymous: true}, nil)
	require.Equal(t, "Unsupported file type", Message(err, "Failed to transcribe audio"))
	require.Equal(t, "Failed to transcribe audio", Message(errors.New("dial tcp: refused"), "Failed to transcribe audio"))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Options{BaseURL: "localhost:8000", Credentials: credentials.NewScopedStore(credentials.NewMemoryStorage(), credentials.NewMemoryStorage())})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "http://"))
}

func TestMultipartFileSetsAudioType(t *testing.T) {
	body := MultipartFile("file", "/tmp/rec.webm", []byte("data"))
	r, ct, err := body()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ct, "multipart/form-data; boundary="))
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Contains(t, string(b), `filename="rec.webm"`)
	require.Contains(t, string(b), "Content-Type: audio/webm")
}
