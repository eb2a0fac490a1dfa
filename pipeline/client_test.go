package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/nav"
	"github.com/viant/authgate/trace"
)

type staticTokens struct {
	token string
	calls int32
}

func (s *staticTokens) GetValidToken(context.Context) string {
	atomic.AddInt32(&s.calls, 1)
	return s.token
}

type testHarness struct {
	config    *config.Config
	navigator *nav.Memory
	tokens    *staticTokens
	cleanups  int32
	client    *Client
	fetch     *Fetch
	handler   *UnauthorizedHandler
}

func newHarness(t *testing.T, baseURL, token string) *testHarness {
	t.Helper()
	cfg := config.New()
	cfg.APIBaseURL = baseURL
	cfg.NetworkDebounce = 20 * time.Millisecond
	cfg.RecoveryConfirm = time.Second
	cfg.FetchTimeout = 2 * time.Second
	cfg.ClientTimeout = 2 * time.Second

	h := &testHarness{
		config:    cfg,
		navigator: nav.NewMemory("http://localhost:5173/home"),
		tokens:    &staticTokens{token: token},
	}
	diag := logger.NewPersistent("mem://localhost/pipeline_test/diag.log", 1.0, true)
	h.handler = NewUnauthorizedHandler(cfg, h.navigator, diag, func(context.Context) {
		atomic.AddInt32(&h.cleanups, 1)
	})
	core := NewCore(cfg, h.tokens, trace.New(nil), h.navigator, h.handler)
	h.client = NewClient(core, nil)
	h.fetch = NewFetch(core, nil)
	return h
}

func (h *testHarness) waitRecovered(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.handler.Recovering() {
		if time.Now().After(deadline) {
			t.Fatal("recovery never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientStampsAuthorizationAndTrace(t *testing.T) {
	var mu sync.Mutex
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		captured = r.Header.Clone()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "eyJ-test-token")
	out := map[string]string{}
	err := h.client.Get(context.Background(), "/api/resources", &out)
	assert.NoError(t, err)
	assert.Equal(t, "ok", out["status"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer eyJ-test-token", captured.Get("Authorization"))
	assert.Len(t, captured.Get(trace.HeaderTraceID), 32)
	assert.Len(t, captured.Get(trace.HeaderRequestID), 16)
}

func TestClientOmitsBearerWithoutToken(t *testing.T) {
	var mu sync.Mutex
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authorization = r.Header.Get("Authorization")
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "")
	assert.NoError(t, h.client.Get(context.Background(), "/api/resources", nil))
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, authorization)
}

func TestClientUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "eyJ-test-token")
	err := h.client.Get(context.Background(), "/api/resources", nil)
	assert.True(t, IsKind(err, Unauthorized))

	assert.Equal(t, h.config.UnauthorizedPath, h.navigator.Current().Path)
	h.waitRecovered(t)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.cleanups), "cleanup runs after navigation confirmed")
}

func TestClientRedirectToLoginIsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "eyJ-test-token")
	err := h.client.Get(context.Background(), "/api/resources", nil)
	assert.True(t, IsKind(err, Unauthorized))
	h.waitRecovered(t)
}

func TestClientConcurrentUnauthorizedSingleRecovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "eyJ-test-token")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.client.Get(context.Background(), "/api/resources", nil)
			assert.True(t, IsKind(err, Unauthorized))
		}()
	}
	wg.Wait()
	h.waitRecovered(t)

	var recoveries int
	for _, entry := range h.navigator.History() {
		if entry == h.config.UnauthorizedPath {
			recoveries++
		}
	}
	assert.Equal(t, 1, recoveries, "simultaneous failures collapse into one navigation")
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.cleanups))
}

func TestClientServerErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database unavailable"}`))
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "eyJ-test-token")
	err := h.client.Get(context.Background(), "/api/resources", nil)
	assert.True(t, IsKind(err, GenericRequestFailure))
	failure := err.(*Failure)
	assert.Equal(t, http.StatusInternalServerError, failure.Status)
	assert.Equal(t, "database unavailable", failure.Message)
	assert.Equal(t, "/home", h.navigator.Current().Path, "non-auth failures do not navigate")
}

func TestClientNetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	h := newHarness(t, baseURL, "eyJ-test-token")
	err := h.client.Get(context.Background(), "/api/resources", nil)
	assert.True(t, IsKind(err, NetworkUnavailable))

	time.Sleep(3 * h.config.NetworkDebounce)
	assert.Equal(t, h.config.LoginPath, h.navigator.Current().Path, "debounced navigation to login")
}

func TestClientNetworkFailureOnLoginPathStaysPut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	h := newHarness(t, baseURL, "eyJ-test-token")
	h.navigator.Assign("/login")
	err := h.client.Get(context.Background(), "/api/resources", nil)
	assert.True(t, IsKind(err, NetworkUnavailable))

	time.Sleep(3 * h.config.NetworkDebounce)
	assert.Equal(t, []string{"/login"}, h.navigator.History())
}

func TestClientPostDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer server.Close()

	h := newHarness(t, server.URL, "eyJ-test-token")
	out := struct {
		ID int `json:"id"`
	}{}
	err := h.client.Post(context.Background(), "/api/resources", map[string]string{"name": "demo"}, &out)
	assert.NoError(t, err)
	assert.Equal(t, 7, out.ID)
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) {
	return 0, errors.New("stream interrupted")
}

func TestRoundTripperRejectsUnreadableBody(t *testing.T) {
	transport := NewRoundTripper(nil, trace.New(nil), http.DefaultTransport)
	req, err := http.NewRequest(http.MethodPost, "http://localhost:9000/api/resources", failingBody{})
	assert.NoError(t, err)

	_, err = transport.RoundTrip(req)
	assert.ErrorContains(t, err, "stream interrupted")
}
