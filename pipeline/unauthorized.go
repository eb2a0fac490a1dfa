package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/viant/authgate/config"
	"github.com/viant/authgate/logger"
	"github.com/viant/authgate/nav"
)

// UnauthorizedHandler executes the session-invalid recovery procedure at
// most once per failure episode: log the episode durably, hard-navigate
// to the unauthorized view, and only then clear local credentials. The
// navigate-first ordering is an invariant: an eager local logout can
// itself trigger a redirect that overwrites the pending navigation.
type UnauthorizedHandler struct {
	config    *config.Config
	navigator nav.Navigator
	diag      *logger.Persistent
	cleanup   func(ctx context.Context)

	mu         sync.Mutex
	recovering bool
}

// NewUnauthorizedHandler creates the handler. cleanup performs the local
// credential removal and runs only after the unauthorized view took over.
func NewUnauthorizedHandler(cfg *config.Config, navigator nav.Navigator, diag *logger.Persistent, cleanup func(ctx context.Context)) *UnauthorizedHandler {
	return &UnauthorizedHandler{
		config:    cfg,
		navigator: navigator,
		diag:      diag,
		cleanup:   cleanup,
	}
}

// Handle reacts to an unauthorized response for the given request URL.
// Near-simultaneous invocations collapse: the first one wins, the rest
// are no-ops until recovery completes.
func (h *UnauthorizedHandler) Handle(ctx context.Context, requestURL string, status int) {
	current := h.navigator.Current().Path
	if current == h.config.LoginPath || current == h.config.CallbackPath || current == h.config.UnauthorizedPath {
		logger.Debugf("[401] already on %v, skipping recovery navigation", current)
		h.setRecovering(false)
		return
	}
	h.mu.Lock()
	if h.recovering {
		h.mu.Unlock()
		logger.Debugf("[401] recovery navigation already underway, skipping")
		return
	}
	h.recovering = true
	h.mu.Unlock()

	h.diag.Warn(ctx, "[401] unauthorized detected, navigating to error view", map[string]any{
		"url":       requestURL,
		"status":    status,
		"path":      current,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	logger.Warnf("[401] unauthorized for %v (status %v), navigating to %v", requestURL, status, h.config.UnauthorizedPath)

	h.navigator.Assign(h.config.UnauthorizedPath)
	// the request context is cancelled as soon as the failing call
	// returns; the confirmation window must outlive it
	go h.confirm(context.WithoutCancel(ctx))
}

// Recovering reports whether a recovery navigation is underway.
func (h *UnauthorizedHandler) Recovering() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recovering
}

func (h *UnauthorizedHandler) setRecovering(value bool) {
	h.mu.Lock()
	h.recovering = value
	h.mu.Unlock()
}

// confirm polls the location until the unauthorized view took over, then
// runs the deferred local cleanup. On persistent mismatch it falls back
// to a replace navigation before cleaning up.
func (h *UnauthorizedHandler) confirm(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond

	deadline := time.Now().Add(h.config.RecoveryConfirm)
	_, err := backoff.Retry(ctx, func() (any, error) {
		path := h.navigator.Current().Path
		if path == h.config.UnauthorizedPath {
			return nil, nil
		}
		if time.Now().After(deadline) {
			return nil, backoff.Permanent(errNavigationUnconfirmed)
		}
		return nil, errNavigationUnconfirmed
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(64))

	if err != nil {
		logger.Warnf("[401] navigation unconfirmed, forcing replace to %v", h.config.UnauthorizedPath)
		h.navigator.Replace(h.config.UnauthorizedPath)
	}
	if h.cleanup != nil {
		h.cleanup(ctx)
	}
	h.setRecovering(false)
}

var errNavigationUnconfirmed = errors.New("recovery navigation not yet effective")
