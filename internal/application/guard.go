package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// Navigator performs the redirect to the login entry point.
type Navigator interface {
	RedirectToLogin()
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func()

// RedirectToLogin calls f.
func (f NavigatorFunc) RedirectToLogin() { f() }

// SessionGuard decides, for every mount of a protected view, whether the
// browser context holds a credential the remote service still accepts.
// A guard is shared; all per-view state lives in the Mount it returns.
type SessionGuard struct {
	verifier driven.TokenVerifier
	timeout  time.Duration
	metrics  *Metrics
	logger   *slog.Logger
}

// NewSessionGuard creates a SessionGuard. timeout bounds each verification
// call; zero leaves the call unbounded. metrics may be nil.
func NewSessionGuard(verifier driven.TokenVerifier, timeout time.Duration, metrics *Metrics, logger *slog.Logger) *SessionGuard {
	return &SessionGuard{
		verifier: verifier,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Mount is one pass of the session state machine for a single protected view.
// It starts Pending and settles exactly once into Granted or Denied, unless it
// is unmounted first.
type Mount struct {
	guard *SessionGuard
	creds *Credentials
	nav   Navigator

	// effects carries request-scoped values for the clear issued on denial,
	// detached from the caller's cancellation.
	effects context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu       sync.Mutex
	decision model.SessionDecision
	reason   model.Reason
	detached bool
}

// Mount starts the state machine for one protected view. The credential is
// read synchronously: with none stored the mount is Denied before Mount
// returns and no verification call is made. Otherwise exactly one
// verification call is started in the background.
//
// The verification call is not bound to ctx's cancellation; callers end a
// mount early with Unmount.
func (g *SessionGuard) Mount(ctx context.Context, creds *Credentials, nav Navigator) *Mount {
	m := &Mount{
		guard:    g,
		creds:    creds,
		nav:      nav,
		effects:  context.WithoutCancel(ctx),
		done:     make(chan struct{}),
		decision: model.DecisionPending,
	}

	credential, ok := creds.Get(ctx)
	if !ok {
		m.mu.Lock()
		m.settleLocked(model.DecisionDenied, model.ReasonNoCredential, nil)
		m.mu.Unlock()
		return m
	}

	var verifyCtx context.Context
	if g.timeout > 0 {
		verifyCtx, m.cancel = context.WithTimeout(m.effects, g.timeout)
	} else {
		verifyCtx, m.cancel = context.WithCancel(m.effects)
	}

	go m.verify(verifyCtx, credential)

	return m
}

func (m *Mount) verify(ctx context.Context, credential string) {
	start := time.Now()
	err := m.guard.verifier.Verify(ctx, credential)
	decision, reason := classify(err)
	m.guard.metrics.observeVerification(outcomeLabel(reason), time.Since(start))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.detached {
		m.guard.logger.Debug("discarding verification result for unmounted view",
			"scope", m.creds.Scope(),
			"decision", decision,
			"reason", reason,
		)
		return
	}

	m.cancel()
	m.settleLocked(decision, reason, err)
}

// settleLocked applies a terminal transition. Callers hold m.mu, which keeps
// the clear and the redirect ordered before any concurrent Unmount returns.
func (m *Mount) settleLocked(decision model.SessionDecision, reason model.Reason, cause error) {
	if decision == model.DecisionDenied && reason != model.ReasonNoCredential {
		if err := m.creds.Clear(m.effects); err != nil {
			m.guard.logger.Error("failed to clear rejected credential",
				"scope", m.creds.Scope(),
				"error", err,
			)
		}
	}

	m.decision = decision
	m.reason = reason

	attrs := []any{"scope", m.creds.Scope(), "decision", decision}
	if reason != model.ReasonNone {
		attrs = append(attrs, "reason", reason)
	}
	if cause != nil {
		attrs = append(attrs, "error", cause)
	}
	m.guard.logger.Info("session decision", attrs...)
	m.guard.metrics.recordDecision(decision, reason)

	if decision == model.DecisionDenied {
		m.nav.RedirectToLogin()
	}

	close(m.done)
}

// Unmount detaches the mount from its view. A verification still in flight is
// canceled and its result discarded: the store is not touched and no redirect
// happens. Unmount is idempotent and safe after the mount has settled.
func (m *Mount) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.detached {
		return
	}
	m.detached = true
	if m.cancel != nil {
		m.cancel()
	}
}

// State returns the current decision and the reason for it.
func (m *Mount) State() (model.SessionDecision, model.Reason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decision, m.reason
}

// Done returns a channel closed once the mount settles. It stays open for a
// mount unmounted while Pending.
func (m *Mount) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mount settles or ctx ends, then returns the state.
func (m *Mount) Wait(ctx context.Context) (model.SessionDecision, model.Reason) {
	select {
	case <-m.done:
	case <-ctx.Done():
	}
	return m.State()
}

func outcomeLabel(reason model.Reason) string {
	switch reason {
	case model.ReasonNone:
		return "accepted"
	case model.ReasonRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// classify maps a verification result onto a decision.
func classify(err error) (model.SessionDecision, model.Reason) {
	switch {
	case err == nil:
		return model.DecisionGranted, model.ReasonNone
	case errors.Is(err, driven.ErrCredentialRejected):
		return model.DecisionDenied, model.ReasonRejected
	default:
		return model.DecisionDenied, model.ReasonVerificationFailed
	}
}
