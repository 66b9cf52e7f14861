// Package token tracks per-provider credential state: a bearer token with a
// lazily refreshed expiry, and the rate-limit budget the provider reports on
// every response.
package token

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/golang-jwt/jwt/v5"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
)

const (
	// tokenRefreshLeeway refreshes tokens slightly before their decoded
	// expiry so in-flight requests never race the deadline.
	tokenRefreshLeeway = 30 * time.Second

	// defaultTokenLifetime applies when a token carries no decodable expiry
	// claim.
	defaultTokenLifetime = 24 * time.Hour

	// defaultWindow applies when the provider reports an exhausted budget
	// without a reset header.
	defaultWindow = time.Second

	// maxRateLimitWaits bounds how many windows a single call will sit out
	// before the exhausted budget is surfaced as an upstream failure.
	maxRateLimitWaits = 3
)

var errBudgetExhausted = errors.New("rate limit budget exhausted")

// Authenticator performs one login exchange with a provider and returns the
// bearer token it yields.
type Authenticator interface {
	Login(ctx context.Context) (string, error)
}

// Manager owns the credential lifecycle for exactly one provider:
// Unauthenticated -> Authenticated -> Expired -> Authenticated -> ...
// It is safe for concurrent use.
type Manager struct {
	provider string
	auth     Authenticator
	now      func() time.Time

	mu        sync.Mutex
	value     string
	expiresAt time.Time

	// Rate-limit budget, refreshed from response headers. knownBudget is
	// false until the provider has reported a budget at least once.
	knownBudget bool
	remaining   int
	window      time.Duration
	resetAt     time.Time

	waitPolicy retrypolicy.RetryPolicy[any]
}

// NewManager creates a Manager for the named provider.
func NewManager(provider string, auth Authenticator) *Manager {
	m := &Manager{
		provider: provider,
		auth:     auth,
		now:      time.Now,
		window:   defaultWindow,
	}
	m.waitPolicy = retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return errors.Is(err, errBudgetExhausted)
		}).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[any]) time.Duration {
			return m.untilReset()
		}).
		WithMaxRetries(maxRateLimitWaits).
		ReturnLastFailure().
		Build()
	return m
}

// EnsureValidToken returns a bearer token, performing a login exchange when
// no token is held or the held token's decoded expiry has passed. It fails
// with an auth error when the login does not yield a token.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.value != "" && m.now().Add(tokenRefreshLeeway).Before(m.expiresAt) {
		return m.value, nil
	}

	logger := config.GetLogger()
	logger.Debug().Str("provider", m.provider).Msg("Token absent or expired, performing login exchange")

	value, err := m.auth.Login(ctx)
	if err != nil {
		var authErr *apperrors.ErrAuth
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", apperrors.NewAuthError(m.provider, err.Error())
	}
	if value == "" {
		return "", apperrors.NewAuthError(m.provider, "login did not yield a token")
	}

	m.value = value
	m.expiresAt = m.decodeExpiry(value)
	logger.Debug().Str("provider", m.provider).Time("expiresAt", m.expiresAt).Msg("Token refreshed")
	return m.value, nil
}

// Invalidate discards the held token so the next call performs a fresh login.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	m.expiresAt = time.Time{}
}

// decodeExpiry extracts the exp claim from a bearer token without verifying
// its signature; the expiry is a local refresh hint, not a security boundary.
func (m *Manager) decodeExpiry(value string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(value, jwt.MapClaims{})
	if err != nil {
		return m.now().Add(defaultTokenLifetime)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return m.now().Add(defaultTokenLifetime)
	}
	return exp.Time
}

// GuardRateLimit suspends the caller while the provider's reported budget is
// exhausted, waiting for the rate-limit window to reset. The wait is bounded:
// after maxRateLimitWaits windows the exhausted budget is surfaced as an
// upstream error instead of stalling the request indefinitely.
func (m *Manager) GuardRateLimit(ctx context.Context) error {
	err := failsafe.With[any](m.waitPolicy).WithContext(ctx).Run(func() error {
		if m.budgetAvailable() {
			return nil
		}
		return errBudgetExhausted
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, errBudgetExhausted) {
		return apperrors.NewUpstreamError(m.provider, errBudgetExhausted)
	}
	return err
}

func (m *Manager) budgetAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.knownBudget || m.remaining > 0 {
		return true
	}
	if !m.now().Before(m.resetAt) {
		// The window has elapsed; assume the provider restored the budget
		// until the next response says otherwise.
		m.knownBudget = false
		return true
	}
	return false
}

func (m *Manager) untilReset() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	wait := m.resetAt.Sub(m.now())
	if wait <= 0 {
		wait = m.window
	}
	return wait
}

// ObserveResponse refreshes the rate-limit budget from a provider response.
// Both the bare and X- prefixed header variants are honored.
func (m *Manager) ObserveResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v := headerValue(resp, "Ratelimit-Reset", "X-RateLimit-Reset", "Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			m.window = time.Duration(seconds) * time.Second
		}
	}

	if v := headerValue(resp, "Ratelimit-Remaining", "X-RateLimit-Remaining"); v != "" {
		if remaining, err := strconv.Atoi(v); err == nil {
			m.knownBudget = true
			m.remaining = remaining
			if remaining <= 0 {
				m.resetAt = m.now().Add(m.window)
			}
		}
	}
}

// Remaining reports the last budget the provider announced; the second value
// is false when no budget has been observed yet.
func (m *Manager) Remaining() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining, m.knownBudget
}

func headerValue(resp *http.Response, names ...string) string {
	for _, name := range names {
		if v := resp.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
