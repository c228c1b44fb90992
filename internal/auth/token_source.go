package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

// StaticTokenSource holds a bearer token that can be swapped or cleared at
// runtime, for example when the hosting dashboard refreshes its session.
type StaticTokenSource struct {
	mu    sync.RWMutex
	token string
}

// NewStaticTokenSource creates a token source seeded with the given token.
// An empty token means no credential is available.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the current token, or false when none is set.
func (s *StaticTokenSource) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

// Set replaces the current token.
func (s *StaticTokenSource) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear removes the current token. Subsequent Token calls report no
// credential until Set is called again.
func (s *StaticTokenSource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// ExpiryGuard wraps a token source and withholds JWT tokens whose exp claim
// has already passed. The client holds no signing key, so the token is parsed
// without signature verification; the gateway remains the authority and will
// still reject anything forged. Opaque non-JWT tokens pass through untouched.
type ExpiryGuard struct {
	source ports.TokenSource
	leeway time.Duration
	parser *jwt.Parser
	logger *slog.Logger
}

// NewExpiryGuard wraps source with a local expiry check. leeway shifts the
// comparison forward so tokens about to expire are treated as already gone.
func NewExpiryGuard(source ports.TokenSource, leeway time.Duration, logger *slog.Logger) *ExpiryGuard {
	return &ExpiryGuard{
		source: source,
		leeway: leeway,
		parser: jwt.NewParser(),
		logger: logger,
	}
}

// Token returns the underlying token unless it is a JWT that has expired.
func (g *ExpiryGuard) Token() (string, bool) {
	token, ok := g.source.Token()
	if !ok {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := g.parser.ParseUnverified(token, claims); err != nil {
		// Not a JWT. Let the gateway decide what to do with it.
		return token, true
	}

	if claims.ExpiresAt != nil && !time.Now().Add(g.leeway).Before(claims.ExpiresAt.Time) {
		g.logger.Warn("auth token expired, withholding credential",
			"expired_at", claims.ExpiresAt.Time,
		)
		return "", false
	}

	return token, true
}
