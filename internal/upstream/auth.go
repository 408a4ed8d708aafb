package upstream

import (
	"context"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"go-servicereq/internal/core/auth"
	"go-servicereq/internal/core/cache"
	"go-servicereq/internal/domain"
)

// AuthClient asks the Auth service whether a token is valid.
type AuthClient struct{ c client }

func NewAuthClient(baseURL string, timeout time.Duration, l *zap.Logger) *AuthClient {
	return &AuthClient{c: newClient("auth", baseURL, timeout, l)}
}

type validatingDTO struct {
	ValidStatus bool   `json:"validStatus"`
	UserRole    string `json:"userRole"`
	Email       string `json:"email"`
}

func (a *AuthClient) Validate(ctx context.Context, token string) (domain.TokenInfo, error) {
	var v validatingDTO
	if err := a.c.get(ctx, "/auth/validate", token, &v); err != nil {
		return domain.TokenInfo{}, err
	}
	return domain.TokenInfo{Valid: v.ValidStatus, Role: domain.ParseRole(v.UserRole), Email: v.Email}, nil
}

// JWTGateway validates the Auth service's HS256 tokens locally with the
// shared secret instead of calling the service.
type JWTGateway struct{ jwt *auth.JWTer }

func NewJWTGateway(j *auth.JWTer) *JWTGateway { return &JWTGateway{jwt: j} }

func (g *JWTGateway) Validate(_ context.Context, token string) (domain.TokenInfo, error) {
	claims, err := g.jwt.Parse(token)
	if err != nil {
		return domain.TokenInfo{}, nil
	}
	return domain.TokenInfo{Valid: true, Role: domain.ParseRole(claims.Role), Email: claims.Email}, nil
}

// CachedAuth memoizes another gateway's answers in redis for ttl. Keys are
// hashes of the token, never the token itself.
type CachedAuth struct {
	next  domain.AuthGateway
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedAuth(next domain.AuthGateway, c *cache.Cache, ttl time.Duration) *CachedAuth {
	return &CachedAuth{next: next, cache: c, ttl: ttl}
}

func tokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "auth:" + hex.EncodeToString(sum[:])
}

func (a *CachedAuth) Validate(ctx context.Context, token string) (domain.TokenInfo, error) {
	return cache.GetOrLoadJSON(ctx, a.cache, tokenKey(token), a.ttl, func(ctx context.Context) (domain.TokenInfo, error) {
		return a.next.Validate(ctx, token)
	})
}
