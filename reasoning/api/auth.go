package api

import (
	"net/http"
	"strings"

	"github.com/BaSui01/agentflow/types"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTConfig configures bearer-token validation. Only HMAC (HS256) is
// supported here; RSA verification and role claims are out of scope
// for this illustrative surface (see reasoning/api's package doc).
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// JWTAuth validates the Authorization: Bearer <token> header and
// injects the tenant_id/user_id claims into the request context, the
// same two identity dimensions Meter/RateLimit bucket keys can be
// scoped by. Requests to any path in skipPaths bypass validation.
func JWTAuth(cfg JWTConfig, skipPaths []string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}
	secret := []byte(cfg.Secret)
	keyFunc := func(token *jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeEngineError(w, types.NewError(types.ErrReasoningAuth, "missing or malformed Authorization header").WithHTTPStatus(401), logger)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenStr, keyFunc, parserOpts...)
			if err != nil || !token.Valid {
				logger.Debug("JWT validation failed", zap.Error(err))
				writeEngineError(w, types.NewError(types.ErrReasoningAuth, "invalid or expired token").WithHTTPStatus(401), logger)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeEngineError(w, types.NewError(types.ErrReasoningAuth, "invalid token claims").WithHTTPStatus(401), logger)
				return
			}

			ctx := r.Context()
			if tenantID, ok := claims["tenant_id"].(string); ok && tenantID != "" {
				ctx = types.WithTenantID(ctx, tenantID)
			}
			if userID, ok := claims["user_id"].(string); ok && userID != "" {
				ctx = types.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
