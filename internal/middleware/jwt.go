package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/session"
	"github.com/noah-isme/roommate-api/internal/utils"
)

const sessionLocalKey = "session"

// JWTProtected validates HMAC bearer tokens, rejects revoked sessions and binds the resulting
// session to the request. store may be nil, which disables revocation checks.
func JWTProtected(secret string, store session.Store, logger zerolog.Logger) fiber.Handler {
	logger = logger.With().Str("component", "jwt_middleware").Logger()

	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		sess, err := sessionFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		if store != nil && sess.ID != "" {
			revoked, err := store.IsRevoked(c.UserContext(), sess.ID)
			if err != nil {
				logger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to check session revocation")
				return utils.SendError(c, fiber.StatusServiceUnavailable, "session store unavailable")
			}
			if revoked {
				return utils.SendError(c, fiber.StatusUnauthorized, "session signed out")
			}
		}

		c.Locals(sessionLocalKey, sess)
		c.Locals("user_id", sess.UserID)
		c.Locals("user_role", string(sess.Role))
		c.SetUserContext(session.WithContext(c.UserContext(), sess))

		return c.Next()
	}
}

// CurrentSession returns the session bound by JWTProtected, or the zero session.
func CurrentSession(c *fiber.Ctx) session.Session {
	if c == nil {
		return session.Session{}
	}
	if sess, ok := c.Locals(sessionLocalKey).(session.Session); ok {
		return sess
	}
	if sess, err := session.FromContext(c.UserContext()); err == nil {
		return sess
	}
	return session.Session{}
}

// bearerToken reads the Authorization header. EventSource and WebSocket clients cannot set
// headers, so the access_token query parameter is accepted as well.
func bearerToken(c *fiber.Ctx) (string, error) {
	authorization := strings.TrimSpace(c.Get("Authorization"))
	if authorization == "" {
		if token := strings.TrimSpace(c.Query("access_token")); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("authorization header missing")
	}

	const bearer = "Bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", fmt.Errorf("invalid authorization header")
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", fmt.Errorf("invalid token")
	}
	return token, nil
}

func sessionFromClaims(claims jwt.MapClaims) (session.Session, error) {
	userID := stringClaim(claims, "sub", "user_id")
	if userID == "" {
		return session.Session{}, fmt.Errorf("token subject missing")
	}

	role := session.ParseRole(extractUserRoleFromClaims(claims))
	if role != session.RoleAdmin && role != session.RoleStudent {
		return session.Session{}, fmt.Errorf("unsupported role")
	}

	sess := session.Session{
		ID:         stringClaim(claims, "jti", "sid"),
		UserID:     userID,
		Role:       role,
		HostelName: stringClaim(claims, "hostel_name", "hostel"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time.UTC()
	}
	if sess.ID == "" {
		sess.ID = fallbackSessionID(sess)
	}
	return sess, nil
}

// fallbackSessionID derives a stable id for tokens issued without jti so they can still be
// signed out.
func fallbackSessionID(sess session.Session) string {
	if sess.ExpiresAt.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", sess.UserID, sess.ExpiresAt.Unix())
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}

// SignToken issues an HMAC token carrying the session claims JWTProtected reads.
func SignToken(secret string, sess session.Session, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  sess.UserID,
		"role": string(sess.Role),
	}
	if sess.HostelName != "" {
		claims["hostel_name"] = sess.HostelName
	}
	if sess.ID != "" {
		claims["jti"] = sess.ID
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
