package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"internship-portal/internal/shared/auth"
	"internship-portal/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	isGuestKey   = "isGuest"

	guestPrefix   = "guest:"
	maxGuestIDLen = 64
)

// publicPaths skip identity resolution.
var publicPaths = map[string]struct{}{
	"/api/v1/health": {},
	"/metrics":       {},
}

var (
	errBadToken      = errors.New("missing or invalid token")
	errNoIdentity    = errors.New("missing identity")
	errBadGuestID    = errors.New("invalid guest id")
	errGuestDisabled = errors.New("guest access is disabled")
)

// identity is the principal that owns resumes and analyses for a request.
type identity struct {
	UserID string
	Email  string
	Guest  bool
}

// Auth resolves the caller from a bearer JWT or, when allowGuests is set, an
// X-Guest-Id header. Guest principals are namespaced as "guest:<id>" so they can
// never collide with a token subject.
func Auth(secret []byte, allowGuests bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, ok := publicPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		id, err := resolveIdentity(c.Request, secret, allowGuests)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
			return
		}
		c.Set(userIDKey, id.UserID)
		if id.Email != "" {
			c.Set(userEmailKey, id.Email)
		}
		c.Set(isGuestKey, id.Guest)
		c.Next()
	}
}

func resolveIdentity(r *http.Request, secret []byte, allowGuests bool) (identity, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return identity{}, errBadToken
		}
		claims, err := auth.VerifyJWT(token, secret)
		if err != nil || strings.TrimSpace(claims.Subject) == "" {
			return identity{}, errBadToken
		}
		return identity{UserID: claims.Subject, Email: claims.Email}, nil
	}

	guestID := strings.TrimSpace(r.Header.Get("X-Guest-Id"))
	switch {
	case guestID == "":
		return identity{}, errNoIdentity
	case !allowGuests:
		return identity{}, errGuestDisabled
	case !validGuestID(guestID):
		return identity{}, errBadGuestID
	}
	return identity{UserID: guestPrefix + guestID, Guest: true}, nil
}

func validGuestID(id string) bool {
	if len(id) > maxGuestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// IsGuest reports whether the caller authenticated with a guest header.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}
