package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"internship-portal/internal/shared/auth"
)

var testSecret = []byte("test-secret")

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSecret, true))
	router.OPTIONS("/api/v1/resumes", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/resumes", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthBearerSetsUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token, err := auth.SignJWT(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"}}, testSecret)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	var seen string
	router := gin.New()
	router.Use(Auth(testSecret, false))
	router.GET("/api/v1/resumes", func(c *gin.Context) {
		seen = UserIDFromContext(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seen != "user-42" {
		t.Fatalf("expected user-42, got %q", seen)
	}
}

func TestAuthRejectsInvalidTokenAndDisabledGuests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSecret, false))
	router.GET("/api/v1/resumes", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := map[string]func(*http.Request){
		"bad token": func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"no scheme": func(r *http.Request) { r.Header.Set("Authorization", "token") },
		"guest":     func(r *http.Request) { r.Header.Set("X-Guest-Id", "g1") },
		"nothing":   func(r *http.Request) {},
	}
	for name, setup := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
		setup(req)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, resp.Code)
		}
	}
}

func TestAuthSkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSecret, false))
	router.GET("/api/v1/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthGuestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	var guest bool
	router := gin.New()
	router.Use(Auth(testSecret, true))
	router.GET("/api/v1/resumes", func(c *gin.Context) {
		seen = UserIDFromContext(c)
		guest = IsGuest(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	req.Header.Set("X-Guest-Id", "browser_01-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seen != "guest:browser_01-a" || !guest {
		t.Fatalf("unexpected identity %q guest=%v", seen, guest)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	bad.Header.Set("X-Guest-Id", "../other:user")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, bad)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed guest id, got %d", resp.Code)
	}
}

func TestAuthAcceptsLowercaseBearerAndRejectsEmptySubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSecret, false))
	router.GET("/api/v1/resumes", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	good, err := auth.SignJWT(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-7"}}, testSecret)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	req.Header.Set("Authorization", "bearer "+good)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for lowercase scheme, got %d", resp.Code)
	}

	anon, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	req.Header.Set("Authorization", "Bearer "+anon)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token without subject, got %d", resp.Code)
	}
}
