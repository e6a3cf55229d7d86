package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("unit-test-signing-key-32-bytes!!")

func signToken(t *testing.T, subject, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	})
	signed, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	tok := signToken(t, "user-1", "user", time.Now().Add(time.Hour))
	claims, err := JWTVerifier{Secret: testSecret}.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %q/%q", claims.Subject, claims.Role)
	}
}

func TestJWTVerifier_Rejections(t *testing.T) {
	good := signToken(t, "user-1", "admin", time.Now().Add(time.Hour))
	parts := strings.Split(good, ".")
	if len(parts) != 3 {
		t.Fatal("expected 3 JWT parts")
	}

	cases := []struct {
		name   string
		secret []byte
		token  string
	}{
		{"expired", testSecret, signToken(t, "user-1", "user", time.Now().Add(-time.Hour))},
		{"wrong secret", []byte("some-other-secret"), good},
		{"malformed", testSecret, "not.a.valid.token"},
		{"tampered payload", testSecret, parts[0] + ".dGFtcGVyZWQ." + parts[2]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := (JWTVerifier{Secret: tc.secret}).Parse(tc.token); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func serveRequireUser(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	RequireUser(JWTVerifier{Secret: testSecret})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(uid))
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireUser_ValidBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-42", "user", time.Now().Add(time.Hour)))

	rr := serveRequireUser(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "user-42" {
		t.Fatalf("expected subject in context, got %q", rr.Body.String())
	}
}

func TestRequireUser_Unauthorized(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"non-bearer scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer invalid.token.here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if rr := serveRequireUser(req); rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestRequireUser_ExpiredToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", "user", time.Now().Add(-time.Hour)))
	if rr := serveRequireUser(req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireUser_InjectsRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-99", "admin", time.Now().Add(time.Hour)))

	var gotRole string
	rr := httptest.NewRecorder()
	RequireUser(JWTVerifier{Secret: testSecret})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)

	if gotRole != "admin" {
		t.Fatalf("expected role 'admin' in context, got %q", gotRole)
	}
}

func serveRequireAdmin(role string) *httptest.ResponseRecorder {
	ctx := context.Background()
	if role != "" {
		ctx = context.WithValue(ctx, ctxKeyRole{}, role)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireAdmin(t *testing.T) {
	if rr := serveRequireAdmin("admin"); rr.Code != http.StatusOK {
		t.Fatalf("admin role: expected 200, got %d", rr.Code)
	}
	// Role matching ignores case.
	if rr := serveRequireAdmin("ADMIN"); rr.Code != http.StatusOK {
		t.Fatalf("ADMIN role: expected 200, got %d", rr.Code)
	}
	if rr := serveRequireAdmin("user"); rr.Code != http.StatusForbidden {
		t.Fatalf("user role: expected 403, got %d", rr.Code)
	}
	if rr := serveRequireAdmin(""); rr.Code != http.StatusForbidden {
		t.Fatalf("no role: expected 403, got %d", rr.Code)
	}
}
