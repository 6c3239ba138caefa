package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

var testCaller = ethcommon.HexToAddress("0x00000000000000000000000000000000000000a1")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   testCaller.Hex(),
		"iss":   "pairamm",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": ScopeTrade,
	}
}

func serve(auth *Authenticator, token string, scopes ...string) (*httptest.ResponseRecorder, *http.Request) {
	var seen *http.Request
	handler := auth.Middleware(scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/amm/pools/p/swap", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, seen
}

func TestAuthenticatorDerivesCaller(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "pairamm"}, nil)
	res, seen := serve(auth, signToken(t, validClaims()), ScopeTrade)
	if res.Code != http.StatusOK {
		t.Fatalf("expected success, got %d", res.Code)
	}
	caller, ok := CallerFromContext(seen.Context())
	if !ok || caller != testCaller {
		t.Fatalf("unexpected caller %s", caller.Hex())
	}
	if scopes := ScopesFromContext(seen.Context()); len(scopes) != 1 || scopes[0] != ScopeTrade {
		t.Fatalf("unexpected scopes %v", scopes)
	}
}

func TestAuthenticatorRejects(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "pairamm"}, nil)

	if res, _ := serve(auth, ""); res.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d", res.Code)
	}

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if res, _ := serve(auth, signToken(t, expired)); res.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: got %d", res.Code)
	}

	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "other"
	if res, _ := serve(auth, signToken(t, wrongIssuer)); res.Code != http.StatusUnauthorized {
		t.Fatalf("wrong issuer: got %d", res.Code)
	}

	badSubject := validClaims()
	badSubject["sub"] = "alice"
	if res, _ := serve(auth, signToken(t, badSubject)); res.Code != http.StatusUnauthorized {
		t.Fatalf("non-address subject: got %d", res.Code)
	}

	if res, _ := serve(auth, signToken(t, validClaims()), ScopeAdmin); res.Code != http.StatusForbidden {
		t.Fatalf("missing scope: got %d", res.Code)
	}
}

func TestAuthenticatorDisabled(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: false}, nil)
	res, seen := serve(auth, "", ScopeAdmin)
	if res.Code != http.StatusOK {
		t.Fatalf("disabled auth should pass, got %d", res.Code)
	}
	if _, ok := CallerFromContext(seen.Context()); ok {
		t.Fatalf("no caller expected without auth")
	}
}

func TestExtractScopes(t *testing.T) {
	claims := jwt.MapClaims{"scope": "amm:trade  amm:admin", "roles": []interface{}{"amm:admin", 7}}
	if got := extractScopes(claims, ""); len(got) != 2 {
		t.Fatalf("unexpected scopes %v", got)
	}
	if got := extractScopes(claims, "roles"); len(got) != 1 || got[0] != ScopeAdmin {
		t.Fatalf("unexpected array scopes %v", got)
	}
	if !hasScopes([]string{ScopeTrade, ScopeAdmin}, []string{ScopeAdmin}) || hasScopes(nil, []string{ScopeTrade}) {
		t.Fatalf("hasScopes mismatch")
	}
}
