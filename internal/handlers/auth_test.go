package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRegisterAndLogin(t *testing.T) {
	ms := newMemStore()
	router := newTestRouter(ms)

	token := registerUser(t, router, "alice")
	if token == "" {
		t.Fatal("expected a token from register")
	}

	recorder := doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{
		Username: "alice",
		Password: "secret123",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", recorder.Code, recorder.Body.String())
	}

	var resp TokenResponse
	decodeBody(t, recorder, &resp)
	if resp.Token == "" {
		t.Fatal("login: empty token")
	}

	subject, err := parseTokenSubject(resp.Token, []byte(testSecret))
	if err != nil {
		t.Fatalf("parse login token: %v", err)
	}
	if subject != "alice" {
		t.Fatalf("token subject: got %q want %q", subject, "alice")
	}
}

func TestRegisterMissingFields(t *testing.T) {
	router := newTestRouter(newMemStore())

	recorder := doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		Username: "alice",
		Password: "secret123",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	router := newTestRouter(newMemStore())
	registerUser(t, router, "alice")

	recorder := doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		Username:  "alice",
		Password:  "othersecret",
		FirstName: "Other",
		LastName:  "Alice",
		Phone:     "+15550000",
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status: got %d want %d", recorder.Code, http.StatusConflict)
	}
}

func TestLoginFailures(t *testing.T) {
	router := newTestRouter(newMemStore())
	registerUser(t, router, "alice")

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"missing password", LoginRequest{Username: "alice"}},
		{"missing username", LoginRequest{Password: "secret123"}},
		{"unknown username", LoginRequest{Username: "mallory", Password: "secret123"}},
		{"wrong password", LoginRequest{Username: "alice", Password: "wrong"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doJSON(t, router, http.MethodPost, "/login", "", tt.req)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d want %d", recorder.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestLoginTouchesLastLogin(t *testing.T) {
	ms := newMemStore()
	router := newTestRouter(ms)
	registerUser(t, router, "alice")

	// Backdate the stamp so the login visibly moves it forward.
	past := time.Now().Add(-time.Hour)
	ms.mu.Lock()
	user := ms.users["alice"]
	user.LastLoginAt = past
	ms.users["alice"] = user
	ms.mu.Unlock()

	recorder := doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{
		Username: "alice",
		Password: "secret123",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login: status %d", recorder.Code)
	}

	ms.mu.Lock()
	updated := ms.users["alice"].LastLoginAt
	ms.mu.Unlock()
	if !updated.After(past) {
		t.Fatalf("last_login_at not updated: got %v", updated)
	}
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	router := newTestRouter(newMemStore())

	recorder := doJSON(t, router, http.MethodGet, "/users", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d want %d", recorder.Code, http.StatusUnauthorized)
	}

	token := registerUser(t, router, "alice")

	// Flip a character in the signature segment.
	tampered := token[:len(token)-2] + flipChar(token[len(token)-2]) + token[len(token)-1:]
	recorder = doJSON(t, router, http.MethodGet, "/users", tampered, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token: got %d want %d", recorder.Code, http.StatusUnauthorized)
	}

	if !strings.Contains(token, ".") {
		t.Fatal("token is not a JWT")
	}
}

func flipChar(c byte) string {
	if c == 'a' {
		return "b"
	}
	return "a"
}
