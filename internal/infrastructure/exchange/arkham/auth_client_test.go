package arkham

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/session"
	"arkx/internal/infrastructure/svc"
)

type staticSolver struct {
	token string
	err   error
}

func (s staticSolver) SolveTurnstile(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestClients(t *testing.T, h http.Handler) *Clients {
	t.Helper()
	srv := httptest.NewServer(h)
	sess, err := session.New("", 5*time.Second, 0)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() {
		srv.Close()
		sess.Close()
	})
	return NewClients(Params{
		Session:      sess,
		BaseURL:      srv.URL,
		LoginPageURL: srv.URL + "/login",
		SubaccountID: 0,
		Email:        "user@example.com",
		Password:     "secret",
		Credentials:  NewCredentials("test-key", "test-secret"),
		Solver:       staticSolver{token: "tok-abc"},
	})
}

func TestLoginSuccess(t *testing.T) {
	var gotLogin map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>"))
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotLogin); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		w.Write([]byte(`{"verified":true}`))
	})

	c := newTestClients(t, mux)
	if err := c.Auth.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.Auth.State() != StateCredentialsSubmitted {
		t.Errorf("state = %s, want %s", c.Auth.State(), StateCredentialsSubmitted)
	}
	if gotLogin["email"] != "user@example.com" || gotLogin["password"] != "secret" {
		t.Errorf("credentials not forwarded: %+v", gotLogin)
	}
	if gotLogin["turnstile"] != "tok-abc" {
		t.Errorf("turnstile token = %v, want tok-abc", gotLogin["turnstile"])
	}
	if domain, ok := gotLogin["callbackDomain"]; !ok || domain != "" {
		t.Errorf("callbackDomain = %v, want empty string", domain)
	}

	c.Auth.CompleteWithoutTwoFactor()
	if c.Auth.State() != StateAuthenticated {
		t.Errorf("state = %s, want %s", c.Auth.State(), StateAuthenticated)
	}
}

func TestLoginNonJSONBodyIsSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	c := newTestClients(t, mux)
	if err := c.Auth.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no turnstile", `{"message":"no turnstile"}`},
		{"error message", `{"message":"Internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {})
			mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			c := newTestClients(t, mux)
			err := c.Auth.Login(context.Background())
			if !errors.Is(err, svc.ErrAuthFailed) {
				t.Fatalf("Login error = %v, want ErrAuthFailed", err)
			}
			if c.Auth.State() == StateAuthenticated {
				t.Error("state must not be authenticated after failure")
			}
		})
	}
}

func TestLoginBenignMessageIsSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"challenge required"}`))
	})
	c := newTestClients(t, mux)
	if err := c.Auth.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginWithCookies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"accepted", http.StatusOK, nil},
		{"rejected", http.StatusUnauthorized, svc.ErrCookiesRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCookie string
			mux := http.NewServeMux()
			mux.HandleFunc(probePath, func(w http.ResponseWriter, r *http.Request) {
				if ck, err := r.Cookie("arkham_sid"); err == nil {
					gotCookie = ck.Value
				}
				w.WriteHeader(tt.status)
			})

			c := newTestClients(t, mux)
			cs := model.NewCookieSet(map[string]string{"arkham_sid": "abc123"}, time.Now())
			err := c.Auth.LoginWithCookies(context.Background(), cs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoginWithCookies error = %v, want %v", err, tt.wantErr)
			}
			if gotCookie != "abc123" {
				t.Errorf("session cookie = %q, want abc123", gotCookie)
			}
			if tt.wantErr == nil && c.Auth.State() != StateAuthenticated {
				t.Errorf("state = %s, want %s", c.Auth.State(), StateAuthenticated)
			}
		})
	}
}

func TestVerifyTwoFactorCodeFormat(t *testing.T) {
	c := newTestClients(t, http.NewServeMux())
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		err := c.Auth.VerifyTwoFactor(context.Background(), code)
		var verr *svc.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("code %q: error = %v, want ValidationError", code, err)
		}
	}
}

func TestVerifyTwoFactorSingleRequest(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/challenge", func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req challengeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode challenge body: %v", err)
		}
		if req.Code != "123456" {
			t.Errorf("code = %q, want 123456", req.Code)
		}
		if req.CallbackDomain != "" {
			t.Errorf("callbackDomain = %q, want empty string", req.CallbackDomain)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClients(t, mux)
	err := c.Auth.VerifyTwoFactor(context.Background(), "123456")
	if !errors.Is(err, svc.ErrAuthFailed) {
		t.Fatalf("VerifyTwoFactor error = %v, want ErrAuthFailed", err)
	}
	if calls != 1 {
		t.Errorf("challenge requests = %d, want exactly 1", calls)
	}
}

func TestVerifyTwoFactorSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/challenge", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c := newTestClients(t, mux)
	if err := c.Auth.VerifyTwoFactor(context.Background(), " 654321 "); err != nil {
		t.Fatalf("VerifyTwoFactor: %v", err)
	}
	if c.Auth.State() != StateAuthenticated {
		t.Errorf("state = %s, want %s", c.Auth.State(), StateAuthenticated)
	}
}
