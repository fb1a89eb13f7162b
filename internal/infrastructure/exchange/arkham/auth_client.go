package arkham

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

// State 登录流程所处阶段
type State string

const (
	StateUnauthenticated      State = "UNAUTHENTICATED"
	StateCredentialsSubmitted State = "CREDENTIALS_SUBMITTED"
	StateAwaitingTwoFactor    State = "AWAITING_2FA"
	StateAuthenticated        State = "AUTHENTICATED"
)

// probePath answers 200 only with a valid session cookie, so it doubles as
// the cookie liveness check.
const probePath = "/api/account/margin/all"

var twoFactorCode = regexp.MustCompile(`^\d{6}$`)

// AuthClient drives the browser-style login flow: landing page, turnstile
// token, credential submission and the optional 2FA challenge.
type AuthClient struct {
	*APIClient

	solver       captchaSolver
	email        string
	password     string
	loginPageURL string
	state        State
}

type captchaSolver interface {
	SolveTurnstile(ctx context.Context) (string, error)
}

func (a *AuthClient) State() State { return a.state }

func (a *AuthClient) setState(s State) {
	if a.state == s {
		return
	}
	log.Debug().Str("from", string(a.state)).Str("to", string(s)).Msg("auth state")
	a.state = s
}

// LoginWithCookies restores a persisted cookie set into the session and
// probes a protected endpoint to verify it is still accepted.
func (a *AuthClient) LoginWithCookies(ctx context.Context, cs model.CookieSet) error {
	a.setState(StateUnauthenticated)
	if err := a.sess.ApplyCookies(a.baseURL, cs); err != nil {
		return err
	}
	resp, err := a.get(ctx, probePath, a.baseURL+"/balance", nil)
	if err != nil {
		return err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		a.setState(StateAuthenticated)
		return nil
	case http.StatusUnauthorized:
		return svc.ErrCookiesRejected
	default:
		return &svc.TransportError{Op: "cookie probe", Status: resp.StatusCode()}
	}
}

type loginRequest struct {
	Email              string `json:"email"`
	Password           string `json:"password"`
	CallbackDomain     string `json:"callbackDomain"`
	RedirectPath       string `json:"redirectPath"`
	Turnstile          string `json:"turnstile"`
	InvisibleTurnstile string `json:"invisibleTurnstile"`
}

// Login performs the full credential flow. On success the client is in
// StateCredentialsSubmitted; callers either complete a 2FA challenge or
// call CompleteWithoutTwoFactor.
func (a *AuthClient) Login(ctx context.Context) error {
	a.setState(StateUnauthenticated)

	// 先加载登录页拿到反爬 cookie
	pageResp, err := a.sess.R().SetContext(ctx).Get(a.loginPageURL)
	if err != nil {
		return &svc.TransportError{Op: "login page", Err: err}
	}
	log.Debug().Int("status", pageResp.StatusCode()).Msg("login page loaded")

	token, err := a.solver.SolveTurnstile(ctx)
	if err != nil {
		return fmt.Errorf("solve turnstile: %w", err)
	}

	// callbackDomain 必须是空串，后端才不做跳转校验
	body := loginRequest{
		Email:        a.email,
		Password:     a.password,
		RedirectPath: "/",
		Turnstile:    token,
	}
	resp, err := a.postJSON(ctx, "/api/auth/login", a.loginPageURL, body)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: login http %d", svc.ErrAuthFailed, resp.StatusCode())
	}
	if msg, failed := failureMessage(resp.Body()); failed {
		return fmt.Errorf("%w: %s", svc.ErrAuthFailed, msg)
	}

	a.setState(StateCredentialsSubmitted)
	return nil
}

// failureMessage inspects a 200 login body. A body that is not JSON, or
// carries no message, counts as success.
func failureMessage(body []byte) (string, bool) {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if parsed.Message == "" {
		return "", false
	}
	lower := strings.ToLower(parsed.Message)
	if parsed.Message == "no turnstile" || strings.Contains(lower, "error") {
		return parsed.Message, true
	}
	return "", false
}

type challengeRequest struct {
	CallbackDomain string `json:"callbackDomain"`
	RedirectPath   string `json:"redirectPath"`
	Code           string `json:"code"`
}

// VerifyTwoFactor submits the one-time code. Codes expire quickly, so this
// is a single request with no retry.
func (a *AuthClient) VerifyTwoFactor(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !twoFactorCode.MatchString(code) {
		return &svc.ValidationError{Field: "code", Reason: "must be exactly 6 digits"}
	}
	a.setState(StateAwaitingTwoFactor)

	body := challengeRequest{
		RedirectPath: "/",
		Code:         code,
	}
	resp, err := a.postJSON(ctx, "/api/auth/login/challenge", a.loginPageURL, body)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: 2fa challenge http %d", svc.ErrAuthFailed, resp.StatusCode())
	}

	a.setState(StateAuthenticated)
	return nil
}

// CompleteWithoutTwoFactor marks the session authenticated for accounts
// that have no 2FA challenge configured.
func (a *AuthClient) CompleteWithoutTwoFactor() {
	a.setState(StateAuthenticated)
}

// CaptureCookies snapshots the session jar for persistence.
func (a *AuthClient) CaptureCookies(now time.Time) (model.CookieSet, error) {
	return a.sess.CookieSnapshot(a.baseURL, now)
}
