package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"arkx/internal/application/port"
	"arkx/internal/infrastructure/session"
	"arkx/internal/infrastructure/svc"
)

const notReady = "CAPCHA_NOT_READY"

// Settings 求解服务参数
type Settings struct {
	APIKey    string
	SiteKey   string
	PageURL   string
	CreateURL string
	ResultURL string
	Attempts  int           // poll budget, default 10
	PollDelay time.Duration // fixed delay between polls, default 5s
}

// Client drives the two-phase turnstile flow against the solving service:
// create a task, then poll until solved or the attempt budget runs out.
type Client struct {
	sess *session.Session
	s    Settings
}

func NewClient(sess *session.Session, s Settings) *Client {
	if s.Attempts <= 0 {
		s.Attempts = 10
	}
	if s.PollDelay <= 0 {
		s.PollDelay = 5 * time.Second
	}
	return &Client{sess: sess, s: s}
}

// serviceResponse is the create/result envelope. status 1 means ok and
// request carries the payload (task id or token); otherwise request is an
// error code.
type serviceResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// SolveTurnstile returns the raw solved token.
func (c *Client) SolveTurnstile(ctx context.Context) (string, error) {
	taskID, err := c.createTask(ctx)
	if err != nil {
		return "", err
	}
	log.Info().Str("task", taskID).Msg("captcha task created, waiting for solution")
	return c.pollResult(ctx, taskID)
}

func (c *Client) createTask(ctx context.Context) (string, error) {
	resp, err := c.sess.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":     c.s.APIKey,
			"method":  "turnstile",
			"sitekey": c.s.SiteKey,
			"pageurl": c.s.PageURL,
			"json":    "1",
		}).
		Post(c.s.CreateURL)
	if err != nil {
		return "", &svc.TransportError{Op: "captcha create", Err: err}
	}

	var sr serviceResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return "", &svc.TransportError{Op: "captcha create", Err: err}
	}
	if sr.Status != 1 {
		// a create rejection (bad key etc.) is terminal, never polled
		return "", fmt.Errorf("captcha task rejected: %s", sr.Request)
	}
	return sr.Request, nil
}

func (c *Client) pollResult(ctx context.Context, taskID string) (string, error) {
	for attempt := 1; attempt <= c.s.Attempts; attempt++ {
		resp, err := c.sess.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":    c.s.APIKey,
				"action": "get",
				"id":     taskID,
				"json":   "1",
			}).
			Get(c.s.ResultURL)
		if err != nil {
			return "", &svc.TransportError{Op: "captcha poll", Err: err}
		}

		var sr serviceResponse
		if err := json.Unmarshal(resp.Body(), &sr); err != nil {
			return "", &svc.TransportError{Op: "captcha poll", Err: err}
		}
		if sr.Status == 1 {
			log.Info().Msg("captcha solved")
			return sr.Request, nil
		}
		if sr.Request != notReady {
			return "", fmt.Errorf("captcha solve failed: %s", sr.Request)
		}

		log.Debug().Int("attempt", attempt).Msg("captcha not ready")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.s.PollDelay):
		}
	}
	return "", svc.ErrCaptchaTimeout
}

var _ port.CaptchaSolver = (*Client)(nil)
