package session

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"arkx/internal/domain/model"
)

// Session is a live, cookie-bearing, optionally proxied HTTP client handle.
// At most one open session per account; Close is idempotent.
type Session struct {
	client *resty.Client
	jar    http.CookieJar
	proxy  string
	grace  time.Duration
	closed atomic.Bool
}

// New builds a session with its own cookie jar. Certificate verification is
// disabled on purpose: the target site's chain is accepted as-is.
func New(proxy string, timeout, grace time.Duration) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}

	client := resty.New().
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})

	if proxy != "" {
		if _, err := url.Parse(proxy); err != nil {
			return nil, errors.Wrapf(err, "bad proxy %q", proxy)
		}
		client.SetProxy(proxy)
	}

	return &Session{client: client, jar: jar, proxy: proxy, grace: grace}, nil
}

// R starts a request on this session. The proxy and cookie jar are already
// wired into the underlying client.
func (s *Session) R() *resty.Request { return s.client.R() }

func (s *Session) Client() *resty.Client { return s.client }

func (s *Session) Proxy() string { return s.proxy }

func (s *Session) Closed() bool { return s.closed.Load() }

// SetTimeout overrides the per-request budget, e.g. for long-running flows.
func (s *Session) SetTimeout(d time.Duration) { s.client.SetTimeout(d) }

// ApplyCookies loads a persisted CookieSet into the jar for the given site.
func (s *Session) ApplyCookies(siteURL string, cs model.CookieSet) error {
	u, err := url.Parse(siteURL)
	if err != nil {
		return errors.Wrapf(err, "bad site url %q", siteURL)
	}
	cookies := make([]*http.Cookie, 0, len(cs.Cookies))
	for name, value := range cs.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	s.jar.SetCookies(u, cookies)
	return nil
}

// CookieSnapshot captures the jar's cookies for the given site as a
// CookieSet stamped with now.
func (s *Session) CookieSnapshot(siteURL string, now time.Time) (model.CookieSet, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return model.CookieSet{}, errors.Wrapf(err, "bad site url %q", siteURL)
	}
	pairs := make(map[string]string)
	for _, c := range s.jar.Cookies(u) {
		pairs[c.Name] = c.Value
	}
	return model.NewCookieSet(pairs, now), nil
}

// Close releases the session. Safe to call multiple times; the first call
// waits out a short grace delay so the transport can release its sockets.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.client.GetClient().CloseIdleConnections()
	if s.grace > 0 {
		time.Sleep(s.grace)
	}
}
