package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"arkx/internal/application/port"
	"arkx/internal/domain/model"
	domainsvc "arkx/internal/domain/service"
	"arkx/internal/infrastructure/captcha"
	"arkx/internal/infrastructure/config"
	"arkx/internal/infrastructure/exchange/arkham"
	"arkx/internal/infrastructure/session"
	"arkx/internal/infrastructure/storage/composite"
	"arkx/internal/infrastructure/svc"
)

// Deps 账户聚合的外部依赖
type Deps struct {
	Pool     *session.Pool
	Store    port.AccountStore
	Cookies  *composite.CookieStore
	Config   *config.Config
	Prompter port.CodePrompter // nil disables 2FA prompting
}

// Account drives one exchange account end to end: session, auth lifecycle,
// stats and trading. Clients are built lazily on first use so listing
// accounts never opens network state.
type Account struct {
	deps   Deps
	row    model.AccountRow
	policy model.CookiePolicy

	sess    *session.Session
	clients *arkham.Clients
}

func NewAccount(deps Deps, row model.AccountRow) *Account {
	policy := model.DefaultCookiePolicy()
	if cfg := deps.Config; cfg != nil {
		policy = model.CookiePolicy{
			SessionTTL: cfg.CookieSessionTTL(),
			StoreTTL:   cfg.CookieStoreTTL(),
		}
	}
	return &Account{deps: deps, row: row, policy: policy}
}

func (a *Account) Name() string { return a.row.Name }

func (a *Account) Row() model.AccountRow { return a.row }

// Clients exposes the exchange clients for callers that need direct access
// (console commands). Valid only after a successful ensureClients.
func (a *Account) Clients() *arkham.Clients { return a.clients }

func (a *Account) ensureClients(ctx context.Context) error {
	if a.sess != nil && !a.sess.Closed() && a.clients != nil {
		return nil
	}

	sess, err := a.deps.Pool.Acquire(a.row.Proxy)
	if err != nil {
		return err
	}
	a.sess = sess

	cfg := a.deps.Config
	solver := captcha.NewClient(sess, captcha.Settings{
		APIKey:    cfg.Captcha.APIKey,
		SiteKey:   cfg.Captcha.SiteKey,
		PageURL:   cfg.Captcha.PageURL,
		CreateURL: cfg.Captcha.CreateURL,
		ResultURL: cfg.Captcha.ResultURL,
		Attempts:  cfg.Captcha.Attempts,
		PollDelay: cfg.CaptchaPollDelay(),
	})

	var creds *arkham.Credentials
	if a.row.APIKey != "" && a.row.APISecret != "" {
		creds = arkham.NewCredentials(a.row.APIKey, a.row.APISecret)
	}

	a.clients = arkham.NewClients(arkham.Params{
		Session:      sess,
		BaseURL:      cfg.Exchange.BaseURL,
		LoginPageURL: cfg.Exchange.LoginPageURL,
		SubaccountID: cfg.Exchange.SubaccountID,
		Email:        a.row.Email,
		Password:     a.row.Password,
		Credentials:  creds,
		Solver:       solver,
	})
	return nil
}

// EnsureAuthenticated brings the session to an authenticated state, trying
// the cheapest path first: cookies held on the row, then the persisted
// cookie store, then a full credential login.
func (a *Account) EnsureAuthenticated(ctx context.Context) error {
	if err := a.ensureClients(ctx); err != nil {
		return err
	}
	if a.clients.Auth.State() == arkham.StateAuthenticated {
		return nil
	}
	now := time.Now()

	if a.row.Cookies != nil && a.row.Cookies.Fresh(now, a.policy.SessionTTL) {
		err := a.clients.Auth.LoginWithCookies(ctx, *a.row.Cookies)
		if err == nil {
			log.Info().Str("account", a.row.Name).Msg("authenticated with held cookies")
			return nil
		}
		if !errors.Is(err, svc.ErrCookiesRejected) {
			return err
		}
		log.Warn().Str("account", a.row.Name).Msg("held cookies rejected")
		a.row.Cookies = nil
	}

	if cs, err := a.deps.Cookies.Get(ctx, a.row.Name); err == nil && cs.Fresh(now, a.policy.StoreTTL) {
		err := a.clients.Auth.LoginWithCookies(ctx, cs)
		if err == nil {
			a.row.Cookies = &cs
			log.Info().Str("account", a.row.Name).Msg("authenticated with stored cookies")
			return nil
		}
		if !errors.Is(err, svc.ErrCookiesRejected) {
			return err
		}
		log.Warn().Str("account", a.row.Name).Msg("stored cookies rejected")
		if err := a.deps.Cookies.Invalidate(ctx, a.row.Name); err != nil {
			log.Warn().Err(err).Str("account", a.row.Name).Msg("cookie invalidation failed")
		}
	} else if err != nil && !errors.Is(err, svc.ErrNotFound) {
		log.Warn().Err(err).Str("account", a.row.Name).Msg("cookie store read failed")
	}

	return a.login(ctx)
}

func (a *Account) login(ctx context.Context) error {
	log.Info().Str("account", a.row.Name).Msg("starting credential login")
	if err := a.clients.Auth.Login(ctx); err != nil {
		return err
	}

	if a.deps.Config.TwoFA.Enabled {
		if a.deps.Prompter == nil {
			return errors.New("2fa enabled but no code prompter wired")
		}
		code, err := a.deps.Prompter.PromptCode(ctx, a.row.Name)
		if err != nil {
			return err
		}
		if err := a.clients.Auth.VerifyTwoFactor(ctx, code); err != nil {
			return err
		}
	} else {
		a.clients.Auth.CompleteWithoutTwoFactor()
	}

	cs, err := a.clients.Auth.CaptureCookies(time.Now())
	if err != nil {
		return err
	}
	a.row.Cookies = &cs
	if err := a.deps.Cookies.Put(ctx, a.row.Name, cs); err != nil {
		// authenticated either way; the next run just logs in again
		log.Warn().Err(err).Str("account", a.row.Name).Msg("cookie persistence failed")
	}
	log.Info().Str("account", a.row.Name).Int("cookies", len(cs.Cookies)).Msg("login complete")
	return nil
}

// RefreshStats pulls the four stat categories. Each fetch is independent:
// a failure keeps the previous value for that category and the rest still
// update. The merged snapshot is persisted.
func (a *Account) RefreshStats(ctx context.Context) (model.Stats, error) {
	if err := a.ensureClients(ctx); err != nil {
		return a.row.Stats, err
	}

	stats := a.row.Stats
	acct := a.clients.Account

	if balance, err := acct.Balance(ctx); err != nil {
		log.Warn().Err(err).Str("account", a.row.Name).Msg("balance fetch failed")
	} else {
		stats.Balance = balance
	}
	if volume, err := acct.Volume(ctx); err != nil {
		log.Warn().Err(err).Str("account", a.row.Name).Msg("volume fetch failed")
	} else {
		stats.Volume = volume
	}
	if points, err := acct.Points(ctx); err != nil {
		log.Warn().Err(err).Str("account", a.row.Name).Msg("points fetch failed")
	} else {
		stats.Points = int64(points)
	}
	if bonus, credit, err := acct.Rewards(ctx); err != nil {
		log.Warn().Err(err).Str("account", a.row.Name).Msg("rewards fetch failed")
	} else {
		stats.MarginBonus = bonus
		stats.MarginFee = credit
	}

	a.row.Stats = stats
	if err := a.deps.Store.UpdateStats(ctx, a.row.Name, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

// OpenPosition sets the leverage, sizes the order from live balance and
// price, and submits a market order.
func (a *Account) OpenPosition(ctx context.Context, coin string, side model.Side, leverage int, riskPct float64) (float64, error) {
	if err := a.ensureClients(ctx); err != nil {
		return 0, err
	}

	applied, err := a.clients.Leverage.SetLeverage(ctx, coin, leverage)
	if err != nil {
		return 0, err
	}

	balance, err := a.clients.Account.Balance(ctx)
	if err != nil {
		return 0, err
	}
	ticker, err := a.clients.Ticker.PerpTicker(ctx, coin)
	if err != nil {
		return 0, err
	}

	size, err := domainsvc.PositionSize(balance, applied, ticker.Price, riskPct)
	if err != nil {
		return 0, err
	}

	_, err = a.clients.Order.PlaceOrder(ctx, model.OrderIntent{
		Coin:   coin,
		Side:   side,
		Type:   model.OrderMarket,
		Market: model.MarketFutures,
		Size:   size,
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// RunStrategy is the hook a trading strategy plugs into.
func (a *Account) RunStrategy(ctx context.Context) error {
	log.Info().Str("account", a.row.Name).Msg("no strategy configured")
	return nil
}

// Close releases the session. The pool hands out a fresh one on next use,
// so Close is safe to call between operations.
func (a *Account) Close() {
	if a.sess != nil {
		a.sess.Close()
	}
	a.clients = nil
}
