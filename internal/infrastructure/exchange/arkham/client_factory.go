package arkham

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"arkx/internal/application/port"
	"arkx/internal/infrastructure/session"
)

// ===== Credentials 凭证 =====

// Credentials 持有交易所签发的 API key/secret 并负责签名
type Credentials struct {
	apiKey    string
	apiSecret string
}

func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{apiKey: apiKey, apiSecret: apiSecret}
}

// Sign 生成 HMAC-SHA256 签名（hex 编码）
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Credentials) APIKey() string { return c.apiKey }

// APIClient is the shared transport state for all arkham clients: the
// cookie-bearing session, optional signing credentials, and routing.
type APIClient struct {
	sess         *session.Session
	credentials  *Credentials // nil for cookie-only accounts
	baseURL      string
	subaccountID int
}

// Params collects everything needed to build the client set for one account.
type Params struct {
	Session      *session.Session
	BaseURL      string
	LoginPageURL string
	SubaccountID int

	Email    string
	Password string

	// optional: signed endpoints refuse to work without these
	Credentials *Credentials

	Solver port.CaptchaSolver
}

// Clients 单账户的全部 Arkham 客户端，共用一个 APIClient
type Clients struct {
	Auth     *AuthClient
	Account  *AccountClient
	Position *PositionClient
	Order    *OrderClient
	Leverage *LeverageClient
	Ticker   *TickerClient
}

func NewClients(p Params) *Clients {
	api := &APIClient{
		sess:         p.Session,
		credentials:  p.Credentials,
		baseURL:      p.BaseURL,
		subaccountID: p.SubaccountID,
	}

	position := &PositionClient{APIClient: api}
	return &Clients{
		Auth: &AuthClient{
			APIClient:    api,
			solver:       p.Solver,
			email:        p.Email,
			password:     p.Password,
			loginPageURL: p.LoginPageURL,
			state:        StateUnauthenticated,
		},
		Account:  &AccountClient{APIClient: api},
		Position: position,
		Order:    &OrderClient{APIClient: api, positions: position},
		Leverage: &LeverageClient{APIClient: api},
		Ticker:   &TickerClient{APIClient: api},
	}
}
