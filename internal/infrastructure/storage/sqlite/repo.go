package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"arkx/internal/application/port"
	"arkx/internal/domain/model"
	"arkx/internal/infrastructure/svc"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(svc.ErrStorageInitFailed, err.Error())
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
  account TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password TEXT NOT NULL,
  api_key TEXT NOT NULL DEFAULT '',
  api_secret TEXT NOT NULL DEFAULT '',
  proxy TEXT NOT NULL DEFAULT '',
  cookies TEXT,
  balance REAL NOT NULL DEFAULT 0,
  volume REAL NOT NULL DEFAULT 0,
  points INTEGER NOT NULL DEFAULT 0,
  margin_fee REAL NOT NULL DEFAULT 0,
  margin_bonus REAL NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
`)
	return err
}

func nowMs() int64 { return time.Now().UnixMilli() }

func encodeCookies(cs *model.CookieSet) (sql.NullString, error) {
	if cs == nil || cs.Empty() {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(cs)
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "encode cookies")
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeCookies(raw sql.NullString) (*model.CookieSet, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var cs model.CookieSet
	if err := json.Unmarshal([]byte(raw.String), &cs); err != nil {
		return nil, errors.Wrap(err, "decode cookies")
	}
	return &cs, nil
}

func (r *Repo) UpsertAccount(ctx context.Context, row model.AccountRow) error {
	cookies, err := encodeCookies(row.Cookies)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts(account, email, password, api_key, api_secret, proxy, cookies,
			balance, volume, points, margin_fee, margin_bonus, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
		email=excluded.email, password=excluded.password,
		api_key=excluded.api_key, api_secret=excluded.api_secret,
		proxy=excluded.proxy, cookies=excluded.cookies,
		balance=excluded.balance, volume=excluded.volume, points=excluded.points,
		margin_fee=excluded.margin_fee, margin_bonus=excluded.margin_bonus,
		updated_at=excluded.updated_at
	`, row.Name, row.Email, row.Password, row.APIKey, row.APISecret, row.Proxy, cookies,
		row.Stats.Balance, row.Stats.Volume, row.Stats.Points,
		row.Stats.MarginFee, row.Stats.MarginBonus, nowMs())
	return err
}

func scanAccount(scan func(dest ...any) error) (model.AccountRow, error) {
	var row model.AccountRow
	var cookies sql.NullString
	err := scan(&row.Name, &row.Email, &row.Password, &row.APIKey, &row.APISecret,
		&row.Proxy, &cookies, &row.Stats.Balance, &row.Stats.Volume, &row.Stats.Points,
		&row.Stats.MarginFee, &row.Stats.MarginBonus)
	if err != nil {
		return model.AccountRow{}, err
	}
	row.Cookies, err = decodeCookies(cookies)
	return row, err
}

const accountColumns = `account, email, password, api_key, api_secret, proxy, cookies,
	balance, volume, points, margin_fee, margin_bonus`

func (r *Repo) GetAccount(ctx context.Context, name string) (model.AccountRow, error) {
	row, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account=?`, name).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountRow{}, svc.ErrNotFound
	}
	return row, err
}

func (r *Repo) ListAccounts(ctx context.Context, nameFilter string) ([]model.AccountRow, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if nameFilter != "" {
		query += ` WHERE account LIKE ?`
		args = append(args, "%"+nameFilter+"%")
	}
	query += ` ORDER BY account`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AccountRow
	for rows.Next() {
		row, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteAccount(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE account=?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svc.ErrNotFound
	}
	return nil
}

func (r *Repo) GetCookies(ctx context.Context, name string) (model.CookieSet, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT cookies FROM accounts WHERE account=?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CookieSet{}, svc.ErrNotFound
	}
	if err != nil {
		return model.CookieSet{}, err
	}
	cs, err := decodeCookies(raw)
	if err != nil {
		return model.CookieSet{}, err
	}
	if cs == nil {
		return model.CookieSet{}, svc.ErrNotFound
	}
	return *cs, nil
}

func (r *Repo) PutCookies(ctx context.Context, name string, cs model.CookieSet) error {
	encoded, err := encodeCookies(&cs)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, `UPDATE accounts SET cookies=?, updated_at=? WHERE account=?`,
		encoded, nowMs(), name)
}

func (r *Repo) GetProxy(ctx context.Context, name string) (string, error) {
	var proxy string
	err := r.db.QueryRowContext(ctx, `SELECT proxy FROM accounts WHERE account=?`, name).Scan(&proxy)
	if errors.Is(err, sql.ErrNoRows) {
		return "", svc.ErrNotFound
	}
	return proxy, err
}

func (r *Repo) SetProxy(ctx context.Context, name, proxy string) error {
	return r.updateOne(ctx, `UPDATE accounts SET proxy=?, updated_at=? WHERE account=?`,
		proxy, nowMs(), name)
}

func (r *Repo) GetCredentials(ctx context.Context, name string) (email, password string, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT email, password FROM accounts WHERE account=?`, name).
		Scan(&email, &password)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", svc.ErrNotFound
	}
	return
}

func (r *Repo) SetCredentials(ctx context.Context, name, email, password string) error {
	return r.updateOne(ctx, `UPDATE accounts SET email=?, password=?, updated_at=? WHERE account=?`,
		email, password, nowMs(), name)
}

func (r *Repo) UpdateStats(ctx context.Context, name string, stats model.Stats) error {
	return r.updateOne(ctx, `
		UPDATE accounts SET balance=?, volume=?, points=?, margin_fee=?, margin_bonus=?, updated_at=?
		WHERE account=?`,
		stats.Balance, stats.Volume, stats.Points, stats.MarginFee, stats.MarginBonus, nowMs(), name)
}

func (r *Repo) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return svc.ErrNotFound
	}
	return nil
}

var _ port.AccountStore = (*Repo)(nil)
