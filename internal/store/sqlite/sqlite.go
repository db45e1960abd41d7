// Package sqlite is the single-file Store behind the command-line tool.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  account_type    TEXT,
  vertical        TEXT,
  sales_rep       TEXT,
  technical_owner TEXT,
  created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_accounts_name ON accounts(lower(name));
CREATE TABLE IF NOT EXISTS deals (
  id               TEXT PRIMARY KEY,
  account_id       TEXT NOT NULL REFERENCES accounts(id),
  name             TEXT NOT NULL,
  stage            TEXT NOT NULL,
  amount           TEXT,
  weighted_amount  TEXT,
  recurring_amount TEXT,
  probability_pct  INTEGER CHECK (probability_pct BETWEEN 0 AND 100),
  owner            TEXT,
  target_period    TEXT,
  deal_type        TEXT,
  close_date       TEXT,
  confirmed_value  TEXT,
  vertical         TEXT,
  region           TEXT,
  created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_deals_name ON deals(lower(name));
`

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ListDeals(ctx context.Context) ([]model.PersistedDeal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+store.DealSelect+`
FROM deals d LEFT JOIN accounts a ON a.id = d.account_id
ORDER BY d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PersistedDeal
	for rows.Next() {
		var sc store.DealScan
		if err := rows.Scan(sc.Dest()...); err != nil {
			return nil, err
		}
		d, err := sc.Deal()
		if err != nil {
			return nil, fmt.Errorf("deal %s: %w", sc.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(account_type, ''), COALESCE(vertical, ''),
  COALESCE(sales_rep, ''), COALESCE(technical_owner, '')
FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.AccountType, &a.Vertical, &a.SalesRep, &a.TechnicalOwner); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts (id, name, account_type, vertical, sales_rep, technical_owner)
VALUES (?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(a.Name), store.NullString(a.AccountType), store.NullString(a.Vertical),
		store.NullString(a.SalesRep), store.NullString(a.TechnicalOwner))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) error {
	return s.update(ctx, "accounts", id, store.AccountColumns(patch))
}

func (s *Store) CreateDeal(ctx context.Context, accountID string, d model.CanonicalDeal) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO deals (id, account_id, name, stage, amount, weighted_amount,
  recurring_amount, probability_pct, owner, target_period, deal_type, close_date, confirmed_value, vertical, region)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, accountID, d.Name, string(d.Stage),
		store.DecimalArg(d.Amount), store.DecimalArg(d.WeightedAmount), store.DecimalArg(d.RecurringAmount),
		store.ProbabilityArg(d.ProbabilityPct), store.NullString(d.Owner), store.NullString(d.TargetPeriod),
		store.NullString(string(d.DealType)), store.DateArg(d.CloseDate), store.DecimalArg(d.ConfirmedValue),
		store.NullString(d.Vertical), store.NullString(d.Region))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateDeal(ctx context.Context, id string, patch model.DealPatch) error {
	return s.update(ctx, "deals", id, store.DealColumns(patch))
}

func (s *Store) update(ctx context.Context, table, id string, cols []store.Column) error {
	if len(cols) == 0 {
		return nil
	}
	sets := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c.Name+" = ?")
		args = append(args, c.Value)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
