// Package postgres is the production Store on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"PipelineSync/internal/pipeline/model"
	"PipelineSync/internal/store"
)

// Schema is applied by Migrate. Amounts are numeric so totals stay exact.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
  id              uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  name            text NOT NULL,
  account_type    text,
  vertical        text,
  sales_rep       text,
  technical_owner text,
  created_at      timestamptz NOT NULL DEFAULT now(),
  updated_at      timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_accounts_name ON accounts (lower(name));
CREATE TABLE IF NOT EXISTS deals (
  id               uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  account_id       uuid NOT NULL REFERENCES accounts(id),
  name             text NOT NULL,
  stage            text NOT NULL,
  amount           numeric(18,2),
  weighted_amount  numeric(18,2),
  recurring_amount numeric(18,2),
  probability_pct  integer CHECK (probability_pct BETWEEN 0 AND 100),
  owner            text,
  target_period    text,
  deal_type        text,
  close_date       date,
  confirmed_value  numeric(18,2),
  vertical         text,
  region           text,
  created_at       timestamptz NOT NULL DEFAULT now(),
  updated_at       timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_deals_name ON deals (lower(name));
`

type Store struct {
	pool *pgxpool.Pool
	// owned pools are closed by Close
	owned bool
}

var _ store.Store = (*Store)(nil)

// New wraps a pool the caller keeps ownership of.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pgxpool DB: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, owned: true}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

func (s *Store) ListDeals(ctx context.Context) ([]model.PersistedDeal, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+store.DealSelect+`
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
	rows, err := s.pool.Query(ctx, `SELECT id::text, name, COALESCE(account_type, ''), COALESCE(vertical, ''),
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
	var id string
	err := s.pool.QueryRow(ctx, `INSERT INTO accounts (name, account_type, vertical, sales_rep, technical_owner)
VALUES ($1, $2, $3, $4, $5) RETURNING id::text`,
		strings.TrimSpace(a.Name), store.NullString(a.AccountType), store.NullString(a.Vertical),
		store.NullString(a.SalesRep), store.NullString(a.TechnicalOwner)).Scan(&id)
	return id, err
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) error {
	return s.update(ctx, "accounts", id, store.AccountColumns(patch))
}

func (s *Store) CreateDeal(ctx context.Context, accountID string, d model.CanonicalDeal) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `INSERT INTO deals (account_id, name, stage, amount, weighted_amount,
  recurring_amount, probability_pct, owner, target_period, deal_type, close_date, confirmed_value, vertical, region)
VALUES ($1::uuid, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, $11::date, $12::numeric, $13, $14)
RETURNING id::text`,
		accountID, d.Name, string(d.Stage),
		store.DecimalArg(d.Amount), store.DecimalArg(d.WeightedAmount), store.DecimalArg(d.RecurringAmount),
		store.ProbabilityArg(d.ProbabilityPct), store.NullString(d.Owner), store.NullString(d.TargetPeriod),
		store.NullString(string(d.DealType)), store.DateArg(d.CloseDate), store.DecimalArg(d.ConfirmedValue),
		store.NullString(d.Vertical), store.NullString(d.Region)).Scan(&id)
	return id, err
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
	for i, c := range cols {
		placeholder := fmt.Sprintf("$%d", i+1)
		if c.Cast != "" {
			placeholder += "::" + c.Cast
		}
		sets = append(sets, c.Name+" = "+placeholder)
		args = append(args, c.Value)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d::uuid", table, strings.Join(sets, ", "), len(args))
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
