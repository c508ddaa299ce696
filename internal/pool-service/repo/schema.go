package repo

import (
	"context"
	"fmt"

	"github.com/radieske/bet-pool/internal/shared/db"
)

// Valores monetários ficam em NUMERIC no postgres e TEXT no sqlite (decimal exato nos dois).
const postgresSchema = `
CREATE TABLE IF NOT EXISTS sportsbooks (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	current_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS bets (
	id           TEXT PRIMARY KEY,
	sportsbook_id TEXT NOT NULL REFERENCES sportsbooks(id),
	sport        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL,
	base_odds    INTEGER NOT NULL DEFAULT 0,
	boost_pct    NUMERIC(8,2) NOT NULL DEFAULT 0,
	total_wager  NUMERIC(14,2) NOT NULL,
	his_wager    NUMERIC(14,2) NOT NULL,
	my_wager     NUMERIC(14,2) NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	notes        TEXT NOT NULL DEFAULT '',
	placed_at    TIMESTAMPTZ NOT NULL,
	settled_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_bets_placed_at ON bets(placed_at DESC);
CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	person        TEXT NOT NULL,
	sportsbook_id TEXT REFERENCES sportsbooks(id),
	amount        NUMERIC(14,2) NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_date TEXT PRIMARY KEY,
	cash          NUMERIC(14,2) NOT NULL,
	at_risk       NUMERIC(14,2) NOT NULL,
	book_balances JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS activity_log (
	id         TEXT PRIMARY KEY,
	actor_id   TEXT NOT NULL,
	action     TEXT NOT NULL,
	details    JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity_log(created_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sportsbooks (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	current_balance TEXT NOT NULL DEFAULT '0',
	created_at      TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS bets (
	id            TEXT PRIMARY KEY,
	sportsbook_id TEXT NOT NULL REFERENCES sportsbooks(id),
	sport         TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL,
	base_odds     INTEGER NOT NULL DEFAULT 0,
	boost_pct     TEXT NOT NULL DEFAULT '0',
	total_wager   TEXT NOT NULL,
	his_wager     TEXT NOT NULL,
	my_wager      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	notes         TEXT NOT NULL DEFAULT '',
	placed_at     TIMESTAMP NOT NULL,
	settled_at    TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_bets_placed_at ON bets(placed_at DESC);
CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	person        TEXT NOT NULL,
	sportsbook_id TEXT REFERENCES sportsbooks(id),
	amount        TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_date TEXT PRIMARY KEY,
	cash          TEXT NOT NULL,
	at_risk       TEXT NOT NULL,
	book_balances TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS activity_log (
	id         TEXT PRIMARY KEY,
	actor_id   TEXT NOT NULL,
	action     TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity_log(created_at DESC);
`

// Migrate cria as tabelas se ainda não existirem
func (s *SQLStore) Migrate(ctx context.Context) error {
	ddl := sqliteSchema
	if s.driver == db.DriverPostgres {
		ddl = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", s.driver, err)
	}
	return nil
}
