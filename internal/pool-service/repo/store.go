package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/shared/db"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// SQLStore implementa o store do pool sobre database/sql (postgres ou sqlite).
// As queries usam "?" e são reescritas para "$n" no postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewSQLStore(conn *sql.DB, driver string) *SQLStore {
	if driver == "" {
		driver = db.DriverPostgres
	}
	return &SQLStore{db: conn, driver: driver, now: time.Now}
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// rebind troca placeholders "?" por "$1..$n" no postgres
func (s *SQLStore) rebind(q string) string {
	if s.driver != db.DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

// isUniqueViolation reconhece violação de UNIQUE/PK nos dois drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- sportsbooks ---

func (s *SQLStore) ListSportsbooks(ctx context.Context) ([]ledger.Sportsbook, error) {
	rows, err := s.query(ctx, `SELECT id, name, current_balance, created_at FROM sportsbooks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ledger.Sportsbook, 0)
	for rows.Next() {
		var sb ledger.Sportsbook
		var created dbTime
		if err := rows.Scan(&sb.ID, &sb.Name, &sb.CurrentBalance, &created); err != nil {
			return nil, err
		}
		sb.CreatedAt = created.Time
		out = append(out, sb)
	}
	return out, rows.Err()
}

// CreateSportsbook cria a casa; nome duplicado devolve ErrConflict
func (s *SQLStore) CreateSportsbook(ctx context.Context, name string, balance decimal.Decimal) (ledger.Sportsbook, error) {
	sb := ledger.Sportsbook{
		ID:             uuid.New().String(),
		Name:           name,
		CurrentBalance: balance,
		CreatedAt:      s.now().UTC(),
	}
	_, err := s.exec(ctx, `INSERT INTO sportsbooks(id, name, current_balance, created_at) VALUES(?,?,?,?)`,
		sb.ID, sb.Name, sb.CurrentBalance, sb.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.Sportsbook{}, fmt.Errorf("sportsbook %q: %w", name, ErrConflict)
		}
		return ledger.Sportsbook{}, err
	}
	return sb, nil
}

func (s *SQLStore) UpdateSportsbookBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := s.exec(ctx, `UPDATE sportsbooks SET current_balance=? WHERE id=?`, balance, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// --- bets ---

const betColumns = `b.id, b.sportsbook_id, COALESCE(s.name, ''), b.sport, b.description, b.base_odds, b.boost_pct,
	b.total_wager, b.his_wager, b.my_wager, b.status, b.notes, b.placed_at, b.settled_at`

func scanBet(rows *sql.Rows) (ledger.Bet, error) {
	var b ledger.Bet
	var placed, settled dbTime
	var status string
	if err := rows.Scan(&b.ID, &b.SportsbookID, &b.SportsbookName, &b.Sport, &b.Description, &b.BaseOdds, &b.BoostPct,
		&b.TotalWager, &b.WagerA, &b.WagerB, &status, &b.Notes, &placed, &settled); err != nil {
		return ledger.Bet{}, err
	}
	b.Status = ledger.Status(status)
	b.PlacedAt = placed.Time
	b.SettledAt = settled.ptr()
	return b, nil
}

// ListBets devolve as apostas com o nome da casa, mais recentes primeiro
func (s *SQLStore) ListBets(ctx context.Context) ([]ledger.Bet, error) {
	rows, err := s.query(ctx, `SELECT `+betColumns+`
		FROM bets b LEFT JOIN sportsbooks s ON s.id = b.sportsbook_id
		ORDER BY b.placed_at DESC, b.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ledger.Bet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetBet(ctx context.Context, id string) (ledger.Bet, error) {
	rows, err := s.query(ctx, `SELECT `+betColumns+`
		FROM bets b LEFT JOIN sportsbooks s ON s.id = b.sportsbook_id
		WHERE b.id = ?`, id)
	if err != nil {
		return ledger.Bet{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ledger.Bet{}, err
		}
		return ledger.Bet{}, ErrNotFound
	}
	return scanBet(rows)
}

func (s *SQLStore) insertBet(ctx context.Context, b ledger.Bet) error {
	_, err := s.exec(ctx, `INSERT INTO bets(id, sportsbook_id, sport, description, base_odds, boost_pct,
		total_wager, his_wager, my_wager, status, notes, placed_at, settled_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.SportsbookID, b.Sport, b.Description, b.BaseOdds, b.BoostPct,
		b.TotalWager, b.WagerA, b.WagerB, string(b.Status), b.Notes, b.PlacedAt.UTC(), nullTime(b.SettledAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("bet %s: %w", b.ID, ErrConflict)
	}
	return err
}

// CreateBet grava uma aposta nova sempre como pending
func (s *SQLStore) CreateBet(ctx context.Context, b ledger.Bet) (ledger.Bet, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.PlacedAt.IsZero() {
		b.PlacedAt = s.now()
	}
	b.PlacedAt = b.PlacedAt.UTC()
	b.Status = ledger.StatusPending
	b.SettledAt = nil
	if err := s.insertBet(ctx, b); err != nil {
		return ledger.Bet{}, err
	}
	return b, nil
}

// UpdateBet altera apenas campos descritivos e o split; status/datas não mudam aqui
func (s *SQLStore) UpdateBet(ctx context.Context, b ledger.Bet) error {
	res, err := s.exec(ctx, `UPDATE bets SET sportsbook_id=?, sport=?, description=?, base_odds=?, boost_pct=?,
		total_wager=?, his_wager=?, my_wager=?, notes=? WHERE id=?`,
		b.SportsbookID, b.Sport, b.Description, b.BaseOdds, b.BoostPct,
		b.TotalWager, b.WagerA, b.WagerB, b.Notes, b.ID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLStore) DeleteBet(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM bets WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// SettleBet liquida uma aposta pending; se ela existir mas já estiver liquidada devolve ErrConflict
func (s *SQLStore) SettleBet(ctx context.Context, id string, status ledger.Status, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE bets SET status=?, settled_at=? WHERE id=? AND status='pending'`,
		string(status), at.UTC(), id)
	if err != nil {
		return err
	}
	if err := affectedOne(res); !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, err := s.GetBet(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("bet %s is not pending: %w", id, ErrConflict)
}

func (s *SQLStore) UnsettleBet(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `UPDATE bets SET status='pending', settled_at=NULL WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// RestoreBet recria uma aposta apagada com os campos originais (id, datas, status)
func (s *SQLStore) RestoreBet(ctx context.Context, b ledger.Bet) error {
	b.SportsbookName = ""
	return s.insertBet(ctx, b)
}

// --- transactions ---

func (s *SQLStore) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.query(ctx, `SELECT t.id, t.type, t.person, COALESCE(t.sportsbook_id, ''), COALESCE(s.name, ''),
		t.amount, t.notes, t.created_at
		FROM transactions t LEFT JOIN sportsbooks s ON s.id = t.sportsbook_id
		ORDER BY t.created_at DESC, t.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		var t ledger.Transaction
		var typ, person string
		var created dbTime
		if err := rows.Scan(&t.ID, &typ, &person, &t.SportsbookID, &t.SportsbookName,
			&t.Amount, &t.Notes, &created); err != nil {
			return nil, err
		}
		t.Type = ledger.TxType(typ)
		t.Person = ledger.Person(person)
		t.CreatedAt = created.Time
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTransaction é append-only: não existe update de transação
func (s *SQLStore) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	t.CreatedAt = t.CreatedAt.UTC()

	_, err := s.exec(ctx, `INSERT INTO transactions(id, type, person, sportsbook_id, amount, notes, created_at)
		VALUES(?,?,?,?,?,?,?)`,
		t.ID, string(t.Type), string(t.Person), nullIfEmpty(t.SportsbookID), t.Amount, t.Notes, t.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

// --- snapshots ---

func (s *SQLStore) ListSnapshots(ctx context.Context) ([]ledger.Snapshot, error) {
	rows, err := s.query(ctx, `SELECT snapshot_date, cash, at_risk, book_balances FROM snapshots ORDER BY snapshot_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ledger.Snapshot, 0)
	for rows.Next() {
		var snap ledger.Snapshot
		snap.BookBalances = map[string]decimal.Decimal{}
		if err := rows.Scan(&snap.Date, &snap.Cash, &snap.AtRisk, jsonColumn{dst: &snap.BookBalances}); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// UpsertSnapshot grava um snapshot por data (substitui o existente)
func (s *SQLStore) UpsertSnapshot(ctx context.Context, snap ledger.Snapshot) error {
	balances, err := toJSON(snap.BookBalances)
	if err != nil {
		return fmt.Errorf("marshal book balances: %w", err)
	}
	_, err = s.exec(ctx, `INSERT INTO snapshots(snapshot_date, cash, at_risk, book_balances) VALUES(?,?,?,?)
		ON CONFLICT(snapshot_date) DO UPDATE SET cash=excluded.cash, at_risk=excluded.at_risk, book_balances=excluded.book_balances`,
		snap.Date, snap.Cash, snap.AtRisk, balances)
	return err
}

// --- settings ---

func (s *SQLStore) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, `INSERT INTO settings(key, value) VALUES(?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// --- activity ---

// LogActivity persiste o evento; redelivery do Kafka com o mesmo id é ignorado
func (s *SQLStore) LogActivity(ctx context.Context, a events.Activity) error {
	details, err := toJSON(a.Details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}
	_, err = s.exec(ctx, `INSERT INTO activity_log(id, actor_id, action, details, created_at) VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.ActorID, a.Action, details, a.Time().UTC())
	return err
}

// ListActivity devolve as últimas entradas da trilha, mais recentes primeiro
func (s *SQLStore) ListActivity(ctx context.Context, limit int) ([]events.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, `SELECT id, actor_id, action, details, created_at
		FROM activity_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]events.Activity, 0)
	for rows.Next() {
		var a events.Activity
		var created dbTime
		a.Details = map[string]any{}
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, jsonColumn{dst: &a.Details}, &created); err != nil {
			return nil, err
		}
		a.TsUnixMs = created.Time.UnixMilli()
		out = append(out, a)
	}
	return out, rows.Err()
}
