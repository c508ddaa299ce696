package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

var errBoom = errors.New("boom")

// memStore é um Store em memória com injeção de falhas por método
type memStore struct {
	mu sync.Mutex

	books    map[string]ledger.Sportsbook
	bets     map[string]ledger.Bet
	txs      []ledger.Transaction
	snaps    map[string]ledger.Snapshot
	settings map[string]string
	activity []events.Activity

	fail          map[string]error
	balanceCalls  int
	failBalanceAt int // 1-based; 0 desliga
	writes        int
	onUnsettle    func() // roda dentro de UnsettleBet, antes de gravar
}

func newMemStore() *memStore {
	return &memStore{
		books:    map[string]ledger.Sportsbook{},
		bets:     map[string]ledger.Bet{},
		snaps:    map[string]ledger.Snapshot{},
		settings: map[string]string{},
		fail:     map[string]error{},
	}
}

func (m *memStore) check(op string) error { return m.fail[op] }

func (m *memStore) ListSportsbooks(ctx context.Context) ([]ledger.Sportsbook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListSportsbooks"); err != nil {
		return nil, err
	}
	out := make([]ledger.Sportsbook, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CreateSportsbook(ctx context.Context, name string, balance decimal.Decimal) (ledger.Sportsbook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CreateSportsbook"); err != nil {
		return ledger.Sportsbook{}, err
	}
	m.writes++
	sb := ledger.Sportsbook{ID: uuid.New().String(), Name: name, CurrentBalance: balance, CreatedAt: time.Now()}
	m.books[sb.ID] = sb
	return sb, nil
}

func (m *memStore) UpdateSportsbookBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceCalls++
	if m.failBalanceAt > 0 && m.balanceCalls == m.failBalanceAt {
		return errBoom
	}
	sb, ok := m.books[id]
	if !ok {
		return ErrNotFound
	}
	m.writes++
	sb.CurrentBalance = balance
	m.books[id] = sb
	return nil
}

func (m *memStore) withName(b ledger.Bet) ledger.Bet {
	b.SportsbookName = m.books[b.SportsbookID].Name
	return b
}

func (m *memStore) ListBets(ctx context.Context) ([]ledger.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListBets"); err != nil {
		return nil, err
	}
	out := make([]ledger.Bet, 0, len(m.bets))
	for _, b := range m.bets {
		out = append(out, m.withName(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out, nil
}

func (m *memStore) GetBet(ctx context.Context, id string) (ledger.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bets[id]
	if !ok {
		return ledger.Bet{}, ErrNotFound
	}
	return m.withName(b), nil
}

func (m *memStore) CreateBet(ctx context.Context, b ledger.Bet) (ledger.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CreateBet"); err != nil {
		return ledger.Bet{}, err
	}
	m.writes++
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	m.bets[b.ID] = b
	return m.withName(b), nil
}

func (m *memStore) UpdateBet(ctx context.Context, b ledger.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bets[b.ID]
	if !ok {
		return ErrNotFound
	}
	m.writes++
	b.Status, b.PlacedAt, b.SettledAt = cur.Status, cur.PlacedAt, cur.SettledAt
	m.bets[b.ID] = b
	return nil
}

func (m *memStore) DeleteBet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("DeleteBet"); err != nil {
		return err
	}
	if _, ok := m.bets[id]; !ok {
		return ErrNotFound
	}
	m.writes++
	delete(m.bets, id)
	return nil
}

func (m *memStore) SettleBet(ctx context.Context, id string, status ledger.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("SettleBet"); err != nil {
		return err
	}
	b, ok := m.bets[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != ledger.StatusPending {
		return fmt.Errorf("bet %s already settled", id)
	}
	m.writes++
	b.Status = status
	b.SettledAt = &at
	m.bets[id] = b
	return nil
}

func (m *memStore) UnsettleBet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("UnsettleBet"); err != nil {
		return err
	}
	b, ok := m.bets[id]
	if !ok {
		return ErrNotFound
	}
	if m.onUnsettle != nil {
		m.onUnsettle()
	}
	m.writes++
	b.Status = ledger.StatusPending
	b.SettledAt = nil
	m.bets[id] = b
	return nil
}

func (m *memStore) RestoreBet(ctx context.Context, b ledger.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("RestoreBet"); err != nil {
		return err
	}
	if _, ok := m.bets[b.ID]; ok {
		return fmt.Errorf("bet %s exists", b.ID)
	}
	m.writes++
	b.SportsbookName = ""
	m.bets[b.ID] = b
	return nil
}

func (m *memStore) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.Transaction, len(m.txs))
	copy(out, m.txs)
	return out, nil
}

func (m *memStore) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CreateTransaction"); err != nil {
		return ledger.Transaction{}, err
	}
	m.writes++
	t.ID = uuid.New().String()
	m.txs = append([]ledger.Transaction{t}, m.txs...)
	return t, nil
}

func (m *memStore) ListSnapshots(ctx context.Context) ([]ledger.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.Snapshot, 0, len(m.snaps))
	for _, s := range m.snaps {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memStore) UpsertSnapshot(ctx context.Context, s ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("UpsertSnapshot"); err != nil {
		return err
	}
	m.writes++
	m.snaps[s.Date] = s
	return nil
}

func (m *memStore) GetSettings(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) UpdateSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("UpdateSetting"); err != nil {
		return err
	}
	m.writes++
	m.settings[key] = value
	return nil
}

func (m *memStore) LogActivity(ctx context.Context, a events.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, a)
	return nil
}

func (m *memStore) ListActivity(ctx context.Context, limit int) ([]events.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Activity, 0, len(m.activity))
	for i := len(m.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.activity[i])
	}
	return out, nil
}

// recorder grava atividades e mudanças publicadas
type recorder struct {
	mu       sync.Mutex
	activity []events.Activity
	changes  []events.PoolChanged
	failPub  error
}

func (r *recorder) PublishActivity(ctx context.Context, a events.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPub != nil {
		return r.failPub
	}
	r.activity = append(r.activity, a)
	return nil
}

func (r *recorder) PublishChange(ctx context.Context, ev events.PoolChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.activity))
	for _, a := range r.activity {
		out = append(out, a.Action)
	}
	return out
}

func (r *recorder) lastChange() events.PoolChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return events.PoolChanged{}
	}
	return r.changes[len(r.changes)-1]
}

// memCache guarda o último valor serializado em memória
type memCache struct {
	mu          sync.Mutex
	val         *Dashboard
	invalidated int
}

func (c *memCache) GetDashboard(ctx context.Context, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.val == nil {
		return false, nil
	}
	*(dst.(*Dashboard)) = *c.val
	return true, nil
}

func (c *memCache) SetDashboard(ctx context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := v.(Dashboard)
	c.val = &d
	return nil
}

func (c *memCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val = nil
	c.invalidated++
	return nil
}
