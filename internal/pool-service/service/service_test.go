package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-pool/internal/ledger"
	"github.com/radieske/bet-pool/internal/undo"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fixture struct {
	svc   *Service
	store *memStore
	rec   *recorder
	cache *memCache
	bets  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), rec: &recorder{}, cache: &memCache{}}
	f.svc = New(Deps{
		Store:    f.store,
		History:  undo.NewHistory(3, time.Minute),
		Activity: f.rec,
		Changes:  f.rec,
		Cache:    f.cache,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) book(t *testing.T, name, balance string) string {
	t.Helper()
	st, err := f.svc.CreateSportsbook(context.Background(), "a", name, dec(balance))
	if err != nil {
		t.Fatalf("create sportsbook: %v", err)
	}
	for _, b := range st.Sportsbooks {
		if b.Name == name {
			return b.ID
		}
	}
	t.Fatalf("sportsbook %s not in state", name)
	return ""
}

func (f *fixture) bet(t *testing.T, bookID, total, a, b string, odds int) ledger.Bet {
	t.Helper()
	f.bets++
	st, err := f.svc.CreateBet(context.Background(), "a", ledger.Bet{
		SportsbookID: bookID,
		Sport:        "NBA",
		Description:  "Celtics ML",
		BaseOdds:     odds,
		BoostPct:     decimal.Zero,
		TotalWager:   dec(total),
		WagerA:       dec(a),
		WagerB:       dec(b),
		PlacedAt:     fixedNow.Add(-time.Duration(100-f.bets) * time.Minute),
	})
	if err != nil {
		t.Fatalf("create bet: %v", err)
	}
	return st.Bets[0] // mais recente primeiro
}

func TestSharedWinScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "0")

	if _, err := f.svc.CreateTransaction(ctx, "a", ledger.Transaction{
		Type: ledger.TxDeposit, Person: ledger.PersonA, SportsbookID: book, Amount: dec("500"),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	b := f.bet(t, book, "100", "60", "40", 150)

	st, err := f.svc.SettleBet(ctx, "a", b.ID, ledger.StatusWon)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	settled, _ := st.Bet(b.ID)
	if settled.Status != ledger.StatusWon || settled.SettledAt == nil || !settled.SettledAt.Equal(fixedNow) {
		t.Errorf("unexpected settled bet: %+v", settled)
	}

	// saldo da casa é atualizado manualmente
	if _, err := f.svc.UpdateBalance(ctx, "a", book, dec("650")); err != nil {
		t.Fatalf("update balance: %v", err)
	}

	d, err := f.svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !d.EquityA.Equal(dec("590")) {
		t.Errorf("expected equity A 590, got %s", d.EquityA)
	}
	if !d.EquityA.Add(d.EquityB).Equal(d.TotalPool) {
		t.Errorf("conservation broken: %s + %s != %s", d.EquityA, d.EquityB, d.TotalPool)
	}
	if !d.PoolPnl.Equal(dec("150")) || !d.Rolling7.Equal(dec("150")) {
		t.Errorf("expected pool pnl 150, got %s / rolling %s", d.PoolPnl, d.Rolling7)
	}
	if d.Names.A != "A" || d.Names.B != "B" {
		t.Errorf("expected default names, got %+v", d.Names)
	}
	if d.LastBooksUpdate == "" {
		t.Error("expected last books update to be recorded")
	}
}

func TestValidationHappensBeforeStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "0")
	writes := f.store.writes

	_, err := f.svc.CreateBet(ctx, "a", ledger.Bet{
		SportsbookID: book, Description: "bad split",
		TotalWager: dec("100"), WagerA: dec("60"), WagerB: dec("45"),
	})
	if !errors.Is(err, ledger.ErrInvalidBet) {
		t.Fatalf("expected ErrInvalidBet, got %v", err)
	}

	_, err = f.svc.CreateTransaction(ctx, "a", ledger.Transaction{
		Type: ledger.TxDisbursement, Person: ledger.PersonB, SportsbookID: book, Amount: dec("10"),
	})
	if !errors.Is(err, ledger.ErrInvalidTransaction) {
		t.Fatalf("expected ErrInvalidTransaction, got %v", err)
	}

	if _, err := f.svc.SettleBet(ctx, "a", "any", "cancelled"); !errors.Is(err, ledger.ErrInvalidBet) {
		t.Fatalf("expected ErrInvalidBet for unknown result, got %v", err)
	}

	if f.store.writes != writes {
		t.Errorf("expected no store writes, got %d", f.store.writes-writes)
	}
}

func TestUnknownSportsbookIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateBet(context.Background(), "a", ledger.Bet{
		SportsbookID: "nope", Description: "x",
		TotalWager: dec("10"), WagerA: dec("5"), WagerB: dec("5"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSettleThenUndo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "100")
	b := f.bet(t, book, "100", "60", "40", 150)

	if _, err := f.svc.SettleBet(ctx, "a", b.ID, ledger.StatusLost); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := f.svc.SettleBet(ctx, "a", b.ID, ledger.StatusWon); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending settling twice, got %v", err)
	}

	res, err := f.svc.Undo(ctx, "b")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if res.Undone.Kind != undo.KindSettle || res.Undone.Result != ledger.StatusLost {
		t.Errorf("unexpected undone entry: %+v", res.Undone)
	}
	if res.Next != nil {
		t.Errorf("expected no next entry, got %+v", res.Next)
	}
	got, _ := res.State.Bet(b.ID)
	if got.Status != ledger.StatusPending || got.SettledAt != nil {
		t.Errorf("expected pending bet without settled_at, got %+v", got)
	}

	if _, err := f.svc.Undo(ctx, "b"); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}

	actions := f.rec.actions()
	if actions[len(actions)-1] != events.ActionUndo {
		t.Errorf("expected undo activity last, got %v", actions)
	}
}

// a janela pode fechar enquanto o store grava; o resultado ainda descreve a ação desfeita
func TestUndoReportsEntryExpiredDuringWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "100")
	b := f.bet(t, book, "100", "60", "40", 150)

	if _, err := f.svc.SettleBet(ctx, "a", b.ID, ledger.StatusWon); err != nil {
		t.Fatalf("settle: %v", err)
	}
	f.store.onUnsettle = f.svc.history.Clear

	res, err := f.svc.Undo(ctx, "a")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if res.Undone.Kind != undo.KindSettle || res.Undone.Bet.ID != b.ID || res.Undone.Result != ledger.StatusWon {
		t.Errorf("expected settle of %s reported as undone, got %+v", b.ID, res.Undone)
	}
	if res.Next != nil {
		t.Errorf("expected no next entry, got %+v", res.Next)
	}
	if got, _ := res.State.Bet(b.ID); got.Status != ledger.StatusPending {
		t.Errorf("expected bet back to pending, got %s", got.Status)
	}

	if last := f.rec.lastChange(); last.Action != events.ActionUndo || last.Entity != b.ID {
		t.Errorf("expected undo change for %s, got %+v", b.ID, last)
	}
}

func TestDeleteThenUndoRestoresBet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "100")
	first := f.bet(t, book, "20", "10", "10", -110)
	b := f.bet(t, book, "100", "33.33", "66.67", 275)

	if _, err := f.svc.SettleBet(ctx, "a", first.ID, ledger.StatusWon); err != nil {
		t.Fatalf("settle: %v", err)
	}
	st, err := f.svc.DeleteBet(ctx, "a", b.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := st.Bet(b.ID); ok {
		t.Fatal("bet should be gone after delete")
	}

	res, err := f.svc.Undo(ctx, "a")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if res.Next == nil || res.Next.Kind != undo.KindSettle || res.Next.Bet.ID != first.ID {
		t.Errorf("expected settle of first bet as next, got %+v", res.Next)
	}

	restored, ok := res.State.Bet(b.ID)
	if !ok {
		t.Fatal("bet not restored")
	}
	if restored.Description != b.Description || !restored.WagerA.Equal(b.WagerA) ||
		!restored.WagerB.Equal(b.WagerB) || !restored.TotalWager.Equal(b.TotalWager) ||
		restored.BaseOdds != b.BaseOdds || !restored.PlacedAt.Equal(b.PlacedAt) ||
		restored.Status != ledger.StatusPending {
		t.Errorf("restored bet differs:\n got  %+v\n want %+v", restored, b)
	}
}

func TestUndoStoreFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "100")
	b := f.bet(t, book, "100", "60", "40", 150)

	if _, err := f.svc.SettleBet(ctx, "a", b.ID, ledger.StatusWon); err != nil {
		t.Fatalf("settle: %v", err)
	}

	f.store.fail["UnsettleBet"] = errBoom
	if _, err := f.svc.Undo(ctx, "a"); !errors.Is(err, ErrStore) || !errors.Is(err, errBoom) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if _, n, ok := f.svc.PeekUndo(); !ok || n != 1 {
		t.Errorf("entry should stay in history after failed undo, n=%d", n)
	}

	delete(f.store.fail, "UnsettleBet")
	if _, err := f.svc.Undo(ctx, "a"); err != nil {
		t.Errorf("retry undo: %v", err)
	}
}

func TestSettleStoreFailureDoesNotRecordUndo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "100")
	b := f.bet(t, book, "100", "60", "40", 150)

	f.store.fail["SettleBet"] = errBoom
	if _, err := f.svc.SettleBet(ctx, "a", b.ID, ledger.StatusWon); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if _, _, ok := f.svc.PeekUndo(); ok {
		t.Error("failed settle should not be undoable")
	}
}

func TestUpdateBalancesPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b1 := f.book(t, "Book1", "100")
	b2 := f.book(t, "Book2", "200")
	b3 := f.book(t, "Book3", "300")

	f.store.failBalanceAt = f.store.balanceCalls + 2
	st, err := f.svc.UpdateBalances(ctx, "a", []BalanceUpdate{
		{SportsbookID: b1, Balance: dec("110")},
		{SportsbookID: b2, Balance: dec("220")},
		{SportsbookID: b3, Balance: dec("330")},
	})

	var perr *PartialUpdateError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PartialUpdateError, got %v", err)
	}
	if perr.Applied != 1 || perr.Total != 3 {
		t.Errorf("expected 1 of 3 applied, got %d of %d", perr.Applied, perr.Total)
	}
	if !errors.Is(err, ErrStore) {
		t.Errorf("partial failure should wrap ErrStore: %v", err)
	}

	// o que foi aplicado continua aplicado
	got1, _ := st.Sportsbook(b1)
	got2, _ := st.Sportsbook(b2)
	if !got1.CurrentBalance.Equal(dec("110")) || !got2.CurrentBalance.Equal(dec("200")) {
		t.Errorf("unexpected balances after partial update: %s / %s", got1.CurrentBalance, got2.CurrentBalance)
	}

	if len(st.Snapshots) != 1 || !st.Snapshots[0].Cash.Equal(dec("600")) {
		t.Errorf("expected pre-update snapshot with cash 600, got %+v", st.Snapshots)
	}
}

func TestUpdateBalancesSnapshotsPreviousState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b1 := f.book(t, "Book1", "100")
	f.bet(t, b1, "40", "20", "20", 120)

	st, err := f.svc.UpdateBalances(ctx, "a", []BalanceUpdate{{SportsbookID: b1, Balance: dec("60")}})
	if err != nil {
		t.Fatalf("update balances: %v", err)
	}
	if len(st.Snapshots) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(st.Snapshots))
	}
	snap := st.Snapshots[0]
	if snap.Date != "2024-06-15" || !snap.Cash.Equal(dec("100")) || !snap.AtRisk.Equal(dec("40")) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if st.Settings[SettingLastBooksUpdate] != fixedNow.Format(time.RFC3339) {
		t.Errorf("expected last books update %s, got %s", fixedNow.Format(time.RFC3339), st.Settings[SettingLastBooksUpdate])
	}
}

func TestActivityFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.rec.failPub = errBoom

	if _, err := f.svc.CreateSportsbook(context.Background(), "a", "Book1", decimal.Zero); err != nil {
		t.Fatalf("mutation should succeed when activity publish fails: %v", err)
	}
}

func TestActivityFallsBackToStore(t *testing.T) {
	store := newMemStore()
	svc := New(Deps{Store: store, Now: func() time.Time { return fixedNow }})

	if _, err := svc.CreateSportsbook(context.Background(), "b", "Book1", decimal.Zero); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := svc.Activity(context.Background(), 10)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(list) != 1 || list[0].ActorID != "b" || list[0].Action != events.ActionSportsbookCreated {
		t.Errorf("unexpected activity: %+v", list)
	}
}

func TestDashboardCacheAndChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.book(t, "Book1", "100")

	var gauges int
	f.svc.OnDashboard = func(Dashboard) { gauges++ }

	if _, err := f.svc.Dashboard(ctx); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if _, err := f.svc.Dashboard(ctx); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if gauges != 1 {
		t.Errorf("second call should hit the cache, computed %d times", gauges)
	}

	invalidated := f.cache.invalidated
	f.book(t, "Book2", "50")
	if f.cache.invalidated != invalidated+1 || f.cache.val != nil {
		t.Error("mutation should invalidate the dashboard cache")
	}

	d, err := f.svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !d.TotalPool.Equal(dec("150")) {
		t.Errorf("expected fresh pool 150, got %s", d.TotalPool)
	}

	if len(f.rec.changes) != 2 || f.rec.changes[1].Action != events.ActionSportsbookCreated {
		t.Errorf("expected pool changed per mutation, got %+v", f.rec.changes)
	}
}

// um dashboard calculado durante uma mutação não pode ficar no cache com o estado antigo
func TestDashboardWaitsForMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.book(t, "Book1", "100")

	f.svc.mu.Lock()
	done := make(chan Dashboard, 1)
	go func() {
		d, err := f.svc.Dashboard(ctx)
		if err != nil {
			t.Errorf("dashboard: %v", err)
		}
		done <- d
	}()

	time.Sleep(30 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("dashboard computed while a mutation held the lock")
	default:
	}
	// mutação em andamento: grava e invalida antes de soltar o lock
	if _, err := f.store.CreateSportsbook(ctx, "Book2", dec("50")); err != nil {
		t.Fatalf("create sportsbook: %v", err)
	}
	_ = f.cache.Invalidate(ctx)
	f.svc.mu.Unlock()

	var d Dashboard
	select {
	case d = <-done:
	case <-time.After(time.Second):
		t.Fatal("dashboard did not finish")
	}
	if !d.TotalPool.Equal(dec("150")) {
		t.Errorf("expected pool 150 after mutation, got %s", d.TotalPool)
	}
	var cached Dashboard
	if ok, _ := f.cache.GetDashboard(ctx, &cached); !ok || !cached.TotalPool.Equal(dec("150")) {
		t.Errorf("expected cached pool 150, got ok=%v %s", ok, cached.TotalPool)
	}
}

func TestMutationMetrics(t *testing.T) {
	f := newFixture(t)
	outcomes := map[string]int{}
	f.svc.OnMutation = func(action, outcome string) { outcomes[action+":"+outcome]++ }

	f.book(t, "Book1", "0")
	_, _ = f.svc.CreateSportsbook(context.Background(), "a", " ", decimal.Zero)
	f.store.fail["CreateSportsbook"] = errBoom
	_, _ = f.svc.CreateSportsbook(context.Background(), "a", "Book2", decimal.Zero)

	want := map[string]int{
		events.ActionSportsbookCreated + ":ok":          1,
		events.ActionSportsbookCreated + ":rejected":    1,
		events.ActionSportsbookCreated + ":store_error": 1,
	}
	for k, v := range want {
		if outcomes[k] != v {
			t.Errorf("%s = %d, want %d", k, outcomes[k], v)
		}
	}
}

func TestUpdateSettingPin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.UpdateSetting(ctx, "a", SettingPinA, "12a4"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad pin, got %v", err)
	}
	st, err := f.svc.UpdateSetting(ctx, "a", SettingPinA, "1234")
	if err != nil {
		t.Fatalf("update pin: %v", err)
	}
	if st.Settings[SettingPinA] != "1234" {
		t.Errorf("pin not stored")
	}
	last := f.rec.activity[len(f.rec.activity)-1]
	if _, leaked := last.Details["value"]; leaked {
		t.Error("pin value should not be logged")
	}
}

func TestUpdateBetKeepsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, "Book1", "0")
	b := f.bet(t, book, "100", "60", "40", 150)

	edit := b
	edit.Description = "Celtics -4.5"
	edit.WagerA, edit.WagerB = dec("50"), dec("50")
	edit.Status = ledger.StatusWon

	st, err := f.svc.UpdateBet(ctx, "a", b.ID, edit)
	if err != nil {
		t.Fatalf("update bet: %v", err)
	}
	got, _ := st.Bet(b.ID)
	if got.Description != "Celtics -4.5" || !got.WagerA.Equal(dec("50")) || got.Status != ledger.StatusPending {
		t.Errorf("unexpected edited bet: %+v", got)
	}

	edit.WagerB = dec("70")
	if _, err := f.svc.UpdateBet(ctx, "a", b.ID, edit); !errors.Is(err, ledger.ErrInvalidBet) {
		t.Errorf("expected ErrInvalidBet, got %v", err)
	}
}

func TestFilterBets(t *testing.T) {
	st := State{Bets: []ledger.Bet{
		{ID: "1", Status: ledger.StatusPending},
		{ID: "2", Status: ledger.StatusWon},
		{ID: "3", Status: ledger.StatusPending},
	}}

	tests := []struct {
		filter string
		want   int
	}{
		{"", 3},
		{FilterAll, 3},
		{FilterPending, 2},
		{FilterWon, 1},
		{FilterLost, 0},
	}
	for _, tt := range tests {
		if got := FilterBets(st, tt.filter); len(got) != tt.want {
			t.Errorf("FilterBets(%q) = %d bets, want %d", tt.filter, len(got), tt.want)
		}
	}
	if ValidFilter("void") {
		t.Error("void should not be a valid filter")
	}
}
