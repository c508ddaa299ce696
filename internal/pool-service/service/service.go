package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/bet-pool/internal/undo"
	"github.com/radieske/bet-pool/pkg/contracts/events"
)

// ActivityPublisher envia eventos da trilha de auditoria (ex.: Kafka)
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, a events.Activity) error
}

// ChangeNotifier avisa clientes conectados que o estado mudou (ex.: Redis Pub/Sub -> WS)
type ChangeNotifier interface {
	PublishChange(ctx context.Context, ev events.PoolChanged) error
}

// DashboardCache guarda o dashboard calculado entre mutações
type DashboardCache interface {
	GetDashboard(ctx context.Context, dst any) (bool, error)
	SetDashboard(ctx context.Context, v any) error
	Invalidate(ctx context.Context) error
}

var ErrInvalidInput = errors.New("invalid input")

// Deps agrupa as dependências do serviço; Activity, Changes e Cache são opcionais
type Deps struct {
	Log      *zap.Logger
	Store    Store
	History  *undo.History
	Activity ActivityPublisher
	Changes  ChangeNotifier
	Cache    DashboardCache
	Location *time.Location
	Now      func() time.Time
}

// Service orquestra validação, store, undo e efeitos colaterais de cada mutação.
// Mutações são serializadas: no máximo uma em andamento por vez.
type Service struct {
	log      *zap.Logger
	store    Store
	history  *undo.History
	activity ActivityPublisher
	changes  ChangeNotifier
	cache    DashboardCache
	loc      *time.Location
	now      func() time.Time

	mu sync.Mutex

	OnMutation  func(action, outcome string) // métricas
	OnUndo      func(kind string)            // métricas
	OnDashboard func(d Dashboard)            // métricas (gauges)
}

func New(d Deps) *Service {
	s := &Service{
		log:      d.Log,
		store:    d.Store,
		history:  d.History,
		activity: d.Activity,
		changes:  d.Changes,
		cache:    d.Cache,
		loc:      d.Location,
		now:      d.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.history == nil {
		s.history = undo.NewHistory(3, 5*time.Second)
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// clock devolve o instante atual no fuso configurado
func (s *Service) clock() time.Time { return s.now().In(s.loc) }

// Load busca todas as coleções em sequência e monta um State novo
func (s *Service) Load(ctx context.Context) (State, error) {
	books, err := s.store.ListSportsbooks(ctx)
	if err != nil {
		return State{}, storeErr("list sportsbooks", err)
	}
	bets, err := s.store.ListBets(ctx)
	if err != nil {
		return State{}, storeErr("list bets", err)
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return State{}, storeErr("list transactions", err)
	}
	snaps, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return State{}, storeErr("list snapshots", err)
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return State{}, storeErr("get settings", err)
	}
	if settings == nil {
		settings = map[string]string{}
	}

	return State{
		Sportsbooks:  books,
		Bets:         bets,
		Transactions: txs,
		Snapshots:    snaps,
		Settings:     settings,
		LoadedAt:     s.clock(),
	}, nil
}

// Dashboard devolve o read model, preferencialmente do cache
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	if s.cache != nil {
		var cached Dashboard
		if ok, err := s.cache.GetDashboard(ctx, &cached); err != nil {
			s.log.Warn("dashboard cache get failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	// mesmo lock das mutações: um Set não pode gravar um estado anterior a um Invalidate
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d := BuildDashboard(st, s.clock())

	if s.cache != nil {
		if err := s.cache.SetDashboard(ctx, d); err != nil {
			s.log.Warn("dashboard cache set failed", zap.Error(err))
		}
	}
	if s.OnDashboard != nil {
		s.OnDashboard(d)
	}
	return d, nil
}

// Activity lista a trilha de auditoria persistida
func (s *Service) Activity(ctx context.Context, limit int) ([]events.Activity, error) {
	list, err := s.store.ListActivity(ctx, limit)
	if err != nil {
		return nil, storeErr("list activity", err)
	}
	return list, nil
}

// logActivity é fire-and-forget: falhas só vão para o log.
// Sem publisher configurado grava direto no store.
func (s *Service) logActivity(ctx context.Context, actor, action string, details map[string]any) {
	a := events.Activity{
		ID:       uuid.New().String(),
		ActorID:  actor,
		Action:   action,
		Details:  details,
		TsUnixMs: s.now().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	var err error
	if s.activity != nil {
		err = s.activity.PublishActivity(ctx, a)
	} else {
		err = s.store.LogActivity(ctx, a)
	}
	if err != nil {
		s.log.Warn("activity log failed", zap.String("action", action), zap.Error(err))
	}
}

// afterMutation roda os efeitos colaterais de uma mutação bem sucedida
func (s *Service) afterMutation(ctx context.Context, actor, action, entity string, details map[string]any) {
	s.logActivity(ctx, actor, action, details)

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 500*time.Millisecond)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Invalidate(bg); err != nil {
			s.log.Warn("dashboard cache invalidate failed", zap.Error(err))
		}
	}
	if s.changes != nil {
		ev := events.PoolChanged{Action: action, Entity: entity, Ts: s.now().UTC()}
		if err := s.changes.PublishChange(bg, ev); err != nil {
			s.log.Warn("pool changed publish failed", zap.Error(err))
		}
	}
	s.observe(action, "ok")
}

func (s *Service) observe(action, outcome string) {
	if s.OnMutation != nil {
		s.OnMutation(action, outcome)
	}
}

// fail registra a falha de uma mutação e devolve o erro sem alterar
func (s *Service) fail(action string, err error) error {
	outcome := "store_error"
	if !errors.Is(err, ErrStore) {
		outcome = "rejected"
	}
	s.observe(action, outcome)
	s.log.Info("mutation failed", zap.String("action", action), zap.String("outcome", outcome), zap.Error(err))
	return err
}
