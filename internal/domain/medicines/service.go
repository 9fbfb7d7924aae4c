package medicines

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"carehive/internal/domain/doses"
	"carehive/internal/platform/logger"
	"carehive/internal/platform/metrics"
	"carehive/internal/ports/notify"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("medicine not found")
	ErrForbidden    = errors.New("forbidden")
	// ErrStore envuelve fallas de escritura; el handler responde 500 genérico.
	ErrStore = errors.New("store unavailable")
)

const (
	ReminderTitle = "Medicine reminder"
	reminderBody  = "Time to take %s (%s dose)."
)

// MemberLookup evita importar members.
type MemberLookup interface {
	OwnerOf(ctx context.Context, memberID string) (string, error)
}

type Deps struct {
	Members   MemberLookup
	Scheduler notify.Scheduler
	Metrics   *metrics.Metrics
	Log       logger.Logger
	// Location define el "día" de las dosis. nil = time.Local.
	Location *time.Location
}

type Service struct {
	repo      Repository
	members   MemberLookup
	scheduler notify.Scheduler
	metrics   *metrics.Metrics
	log       logger.Logger
	loc       *time.Location
	now       func() time.Time
	nudge     func()
}

func NewService(repo Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:      repo,
		members:   deps.Members,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		log:       log.With(map[string]any{"component": "medicines"}),
		loc:       loc,
		now:       time.Now,
		nudge:     func() {},
	}
}

// OnChange registra qué hacer después de cada acción (pedir un refresco).
func (s *Service) OnChange(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	s.nudge = fn
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

type CreateInput struct {
	Name     string
	Relation string
	Times    []string
	Quantity int
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Medicine, error) {
	userID = strings.TrimSpace(userID)
	name := strings.TrimSpace(in.Name)
	relation := strings.TrimSpace(in.Relation)

	if userID == "" || name == "" || relation == "" {
		return Medicine{}, fmt.Errorf("%w: name and relation are required", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return Medicine{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if len(in.Times) == 0 {
		return Medicine{}, fmt.Errorf("%w: at least one time is required", ErrInvalidInput)
	}
	times := make([]string, 0, len(in.Times))
	for _, t := range in.Times {
		t = strings.TrimSpace(t)
		if t == "" {
			return Medicine{}, fmt.Errorf("%w: times cannot be blank", ErrInvalidInput)
		}
		times = append(times, t)
	}

	if s.members != nil {
		owner, err := s.members.OwnerOf(ctx, relation)
		if err != nil {
			return Medicine{}, fmt.Errorf("%w: unknown relation", ErrInvalidInput)
		}
		if owner != userID {
			return Medicine{}, ErrForbidden
		}
	}

	now := s.now()
	m := Medicine{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		Name:        name,
		Relation:    relation,
		Times:       times,
		Quantity:    in.Quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Medicine{}, err
	}

	s.nudge()
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medicine{}, ErrNotFound
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Medicine{}, ErrNotFound
		}
		return Medicine{}, err
	}
	return m, nil
}

func (s *Service) ListByOwner(ctx context.Context, userID string) ([]Medicine, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *Service) ListByRelation(ctx context.Context, relation string) ([]Medicine, error) {
	return s.repo.ListByRelation(ctx, relation)
}

// Status es la pasada "al enfocar": lee las medicinas del usuario, las
// evalúa con un único now y agenda los recordatorios que correspondan.
// Una falla de lectura se loguea y se trata como lista vacía.
func (s *Service) Status(ctx context.Context, userID string) []BoardItem {
	meds, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		s.log.Error("list medicines failed", map[string]any{"user_id": userID, "err": err})
		meds = nil
	}

	items, scheduled := s.evaluate(ctx, s.clock(), meds)
	s.metrics.ObserveRefresh(scheduled)
	return items
}

// RefreshAll es el doses.Pass del refresco periódico (todas las medicinas).
func (s *Service) RefreshAll(ctx context.Context, now time.Time, stale func() bool) {
	meds, err := s.repo.ListAll(ctx)
	if err != nil {
		s.log.Error("refresh: list medicines failed", map[string]any{"err": err})
		meds = nil
	}
	if stale() {
		s.log.Debug("refresh: stale pass dropped", nil)
		return
	}

	_, scheduled := s.evaluate(ctx, now.In(s.loc), meds)
	s.metrics.ObserveRefresh(scheduled)
	s.log.Debug("refresh pass done", map[string]any{"medicines": len(meds), "reminders": scheduled})
}

// MarkTaken y MarkSkip: una tapa = un incremento. Sin control de
// concurrencia; dos taps concurrentes suman dos.
func (s *Service) MarkTaken(ctx context.Context, userID, id string) (BoardItem, error) {
	return s.mark(ctx, userID, id, ActionTaken)
}

func (s *Service) MarkSkip(ctx context.Context, userID, id string) (BoardItem, error) {
	return s.mark(ctx, userID, id, ActionSkip)
}

func (s *Service) mark(ctx context.Context, userID, id string, action Action) (BoardItem, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return BoardItem{}, err
	}
	if m.OwnerUserID != userID {
		return BoardItem{}, ErrForbidden
	}

	now := s.clock()
	updated, err := s.repo.Increment(ctx, m.ID, action, now)
	if err != nil {
		s.log.Error("mark dose failed", map[string]any{"medicine_id": m.ID, "action": string(action), "err": err})
		return BoardItem{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	s.metrics.ObserveDoseAction(string(action))
	s.log.Info("dose marked", map[string]any{"medicine_id": m.ID, "action": string(action)})

	items, _ := s.evaluate(ctx, now, []Medicine{updated})
	s.nudge()
	return items[0], nil
}

// Summary agrupa por familiar. relation != "" filtra uno solo.
func (s *Service) Summary(ctx context.Context, userID, relation string) ([]MemberSummary, error) {
	meds, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	relation = strings.TrimSpace(relation)
	if relation != "" {
		filtered := meds[:0:0]
		for _, m := range meds {
			if m.Relation == relation {
				filtered = append(filtered, m)
			}
		}
		meds = filtered
	}
	return SummarizeByRelation(meds), nil
}

func (s *Service) evaluate(ctx context.Context, now time.Time, meds []Medicine) ([]BoardItem, int) {
	schedules := make([]doses.Schedule, 0, len(meds))
	for _, m := range meds {
		schedules = append(schedules, m.Schedule())
	}

	evals := doses.EvaluateAll(now, schedules)
	items := make([]BoardItem, 0, len(meds))
	scheduled := 0
	for i, ev := range evals {
		item := BoardItem{Medicine: meds[i], Status: ev.Status}
		if ev.Reminder != nil && s.schedule(ctx, meds[i], *ev.Reminder, now) {
			at := ev.Reminder.TriggerAt
			item.ReminderAt = &at
			scheduled++
		}
		items = append(items, item)
	}
	return items, scheduled
}

func (s *Service) schedule(ctx context.Context, m Medicine, req doses.ReminderRequest, now time.Time) bool {
	if s.scheduler == nil || !req.TriggerAt.After(now) {
		return false
	}
	r := notify.Reminder{
		Key:        ReminderKey(m.ID, req.DoseTime, req.DoseAt),
		UserID:     m.OwnerUserID,
		MedicineID: m.ID,
		Title:      ReminderTitle,
		Body:       fmt.Sprintf(reminderBody, m.Name, req.DoseTime),
		TriggerAt:  req.TriggerAt,
	}
	if err := s.scheduler.Schedule(ctx, r); err != nil {
		s.log.Warn("schedule reminder failed", map[string]any{"medicine_id": m.ID, "err": err})
		return false
	}
	return true
}

// ReminderKey identifica una dosis puntual: medicina, hora y día.
func ReminderKey(medicineID, doseTime string, doseAt time.Time) string {
	return medicineID + "|" + doseTime + "|" + doseAt.Format("2006-01-02")
}

// SortBoard deja Due primero, después Next y al final Taken; estable
// dentro de cada grupo.
func SortBoard(items []BoardItem) {
	rank := map[doses.Status]int{doses.StatusDue: 0, doses.StatusNext: 1, doses.StatusTaken: 2}
	sort.SliceStable(items, func(i, j int) bool {
		return rank[items[i].Status.Status] < rank[items[j].Status.Status]
	})
}
