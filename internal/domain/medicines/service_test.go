package medicines

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carehive/internal/domain/doses"
	"carehive/internal/platform/metrics"
	"carehive/internal/ports/notify"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	byID     map[string]Medicine
	order    []string
	listErr  error
	writeErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]Medicine{}}
}

func (r *fakeRepo) Create(ctx context.Context, m Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Medicine{}, ErrNotFound
	}
	return m, nil
}

func (r *fakeRepo) list(keep func(Medicine) bool) ([]Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []Medicine{}
	for _, id := range r.order {
		if m := r.byID[id]; keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Medicine, error) {
	return r.list(func(m Medicine) bool { return m.OwnerUserID == ownerUserID })
}

func (r *fakeRepo) ListByRelation(ctx context.Context, relation string) ([]Medicine, error) {
	return r.list(func(m Medicine) bool { return m.Relation == relation })
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]Medicine, error) {
	return r.list(func(Medicine) bool { return true })
}

func (r *fakeRepo) Increment(ctx context.Context, id string, action Action, at time.Time) (Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return Medicine{}, r.writeErr
	}
	m, ok := r.byID[id]
	if !ok {
		return Medicine{}, ErrNotFound
	}
	if action == ActionTaken {
		m.Taken++
	} else {
		m.Skipped++
	}
	m.LastTakenAt = &at
	m.UpdatedAt = at
	r.byID[id] = m
	return m, nil
}

type recordingScheduler struct {
	mu  sync.Mutex
	got []notify.Reminder
}

func (s *recordingScheduler) Schedule(ctx context.Context, r notify.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
	return nil
}

type ownersMap map[string]string

func (o ownersMap) OwnerOf(ctx context.Context, memberID string) (string, error) {
	owner, ok := o[memberID]
	if !ok {
		return "", errors.New("member not found")
	}
	return owner, nil
}

type fixture struct {
	svc    *Service
	repo   *fakeRepo
	sched  *recordingScheduler
	met    *metrics.Metrics
	nudges int
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func clockAt(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{repo: newFakeRepo(), sched: &recordingScheduler{}, met: metrics.New()}
	f.svc = NewService(f.repo, Deps{
		Members:   ownersMap{"amma": "family-1", "thaththa": "family-1", "other": "family-2"},
		Scheduler: f.sched,
		Metrics:   f.met,
		Location:  time.UTC,
	})
	f.svc.now = func() time.Time { return now }
	f.svc.OnChange(func() { f.nudges++ })
	return f
}

func (f *fixture) seed(t *testing.T, m Medicine) Medicine {
	t.Helper()
	if m.OwnerUserID == "" {
		m.OwnerUserID = "family-1"
	}
	if m.Relation == "" {
		m.Relation = "amma"
	}
	if m.Quantity == 0 {
		m.Quantity = 5
	}
	require.NoError(t, f.repo.Create(context.Background(), m))
	return m
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, clockAt(9, 0))
	ctx := context.Background()

	cases := map[string]CreateInput{
		"no name":        {Relation: "amma", Times: []string{"8:00AM"}, Quantity: 1},
		"no relation":    {Name: "Paracetamol", Times: []string{"8:00AM"}, Quantity: 1},
		"zero quantity":  {Name: "Paracetamol", Relation: "amma", Times: []string{"8:00AM"}},
		"no times":       {Name: "Paracetamol", Relation: "amma", Quantity: 1},
		"blank time":     {Name: "Paracetamol", Relation: "amma", Times: []string{"8:00AM", "  "}, Quantity: 1},
		"unknown member": {Name: "Paracetamol", Relation: "ghost", Times: []string{"8:00AM"}, Quantity: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, "family-1", in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := f.svc.Create(ctx, "family-1", CreateInput{Name: "X", Relation: "other", Times: []string{"8:00AM"}, Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreate_StartsWithZeroCounters(t *testing.T) {
	f := newFixture(t, clockAt(9, 0))

	m, err := f.svc.Create(context.Background(), "family-1", CreateInput{
		Name:     " Metformin ",
		Relation: "thaththa",
		Times:    []string{"8:00AM", " 8:00PM"},
		Quantity: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Metformin", m.Name)
	assert.Equal(t, []string{"8:00AM", "8:00PM"}, m.Times)
	assert.Zero(t, m.Taken)
	assert.Zero(t, m.Skipped)
	assert.Nil(t, m.LastTakenAt)
	assert.Equal(t, 1, f.nudges)
}

func TestStatus_SchedulesReminderForNext(t *testing.T) {
	f := newFixture(t, clockAt(7, 0))
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM", "8:00PM"}})
	f.seed(t, Medicine{ID: "med-2", Name: "Vitamin C", Times: []string{"6:30AM"}})
	f.seed(t, Medicine{ID: "med-3", Name: "Elsewhere", OwnerUserID: "family-2", Relation: "other", Times: []string{"8:00AM"}})

	items := f.svc.Status(context.Background(), "family-1")
	require.Len(t, items, 2)

	assert.Equal(t, doses.StatusNext, items[0].Status.Status)
	assert.Equal(t, "8:00AM", items[0].Status.CurrentTime)
	require.NotNil(t, items[0].ReminderAt)
	assert.Equal(t, clockAt(7, 55), *items[0].ReminderAt)

	assert.Equal(t, doses.StatusDue, items[1].Status.Status)
	assert.Nil(t, items[1].ReminderAt)

	require.Len(t, f.sched.got, 1)
	r := f.sched.got[0]
	assert.Equal(t, "med-1|8:00AM|2025-03-10", r.Key)
	assert.Equal(t, "family-1", r.UserID)
	assert.Equal(t, ReminderTitle, r.Title)
	assert.Contains(t, r.Body, "Paracetamol")
	assert.Equal(t, clockAt(7, 55), r.TriggerAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.RefreshPasses))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.RemindersScheduled))
}

func TestStatus_ReadFailureIsEmptyBoard(t *testing.T) {
	f := newFixture(t, clockAt(7, 0))
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM"}})
	f.repo.listErr = errors.New("connection reset")

	items := f.svc.Status(context.Background(), "family-1")
	assert.Empty(t, items)
	assert.Empty(t, f.sched.got)
}

func TestMarkTaken_IncrementsAndRecomputes(t *testing.T) {
	now := clockAt(8, 5)
	f := newFixture(t, now)
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM", "8:00PM"}})

	it, err := f.svc.MarkTaken(context.Background(), "family-1", "med-1")
	require.NoError(t, err)

	assert.Equal(t, 1, it.Medicine.Taken)
	require.NotNil(t, it.Medicine.LastTakenAt)
	assert.Equal(t, now, *it.Medicine.LastTakenAt)

	// la de la mañana quedó atendida; la próxima es la de la noche
	assert.Equal(t, doses.StatusNext, it.Status.Status)
	assert.Equal(t, "8:00PM", it.Status.CurrentTime)
	assert.Equal(t, 1, it.Status.TakenToday)
	require.NotNil(t, it.ReminderAt)
	assert.Equal(t, clockAt(19, 55), *it.ReminderAt)

	assert.Equal(t, 1, f.nudges)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.DoseActions.WithLabelValues("taken")))
}

func TestMarkTaken_EachTapIsOneIncrement(t *testing.T) {
	f := newFixture(t, clockAt(21, 0))
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM", "8:00PM"}})

	for i := 0; i < 3; i++ {
		_, err := f.svc.MarkTaken(context.Background(), "family-1", "med-1")
		require.NoError(t, err)
	}
	m, _ := f.repo.GetByID(context.Background(), "med-1")
	assert.Equal(t, 3, m.Taken)
}

func TestMarkSkip_CountsSkippedOnly(t *testing.T) {
	now := clockAt(9, 0)
	f := newFixture(t, now)
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM"}})

	it, err := f.svc.MarkSkip(context.Background(), "family-1", "med-1")
	require.NoError(t, err)

	assert.Equal(t, 1, it.Medicine.Skipped)
	assert.Equal(t, 0, it.Medicine.Taken)
	assert.Equal(t, now, *it.Medicine.LastTakenAt)
	// salteada no mueve el puntero de progreso: la dosis sigue vencida
	assert.Equal(t, doses.StatusDue, it.Status.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.DoseActions.WithLabelValues("skipped")))
}

func TestMark_Errors(t *testing.T) {
	f := newFixture(t, clockAt(9, 0))
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM"}})
	ctx := context.Background()

	_, err := f.svc.MarkTaken(ctx, "family-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.MarkTaken(ctx, "family-2", "med-1")
	assert.ErrorIs(t, err, ErrForbidden)

	f.repo.writeErr = errors.New("disk full")
	_, err = f.svc.MarkTaken(ctx, "family-1", "med-1")
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, 0, f.nudges)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.met.DoseActions.WithLabelValues("taken")))
}

func TestRefreshAll_StalePassDropsResult(t *testing.T) {
	f := newFixture(t, clockAt(7, 0))
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM"}})

	f.svc.RefreshAll(context.Background(), clockAt(7, 0), func() bool { return true })
	assert.Empty(t, f.sched.got)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.met.RefreshPasses))

	f.svc.RefreshAll(context.Background(), clockAt(7, 0), func() bool { return false })
	assert.Len(t, f.sched.got, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.RefreshPasses))
}

func TestRefreshAll_ReadFailureIsEmpty(t *testing.T) {
	f := newFixture(t, clockAt(7, 0))
	f.seed(t, Medicine{ID: "med-1", Name: "Paracetamol", Times: []string{"8:00AM"}})
	f.repo.listErr = errors.New("timeout")

	f.svc.RefreshAll(context.Background(), clockAt(7, 0), func() bool { return false })
	assert.Empty(t, f.sched.got)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.met.RefreshPasses))
}

func TestSummary(t *testing.T) {
	f := newFixture(t, clockAt(9, 0))
	f.seed(t, Medicine{ID: "p", Name: "Paracetamol", Relation: "amma", Quantity: 5, Times: []string{"8:00AM", "1:00PM", "8:00PM"}, Taken: 2, Skipped: 1})
	f.seed(t, Medicine{ID: "m", Name: "Metformin", Relation: "thaththa", Quantity: 7, Times: []string{"8:00AM", "8:00PM"}, Taken: 2})
	f.seed(t, Medicine{ID: "a", Name: "Atorvastatin", Relation: "thaththa", Quantity: 30, Times: []string{"8:00PM"}, Taken: 28})

	all, err := f.svc.Summary(context.Background(), "family-1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "amma", all[0].Relation)

	amma := all[0]
	assert.Equal(t, 1, amma.Medicines)
	p := amma.Items[0]
	assert.Equal(t, 15, p.TotalDoses)
	assert.Equal(t, 13, p.Remaining)
	assert.False(t, p.Low)
	assert.InDelta(t, 86.67, p.RemainingPercent, 0.01)
	assert.InDelta(t, 2.0/3.0, p.Compliance, 1e-9)

	th := all[1]
	assert.Equal(t, 2, th.Medicines)
	assert.Equal(t, 30, th.Taken)
	assert.Equal(t, 1.0, th.Compliance)
	assert.True(t, th.Items[1].Low, "30 - 28 = 2 remaining")

	only, err := f.svc.Summary(context.Background(), "family-1", "thaththa")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "thaththa", only[0].Relation)
}

func TestSortBoard(t *testing.T) {
	items := []BoardItem{
		{Medicine: Medicine{ID: "t"}, Status: doses.DoseStatus{Status: doses.StatusTaken}},
		{Medicine: Medicine{ID: "n"}, Status: doses.DoseStatus{Status: doses.StatusNext}},
		{Medicine: Medicine{ID: "d"}, Status: doses.DoseStatus{Status: doses.StatusDue}},
	}
	SortBoard(items)
	assert.Equal(t, "d", items[0].Medicine.ID)
	assert.Equal(t, "n", items[1].Medicine.ID)
	assert.Equal(t, "t", items[2].Medicine.ID)
}
