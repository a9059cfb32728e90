package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/pkg/debounce"
)

var carSearchColumns = []string{"make", "model", "license_plate", "color", "notes"}

type CarInput struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"license_plate"`
	Color        string `json:"color"`
	Year         int    `json:"year"`
	Notes        string `json:"notes"`
}

type CarPatch struct {
	Make         *string `json:"make"`
	Model        *string `json:"model"`
	LicensePlate *string `json:"license_plate"`
	Color        *string `json:"color"`
	Year         *int    `json:"year"`
	Notes        *string `json:"notes"`
}

// CarStore mirrors the cars table. Every successful write also runs the
// reconcile hook so the owning client's embedded car collection catches up
// (a full parent refetch, not fine-grained nested patching).
type CarStore struct {
	gw       gateway.Gateway
	bus      EventBus.Bus
	activity *Activity

	// reconcile refetches the parent clients collection after a car write.
	reconcile func(ctx context.Context)

	mu       sync.Mutex
	filters  Filters
	mirror   []domain.Car
	fetching atomic.Bool
	deb      *debounce.Debouncer
}

func NewCarStore(gw gateway.Gateway, bus EventBus.Bus, activity *Activity) *CarStore {
	s := &CarStore{gw: gw, bus: bus, activity: activity}
	s.deb = debounce.New(debounce.DefaultQuiet, func() {
		if _, err := s.FetchAll(context.Background()); err != nil {
			zap.L().Error("debounced cars refetch failed", zap.Error(err))
		}
	})
	return s
}

// SetReconcile wires the parent-collection refetch run after car writes.
func (s *CarStore) SetReconcile(fn func(ctx context.Context)) {
	s.reconcile = fn
}

func (s *CarStore) RefetchDebouncer() *debounce.Debouncer { return s.deb }

func (s *CarStore) notify() {
	if s.bus != nil {
		s.bus.Publish(TopicCarsChanged)
	}
}

func (s *CarStore) Subscribe(fn func()) error {
	return s.bus.Subscribe(TopicCarsChanged, fn)
}

func (s *CarStore) FetchAll(ctx context.Context) ([]domain.Car, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return []domain.Car{}, nil
	}
	defer s.fetching.Store(false)
	s.activity.Start()
	defer s.activity.Done()

	s.mu.Lock()
	q := s.filters.Clauses(carSearchColumns)
	s.mu.Unlock()

	var rows []domain.Car
	err := s.gw.Select(ctx, domain.Car{}.TableName(), q, &rows)

	s.mu.Lock()
	if err != nil {
		s.mirror = nil
	} else {
		s.mirror = rows
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		zap.L().Error("fetch cars failed", zap.Error(err))
		return nil, err
	}
	return append([]domain.Car(nil), rows...), nil
}

func (s *CarStore) SetFilters(p FilterPatch) {
	s.mu.Lock()
	s.filters = s.filters.Merge(p)
	s.mu.Unlock()
	s.deb.Schedule()
}

func (s *CarStore) ResetFilters() {
	s.mu.Lock()
	s.filters = Filters{}
	s.mu.Unlock()
	s.deb.Schedule()
}

func (s *CarStore) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *CarStore) Snapshot() []domain.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Car(nil), s.mirror...)
}

func (s *CarStore) Filtered() []domain.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Car, 0, len(s.mirror))
	for _, c := range s.mirror {
		if !s.filters.matchText(c.Make, c.Model, c.LicensePlate, c.Color, c.Notes) {
			continue
		}
		if !s.filters.matchDate(c.CreatedAt) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Add writes a car for the given client and reconciles the parent mirror.
func (s *CarStore) Add(ctx context.Context, clientID int64, in CarInput) (*domain.Car, error) {
	s.activity.Start()
	defer s.activity.Done()

	row := domain.Car{
		ClientID:     clientID,
		Make:         in.Make,
		Model:        in.Model,
		LicensePlate: in.LicensePlate,
		Color:        in.Color,
		Year:         in.Year,
		Notes:        in.Notes,
	}
	if err := s.gw.Insert(ctx, row.TableName(), &row); err != nil {
		zap.L().Error("add car failed", zap.Int64("client_id", clientID), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.mirror = append([]domain.Car{row}, s.mirror...)
	s.mu.Unlock()
	s.notify()
	s.afterWrite(ctx)
	return &row, nil
}

func (s *CarStore) Update(ctx context.Context, id int64, patch CarPatch) (*domain.Car, error) {
	s.activity.Start()
	defer s.activity.Done()

	cols := map[string]interface{}{}
	if patch.Make != nil {
		cols["make"] = *patch.Make
	}
	if patch.Model != nil {
		cols["model"] = *patch.Model
	}
	if patch.LicensePlate != nil {
		cols["license_plate"] = *patch.LicensePlate
	}
	if patch.Color != nil {
		cols["color"] = *patch.Color
	}
	if patch.Year != nil {
		cols["year"] = *patch.Year
	}
	if patch.Notes != nil {
		cols["notes"] = *patch.Notes
	}

	var row domain.Car
	if err := s.gw.Update(ctx, row.TableName(), id, cols, &row); err != nil {
		zap.L().Error("update car failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	for i := range s.mirror {
		if s.mirror[i].ID == id {
			s.mirror[i] = row
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	s.afterWrite(ctx)
	return &row, nil
}

func (s *CarStore) Delete(ctx context.Context, id int64) error {
	s.activity.Start()
	defer s.activity.Done()

	if err := s.gw.Delete(ctx, domain.Car{}.TableName(), id); err != nil {
		zap.L().Error("delete car failed", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	kept := s.mirror[:0]
	for _, c := range s.mirror {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.mirror = kept
	s.mu.Unlock()
	s.notify()
	s.afterWrite(ctx)
	return nil
}

// afterWrite refetches this mirror when filters are active, then runs the
// parent reconciliation.
func (s *CarStore) afterWrite(ctx context.Context) {
	s.mu.Lock()
	active := s.filters.Active()
	s.mu.Unlock()
	if active {
		if _, err := s.FetchAll(ctx); err != nil {
			zap.L().Warn("refetch after car write failed", zap.Error(err))
		}
	}
	if s.reconcile != nil {
		s.reconcile(ctx)
	}
}
