package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/pkg/debounce"
)

var serviceSearchColumns = []string{"name"}

type ServiceInput struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ServicePatch struct {
	Name  *string  `json:"name"`
	Price *float64 `json:"price"`
}

// ServiceStore mirrors the service catalog.
type ServiceStore struct {
	gw       gateway.Gateway
	bus      EventBus.Bus
	activity *Activity

	mu       sync.Mutex
	filters  Filters
	mirror   []domain.Service
	fetching atomic.Bool
	deb      *debounce.Debouncer
}

func NewServiceStore(gw gateway.Gateway, bus EventBus.Bus, activity *Activity) *ServiceStore {
	s := &ServiceStore{gw: gw, bus: bus, activity: activity}
	s.deb = debounce.New(debounce.DefaultQuiet, func() {
		if _, err := s.FetchAll(context.Background()); err != nil {
			zap.L().Error("debounced services refetch failed", zap.Error(err))
		}
	})
	return s
}

func (s *ServiceStore) RefetchDebouncer() *debounce.Debouncer { return s.deb }

func (s *ServiceStore) notify() {
	if s.bus != nil {
		s.bus.Publish(TopicServicesChanged)
	}
}

func (s *ServiceStore) Subscribe(fn func()) error {
	return s.bus.Subscribe(TopicServicesChanged, fn)
}

func (s *ServiceStore) FetchAll(ctx context.Context) ([]domain.Service, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return []domain.Service{}, nil
	}
	defer s.fetching.Store(false)
	s.activity.Start()
	defer s.activity.Done()

	s.mu.Lock()
	q := s.filters.Clauses(serviceSearchColumns)
	s.mu.Unlock()

	var rows []domain.Service
	err := s.gw.Select(ctx, domain.Service{}.TableName(), q, &rows)

	s.mu.Lock()
	if err != nil {
		s.mirror = nil
	} else {
		s.mirror = rows
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		zap.L().Error("fetch services failed", zap.Error(err))
		return nil, err
	}
	return append([]domain.Service(nil), rows...), nil
}

func (s *ServiceStore) SetFilters(p FilterPatch) {
	s.mu.Lock()
	s.filters = s.filters.Merge(p)
	s.mu.Unlock()
	s.deb.Schedule()
}

func (s *ServiceStore) ResetFilters() {
	s.mu.Lock()
	s.filters = Filters{}
	s.mu.Unlock()
	s.deb.Schedule()
}

func (s *ServiceStore) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *ServiceStore) Snapshot() []domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Service(nil), s.mirror...)
}

func (s *ServiceStore) Filtered() []domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Service, 0, len(s.mirror))
	for _, svc := range s.mirror {
		if !s.filters.matchText(svc.Name) {
			continue
		}
		if !s.filters.matchDate(svc.CreatedAt) {
			continue
		}
		out = append(out, svc)
	}
	return out
}

func (s *ServiceStore) Sorted(state SortState) []domain.Service {
	out := s.Filtered()
	if state.Direction == SortNone {
		return out
	}
	cmp := func(a, b domain.Service) int {
		switch state.Column {
		case "price":
			return CompareFloat(a.Price, b.Price)
		default:
			return CompareText(a.Name, b.Name)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return state.apply(cmp(out[i], out[j]))
	})
	return out
}

// Get returns one service by id straight from the gateway (used when
// snapshotting services into an order).
func (s *ServiceStore) Get(ctx context.Context, id int64) (*domain.Service, error) {
	var rows []domain.Service
	q := gateway.Clauses{Equals: map[string]interface{}{"id": id}, Limit: 1}
	if err := s.gw.Select(ctx, domain.Service{}.TableName(), q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNotFound
	}
	return &rows[0], nil
}

func (s *ServiceStore) Add(ctx context.Context, in ServiceInput) (*domain.Service, error) {
	s.activity.Start()
	defer s.activity.Done()

	row := domain.Service{Name: in.Name, Price: in.Price}
	if err := s.gw.Insert(ctx, row.TableName(), &row); err != nil {
		zap.L().Error("add service failed", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.mirror = append([]domain.Service{row}, s.mirror...)
	s.mu.Unlock()
	s.notify()
	return &row, nil
}

func (s *ServiceStore) Update(ctx context.Context, id int64, patch ServicePatch) (*domain.Service, error) {
	s.activity.Start()
	defer s.activity.Done()

	cols := map[string]interface{}{}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Price != nil {
		cols["price"] = *patch.Price
	}

	var row domain.Service
	if err := s.gw.Update(ctx, row.TableName(), id, cols, &row); err != nil {
		zap.L().Error("update service failed", zap.Int64("id", id), zap.Error(err))
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
	return &row, nil
}

func (s *ServiceStore) Delete(ctx context.Context, id int64) error {
	s.activity.Start()
	defer s.activity.Done()

	if err := s.gw.Delete(ctx, domain.Service{}.TableName(), id); err != nil {
		zap.L().Error("delete service failed", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	kept := s.mirror[:0]
	for _, svc := range s.mirror {
		if svc.ID != id {
			kept = append(kept, svc)
		}
	}
	s.mirror = kept
	s.mu.Unlock()
	s.notify()
	return nil
}
