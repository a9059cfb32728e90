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

var clientSearchColumns = []string{"name", "phone", "email"}

// ClientInput is the validated form payload for a new client. Validation
// happens at the form/API layer; the store writes it as-is.
type ClientInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

// ClientPatch is a partial update; nil fields are left untouched.
type ClientPatch struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

// ClientStore mirrors the clients table (with embedded cars) and the
// transient filter state that parameterizes the mirror.
type ClientStore struct {
	gw       gateway.Gateway
	bus      EventBus.Bus
	activity *Activity

	mu       sync.Mutex
	filters  Filters
	mirror   []domain.Client
	fetching atomic.Bool
	deb      *debounce.Debouncer
}

func NewClientStore(gw gateway.Gateway, bus EventBus.Bus, activity *Activity) *ClientStore {
	s := &ClientStore{gw: gw, bus: bus, activity: activity}
	s.deb = debounce.New(debounce.DefaultQuiet, func() {
		if _, err := s.FetchAll(context.Background()); err != nil {
			zap.L().Error("debounced clients refetch failed", zap.Error(err))
		}
	})
	return s
}

// RefetchDebouncer exposes the refetch controller so the composition root
// and tests can tune or fake its clock.
func (s *ClientStore) RefetchDebouncer() *debounce.Debouncer { return s.deb }

func (s *ClientStore) notify() {
	if s.bus != nil {
		s.bus.Publish(TopicClientsChanged)
	}
}

// Subscribe registers fn to run after every mirror change.
func (s *ClientStore) Subscribe(fn func()) error {
	return s.bus.Subscribe(TopicClientsChanged, fn)
}

// FetchAll reads the clients matching the current filter state and replaces
// the mirror wholesale. At most one fetch is in flight; a call arriving
// while one is outstanding is dropped and returns an empty result. On
// failure the mirror is cleared and the error returned.
func (s *ClientStore) FetchAll(ctx context.Context) ([]domain.Client, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return []domain.Client{}, nil
	}
	defer s.fetching.Store(false)
	s.activity.Start()
	defer s.activity.Done()

	s.mu.Lock()
	q := s.filters.Clauses(clientSearchColumns)
	s.mu.Unlock()
	q.Preload = []string{"Cars"}

	var rows []domain.Client
	err := s.gw.Select(ctx, domain.Client{}.TableName(), q, &rows)

	s.mu.Lock()
	if err != nil {
		s.mirror = nil
	} else {
		s.mirror = rows
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		zap.L().Error("fetch clients failed", zap.Error(err))
		return nil, err
	}
	return append([]domain.Client(nil), rows...), nil
}

// SetFilters merges the given fields into the filter state and schedules a
// debounced refetch. Pass a pointer to an empty string to clear a field.
func (s *ClientStore) SetFilters(p FilterPatch) {
	s.mu.Lock()
	s.filters = s.filters.Merge(p)
	s.mu.Unlock()
	s.deb.Schedule()
}

// ResetFilters clears every filter field and schedules a refetch.
func (s *ClientStore) ResetFilters() {
	s.mu.Lock()
	s.filters = Filters{}
	s.mu.Unlock()
	s.deb.Schedule()
}

// Filters returns the current filter state.
func (s *ClientStore) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Snapshot returns a copy of the mirrored collection in its current order.
func (s *ClientStore) Snapshot() []domain.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Client(nil), s.mirror...)
}

// Filtered applies the filter state locally to the mirror. Pure projection,
// recomputed on every read.
func (s *ClientStore) Filtered() []domain.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Client, 0, len(s.mirror))
	for _, c := range s.mirror {
		if !s.filters.matchText(c.Name, c.Phone, c.Email) {
			continue
		}
		if !s.filters.matchDate(c.CreatedAt) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Sorted returns the filtered view ordered by the given column state.
func (s *ClientStore) Sorted(state SortState) []domain.Client {
	out := s.Filtered()
	if state.Direction == SortNone {
		return out
	}
	stableSortClients(out, state)
	return out
}

// Add writes one client and, on success, inserts the authoritative row at
// the front of the mirror (newest-first convention).
func (s *ClientStore) Add(ctx context.Context, in ClientInput) (*domain.Client, error) {
	s.activity.Start()
	defer s.activity.Done()

	row := domain.Client{Name: in.Name, Phone: in.Phone, Email: in.Email, Notes: in.Notes}
	if err := s.gw.Insert(ctx, row.TableName(), &row); err != nil {
		zap.L().Error("add client failed", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.mirror = append([]domain.Client{row}, s.mirror...)
	active := s.filters.Active()
	s.mu.Unlock()
	s.notify()

	if active {
		if _, err := s.FetchAll(ctx); err != nil {
			zap.L().Warn("refetch after client add failed", zap.Error(err))
		}
	}
	return &row, nil
}

// Update writes a partial patch and replaces the matching mirror row in
// place, preserving its position.
func (s *ClientStore) Update(ctx context.Context, id int64, patch ClientPatch) (*domain.Client, error) {
	s.activity.Start()
	defer s.activity.Done()

	cols := map[string]interface{}{}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Phone != nil {
		cols["phone"] = *patch.Phone
	}
	if patch.Email != nil {
		cols["email"] = *patch.Email
	}
	if patch.Notes != nil {
		cols["notes"] = *patch.Notes
	}

	var row domain.Client
	if err := s.gw.Update(ctx, row.TableName(), id, cols, &row); err != nil {
		zap.L().Error("update client failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	for i := range s.mirror {
		if s.mirror[i].ID == id {
			row.Cars = s.mirror[i].Cars
			s.mirror[i] = row
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return &row, nil
}

// Delete removes the client remotely and drops it from the mirror by
// identity. Cars belonging to the client are removed by the gateway.
func (s *ClientStore) Delete(ctx context.Context, id int64) error {
	s.activity.Start()
	defer s.activity.Done()

	if err := s.gw.Delete(ctx, domain.Client{}.TableName(), id); err != nil {
		zap.L().Error("delete client failed", zap.Int64("id", id), zap.Error(err))
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
	return nil
}

func stableSortClients(rows []domain.Client, state SortState) {
	cmp := func(a, b domain.Client) int {
		switch state.Column {
		case "phone":
			return CompareText(a.Phone, b.Phone)
		case "email":
			return CompareText(a.Email, b.Email)
		case "created_at":
			return CompareTime(a.CreatedAt, b.CreatedAt)
		default:
			return CompareText(a.Name, b.Name)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return state.apply(cmp(rows[i], rows[j]))
	})
}
