package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/pkg/debounce"
)

var orderSearchColumns = []string{"client_name", "notes"}

// ErrUnknownStatus rejects writes carrying a status outside the fixed enum.
var ErrUnknownStatus = errors.New("store: unknown order status")

// OrderInput references live rows; the store captures client and service
// snapshots at creation time so the order is immune to later catalog edits.
type OrderInput struct {
	ClientID   int64              `json:"client_id,string"`
	CarID      int64              `json:"car_id,string"`
	ServiceIDs []int64            `json:"service_ids"`
	Status     domain.OrderStatus `json:"status"`
	Notes      string             `json:"notes"`
}

type OrderPatch struct {
	CarID      *int64              `json:"car_id,string"`
	ServiceIDs *[]int64            `json:"service_ids"`
	Status     *domain.OrderStatus `json:"status"`
	Notes      *string             `json:"notes"`
}

// OrderStore mirrors the orders table.
type OrderStore struct {
	gw       gateway.Gateway
	bus      EventBus.Bus
	activity *Activity

	// onStatusChange fans out mail/webhook notifications; optional.
	onStatusChange func(o domain.Order)

	mu       sync.Mutex
	filters  Filters
	mirror   []domain.Order
	fetching atomic.Bool
	deb      *debounce.Debouncer
}

func NewOrderStore(gw gateway.Gateway, bus EventBus.Bus, activity *Activity) *OrderStore {
	s := &OrderStore{gw: gw, bus: bus, activity: activity}
	s.deb = debounce.New(debounce.DefaultQuiet, func() {
		if _, err := s.FetchAll(context.Background()); err != nil {
			zap.L().Error("debounced orders refetch failed", zap.Error(err))
		}
	})
	return s
}

func (s *OrderStore) RefetchDebouncer() *debounce.Debouncer { return s.deb }

// SetStatusChangeHook wires the notifier run after a status transition.
func (s *OrderStore) SetStatusChangeHook(fn func(o domain.Order)) {
	s.onStatusChange = fn
}

func (s *OrderStore) notify() {
	if s.bus != nil {
		s.bus.Publish(TopicOrdersChanged)
	}
}

func (s *OrderStore) Subscribe(fn func()) error {
	return s.bus.Subscribe(TopicOrdersChanged, fn)
}

func (s *OrderStore) FetchAll(ctx context.Context) ([]domain.Order, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return []domain.Order{}, nil
	}
	defer s.fetching.Store(false)
	s.activity.Start()
	defer s.activity.Done()

	s.mu.Lock()
	q := s.filters.Clauses(orderSearchColumns)
	s.mu.Unlock()

	var rows []domain.Order
	err := s.gw.Select(ctx, domain.Order{}.TableName(), q, &rows)

	s.mu.Lock()
	if err != nil {
		s.mirror = nil
	} else {
		s.mirror = rows
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		zap.L().Error("fetch orders failed", zap.Error(err))
		return nil, err
	}
	return append([]domain.Order(nil), rows...), nil
}

func (s *OrderStore) SetFilters(p FilterPatch) {
	s.mu.Lock()
	s.filters = s.filters.Merge(p)
	s.mu.Unlock()
	s.deb.Schedule()
}

func (s *OrderStore) ResetFilters() {
	s.mu.Lock()
	s.filters = Filters{}
	s.mu.Unlock()
	s.deb.Schedule()
}

func (s *OrderStore) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *OrderStore) Snapshot() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.mirror...)
}

func (s *OrderStore) Filtered() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.mirror))
	for _, o := range s.mirror {
		if !s.filters.matchText(o.ClientName, o.Notes) {
			continue
		}
		if !s.filters.matchDate(o.CreatedAt) {
			continue
		}
		if s.filters.Status != "" && string(o.Status) != s.filters.Status {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Sorted orders the filtered view; the status column compares by the fixed
// domain sequence, not alphabetically.
func (s *OrderStore) Sorted(state SortState) []domain.Order {
	out := s.Filtered()
	if state.Direction == SortNone {
		return out
	}
	cmp := func(a, b domain.Order) int {
		switch state.Column {
		case "status":
			return CompareStatus(a.Status, b.Status)
		case "total":
			return CompareFloat(a.Total(), b.Total())
		case "created_at":
			return CompareTime(a.CreatedAt, b.CreatedAt)
		default:
			return CompareText(a.ClientName, b.ClientName)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return state.apply(cmp(out[i], out[j]))
	})
	return out
}

// snapshotServices captures id+name+price of each referenced service.
func (s *OrderStore) snapshotServices(ctx context.Context, ids []int64) (domain.ServiceSnapshots, error) {
	snaps := make(domain.ServiceSnapshots, 0, len(ids))
	for _, id := range ids {
		var rows []domain.Service
		q := gateway.Clauses{Equals: map[string]interface{}{"id": id}, Limit: 1}
		if err := s.gw.Select(ctx, domain.Service{}.TableName(), q, &rows); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errors.Wrapf(gateway.ErrNotFound, "service %d", id)
		}
		snaps = append(snaps, domain.ServiceSnapshot{
			ServiceID: rows[0].ID,
			Name:      rows[0].Name,
			Price:     rows[0].Price,
		})
	}
	return snaps, nil
}

func (s *OrderStore) snapshotClient(ctx context.Context, id int64) (*domain.OrderClient, error) {
	var rows []domain.Client
	q := gateway.Clauses{Equals: map[string]interface{}{"id": id}, Limit: 1}
	if err := s.gw.Select(ctx, domain.Client{}.TableName(), q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(gateway.ErrNotFound, "client %d", id)
	}
	c := rows[0]
	return &domain.OrderClient{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}, nil
}

// Add snapshots the client and services, writes the order, and inserts the
// authoritative row at the front of the mirror.
func (s *OrderStore) Add(ctx context.Context, in OrderInput) (*domain.Order, error) {
	s.activity.Start()
	defer s.activity.Done()

	status := in.Status
	if status == "" {
		status = domain.StatusNew
	}
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}

	client, err := s.snapshotClient(ctx, in.ClientID)
	if err != nil {
		zap.L().Error("add order: client snapshot failed", zap.Int64("client_id", in.ClientID), zap.Error(err))
		return nil, err
	}
	services, err := s.snapshotServices(ctx, in.ServiceIDs)
	if err != nil {
		zap.L().Error("add order: service snapshot failed", zap.Error(err))
		return nil, err
	}

	row := domain.Order{
		ClientID:   in.ClientID,
		CarID:      in.CarID,
		ClientName: client.Name,
		Client:     *client,
		Services:   services,
		Status:     status,
		Notes:      in.Notes,
	}
	if err := s.gw.Insert(ctx, row.TableName(), &row); err != nil {
		zap.L().Error("add order failed", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.mirror = append([]domain.Order{row}, s.mirror...)
	active := s.filters.Active()
	s.mu.Unlock()
	s.notify()

	if active {
		if _, err := s.FetchAll(ctx); err != nil {
			zap.L().Warn("refetch after order add failed", zap.Error(err))
		}
	}
	return &row, nil
}

func (s *OrderStore) Update(ctx context.Context, id int64, patch OrderPatch) (*domain.Order, error) {
	s.activity.Start()
	defer s.activity.Done()

	cols := map[string]interface{}{}
	statusChanged := false
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, ErrUnknownStatus
		}
		cols["status"] = string(*patch.Status)
		statusChanged = true
	}
	if patch.Notes != nil {
		cols["notes"] = *patch.Notes
	}
	if patch.CarID != nil {
		cols["car_id"] = *patch.CarID
	}
	if patch.ServiceIDs != nil {
		services, err := s.snapshotServices(ctx, *patch.ServiceIDs)
		if err != nil {
			zap.L().Error("update order: service snapshot failed", zap.Int64("id", id), zap.Error(err))
			return nil, err
		}
		cols["services"] = services
	}

	var row domain.Order
	if err := s.gw.Update(ctx, row.TableName(), id, cols, &row); err != nil {
		zap.L().Error("update order failed", zap.Int64("id", id), zap.Error(err))
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

	if statusChanged && s.onStatusChange != nil {
		s.onStatusChange(row)
	}
	return &row, nil
}

func (s *OrderStore) Delete(ctx context.Context, id int64) error {
	s.activity.Start()
	defer s.activity.Done()

	if err := s.gw.Delete(ctx, domain.Order{}.TableName(), id); err != nil {
		zap.L().Error("delete order failed", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	kept := s.mirror[:0]
	for _, o := range s.mirror {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	s.mirror = kept
	s.mu.Unlock()
	s.notify()
	return nil
}
