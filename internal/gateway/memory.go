package gateway

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/domain"
)

// MemoryGateway is the in-process gateway used by tests and the no-backend
// mode. Rows live in per-table maps with a btree index ordered by
// (created_at, id) so date-range scans and newest-first ordering do not
// walk the whole table.
type MemoryGateway struct {
	mu     sync.RWMutex
	tables map[string]*memTable

	// onMutate, when set, is invoked after every successful write with the
	// mutated table name. The local fallback store hooks this to persist.
	onMutate func(table string)
}

type memTable struct {
	rows  map[int64]interface{}
	index *btree.BTree
}

type indexEntry struct {
	createdAt time.Time
	id        int64
}

func (e indexEntry) Less(than btree.Item) bool {
	o := than.(indexEntry)
	if !e.createdAt.Equal(o.createdAt) {
		return e.createdAt.Before(o.createdAt)
	}
	return e.id < o.id
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{tables: make(map[string]*memTable)}
}

// SetMutationHook registers a callback fired after each successful write.
func (g *MemoryGateway) SetMutationHook(fn func(table string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onMutate = fn
}

func (g *MemoryGateway) table(name string) *memTable {
	t, ok := g.tables[name]
	if !ok {
		t = &memTable{rows: make(map[int64]interface{}), index: btree.New(8)}
		g.tables[name] = t
	}
	return t
}

func (g *MemoryGateway) Select(ctx context.Context, table string, q Clauses, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr || destVal.Elem().Kind() != reflect.Slice {
		return errors.New("gateway: select dest must be a slice pointer")
	}
	slice := destVal.Elem()
	slice.Set(slice.Slice(0, 0))

	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.tables[table]
	if !ok {
		return nil
	}

	count := 0
	t.index.Descend(func(item btree.Item) bool {
		e := item.(indexEntry)
		if q.CreatedFrom != nil && e.createdAt.Before(*q.CreatedFrom) {
			// index is ordered by created_at, nothing older can match
			return false
		}
		if q.CreatedTo != nil && e.createdAt.After(*q.CreatedTo) {
			return true
		}
		row, ok := t.rows[e.id]
		if !ok {
			return true
		}
		if !matchClauses(q, row) {
			return true
		}
		row = g.embed(table, q, row)
		slice.Set(reflect.Append(slice, reflect.ValueOf(row)))
		count++
		return q.Limit <= 0 || count < q.Limit
	})
	return nil
}

// embed attaches nested collections requested through Preload. The memory
// gateway only knows the client→cars relation; everything else is flat.
func (g *MemoryGateway) embed(table string, q Clauses, row interface{}) interface{} {
	if table != (domain.Client{}.TableName()) {
		return row
	}
	for _, assoc := range q.Preload {
		if assoc != "Cars" {
			continue
		}
		client, ok := row.(domain.Client)
		if !ok {
			return row
		}
		client.Cars = g.carsOf(client.ID)
		return client
	}
	return row
}

func (g *MemoryGateway) carsOf(clientID int64) []domain.Car {
	t, ok := g.tables[domain.Car{}.TableName()]
	if !ok {
		return nil
	}
	var cars []domain.Car
	t.index.Descend(func(item btree.Item) bool {
		if car, ok := t.rows[item.(indexEntry).id].(domain.Car); ok && car.ClientID == clientID {
			cars = append(cars, car)
		}
		return true
	})
	return cars
}

func (g *MemoryGateway) Insert(ctx context.Context, table string, row interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareRow(row)
	v := reflect.ValueOf(row)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.New("gateway: insert row must be a struct pointer")
	}
	value := v.Elem().Interface()
	id := v.Elem().FieldByName("ID").Int()

	g.mu.Lock()
	t := g.table(table)
	t.rows[id] = value
	t.index.ReplaceOrInsert(indexEntry{createdAt: rowCreatedAt(value), id: id})
	hook := g.onMutate
	g.mu.Unlock()

	if hook != nil {
		hook(table)
	}
	return nil
}

func (g *MemoryGateway) Update(ctx context.Context, table string, id int64, patch map[string]interface{}, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	t, ok := g.tables[table]
	if !ok {
		g.mu.Unlock()
		return ErrNotFound
	}
	row, ok := t.rows[id]
	if !ok {
		g.mu.Unlock()
		return ErrNotFound
	}

	updated := reflect.New(reflect.TypeOf(row))
	updated.Elem().Set(reflect.ValueOf(row))
	for col, val := range patch {
		if err := setColumn(updated.Elem(), col, val); err != nil {
			g.mu.Unlock()
			return errors.Wrapf(err, "update %s %d", table, id)
		}
	}
	if f := updated.Elem().FieldByName("UpdatedAt"); f.IsValid() {
		f.Set(reflect.ValueOf(time.Now()))
	}
	t.rows[id] = updated.Elem().Interface()
	hook := g.onMutate
	g.mu.Unlock()

	if dest != nil {
		dv := reflect.ValueOf(dest)
		if dv.Kind() == reflect.Ptr && dv.Elem().Type() == updated.Elem().Type() {
			dv.Elem().Set(updated.Elem())
		}
	}
	if hook != nil {
		hook(table)
	}
	return nil
}

func (g *MemoryGateway) Delete(ctx context.Context, table string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	t, ok := g.tables[table]
	if !ok {
		g.mu.Unlock()
		return ErrNotFound
	}
	row, ok := t.rows[id]
	if !ok {
		g.mu.Unlock()
		return ErrNotFound
	}
	delete(t.rows, id)
	t.index.Delete(indexEntry{createdAt: rowCreatedAt(row), id: id})

	// cars cannot outlive their client
	if table == (domain.Client{}.TableName()) {
		if cars, ok := g.tables[domain.Car{}.TableName()]; ok {
			for carID, raw := range cars.rows {
				if car, ok := raw.(domain.Car); ok && car.ClientID == id {
					delete(cars.rows, carID)
					cars.index.Delete(indexEntry{createdAt: car.CreatedAt, id: carID})
				}
			}
		}
	}
	hook := g.onMutate
	g.mu.Unlock()

	if hook != nil {
		hook(table)
	}
	return nil
}

// Snapshot returns a copy of every row of a table, newest-first. Used by
// the local fallback store and backups.
func (g *MemoryGateway) Snapshot(table string) []interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tables[table]
	if !ok {
		return nil
	}
	rows := make([]interface{}, 0, len(t.rows))
	t.index.Descend(func(item btree.Item) bool {
		if row, ok := t.rows[item.(indexEntry).id]; ok {
			rows = append(rows, row)
		}
		return true
	})
	return rows
}

func matchClauses(q Clauses, row interface{}) bool {
	v := reflect.ValueOf(row)
	if term := strings.TrimSpace(q.Search); term != "" && len(q.SearchColumns) > 0 {
		lower := strings.ToLower(term)
		hit := false
		for _, col := range q.SearchColumns {
			f := fieldByColumn(v, col)
			if !f.IsValid() {
				continue
			}
			if strings.Contains(strings.ToLower(fmt.Sprint(f.Interface())), lower) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	created := rowCreatedAt(row)
	if q.CreatedFrom != nil && created.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && created.After(*q.CreatedTo) {
		return false
	}
	for col, val := range q.Equals {
		f := fieldByColumn(v, col)
		if !f.IsValid() {
			return false
		}
		if fmt.Sprint(f.Interface()) != fmt.Sprint(val) {
			return false
		}
	}
	return true
}

func rowCreatedAt(row interface{}) time.Time {
	f := reflect.ValueOf(row).FieldByName("CreatedAt")
	if f.IsValid() {
		if t, ok := f.Interface().(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

func setColumn(v reflect.Value, col string, val interface{}) error {
	f := fieldByColumn(v, col)
	if !f.IsValid() || !f.CanSet() {
		return errors.Errorf("no column %q on %s", col, v.Type())
	}
	if val == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	rv := reflect.ValueOf(val)
	if !rv.Type().ConvertibleTo(f.Type()) {
		return errors.Errorf("cannot assign %T to column %q", val, col)
	}
	f.Set(rv.Convert(f.Type()))
	return nil
}

// fieldByColumn resolves a snake_case column name against struct fields.
func fieldByColumn(v reflect.Value, col string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if toSnake(t.Field(i).Name) == col {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
