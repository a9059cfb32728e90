// Package gateway defines the remote data gateway the entity stores read
// from and write to: logical select/insert/update/delete over named tables
// with composable filter clauses. The production implementation is backed
// by GORM/Postgres; an in-memory implementation serves tests and the
// no-backend mode.
package gateway

import (
	"context"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/pkg/common"
)

// ErrNotFound is returned when an update or delete targets a row that no
// longer exists.
var ErrNotFound = errors.New("gateway: row not found")

// Clauses parameterize a Select. Rows are always returned newest-first
// (created_at descending, id as tiebreak).
type Clauses struct {
	// Search is matched case-insensitively as a substring against every
	// column in SearchColumns, OR-combined.
	Search        string
	SearchColumns []string

	// CreatedFrom/CreatedTo bound created_at inclusively on both ends.
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	// Equals are exact-match clauses, AND-combined.
	Equals map[string]interface{}

	// Preload names nested associations to load with each row.
	Preload []string

	// Limit caps the result set; zero means no cap.
	Limit int
}

// Gateway is the remote relational data store contract.
type Gateway interface {
	// Select fills dest (a pointer to a slice) with the matching rows.
	Select(ctx context.Context, table string, q Clauses, dest interface{}) error
	// Insert writes one row and fills its server-assigned identifier and
	// timestamps through the row pointer.
	Insert(ctx context.Context, table string, row interface{}) error
	// Update applies a partial column patch to one row and, when dest is
	// non-nil, loads the authoritative row back into it.
	Update(ctx context.Context, table string, id int64, patch map[string]interface{}, dest interface{}) error
	// Delete removes one row by identity.
	Delete(ctx context.Context, table string, id int64) error
}

// prepareRow assigns the identifier and timestamps on a row about to be
// inserted. row must be a struct pointer.
func prepareRow(row interface{}) {
	v := reflect.ValueOf(row)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	now := time.Now()
	if f := v.FieldByName("ID"); f.IsValid() && f.Kind() == reflect.Int64 && f.Int() == 0 {
		f.SetInt(common.NextID())
	}
	for _, name := range []string{"CreatedAt", "UpdatedAt"} {
		if f := v.FieldByName(name); f.IsValid() {
			if t, ok := f.Interface().(time.Time); ok && t.IsZero() {
				f.Set(reflect.ValueOf(now))
			}
		}
	}
}
