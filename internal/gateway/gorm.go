package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormGateway implements Gateway on a GORM database handle.
type GormGateway struct {
	db *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) Select(ctx context.Context, table string, q Clauses, dest interface{}) error {
	db := g.db.WithContext(ctx).Table(table)

	if term := strings.TrimSpace(q.Search); term != "" && len(q.SearchColumns) > 0 {
		var conds []string
		var args []interface{}
		if strings.EqualFold(g.db.Name(), "postgres") {
			for _, col := range q.SearchColumns {
				conds = append(conds, col+" ILIKE ?")
				args = append(args, "%"+term+"%")
			}
		} else {
			for _, col := range q.SearchColumns {
				conds = append(conds, "LOWER("+col+") LIKE ?")
				args = append(args, "%"+strings.ToLower(term)+"%")
			}
		}
		db = db.Where(strings.Join(conds, " OR "), args...)
	}

	if q.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		db = db.Where("created_at <= ?", *q.CreatedTo)
	}
	for col, val := range q.Equals {
		db = db.Where(col+" = ?", val)
	}
	for _, assoc := range q.Preload {
		db = db.Preload(assoc)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	if err := db.Order("created_at DESC, id DESC").Find(dest).Error; err != nil {
		return errors.Wrapf(err, "select %s", table)
	}
	return nil
}

func (g *GormGateway) Insert(ctx context.Context, table string, row interface{}) error {
	prepareRow(row)
	if err := g.db.WithContext(ctx).Table(table).Create(row).Error; err != nil {
		return errors.Wrapf(err, "insert %s", table)
	}
	return nil
}

func (g *GormGateway) Update(ctx context.Context, table string, id int64, patch map[string]interface{}, dest interface{}) error {
	if len(patch) == 0 {
		patch = map[string]interface{}{}
	}
	patch["updated_at"] = time.Now()

	res := g.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update %s %d", table, id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if dest != nil {
		if err := g.db.WithContext(ctx).Table(table).Where("id = ?", id).First(dest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrapf(err, "reload %s %d", table, id)
		}
	}
	return nil
}

func (g *GormGateway) Delete(ctx context.Context, table string, id int64) error {
	res := g.db.WithContext(ctx).Exec("DELETE FROM "+table+" WHERE id = ?", id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete %s %d", table, id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
