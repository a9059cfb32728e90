// Package localstore persists the in-process gateway to a bbolt file so
// the no-backend mode survives restarts.
package localstore

import (
	"context"
	"reflect"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

// The persistence codec keys on a tag no struct declares, so jsoniter
// falls back to plain field names. API-facing tags like the profile's
// `json:"-"` password must not leak into what gets persisted.
var json = jsoniter.Config{TagKey: "localstore", SortMapKeys: true}.Froze()

var bucketTables = []byte("tables")

// LocalStore wraps a MemoryGateway with a write-through bbolt file. Every
// mutation rewrites the mutated table's JSON array; reads never touch disk.
type LocalStore struct {
	*gateway.MemoryGateway
	db *bolt.DB
}

// Open loads the bbolt file, rehydrates every known table into the memory
// gateway, and hooks persistence into the mutation path.
func Open(file string) (*LocalStore, error) {
	db, err := bolt.Open(file, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", file)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTables)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &LocalStore{MemoryGateway: gateway.NewMemoryGateway(), db: db}
	if err := s.rehydrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.SetMutationHook(s.persist)
	return s, nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// rehydrate decodes each stored table into rows of its registered type and
// reinserts them. Stored rows carry their ids, so inserts preserve them.
func (s *LocalStore) rehydrate() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTables)
		for _, model := range domain.Tables {
			t := reflect.TypeOf(model)
			for t.Kind() == reflect.Ptr {
				t = t.Elem()
			}
			table := tableName(model)
			data := b.Get([]byte(table))
			if len(data) == 0 {
				continue
			}
			slice := reflect.New(reflect.SliceOf(t))
			if err := json.Unmarshal(data, slice.Interface()); err != nil {
				return errors.Wrapf(err, "decode table %s", table)
			}
			rows := slice.Elem()
			// oldest first so the index sees ascending created_at
			for i := rows.Len() - 1; i >= 0; i-- {
				row := reflect.New(t)
				row.Elem().Set(rows.Index(i))
				if err := s.MemoryGateway.Insert(context.Background(), table, row.Interface()); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *LocalStore) persist(table string) {
	rows := s.Snapshot(table)
	data, err := json.Marshal(rows)
	if err != nil {
		zap.S().Errorf("localstore encode %s failed: %s", table, err)
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTables).Put([]byte(table), data)
	})
	if err != nil {
		zap.S().Errorf("localstore persist %s failed: %s", table, err)
	}
}

// TableNames implements the backup source.
func (s *LocalStore) TableNames() []string {
	names := make([]string, 0, len(domain.Tables))
	for _, model := range domain.Tables {
		names = append(names, tableName(model))
	}
	return names
}

// DumpTable implements the backup source.
func (s *LocalStore) DumpTable(table string) (interface{}, error) {
	return s.Snapshot(table), nil
}

func tableName(model interface{}) string {
	type namer interface{ TableName() string }
	if n, ok := model.(namer); ok {
		return n.TableName()
	}
	return ""
}
