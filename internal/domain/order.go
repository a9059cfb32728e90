package domain

import (
	"database/sql/driver"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// OrderStatus is the work-order state. The declaration order below is a
// domain invariant: status columns sort by this sequence, never lexically.
type OrderStatus string

const (
	StatusNew        OrderStatus = "Nowe"
	StatusAccepted   OrderStatus = "Przyjęte"
	StatusInProgress OrderStatus = "W toku"
	StatusAwaiting   OrderStatus = "Czeka na odbiór"
	StatusCompleted  OrderStatus = "Zakończone"
	StatusCancelled  OrderStatus = "Anulowane"
)

// StatusOptions lists all statuses in their fixed domain order.
var StatusOptions = []OrderStatus{
	StatusNew,
	StatusAccepted,
	StatusInProgress,
	StatusAwaiting,
	StatusCompleted,
	StatusCancelled,
}

var statusRank = func() map[OrderStatus]int {
	m := make(map[OrderStatus]int, len(StatusOptions))
	for i, s := range StatusOptions {
		m[s] = i
	}
	return m
}()

// Rank returns the position of the status in the fixed domain order.
// Unknown statuses rank after all known ones.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(StatusOptions)
}

// Valid reports whether the status is one of the known options.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// ServiceSnapshot is a copy of a catalog service captured at order creation.
// Later edits of the live Service never change it, so historical order
// totals stay stable.
type ServiceSnapshot struct {
	ServiceID int64   `json:"service_id,string"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// ServiceSnapshots is stored as a JSON text column.
type ServiceSnapshots []ServiceSnapshot

func (s ServiceSnapshots) Value() (driver.Value, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal service snapshots")
	}
	return string(data), nil
}

func (s *ServiceSnapshots) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(v, s)
	case string:
		return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(v), s)
	default:
		return errors.Errorf("unsupported service snapshots source %T", src)
	}
}

// OrderClient is the client record captured at order assignment time,
// denormalized into the order row.
type OrderClient struct {
	ID    int64  `json:"id,string"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (c OrderClient) Value() (driver.Value, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order client")
	}
	return string(data), nil
}

func (c *OrderClient) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = OrderClient{}
		return nil
	case []byte:
		return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(v, c)
	case string:
		return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(v), c)
	default:
		return errors.Errorf("unsupported order client source %T", src)
	}
}

// Order is one work order. ClientName duplicates the snapshot name as a
// plain column so substring search works server-side.
type Order struct {
	ID         int64            `gorm:"primaryKey" json:"id,string"`
	ClientID   int64            `gorm:"index" json:"client_id,string"`
	CarID      int64            `gorm:"index" json:"car_id,string"`
	ClientName string           `gorm:"size:200;index" json:"client_name"`
	Client     OrderClient      `gorm:"type:text" json:"client"`
	Services   ServiceSnapshots `gorm:"type:text" json:"services"`
	Status     OrderStatus      `gorm:"size:32;index" json:"status"`
	Notes      string           `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// Total sums the snapshot prices. Live service price changes do not apply.
func (o Order) Total() float64 {
	var sum float64
	for _, s := range o.Services {
		sum += s.Price
	}
	return sum
}
