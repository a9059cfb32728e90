package domain

import "time"

// Service is one item of the studio's service catalog. Names are unique by
// convention only; the price is the current live price and is snapshotted
// into orders at creation time.
type Service struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"size:200;index" json:"name"`
	Price     float64   `gorm:"default:0" json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Service) TableName() string {
	return "services"
}
