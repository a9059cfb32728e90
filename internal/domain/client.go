package domain

import "time"

// Client is a customer of the detailing studio. A client owns zero or more
// cars; car rows are loaded together with the client so the UI can show the
// fleet without a second round trip.
type Client struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"size:200;index" json:"name"`
	Phone     string    `gorm:"size:64" json:"phone"`
	Email     string    `gorm:"size:200" json:"email"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Cars      []Car     `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"cars"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Client) TableName() string {
	return "clients"
}

// Car belongs to exactly one client and cannot outlive it.
type Car struct {
	ID           int64     `gorm:"primaryKey" json:"id,string"`
	ClientID     int64     `gorm:"index" json:"client_id,string"`
	Make         string    `gorm:"size:100" json:"make"`
	Model        string    `gorm:"size:100" json:"model"`
	LicensePlate string    `gorm:"size:32" json:"license_plate"`
	Color        string    `gorm:"size:64" json:"color"`
	Year         int       `json:"year"`
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Car) TableName() string {
	return "cars"
}
