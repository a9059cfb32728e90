package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile is an application account. The password hash never leaves the
// server; the admin panel only sees username, email and role.
type Profile struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Username  string    `gorm:"size:100;index" json:"username"`
	Email     string    `gorm:"size:200;index" json:"email"`
	AvatarURL string    `gorm:"size:300" json:"avatar_url"`
	Role      string    `gorm:"size:20;default:'user'" json:"role"`
	Password  string    `gorm:"size:200" json:"-"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Profile) TableName() string {
	return "profiles"
}

type SysConfig struct {
	ID        int64     `json:"id,string" form:"id"`
	Sort      int       `json:"sort" form:"sort"`
	Type      string    `gorm:"index" json:"type" form:"type"`
	Name      string    `gorm:"index" json:"name" form:"name"`
	Value     string    `json:"value" form:"value"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
