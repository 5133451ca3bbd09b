package domain

import "time"

// LocalUser is a locally provisioned operator account, the offline side of
// the hybrid authentication path. SerialHash is a bcrypt hash of the device
// serial credential, the clear serial is never stored.
type LocalUser struct {
	ID         int64     `json:"id,string" form:"id"`
	Email      string    `gorm:"uniqueIndex" json:"email" form:"email"`
	SerialHash string    `json:"-"`
	Name       string    `json:"name" form:"name"`
	Status     string    `json:"status" form:"status"`
	LastLogin  time.Time `json:"last_login"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (LocalUser) TableName() string {
	return "pos_local_user"
}
