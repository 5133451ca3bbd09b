package domain

import "time"

// Sync queue entry statuses. An entry moves pending -> synced exactly once
// and never reverts.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
)

// Sync queue action kinds.
const (
	ActionCreateSale = "create_sale"
)

// SyncQueueEntry is a durable replay record of a mutation performed while
// disconnected. Payload is an opaque JSON document re-deliverable to the
// remote endpoint as originally submitted.
type SyncQueueEntry struct {
	ID        int64     `json:"id,string" form:"id"`
	Action    string    `gorm:"index" json:"action" form:"action"`
	Payload   string    `gorm:"type:text" json:"payload" form:"payload"`
	Status    string    `gorm:"index" json:"status" form:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SyncQueueEntry) TableName() string {
	return "pos_sync_queue"
}
