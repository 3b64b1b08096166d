package model

import (
	"time"
)

// swagger:model
// Rows are hard-deleted: an assignment disappears together with every
// dependent row, so there is no soft-delete column here.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
