package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Setting keys consumed by the scan pipeline
const (
	SettingWorkStart    = "work_start"    // "HH:MM"
	SettingGraceMinutes = "grace_minutes" // integer
)

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Key       string    `bun:"key,pk" json:"key"`
	Value     string    `bun:"value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}
