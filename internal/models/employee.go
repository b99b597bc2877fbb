package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:e"`

	ID uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`

	// External HR identity, managed by the record store
	ExternalID string `bun:"external_id,notnull,unique" json:"external_id"`
	Name       string `bun:"name,notnull" json:"name"`

	// Token embedded in the personal code. Immutable once issued.
	ScanCode string `bun:"scan_code,notnull,unique" json:"scan_code"`

	// Inactive employees keep their history but can no longer scan
	Active bool `bun:"active,notnull,default:true" json:"active"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}

// BeforeInsert hook
var _ bun.BeforeInsertHook = (*Employee)(nil)

func (e *Employee) BeforeInsert(ctx context.Context, query *bun.InsertQuery) error {
	e.CreatedAt = time.Now()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
