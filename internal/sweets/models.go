package sweets

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sweet is an inventory item.
type Sweet struct {
	bun.BaseModel `bun:"table:sweets,alias:swt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Category      string     `bun:"category" json:"category,omitempty"`
	Price         float64    `bun:"price,notnull" json:"price"`
	Quantity      int        `bun:"quantity,notnull" json:"quantity"`
	ImageURL      string     `bun:"image_url" json:"image_url,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
