package types

import "time"

type Category struct {
	ID        string    `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryStat is the per-category item count shown on the dashboard.
type CategoryStat struct {
	Slug  string `db:"slug" json:"slug"`
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}

type AccessoryType struct {
	ID         string    `db:"id" json:"id"`
	CategoryID string    `db:"category_id" json:"-"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AccessoryInput names an accessory either by catalog id or by name.
// Quantity is loosely typed because clients send numbers, numeric strings
// or nothing at all.
type AccessoryInput struct {
	TypeID   string `json:"type_id"`
	Name     string `json:"name"`
	Quantity any    `json:"quantity"`
}

// AccessoryLine is an accessory attached to an assignment or request item.
type AccessoryLine struct {
	OwnerID  string `db:"owner_id" json:"-"`
	Name     string `db:"name" json:"name"`
	Quantity int    `db:"quantity" json:"quantity"`
}
