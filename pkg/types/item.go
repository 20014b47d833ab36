package types

import "time"

type Item struct {
	ID                string     `db:"id" json:"id"`
	CategoryID        string     `db:"category_id" json:"-"`
	Brand             *string    `db:"brand" json:"brand"`
	SerialNumber      string     `db:"serial_number" json:"serial_number"`
	StartDate         *time.Time `db:"start_date" json:"start_date"`
	Condition         *string    `db:"condition" json:"condition"`
	ConditionComments *string    `db:"condition_comments" json:"condition_comments"`
	CurrentHolder     *string    `db:"current_holder" json:"employee_id"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ItemView is an item joined with the display fields of its current holder.
type ItemView struct {
	Item
	EmployeeName  *string `db:"employee_name" json:"employee_name"`
	EmployeeEmail *string `db:"employee_email" json:"employee_email"`
}

// ItemInput is the editable part of an item. current_holder is absent
// because only the ledger writes it.
type ItemInput struct {
	Brand             string `json:"brand"`
	SerialNumber      string `json:"serial_number"`
	StartDate         string `json:"start_date"`
	Condition         string `json:"condition"`
	ConditionComments string `json:"condition_comments"`
}

// HeldItem is an item currently held by an employee, across categories.
type HeldItem struct {
	ID           string     `db:"id" json:"id"`
	Brand        *string    `db:"brand" json:"brand"`
	SerialNumber string     `db:"serial_number" json:"serial_number"`
	Condition    *string    `db:"condition" json:"condition"`
	StartDate    *time.Time `db:"start_date" json:"start_date"`
	CategorySlug string     `db:"category_slug" json:"category_slug"`
	CategoryName string     `db:"category_name" json:"category_name"`
}
