package types

import "time"

// Assignment is one row of an item's transaction history.
type Assignment struct {
	ID         string     `db:"id" json:"id"`
	CategoryID string     `db:"category_id" json:"-"`
	ItemID     string     `db:"item_id" json:"item_id"`
	EmployeeID *string    `db:"employee_id" json:"employee_id"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

type AssignmentView struct {
	Assignment
	EmployeeName  *string         `db:"employee_name" json:"employee_name"`
	EmployeeEmail *string         `db:"employee_email" json:"employee_email"`
	Accessories   []AccessoryLine `db:"-" json:"accessories"`
}

type BeginAssignment struct {
	EmployeeID  string
	StartDate   time.Time
	EndDate     *time.Time
	Accessories []AccessoryInput
}

type ItemDetail struct {
	Item        *ItemView        `json:"item"`
	History     []AssignmentView `json:"history"`
	HistoryMeta PageMeta         `json:"history_meta"`
}
