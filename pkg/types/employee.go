package types

import "time"

type Employee struct {
	ID              string    `db:"id" json:"id"`
	EmployeeID      string    `db:"employee_id" json:"employee_id"`
	Name            string    `db:"name" json:"name"`
	Email           *string   `db:"email" json:"email"`
	Department      *string   `db:"department" json:"departments"`
	PhoneNumber     *string   `db:"phone_number" json:"phone_number"`
	JobTitle        *string   `db:"job_title" json:"job_title"`
	TableNumber     *string   `db:"table_number" json:"table_number"`
	HasMicrosoft365 bool      `db:"has_microsoft_365" json:"has_microsoft_365"`
	HasCodiumEmemo  bool      `db:"has_codium_ememo" json:"has_codium_ememo"`
	HasERPNetsuite  bool      `db:"has_erp_netsuite" json:"has_erp_netsuite"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeProfile carries the fields used to create an employee on the fly.
type EmployeeProfile struct {
	EmployeeID  string `json:"employee_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Departments string `json:"departments"`
	PhoneNumber string `json:"phone_number"`
	JobTitle    string `json:"job_title"`
	TableNumber string `json:"table_number"`
}

type LicenseType struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type LicenseInput struct {
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
}

type LicenseLine struct {
	OwnerID string `db:"owner_id" json:"-"`
	Name    string `db:"name" json:"name"`
}

type Profile struct {
	User  *Employee          `json:"user"`
	Items *Page[*HeldItem] `json:"items"`
}
