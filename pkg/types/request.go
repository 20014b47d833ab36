package types

import (
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusRejected  RequestStatus = "rejected"
)

func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch s := RequestStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case RequestStatusPending, RequestStatusFulfilled, RequestStatusRejected:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Request struct {
	ID           string        `db:"id" json:"id"`
	RequestedBy  string        `db:"requested_by" json:"requested_by"`
	EmployeeID   string        `db:"employee_id" json:"employee_id"`
	CategorySlug string        `db:"category_slug" json:"category_slug"`
	StartDate    *time.Time    `db:"start_date" json:"start_date"`
	EndDate      *time.Time    `db:"end_date" json:"end_date"`
	Notes        *string       `db:"notes" json:"notes"`
	Status       RequestStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

type RequestItem struct {
	ID           string     `db:"id" json:"id"`
	RequestID    string     `db:"request_id" json:"-"`
	CategorySlug string     `db:"category_slug" json:"category_slug"`
	StartDate    *time.Time `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date"`
	Position     int        `db:"position" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"-"`
}

// RequestSummary is a list row: the request plus requester, employee and
// the distinct category slugs of its items.
type RequestSummary struct {
	Request
	EmployeeName  *string `db:"employee_name" json:"employee_name"`
	EmployeeEmail *string `db:"employee_email" json:"employee_email"`
	Categories    *string `db:"categories" json:"categories"`
}

type RequestDetailHeader struct {
	Request
	EmployeeName  *string `db:"employee_name" json:"employee_name"`
	EmployeeEmail *string `db:"employee_email" json:"employee_email"`
	Departments   *string `db:"departments" json:"departments"`
	JobTitle      *string `db:"job_title" json:"job_title"`
}

type RequestItemView struct {
	ID           string          `db:"id" json:"id"`
	CategorySlug string          `db:"category_slug" json:"category_slug"`
	CategoryName *string         `db:"category_name" json:"category_name"`
	StartDate    *time.Time      `db:"start_date" json:"start_date"`
	EndDate      *time.Time      `db:"end_date" json:"end_date"`
	Accessories  []AccessoryLine `db:"-" json:"accessories"`
	Licenses     []LicenseLine   `db:"-" json:"licenses"`
}

type LegacyAttachments struct {
	Accessories []AccessoryLine `json:"accessories"`
	Licenses    []LicenseLine   `json:"licenses"`
}

type RequestDetail struct {
	Request *RequestDetailHeader `json:"request"`
	Items   []RequestItemView    `json:"items"`
	Legacy  LegacyAttachments    `json:"legacy"`
}

type RequestFilter struct {
	PageQuery
	Status string `form:"status"`
}

// RequestPayload is the body of POST /api/requests. Either Users is set
// (batch form) or the top-level employee fields are (single form, with
// Items or with the legacy CategorySlug).
type RequestPayload struct {
	Users []RequestUserInput `json:"users"`

	EmployeeID   string             `json:"employee_id"`
	Employee     *EmployeeProfile   `json:"employee"`
	Items        []RequestItemInput `json:"items"`
	CategorySlug string             `json:"category_slug"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	Notes        string             `json:"notes"`
	Accessories  []AccessoryInput   `json:"accessories"`
	Licenses     []LicenseInput     `json:"licenses"`
}

type RequestUserInput struct {
	EmployeeProfile
	Employee *EmployeeProfile   `json:"employee"`
	Items    []RequestItemInput `json:"items"`
	Notes    string             `json:"notes"`
}

type RequestItemInput struct {
	CategorySlug string           `json:"category_slug"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	Accessories  []AccessoryInput `json:"accessories"`
	Licenses     []LicenseInput   `json:"licenses"`
}

// CreateRequestResult is what a submission produced. Legacy is set when the
// payload used the single-category form.
type CreateRequestResult struct {
	Created []CreatedRequest
	Legacy  bool
}

// CreatedRequest reports one request row produced by a batch.
type CreatedRequest struct {
	RequestID  string `json:"request_id"`
	EmployeeID string `json:"employee_id"`
}
