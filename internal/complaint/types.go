package complaint

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category classifies a grievance by the civic service it concerns.
type Category string

const (
	CategoryRoads          Category = "roads"
	CategoryWater          Category = "water"
	CategoryElectricity    Category = "electricity"
	CategorySanitation     Category = "sanitation"
	CategoryPublicServices Category = "public_services"
	CategoryCorruption     Category = "corruption"
	CategoryOther          Category = "other"
)

// Priority is the citizen's own urgency assessment.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the triage state an admin assigns. Transitions are
// unrestricted: any status may follow any other, including itself. A
// forward-only workflow was considered and deliberately not enforced; see
// DESIGN.md.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

var categories = map[Category]struct{}{
	CategoryRoads:          {},
	CategoryWater:          {},
	CategoryElectricity:    {},
	CategorySanitation:     {},
	CategoryPublicServices: {},
	CategoryCorruption:     {},
	CategoryOther:          {},
}

var priorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

var statuses = map[Status]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusResolved:   {},
	StatusRejected:   {},
}

// Valid reports whether the category is one of the enumerated values.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Valid reports whether the priority is one of the enumerated values.
func (p Priority) Valid() bool {
	_, ok := priorities[p]
	return ok
}

// Valid reports whether the status is one of the enumerated values.
func (s Status) Valid() bool {
	_, ok := statuses[s]
	return ok
}

// Complaint is a citizen-submitted grievance record. UserID and CreatedAt
// are write-once; Status is mutated only through Service.UpdateStatus.
type Complaint struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrNotFound     = errors.New("complaint: not found")
	ErrUnauthorized = errors.New("complaint: unauthorized")
)

// FieldError scopes a validation failure to a single form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field errors for a rejected submission. No
// partial write ever happens alongside one.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "complaint: validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "complaint: validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
