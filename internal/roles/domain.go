package roles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/societyhub/societyhub/internal/shared"
)

var (
	// ErrNotFound indicates the role does not exist in the current society.
	ErrNotFound = errors.New("roles: not found")
	// ErrEmptySelection is returned by bulk actions called without ids.
	ErrEmptySelection = errors.New("roles: no roles selected")
	// ErrSystemRole is returned when a bulk delete includes a system role.
	ErrSystemRole = errors.New("roles: system roles cannot be deleted")
	// ErrInvalidAction is returned for unknown bulk actions.
	ErrInvalidAction = errors.New("roles: unknown bulk action")
	// ErrDuplicateName is returned when a role name is already used in the society.
	ErrDuplicateName = errors.New("roles: name already in use")
)

// Status is the lifecycle state of a role.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// ParseStatus converts raw input, ignoring case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("roles: invalid status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Label returns the display label.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	}
	return string(s)
}

// Type tells built-in roles from roles created by a society.
type Type string

const (
	TypeSystem Type = "SYSTEM"
	TypeCustom Type = "CUSTOM"
)

// ParseType converts raw input, ignoring case.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("roles: invalid type %q", raw)
	}
	return t, nil
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeSystem || t == TypeCustom
}

// Label returns the display label.
func (t Type) Label() string {
	switch t {
	case TypeSystem:
		return "System"
	case TypeCustom:
		return "Custom"
	}
	return string(t)
}

// Role is a staff role within one society.
type Role struct {
	ID            int64               `json:"id"`
	SocietyID     int64               `json:"society_id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	Status        Status              `json:"status"`
	Type          Type                `json:"type"`
	AssignedCount int                 `json:"assigned_count"`
	Capabilities  []shared.Capability `json:"capabilities"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Key returns the identifier used by tables and selections.
func (r Role) Key() string {
	return fmt.Sprint(r.ID)
}

// HasCapability reports whether the role grants c.
func (r Role) HasCapability(c shared.Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Categories lists the category labels offered by the role form and filters.
func Categories() []string {
	return []string{
		"Administration",
		"Security",
		"Maintenance",
		"Finance",
		"Facilities",
		"Front Desk",
		"Housekeeping",
	}
}

// Stats summarises the whole collection of a society.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	System int `json:"system"`
	Custom int `json:"custom"`
}

// Criteria narrows a record fetch. The zero value of each field means no constraint.
type Criteria struct {
	SocietyID int64
	Status    Status
	Type      Type
	Category  string
}

// BulkAction is an operation applied to a selection of roles.
type BulkAction string

const (
	ActionActivate   BulkAction = "activate"
	ActionDeactivate BulkAction = "deactivate"
	ActionDuplicate  BulkAction = "duplicate"
	ActionDelete     BulkAction = "delete"
)

// ParseBulkAction converts raw form input.
func ParseBulkAction(raw string) (BulkAction, error) {
	a := BulkAction(strings.ToLower(strings.TrimSpace(raw)))
	switch a {
	case ActionActivate, ActionDeactivate, ActionDuplicate, ActionDelete:
		return a, nil
	}
	return "", userFacing(fmt.Errorf("%w: %q", ErrInvalidAction, raw), "Choose a bulk action.")
}

// PastTense is used in confirmation messages.
func (a BulkAction) PastTense() string {
	switch a {
	case ActionActivate:
		return "activated"
	case ActionDeactivate:
		return "deactivated"
	case ActionDuplicate:
		return "duplicated"
	case ActionDelete:
		return "deleted"
	}
	return string(a)
}

// BulkResult reports the outcome of a bulk action.
type BulkResult struct {
	Action   BulkAction
	Affected int
	Created  []Role
}

// BulkNotice is published after a successful bulk action.
type BulkNotice struct {
	SocietyID int64      `json:"society_id"`
	ActorID   int64      `json:"actor_id"`
	Action    BulkAction `json:"action"`
	RoleIDs   []int64    `json:"role_ids"`
	At        time.Time  `json:"at"`
}

// Input carries the editable fields of a role.
type Input struct {
	Name         string              `validate:"required,min=2,max=80"`
	Description  string              `validate:"max=500"`
	Category     string              `validate:"required,max=40"`
	Status       Status              `validate:"required,oneof=ACTIVE INACTIVE"`
	Capabilities []shared.Capability `validate:"dive,capability"`
}

// failure wraps errors whose text is safe to show.
type failure struct {
	err error
	msg string
}

func (f failure) Error() string       { return f.err.Error() }
func (f failure) Unwrap() error       { return f.err }
func (f failure) SafeMessage() string { return f.msg }

func userFacing(err error, msg string) error {
	return failure{err: err, msg: msg}
}
