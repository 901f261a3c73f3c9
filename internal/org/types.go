package org

import (
	"fmt"
	"strings"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

// Role is the organizational role of an account.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleManager     Role = "manager"
	RoleContributor Role = "contributor"
)

// legacyRoles maps the role names used by the first generation of the
// platform onto the current ones.
var legacyRoles = map[string]Role{
	"admin":        RoleOwner,
	"gestionnaire": RoleManager,
	"commercial":   RoleContributor,
}

// ParseRole accepts current and legacy role names, case-insensitively.
func ParseRole(raw string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch r := Role(key); r {
	case RoleOwner, RoleManager, RoleContributor:
		return r, nil
	}
	if r, ok := legacyRoles[key]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: unsupported role %q", apperr.ErrInvalidInput, raw)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleContributor:
		return true
	}
	return false
}

// Account is a person known to the directory.
type Account struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	SquadID   string    `json:"squad_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the public projection of an account attached to reports,
// squads and messages.
type Summary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	SquadID   string `json:"squad_id,omitempty"`
	Active    bool   `json:"active"`
}

func (a Account) Summary() Summary {
	return Summary{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      a.Role,
		SquadID:   a.SquadID,
		Active:    a.Active,
	}
}

// IsActiveContributor reports whether the account can own sales and belong to a squad.
func (a Account) IsActiveContributor() bool {
	return a.Active && a.Role == RoleContributor
}

// Squad is a named group of contributors under at most one manager.
type Squad struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ManagerID string    `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SquadView is a squad with its manager and current active members resolved.
type SquadView struct {
	Squad
	Manager *Summary  `json:"manager,omitempty"`
	Members []Summary `json:"members"`
}

// Actor is the authenticated caller of an operation, as asserted by the
// credential service.
type Actor struct {
	ID   string
	Role Role
}

// NewAccount carries the fields of an account to create.
type NewAccount struct {
	FirstName string
	LastName  string
	Email     string
	Role      Role
	SquadID   string
	Active    *bool
}

// AccountUpdate carries optional field changes. A non-nil empty SquadID
// clears the squad reference.
type AccountUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *Role
	SquadID   *string
	Active    *bool
}

// Snapshot is a consistent view of the directory and the squad registry.
type Snapshot struct {
	Accounts []Account
	Squads   []Squad
}
