package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Route statuses
const (
	RouteStatusPlanned    = "Planificada"
	RouteStatusPending    = "Pendiente de Aprobación"
	RouteStatusInProgress = "En Progreso"
	RouteStatusCompleted  = "Completada"
	RouteStatusIncomplete = "Incompleta"
	RouteStatusRejected   = "Rechazada"
)

// Route origins
const (
	RouteOriginManual    = "manual"
	RouteOriginPredicted = "predicha"
)

// Route represents a weekly visit plan owned by one seller
type Route struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	RouteDate    time.Time  `json:"route_date" db:"route_date"`
	CreatorID    uuid.UUID  `json:"creator_id" db:"creator_id"`
	SupervisorID uuid.UUID  `json:"supervisor_id" db:"supervisor_id"`
	Status       string     `json:"status" db:"status"`
	Origin       string     `json:"origin" db:"origin"`
	Observation  NullString `json:"observation,omitempty" db:"observation"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// Clients is populated by the repository on demand
	Clients []RouteClient `json:"clients,omitempty" db:"-"`
}

// IsTerminal reports whether the route reached a closed state
func (r *Route) IsTerminal() bool {
	return r.Status == RouteStatusCompleted || r.Status == RouteStatusIncomplete
}

// ExpiresAt returns the instant after which an in-progress route is force-closed:
// start of day of the base date plus the grace window.
func (r *Route) ExpiresAt(windowDays int) time.Time {
	d := r.RouteDate
	startOfDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return startOfDay.AddDate(0, 0, windowDays)
}

// IsExpired reports whether the grace window elapsed at the given instant
func (r *Route) IsExpired(now time.Time, windowDays int) bool {
	return now.After(r.ExpiresAt(windowDays))
}

// EditableBy implements the edit permission contract: fields are mutable by
// the creator while the route is Planificada, Rechazada or En Progreso, and by
// an Administrator for any non-Completada route.
func (r *Route) EditableBy(u *User) bool {
	if u.Role == RoleAdministrador {
		return r.Status != RouteStatusCompleted
	}
	if u.ID != r.CreatorID {
		return false
	}
	switch r.Status {
	case RouteStatusPlanned, RouteStatusRejected, RouteStatusInProgress:
		return true
	}
	return false
}

// ReviewableBy reports whether the user may approve or reject the route:
// only the assigned supervisor or an Administrator, while pending review.
func (r *Route) ReviewableBy(u *User) bool {
	if r.Status != RouteStatusPending {
		return false
	}
	return u.Role == RoleAdministrador || (u.Role == RoleSupervisor && u.ID == r.SupervisorID)
}

// VisibleTo reports whether the user may read the route
func (r *Route) VisibleTo(u *User) bool {
	switch u.Role {
	case RoleAdministrador:
		return true
	case RoleSupervisor:
		return u.ID == r.SupervisorID || u.ID == r.CreatorID
	default:
		return u.ID == r.CreatorID
	}
}

// validTransitions maps each status to the statuses reachable from it through
// normal (non-admin-override) workflow actions.
var validTransitions = map[string][]string{
	RouteStatusPlanned:    {RouteStatusPending, RouteStatusInProgress},
	RouteStatusPending:    {RouteStatusPlanned, RouteStatusRejected},
	RouteStatusRejected:   {RouteStatusPending, RouteStatusInProgress},
	RouteStatusInProgress: {RouteStatusCompleted, RouteStatusIncomplete},
}

// CanTransition reports whether moving from one status to another is a legal
// workflow step. Administrator overrides (force-close, reopen) are checked
// separately by the service layer.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Route client entry statuses
const (
	RouteClientActive  = "Activo"
	RouteClientRemoved = "Eliminado"
)

// Visit statuses
const (
	VisitStatusPending   = "Pendiente"
	VisitStatusCompleted = "Completado"
)

// Visit types
const (
	VisitTypeInPerson = "presencial"
	VisitTypePhone    = "telefonica"
)

// RouteClient is one scheduled visit of a client within a route, carrying its
// own execution state distinct from the Client master record. Removed entries
// are retained with an observation, never hard-deleted.
type RouteClient struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	RouteID            uuid.UUID       `json:"route_id" db:"route_id"`
	RUC                string          `json:"ruc" db:"ruc"`
	ClientName         string          `json:"client_name" db:"client_name"`
	AssignedDate       time.Time       `json:"assigned_date" db:"assigned_date"`
	Position           int             `json:"position" db:"position"`
	Status             string          `json:"status" db:"status"`
	VisitStatus        string          `json:"visit_status" db:"visit_status"`
	Origin             string          `json:"origin" db:"origin"`
	CheckInAt          NullTime        `json:"check_in_at,omitempty" db:"check_in_at"`
	CheckInLat         NullFloat       `json:"check_in_lat,omitempty" db:"check_in_lat"`
	CheckInLng         NullFloat       `json:"check_in_lng,omitempty" db:"check_in_lng"`
	CheckOutAt         NullTime        `json:"check_out_at,omitempty" db:"check_out_at"`
	CheckOutLat        NullFloat       `json:"check_out_lat,omitempty" db:"check_out_lat"`
	CheckOutLng        NullFloat       `json:"check_out_lng,omitempty" db:"check_out_lng"`
	VisitType          NullString      `json:"visit_type,omitempty" db:"visit_type"`
	VisitNote          NullString      `json:"visit_note,omitempty" db:"visit_note"`
	SaleValue          decimal.Decimal `json:"sale_value" db:"sale_value"`
	CollectionValue    decimal.Decimal `json:"collection_value" db:"collection_value"`
	ReturnsValue       decimal.Decimal `json:"returns_value" db:"returns_value"`
	PromotionsValue    decimal.Decimal `json:"promotions_value" db:"promotions_value"`
	RemovalObservation NullString      `json:"removal_observation,omitempty" db:"removal_observation"`
	CheckInOpID        uuid.NullUUID   `json:"-" db:"check_in_op_id"`
	CheckOutOpID       uuid.NullUUID   `json:"-" db:"check_out_op_id"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the entry still counts toward route completion
func (rc *RouteClient) IsActive() bool {
	return rc.Status == RouteClientActive
}

// HasOpenCheckIn reports a check-in without a matching check-out
func (rc *RouteClient) HasOpenCheckIn() bool {
	return rc.CheckInAt.Valid && !rc.CheckOutAt.Valid
}

// AssignedOn reports whether the entry belongs to the given calendar day
func (rc *RouteClient) AssignedOn(day time.Time) bool {
	y1, m1, d1 := rc.AssignedDate.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// AllActiveCompleted reports whether every non-removed entry finished its visit.
// An empty or all-removed slate does not count as completed.
func AllActiveCompleted(entries []RouteClient) bool {
	active := 0
	for _, e := range entries {
		if !e.IsActive() {
			continue
		}
		active++
		if e.VisitStatus != VisitStatusCompleted {
			return false
		}
	}
	return active > 0
}
