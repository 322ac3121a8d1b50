package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/platform/apperr"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleDoctor Role = "Doctor"
	RoleNurse  Role = "Nurse"
	RoleParent Role = "Parent"
)

var allRoles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RoleParent}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	for _, r := range allRoles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid role: %q", s)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RoleParent:
		return true
	}
	return false
}

// Capability names a guarded operation.
type Capability string

const (
	CapCodeIssue          Capability = "code.issue"
	CapCodeList           Capability = "code.list"
	CapChildLink          Capability = "child.link"
	CapPortalRead         Capability = "portal.read"
	CapPatientRead        Capability = "patient.read"
	CapPatientCreate      Capability = "patient.create"
	CapPatientWrite       Capability = "patient.write"
	CapImmunizationRead   Capability = "immunization.read"
	CapImmunizationWrite  Capability = "immunization.write"
	CapImmunizationDelete Capability = "immunization.delete"
	CapVaccineRead        Capability = "vaccine.read"
	CapVaccineWrite       Capability = "vaccine.write"
	CapVaccineDelete      Capability = "vaccine.delete"
	CapAppointmentRequest Capability = "appointment.request"
	CapAppointmentManage  Capability = "appointment.manage"
	CapDashboardRead      Capability = "dashboard.read"
	CapNotificationRead   Capability = "notification.read"
)

var (
	staff    = []Role{RoleAdmin, RoleDoctor, RoleNurse}
	clinical = []Role{RoleDoctor, RoleNurse}
	everyone = allRoles
)

var capabilities = map[Capability][]Role{
	CapCodeIssue:          staff,
	CapCodeList:           staff,
	CapChildLink:          {RoleParent},
	CapPortalRead:         {RoleParent},
	CapPatientRead:        everyone,
	CapPatientCreate:      everyone,
	CapPatientWrite:       staff,
	CapImmunizationRead:   staff,
	CapImmunizationWrite:  clinical,
	CapImmunizationDelete: staff,
	CapVaccineRead:        everyone,
	CapVaccineWrite:       {RoleAdmin, RoleNurse},
	CapVaccineDelete:      {RoleAdmin},
	CapAppointmentRequest: {RoleParent},
	CapAppointmentManage:  staff,
	CapDashboardRead:      everyone,
	CapNotificationRead:   everyone,
}

// denyMessages overrides the generic message for capabilities whose
// rejection text users see often.
var denyMessages = map[Capability]string{
	CapCodeIssue: "Only healthcare staff can generate verification codes",
	CapCodeList:  "Access denied",
}

// Can reports whether role holds capability. Unknown capabilities are denied.
func Can(role Role, capability Capability) bool {
	for _, r := range capabilities[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns a Forbidden error when role lacks capability.
func Authorize(role Role, capability Capability) error {
	if Can(role, capability) {
		return nil
	}
	if msg, ok := denyMessages[capability]; ok {
		return apperr.Forbidden("%s", msg)
	}
	return apperr.Forbidden("User role %s is not authorized to access this route", role)
}

// Require returns middleware that rejects callers whose role lacks the
// capability.
func Require(capability Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return apperr.Unauthenticated("Not authorized, no token")
			}
			if err := Authorize(p.Role, capability); err != nil {
				return err
			}
			return next(c)
		}
	}
}
