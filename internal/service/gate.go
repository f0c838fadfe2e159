package service

import (
	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/model"
)

// Predicate is one condition an operation requires of its caller.
type Predicate struct {
	Reason string
	Allow  func(Session) bool
}

// RequireRole matches the session role exactly. An unset role never matches.
func RequireRole(role model.Role) Predicate {
	return Predicate{
		Reason: roleReason(role),
		Allow: func(s Session) bool {
			return role != model.RoleUnset && s.Role() == role
		},
	}
}

// RequireVerified requires the stored is_verified flag.
func RequireVerified() Predicate {
	return Predicate{
		Reason: "NGO not verified",
		Allow:  func(s Session) bool { return s.User.IsVerified },
	}
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() Predicate { return RequireRole(model.RoleAdmin) }

// Authorize evaluates preds in order; all must hold. The first failing
// predicate produces a Forbidden error carrying its reason.
func Authorize(s Session, preds ...Predicate) error {
	for _, p := range preds {
		if !p.Allow(s) {
			return apperr.Forbidden(p.Reason)
		}
	}
	return nil
}

func roleReason(role model.Role) string {
	switch role {
	case model.RoleNGO:
		return "NGO only"
	case model.RoleDonor:
		return "Donor only"
	case model.RoleVolunteer:
		return "Volunteer only"
	case model.RoleAdmin:
		return "Admin only"
	}
	return "Forbidden"
}
