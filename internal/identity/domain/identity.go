package domain

import (
	"errors"
)

// ---------- Errores de dominio ----------
var (
	ErrUnauthenticated  = errors.New("user is not authenticated")
	ErrPermissionDenied = errors.New("admin role required")
)

// Role es el rol efectivo de una identidad. Es un conjunto cerrado:
// toda petición autenticada se resuelve a exactamente un rol.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleMember Role = "Member"
)

// ParseRole valida la codificación canónica del rol en la frontera con el
// proveedor de identidad. No se acepta ninguna otra forma.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleMember:
		return Role(s), nil
	}
	return "", errors.New("unknown role: " + s)
}

// Identity es la identidad verificada de una petición, derivada de los
// claims del proveedor. No se persiste.
type Identity struct {
	SubjectID  string   `json:"subjectId"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Groups     []string `json:"groups"`
	CustomRole Role     `json:"customRole,omitempty"` // vacío si no viene el claim
}

// EffectiveRole deriva el rol único de la identidad: el atributo custom
// tiene prioridad, después la pertenencia a grupos, y Member por defecto.
func (i Identity) EffectiveRole() Role {
	if i.CustomRole != "" {
		return i.CustomRole
	}
	if i.inGroup(RoleAdmin) {
		return RoleAdmin
	}
	return RoleMember
}

func (i Identity) inGroup(r Role) bool {
	for _, g := range i.Groups {
		if g == string(r) {
			return true
		}
	}
	return false
}

// ---------- Política de autorización ----------
// Funciones puras sobre la identidad resuelta, sin efectos.

// IsAdmin es cierto si el rol efectivo es Admin o si la identidad
// pertenece al grupo Admin (los dos claims pueden discrepar).
func IsAdmin(i Identity) bool {
	return i.EffectiveRole() == RoleAdmin || i.inGroup(RoleAdmin)
}

// IsMember es la simétrica para Member.
func IsMember(i Identity) bool {
	return i.EffectiveRole() == RoleMember || i.inGroup(RoleMember)
}

// RequireAdmin falla con ErrPermissionDenied si la identidad no es Admin.
func RequireAdmin(i Identity) error {
	if !IsAdmin(i) {
		return ErrPermissionDenied
	}
	return nil
}
