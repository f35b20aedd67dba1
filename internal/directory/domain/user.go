package domain

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// User es la proyección mínima de una cuenta del proveedor de identidad que
// necesita la UI de asignación. La gestión de cuentas (alta, confirmación,
// login) queda fuera: este directorio solo lee.
type User struct {
	SubjectID string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"` // "Admin" | "Member"
}

// UserDirectory define las lecturas sobre el directorio de usuarios.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]*User, error)
	GetUser(ctx context.Context, subjectID string) (*User, error)
}
