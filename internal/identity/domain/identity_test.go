package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveRole_Resolution(t *testing.T) {
	// El atributo custom tiene prioridad sobre los grupos
	ident := Identity{SubjectID: "u1", Email: "u1@example.com", CustomRole: RoleAdmin}
	assert.Equal(t, RoleAdmin, ident.EffectiveRole())

	// Sin atributo, decide la pertenencia al grupo Admin
	ident = Identity{SubjectID: "u2", Email: "u2@example.com", Groups: []string{"Admin"}}
	assert.Equal(t, RoleAdmin, ident.EffectiveRole())

	// Sin atributo ni grupos: Member por defecto
	ident = Identity{SubjectID: "u3", Email: "u3@example.com"}
	assert.Equal(t, RoleMember, ident.EffectiveRole())

	// El atributo Member gana aunque el grupo diga Admin
	ident = Identity{SubjectID: "u4", Email: "u4@example.com", CustomRole: RoleMember, Groups: []string{"Admin"}}
	assert.Equal(t, RoleMember, ident.EffectiveRole())
}

func TestIsAdmin_GroupAndAttributeDisagree(t *testing.T) {
	// Cuando los claims discrepan, la pertenencia al grupo Admin sigue
	// otorgando permisos de Admin aunque el rol efectivo sea Member.
	ident := Identity{SubjectID: "u1", Email: "u1@example.com", CustomRole: RoleMember, Groups: []string{"Admin"}}
	assert.True(t, IsAdmin(ident))
	assert.True(t, IsMember(ident))
}

func TestRequireAdmin(t *testing.T) {
	admin := Identity{SubjectID: "a", Email: "a@example.com", Groups: []string{"Admin"}}
	assert.NoError(t, RequireAdmin(admin))

	member := Identity{SubjectID: "m", Email: "m@example.com", Groups: []string{"Member"}}
	assert.ErrorIs(t, RequireAdmin(member), ErrPermissionDenied)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("Admin")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	// Solo se acepta la codificación canónica, sin normalizaciones
	for _, raw := range []string{"admin", "ADMIN", " Member", "Owner", ""} {
		_, err := ParseRole(raw)
		assert.Error(t, err, "role %q should be rejected", raw)
	}
}
