package http

import (
	"errors"
	"net/http"

	directoryDomain "github.com/davicafu/taskboard/internal/directory/domain"
	identityDomain "github.com/davicafu/taskboard/internal/identity/domain"
	identityHTTP "github.com/davicafu/taskboard/internal/identity/infra/inbound/http"
	"github.com/davicafu/taskboard/pkg/utils"
	"github.com/gin-gonic/gin"
)

// UserHandler expone el directorio de usuarios. Solo los Admin pueden
// consultarlo: es la fuente de candidatos a asignación.
type UserHandler struct {
	directory directoryDomain.UserDirectory
}

func NewUserHandler(directory directoryDomain.UserDirectory) *UserHandler {
	return &UserHandler{directory: directory}
}

// ListUsers maneja GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}
	if err := identityDomain.RequireAdmin(ident); err != nil {
		utils.SendForbidden(c, err.Error())
		return
	}

	users, err := h.directory.ListUsers(c.Request.Context())
	if err != nil {
		utils.SendInternalServerError(c, "internal server error")
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetUser maneja GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}
	if err := identityDomain.RequireAdmin(ident); err != nil {
		utils.SendForbidden(c, err.Error())
		return
	}

	user, err := h.directory.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, directoryDomain.ErrUserNotFound) {
			utils.SendNotFound(c, err.Error())
			return
		}
		utils.SendInternalServerError(c, "internal server error")
		return
	}

	utils.SendSuccess(c, http.StatusOK, user)
}
