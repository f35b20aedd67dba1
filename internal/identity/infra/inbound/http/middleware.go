package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	identityDomain "github.com/davicafu/taskboard/internal/identity/domain"
	"github.com/davicafu/taskboard/pkg/utils"
)

// El gateway de autenticación (que valida el token) inyecta los claims
// verificados en cabeceras canónicas. Este middleware es la única pieza
// que las lee; el resto del sistema trabaja con identityDomain.Identity.
const (
	HeaderSubject = "X-Auth-Subject"
	HeaderEmail   = "X-Auth-Email"
	HeaderName    = "X-Auth-Name"
	HeaderGroups  = "X-Auth-Groups" // CSV, ej. "Admin,Member"
	HeaderRole    = "X-Auth-Role"   // atributo custom:role, opcional

	identityKey = "identity"
)

// Middleware resuelve la identidad de la petición o corta con 401.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := resolve(c)
		if err != nil {
			utils.SendUnauthorized(c, err.Error())
			c.Abort()
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

func resolve(c *gin.Context) (identityDomain.Identity, error) {
	sub := c.GetHeader(HeaderSubject)
	email := c.GetHeader(HeaderEmail)
	if sub == "" || email == "" {
		return identityDomain.Identity{}, identityDomain.ErrUnauthenticated
	}

	ident := identityDomain.Identity{
		SubjectID: sub,
		Email:     email,
		Name:      c.GetHeader(HeaderName),
	}
	if ident.Name == "" {
		ident.Name = email // fallback igual que el proveedor original
	}

	if raw := c.GetHeader(HeaderGroups); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				ident.Groups = append(ident.Groups, g)
			}
		}
	}

	// La codificación del rol custom se valida aquí, en la frontera.
	// Un valor fuera del conjunto cerrado es un fallo de autenticación.
	if raw := c.GetHeader(HeaderRole); raw != "" {
		role, err := identityDomain.ParseRole(raw)
		if err != nil {
			return identityDomain.Identity{}, err
		}
		ident.CustomRole = role
	}

	return ident, nil
}

// FromContext recupera la identidad resuelta por el middleware.
func FromContext(c *gin.Context) (identityDomain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return identityDomain.Identity{}, false
	}
	ident, ok := v.(identityDomain.Identity)
	return ident, ok
}
