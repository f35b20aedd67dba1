package http

import "github.com/gin-gonic/gin"

func RegisterUserRoutes(r *gin.Engine, handler *UserHandler, middleware ...gin.HandlerFunc) {
	users := r.Group("/users", middleware...)
	{
		users.GET("/", handler.ListUsers)
		users.GET("/:id", handler.GetUser)
	}
}
