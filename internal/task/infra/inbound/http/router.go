package http

import "github.com/gin-gonic/gin"

func RegisterTaskRoutes(r *gin.Engine, handler *TaskHandler, middleware ...gin.HandlerFunc) {
	tasks := r.Group("/tasks", middleware...)
	{
		tasks.POST("/", handler.CreateTask)
		tasks.GET("/", handler.ListTasks)
		tasks.GET("/assigned", handler.ListAssignedTasks)
		tasks.GET("/stats", handler.CompletionStats)
		tasks.GET("/:id", handler.GetTask)
		tasks.PUT("/:id", handler.UpdateTask)
		tasks.POST("/:id/assignments", handler.AssignTask)
		tasks.GET("/:id/assignments", handler.ListTaskAssignments)
		tasks.POST("/:id/close", handler.CloseTask)
	}
}
