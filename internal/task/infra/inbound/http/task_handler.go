// en internal/task/infra/inbound/http/task_handler.go
package http

import (
	"errors"
	"net/http"
	"time"

	identityDomain "github.com/davicafu/taskboard/internal/identity/domain"
	identityHTTP "github.com/davicafu/taskboard/internal/identity/infra/inbound/http"
	"github.com/davicafu/taskboard/internal/task/application"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/davicafu/taskboard/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskHandler traduce HTTP a casos de uso y errores de dominio a códigos.
type TaskHandler struct {
	service *application.TaskService
}

func NewTaskHandler(service *application.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// ---------------- DTOs de petición ----------------

type createTaskRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Priority    string                   `json:"priority"`
	DueDate     string                   `json:"dueDate"`
	AssignedTo  []application.AssigneeRef `json:"assignedTo"`
}

type updateTaskRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Status          *string `json:"status"`
	Priority        *string `json:"priority"`
	DueDate         *string `json:"dueDate"`
	ExpectedVersion *int64  `json:"expectedVersion"`
}

type assignTaskRequest struct {
	AssigneeID    string `json:"userId"`
	AssigneeEmail string `json:"userEmail"`
}

type closeTaskRequest struct {
	ClosureNotes string `json:"closureNotes"`
}

// ---------------- Handlers ----------------

// CreateTask maneja POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "invalid request body")
		return
	}

	task, assignments, err := h.service.CreateTask(c.Request.Context(), ident, application.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusCreated, gin.H{
		"task":        task,
		"assignments": assignments,
	})
}

// ListTasks maneja GET /tasks?status=
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), ident, c.Query("status"))
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// ListAssignedTasks maneja GET /tasks/assigned?status=
func (h *TaskHandler) ListAssignedTasks(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	views, stats, err := h.service.ListAssignedTasks(c.Request.Context(), ident, c.Query("status"))
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"tasks": views,
		"stats": stats,
	})
}

// GetTask maneja GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), ident, id)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, task)
}

// UpdateTask maneja PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "invalid request body")
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), ident, id, application.UpdateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		Priority:        req.Priority,
		DueDate:         req.DueDate,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, task)
}

// AssignTask maneja POST /tasks/:id/assignments
func (h *TaskHandler) AssignTask(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return
	}

	var req assignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "invalid request body")
		return
	}

	assignment, task, err := h.service.AssignTask(c.Request.Context(), ident, id, req.AssigneeID, req.AssigneeEmail)
	if err != nil {
		if errors.Is(err, taskDomain.ErrAssignmentExists) && assignment != nil {
			// El duplicado devuelve la asignación existente en el cuerpo.
			c.JSON(http.StatusConflict, gin.H{
				"error":      taskDomain.ErrAssignmentExists.Error(),
				"assignment": assignment,
			})
			return
		}
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusCreated, gin.H{
		"assignment": assignment,
		"task":       task,
	})
}

// ListTaskAssignments maneja GET /tasks/:id/assignments
func (h *TaskHandler) ListTaskAssignments(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}
	if err := identityDomain.RequireAdmin(ident); err != nil {
		h.sendDomainError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return
	}

	// Se comprueba primero que la tarea exista para distinguir 404 de lista vacía.
	if _, err := h.service.GetTask(c.Request.Context(), ident, id); err != nil {
		h.sendDomainError(c, err)
		return
	}

	assignments, err := h.service.ListTaskAssignments(c.Request.Context(), ident, id)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"assignments": assignments,
		"count":       len(assignments),
	})
}

// CloseTask maneja POST /tasks/:id/close
func (h *TaskHandler) CloseTask(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return
	}

	var req closeTaskRequest
	// El cuerpo es opcional: cerrar sin notas es válido.
	_ = c.ShouldBindJSON(&req)

	task, assignedCount, err := h.service.CloseTask(c.Request.Context(), ident, id, req.ClosureNotes)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"task":          task,
		"assignedUsers": assignedCount,
	})
}

// CompletionStats maneja GET /tasks/stats?start=&end=
func (h *TaskHandler) CompletionStats(c *gin.Context) {
	ident, ok := identityHTTP.FromContext(c)
	if !ok {
		utils.SendUnauthorized(c, "missing identity")
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.SendBadRequest(c, "invalid start, use RFC3339")
			return
		}
		start = parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.SendBadRequest(c, "invalid end, use RFC3339")
			return
		}
		end = parsed
	}

	avg, trend, err := h.service.CompletionStats(c.Request.Context(), ident, start, end)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"averageCompletionSeconds": avg.Seconds(),
		"dailyTrend":               trend,
	})
}

// ---------------- Mapeo de errores ----------------

// sendDomainError traduce los errores de dominio a códigos HTTP. Cualquier
// error no reconocido es un 500 con mensaje genérico.
func (h *TaskHandler) sendDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identityDomain.ErrUnauthenticated):
		utils.SendUnauthorized(c, err.Error())
	case errors.Is(err, identityDomain.ErrPermissionDenied),
		errors.Is(err, taskDomain.ErrAccessDenied):
		utils.SendForbidden(c, err.Error())
	case errors.Is(err, taskDomain.ErrTaskNotFound),
		errors.Is(err, taskDomain.ErrAssignmentNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, taskDomain.ErrAssignmentExists),
		errors.Is(err, taskDomain.ErrVersionMismatch):
		utils.SendConflict(c, err.Error())
	case errors.Is(err, taskDomain.ErrTitleRequired),
		errors.Is(err, taskDomain.ErrStatusRequired),
		errors.Is(err, taskDomain.ErrInvalidStatus),
		errors.Is(err, taskDomain.ErrInvalidPriority),
		errors.Is(err, taskDomain.ErrInvalidDueDate),
		errors.Is(err, taskDomain.ErrNoFieldsToUpdate),
		errors.Is(err, taskDomain.ErrTaskClosed),
		errors.Is(err, taskDomain.ErrAssigneeRequired):
		utils.SendBadRequest(c, err.Error())
	default:
		utils.SendInternalServerError(c, "internal server error")
	}
}
