package domain

import (
	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	"github.com/google/uuid"
)

// ---------------- Implementaciones concretas ----------------

// Filtrado por ID exacto
type IDCriteria struct {
	ID uuid.UUID
}

func (c IDCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: "id", Op: sharedDomain.OpEq, Value: c.ID}}
}

// Filtrado por estado (respaldado por el índice secundario de status)
type StatusCriteria struct {
	Status TaskStatus
}

func (c StatusCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: "status", Op: sharedDomain.OpEq, Value: string(c.Status)}}
}

// Filtrado por creador exacto
type CreatedByCriteria struct {
	SubjectID string
}

func (c CreatedByCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: "created_by", Op: sharedDomain.OpEq, Value: c.SubjectID}}
}

// Filtrado por título LIKE / ILIKE
type TitleLikeCriteria struct {
	Title string
}

func (c TitleLikeCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: "title", Op: sharedDomain.OpILike, Value: "%" + c.Title + "%"}}
}
