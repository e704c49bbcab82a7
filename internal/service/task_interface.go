package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
)

// TaskRepository - шлюз хранилища. Все операции ограничены владельцем.
// UpdateOrderBatch атомарен: либо применяются все мутации, либо ни одной.
type TaskRepository interface {
	HealthCheck(ctx context.Context) error

	Create(ctx context.Context, t *task.Task) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*task.Task, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) error
	UpdateOrderBatch(ctx context.Context, userID uuid.UUID, updates []planner.OrderUpdate) ([]*task.Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Search(ctx context.Context, userID uuid.UUID, query string) ([]*task.Task, error)

	CreateSubtask(ctx context.Context, sub *task.Subtask) error
	UpdateSubtask(ctx context.Context, sub *task.Subtask) error
	DeleteSubtask(ctx context.Context, subtaskID uuid.UUID) error

	CreateImage(ctx context.Context, img *task.Image) error
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
}

// MoveRequest - намерение перетаскивания с клиента: корзины в виде
// идентификаторов drag-метаданных плюс понедельник отображаемой недели.
type MoveRequest struct {
	TaskID    uuid.UUID
	TargetID  string
	AnchorID  uuid.UUID
	WeekStart time.Time
}
