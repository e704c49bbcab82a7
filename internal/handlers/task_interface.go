package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
	"weekPlanner/internal/service"
)

type Service interface {
	HealthCheck(ctx context.Context) error

	CreateTask(ctx context.Context, userID uuid.UUID, title string, description *string, color *task.Color, completed bool, dueDate *time.Time) (*task.Task, error)
	ListTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error)
	GetTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	UpdateTask(ctx context.Context, userID, id uuid.UUID, options ...task.TaskOption) (*task.Task, error)
	DeleteTask(ctx context.Context, userID, id uuid.UUID) error

	MoveTask(ctx context.Context, userID uuid.UUID, req service.MoveRequest) ([]*task.Task, error)
	ApplyOrderBatch(ctx context.Context, userID uuid.UUID, updates []planner.OrderUpdate) ([]*task.Task, error)
	UpdateTaskDate(ctx context.Context, userID, id uuid.UUID, action planner.Action, customDate *time.Time) (*task.Task, error)
	DuplicateTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	SearchTasks(ctx context.Context, userID uuid.UUID, query string) ([]*task.Task, error)

	CreateSubtask(ctx context.Context, userID, taskID uuid.UUID, title string, completed bool) (*task.Subtask, error)
	UpdateSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID, title *string, completed *bool) (*task.Subtask, error)
	DeleteSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID) error

	AddImage(ctx context.Context, userID, taskID uuid.UUID, filename, path string) (*task.Image, error)
	ListImages(ctx context.Context, userID, taskID uuid.UUID) ([]*task.Image, error)
	DeleteImage(ctx context.Context, userID, taskID, imageID uuid.UUID) error
}
