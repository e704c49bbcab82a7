package task

import (
	"time"

	"github.com/google/uuid"
)

// Task - основная сущность планировщика. Order имеет смысл только внутри
// своей корзины: задачи с одинаковой календарной датой DueDate, либо все
// задачи без даты ("Someday").
type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"-" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	Color       *Color     `json:"color,omitempty" db:"color"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	Order       int        `json:"order" db:"sort_order"`
	Subtasks    []*Subtask `json:"subtasks"`
	Images      []*Image   `json:"images"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// Subtask живёт только внутри своей задачи, удаляется каскадно.
type Subtask struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TaskID    uuid.UUID `json:"taskId" db:"task_id"`
	Title     string    `json:"title" db:"title"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Image struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TaskID    uuid.UUID `json:"taskId" db:"task_id"`
	Filename  string    `json:"filename" db:"filename"`
	Path      string    `json:"path" db:"path"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Color string

const ColorStandart Color = "STANDART"
const ColorRed Color = "RED"
const ColorBlue Color = "BLUE"

func (c Color) Valid() bool {
	switch c {
	case ColorStandart, ColorRed, ColorBlue:
		return true
	}
	return false
}
