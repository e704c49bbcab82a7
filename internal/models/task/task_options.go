package task

import "time"

// TaskOption - функция частичного обновления задачи.
// nil-опции (непереданные поля запроса) просто пропускаются сервисом.
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(t *Task) {
		t.Title = title
	}
}

func WithDescription(description *string) TaskOption {
	if description == nil {
		return nil
	}
	return func(t *Task) {
		t.Description = description
	}
}

func WithCompleted(completed *bool) TaskOption {
	if completed == nil {
		return nil
	}
	return func(t *Task) {
		t.Completed = *completed
	}
}

func WithColor(color *Color) TaskOption {
	if color == nil {
		return nil
	}
	return func(t *Task) {
		t.Color = color
	}
}

func WithDueDate(dueDate *time.Time) TaskOption {
	return func(t *Task) {
		t.DueDate = dueDate
	}
}

func WithOrder(order int) TaskOption {
	return func(t *Task) {
		t.Order = order
	}
}
