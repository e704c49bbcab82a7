package dto

import (
	"encoding/json"
	"fmt"
	"time"
)

// OptionalDate различает три состояния поля dueDate в запросе:
// поле отсутствует (дату не трогать), явный null (перенос в Someday)
// и конкретная дата.
type OptionalDate struct {
	Set  bool
	Time *time.Time
}

func (d *OptionalDate) UnmarshalJSON(b []byte) error {
	d.Set = true
	if string(b) == "null" {
		d.Time = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = &t
	return nil
}

// ParseDate принимает и "2006-01-02", и полный ISO-таймстамп.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("неверный формат даты %q", s)
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Color       *string      `json:"color,omitempty"`
	Completed   *bool        `json:"completed,omitempty"`
	DueDate     OptionalDate `json:"dueDate"`
}

// OrderItem - элемент пакета обновления порядка (формат зафиксирован
// существующими клиентами).
type OrderItem struct {
	ID      string       `json:"id"`
	Order   int          `json:"order"`
	DueDate OptionalDate `json:"dueDate"`
}

type UpdateTasksOrderRequest struct {
	Tasks []OrderItem `json:"tasks"`
}

// MoveTaskRequest - намерение перетаскивания: целевая корзина в виде
// идентификатора drag-метаданных ("someday" | "day-N"), якорь -
// задача на месте броска, weekStart - понедельник отображаемой недели.
type MoveTaskRequest struct {
	TaskID    string  `json:"taskId"`
	Target    string  `json:"target"`
	AnchorID  *string `json:"anchorId,omitempty"`
	WeekStart string  `json:"weekStart"`
}

type UpdateTaskDateRequest struct {
	Action     string  `json:"action"`
	CustomDate *string `json:"customDate,omitempty"`
}

type CreateSubtaskRequest struct {
	Title     string `json:"title"`
	Completed *bool  `json:"completed,omitempty"`
}

type UpdateSubtaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
