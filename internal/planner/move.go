package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"weekPlanner/internal/models/task"
)

// Move - намерение перетаскивания: какую задачу, в какую корзину,
// перед какой задачей (AnchorID == uuid.Nil - в конец корзины).
type Move struct {
	TaskID   uuid.UUID
	Target   Bucket
	AnchorID uuid.UUID
}

// OrderUpdate - одна мутация пакета для шлюза хранилища.
// DueDateSet различает "не трогать дату" и "записать дату/null".
type OrderUpdate struct {
	ID         uuid.UUID
	Order      int
	DueDate    *time.Time
	DueDateSet bool
}

// Plan - итог сверки: список мутаций, применяемых одним атомарным пакетом.
// Пустой план - ничего делать не нужно (бросок задачи на саму себя).
type Plan struct {
	Updates []OrderUpdate
}

func (p Plan) Empty() bool {
	return len(p.Updates) == 0
}

// Reconcile сверяет перетаскивание со снимком задач пользователя.
// Исходная корзина выводится из самого снимка; четыре класса перемещений
// взаимоисключающие и проверяются в фиксированном порядке:
//
//  1. день -> Someday: дата обнуляется, order = 0 (отложенное - в начало)
//  2. Someday -> день: дата дня, order = 0
//  3. день -> другой день: дата нового дня, order = 0
//  4. та же корзина: перестановка с перенумерацией всей корзины 0..n-1
//
// Любая несогласованность снимка (нет задачи, нет якоря) прерывает сверку
// без единой мутации.
func Reconcile(snapshot []*task.Task, move Move) (Plan, error) {
	if move.TaskID == move.AnchorID {
		return Plan{}, nil
	}

	var active *task.Task
	for _, t := range snapshot {
		if t.ID == move.TaskID {
			active = t
			break
		}
	}
	if active == nil {
		return Plan{}, fmt.Errorf("%w: %s", ErrTaskNotFound, move.TaskID)
	}

	source := BucketOf(active)

	// классы 1-3: смена корзины, одна мутация, задача в начало
	if !source.Equal(move.Target) {
		upd := OrderUpdate{
			ID:         move.TaskID,
			Order:      0,
			DueDateSet: true,
		}
		if !move.Target.Someday {
			date := move.Target.Date
			upd.DueDate = &date
		}
		return Plan{Updates: []OrderUpdate{upd}}, nil
	}

	// класс 4: перестановка внутри корзины.
	// Вынимаем задачу, ставим её прямо перед якорем (или в конец),
	// затем перенумеровываем всю корзину подряд с нуля.
	bucketTasks := BucketTasks(source, snapshot)

	activeIdx := indexOf(bucketTasks, move.TaskID)
	if activeIdx < 0 {
		return Plan{}, fmt.Errorf("%w: %s", ErrTaskNotFound, move.TaskID)
	}

	rest := make([]*task.Task, 0, len(bucketTasks)-1)
	rest = append(rest, bucketTasks[:activeIdx]...)
	rest = append(rest, bucketTasks[activeIdx+1:]...)

	insertAt := len(rest)
	if move.AnchorID != uuid.Nil {
		insertAt = indexOf(rest, move.AnchorID)
		if insertAt < 0 {
			return Plan{}, fmt.Errorf("%w: %s", ErrAnchorLost, move.AnchorID)
		}
	}

	sequence := make([]*task.Task, 0, len(bucketTasks))
	sequence = append(sequence, rest[:insertAt]...)
	sequence = append(sequence, active)
	sequence = append(sequence, rest[insertAt:]...)

	updates := make([]OrderUpdate, 0, len(sequence))
	for i, t := range sequence {
		updates = append(updates, OrderUpdate{ID: t.ID, Order: i})
	}
	return Plan{Updates: updates}, nil
}

func indexOf(tasks []*task.Task, id uuid.UUID) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
