package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"weekPlanner/internal/logger"
	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
	repo "weekPlanner/internal/repository"
)

// TaskStorage - хранилище в памяти для разработки и тестов.
// Наружу отдаются только копии: вызывающий не может мутировать
// состояние в обход атомарных операций хранилища.
type TaskStorage struct {
	mtx   sync.RWMutex
	tasks map[uuid.UUID]*task.Task
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		tasks: make(map[uuid.UUID]*task.Task),
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *TaskStorage) ListByUser(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			res = append(res, cloneTask(t))
		}
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Order != res[j].Order {
			return res[i].Order < res[j].Order
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *TaskStorage) GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repo.ErrNotFound
	}
	return cloneTask(t), nil
}

func (s *TaskStorage) Update(ctx context.Context, upd *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[upd.ID]
	if !ok || existing.UserID != upd.UserID {
		return repo.ErrNotFound
	}

	now := time.Now()
	stored := cloneTask(upd)
	stored.UpdatedAt = &now
	stored.Subtasks = existing.Subtasks
	stored.Images = existing.Images
	s.tasks[upd.ID] = stored
	return nil
}

// UpdateOrderBatch применяет пакет целиком: сперва проверка владения
// каждого id, и только потом мутации. Клиент не может наблюдать
// наполовину перенумерованную корзину.
func (s *TaskStorage) UpdateOrderBatch(ctx context.Context, userID uuid.UUID, updates []planner.OrderUpdate) ([]*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, upd := range updates {
		t, ok := s.tasks[upd.ID]
		if !ok || t.UserID != userID {
			logger.Warn("Repository: пакет отклонён, чужой или неизвестный id")
			return nil, repo.ErrBatchRejected
		}
	}

	now := time.Now()
	res := make([]*task.Task, 0, len(updates))
	for _, upd := range updates {
		t := s.tasks[upd.ID]
		t.Order = upd.Order
		if upd.DueDateSet {
			t.DueDate = upd.DueDate
		}
		t.UpdatedAt = &now
		res = append(res, cloneTask(t))
	}
	return res, nil
}

func (s *TaskStorage) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return repo.ErrNotFound
	}

	// подзадачи и картинки живут внутри задачи - каскад бесплатный
	delete(s.tasks, id)
	return nil
}

func (s *TaskStorage) Search(ctx context.Context, userID uuid.UUID, query string) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	needle := strings.ToLower(query)
	res := []*task.Task{}
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if matches(t, needle) {
			res = append(res, cloneTask(t))
		}
	}

	// даты по убыванию, задачи без даты в конце
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i].DueDate, res[j].DueDate
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	return res, nil
}

func (s *TaskStorage) CreateSubtask(ctx context.Context, sub *task.Subtask) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	parent, ok := s.tasks[sub.TaskID]
	if !ok {
		return repo.ErrNotFound
	}

	c := *sub
	parent.Subtasks = append(parent.Subtasks, &c)
	return nil
}

func (s *TaskStorage) UpdateSubtask(ctx context.Context, sub *task.Subtask) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	parent, ok := s.tasks[sub.TaskID]
	if !ok {
		return repo.ErrNotFound
	}

	for i, existing := range parent.Subtasks {
		if existing.ID == sub.ID {
			c := *sub
			parent.Subtasks[i] = &c
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *TaskStorage) DeleteSubtask(ctx context.Context, subtaskID uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, parent := range s.tasks {
		for i, sub := range parent.Subtasks {
			if sub.ID == subtaskID {
				parent.Subtasks = append(parent.Subtasks[:i], parent.Subtasks[i+1:]...)
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

func (s *TaskStorage) CreateImage(ctx context.Context, img *task.Image) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	parent, ok := s.tasks[img.TaskID]
	if !ok {
		return repo.ErrNotFound
	}

	c := *img
	parent.Images = append(parent.Images, &c)
	return nil
}

func (s *TaskStorage) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, parent := range s.tasks {
		for i, img := range parent.Images {
			if img.ID == imageID {
				parent.Images = append(parent.Images[:i], parent.Images[i+1:]...)
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

func matches(t *task.Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	if t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle) {
		return true
	}
	for _, sub := range t.Subtasks {
		if strings.Contains(strings.ToLower(sub.Title), needle) {
			return true
		}
	}
	return false
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.Color != nil {
		col := *t.Color
		c.Color = &col
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}

	c.Subtasks = make([]*task.Subtask, 0, len(t.Subtasks))
	for _, sub := range t.Subtasks {
		sc := *sub
		c.Subtasks = append(c.Subtasks, &sc)
	}
	c.Images = make([]*task.Image, 0, len(t.Images))
	for _, img := range t.Images {
		ic := *img
		c.Images = append(c.Images, &ic)
	}
	return &c
}
