package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weekPlanner/internal/logger"
	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
	"weekPlanner/internal/repository"
	"weekPlanner/internal/storage"
)

// Здесь бизнес-логика планировщика: проверки до похода в хранилище,
// сверка перемещений через planner и атомарная фиксация планов.

type TaskService struct {
	repo  TaskRepository
	files storage.FileStore
}

func NewTaskService(repo TaskRepository, files storage.FileStore) *TaskService {
	return &TaskService{
		repo:  repo,
		files: files,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// CreateTask кладёт новую задачу в конец её корзины:
// order = максимум по корзине + 1, для пустой корзины 0.
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, title string, description *string, color *task.Color, completed bool, dueDate *time.Time) (*task.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, NewValidationError("title", "не может быть пустым")
	}
	if color != nil && !color.Valid() {
		return nil, NewValidationError("color", "допустимы STANDART, RED, BLUE")
	}

	if dueDate != nil {
		normalized := planner.Normalize(*dueDate)
		dueDate = &normalized
	}

	snapshot, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewTransientIO("list_tasks", err)
	}

	bucket := planner.SomedayBucket()
	if dueDate != nil {
		bucket = planner.DayBucket(*dueDate)
	}

	newTask := &task.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Color:       color,
		Completed:   completed,
		DueDate:     dueDate,
		Order:       planner.NextOrder(planner.BucketTasks(bucket, snapshot)),
		Subtasks:    []*task.Subtask{},
		Images:      []*task.Image{},
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, NewTransientIO("create_task", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.ID.String()),
		zap.String("bucket", bucket.String()),
		zap.Int("order", newTask.Order))

	return newTask, nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewTransientIO("list_tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	return s.getOwned(ctx, userID, id)
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, id uuid.UUID, options ...task.TaskOption) (*task.Task, error) {
	t, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}

	if strings.TrimSpace(t.Title) == "" {
		return nil, NewValidationError("title", "не может быть пустым")
	}
	if t.Color != nil && !t.Color.Valid() {
		return nil, NewValidationError("color", "допустимы STANDART, RED, BLUE")
	}
	if t.DueDate != nil {
		normalized := planner.Normalize(*t.DueDate)
		t.DueDate = &normalized
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, NewTransientIO("update_task", err)
	}
	return t, nil
}

// DeleteTask удаляет задачу каскадно. Файлы картинок убираются с диска
// best-effort уже после удаления строк: сбой файла логируется, не фатален.
func (s *TaskService) DeleteTask(ctx context.Context, userID, id uuid.UUID) error {
	t, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("задача", id.String())
		}
		return NewTransientIO("delete_task", err)
	}

	for _, img := range t.Images {
		if err := s.files.Remove(img.Path); err != nil {
			logger.Warn("Service: файл картинки не удалён",
				zap.String("path", img.Path), zap.Error(err))
		}
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return nil
}

// MoveTask - серверная сверка drag-and-drop. Вся чистая работа происходит
// до обращения к хранилищу: ошибка разбора или несогласованность снимка не
// оставляет промежуточного состояния.
func (s *TaskService) MoveTask(ctx context.Context, userID uuid.UUID, req MoveRequest) ([]*task.Task, error) {
	target, err := planner.ParseBucket(req.TargetID, req.WeekStart)
	if err != nil {
		return nil, NewValidationError("target", err.Error())
	}

	snapshot, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewTransientIO("list_tasks", err)
	}

	plan, err := planner.Reconcile(snapshot, planner.Move{
		TaskID:   req.TaskID,
		Target:   target,
		AnchorID: req.AnchorID,
	})
	if err != nil {
		logger.Warn("Service: сверка перемещения прервана",
			zap.String("task_id", req.TaskID.String()),
			zap.String("target", req.TargetID),
			zap.Error(err))
		return nil, NewConsistencyFailure(err.Error(), err)
	}

	if plan.Empty() {
		return []*task.Task{}, nil
	}

	updated, err := s.repo.UpdateOrderBatch(ctx, userID, plan.Updates)
	if err != nil {
		return nil, s.mapBatchErr(err)
	}

	logger.Info("Service: Перемещение применено",
		zap.String("task_id", req.TaskID.String()),
		zap.String("target", target.String()),
		zap.Int("mutations", len(plan.Updates)))

	return updated, nil
}

// ApplyOrderBatch применяет готовый пакет клиента как одну атомарную
// операцию: чужой или несуществующий id отклоняет пакет целиком.
func (s *TaskService) ApplyOrderBatch(ctx context.Context, userID uuid.UUID, updates []planner.OrderUpdate) ([]*task.Task, error) {
	if len(updates) == 0 {
		return nil, NewValidationError("tasks", "пустой пакет")
	}

	updated, err := s.repo.UpdateOrderBatch(ctx, userID, updates)
	if err != nil {
		return nil, s.mapBatchErr(err)
	}
	return updated, nil
}

// UpdateTaskDate выполняет символьное действие над датой. Order задачи
// намеренно не трогается: в начало корзины задачу ставит только
// перетаскивание.
func (s *TaskService) UpdateTaskDate(ctx context.Context, userID, id uuid.UUID, action planner.Action, customDate *time.Time) (*task.Task, error) {
	t, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	newDate, err := planner.Transition(t.DueDate, action, customDate, time.Now())
	if err != nil {
		if errors.Is(err, planner.ErrNoCustomDate) {
			return nil, NewValidationError("customDate", "обязательна для действия custom")
		}
		return nil, NewValidationError("action", err.Error())
	}

	t.DueDate = newDate
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, NewTransientIO("update_task_date", err)
	}

	logger.Info("Service: Дата задачи изменена",
		zap.String("task_id", id.String()),
		zap.String("action", action.String()))

	return t, nil
}

// DuplicateTask клонирует задачу в конец её же корзины вместе с
// подзадачами и картинками. Сбой копии отдельной картинки не прерывает
// дублирование - картинка просто пропускается.
func (s *TaskService) DuplicateTask(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	original, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewTransientIO("list_tasks", err)
	}

	bucket := planner.BucketOf(original)
	clone := &task.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       original.Title + " (copy)",
		Description: original.Description,
		Color:       original.Color,
		Completed:   original.Completed,
		DueDate:     original.DueDate,
		Order:       planner.NextOrder(planner.BucketTasks(bucket, snapshot)),
		CreatedAt:   time.Now(),
	}

	for _, sub := range original.Subtasks {
		clone.Subtasks = append(clone.Subtasks, &task.Subtask{
			ID:        uuid.New(),
			TaskID:    clone.ID,
			Title:     sub.Title,
			Completed: sub.Completed,
			CreatedAt: time.Now(),
		})
	}

	var copiedPaths []string
	for _, img := range original.Images {
		filename, path, err := s.files.Copy(ctx, img.Path)
		if err != nil {
			logger.Warn("Service: картинка пропущена при дублировании",
				zap.String("task_id", id.String()),
				zap.String("image_id", img.ID.String()),
				zap.Error(err))
			continue
		}
		copiedPaths = append(copiedPaths, path)
		clone.Images = append(clone.Images, &task.Image{
			ID:        uuid.New(),
			TaskID:    clone.ID,
			Filename:  filename,
			Path:      path,
			CreatedAt: time.Now(),
		})
	}

	if err := s.repo.Create(ctx, clone); err != nil {
		// строки не записались - подчищаем уже скопированные файлы
		for _, p := range copiedPaths {
			s.files.Remove(p)
		}
		return nil, NewTransientIO("duplicate_task", err)
	}

	logger.Info("Service: Задача продублирована",
		zap.String("source_id", id.String()),
		zap.String("clone_id", clone.ID.String()),
		zap.Int("order", clone.Order))

	return clone, nil
}

// SearchTasks ищет по заголовку, описанию и заголовкам подзадач.
func (s *TaskService) SearchTasks(ctx context.Context, userID uuid.UUID, query string) ([]*task.Task, error) {
	if strings.TrimSpace(query) == "" {
		return []*task.Task{}, nil
	}

	tasks, err := s.repo.Search(ctx, userID, query)
	if err != nil {
		return nil, NewTransientIO("search_tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) CreateSubtask(ctx context.Context, userID, taskID uuid.UUID, title string, completed bool) (*task.Subtask, error) {
	if strings.TrimSpace(title) == "" {
		return nil, NewValidationError("title", "не может быть пустым")
	}

	if _, err := s.getOwned(ctx, userID, taskID); err != nil {
		return nil, err
	}

	sub := &task.Subtask{
		ID:        uuid.New(),
		TaskID:    taskID,
		Title:     title,
		Completed: completed,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateSubtask(ctx, sub); err != nil {
		return nil, NewTransientIO("create_subtask", err)
	}
	return sub, nil
}

func (s *TaskService) UpdateSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID, title *string, completed *bool) (*task.Subtask, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	sub := findSubtask(t, subtaskID)
	if sub == nil {
		return nil, NewNotFound("подзадача", subtaskID.String())
	}

	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return nil, NewValidationError("title", "не может быть пустым")
		}
		sub.Title = *title
	}
	if completed != nil {
		sub.Completed = *completed
	}

	if err := s.repo.UpdateSubtask(ctx, sub); err != nil {
		return nil, NewTransientIO("update_subtask", err)
	}
	return sub, nil
}

func (s *TaskService) DeleteSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID) error {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return err
	}

	if findSubtask(t, subtaskID) == nil {
		return NewNotFound("подзадача", subtaskID.String())
	}

	if err := s.repo.DeleteSubtask(ctx, subtaskID); err != nil {
		return NewTransientIO("delete_subtask", err)
	}
	return nil
}

func (s *TaskService) AddImage(ctx context.Context, userID, taskID uuid.UUID, filename, path string) (*task.Image, error) {
	if _, err := s.getOwned(ctx, userID, taskID); err != nil {
		return nil, err
	}

	img := &task.Image{
		ID:        uuid.New(),
		TaskID:    taskID,
		Filename:  filename,
		Path:      path,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateImage(ctx, img); err != nil {
		return nil, NewTransientIO("create_image", err)
	}
	return img, nil
}

func (s *TaskService) ListImages(ctx context.Context, userID, taskID uuid.UUID) ([]*task.Image, error) {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return t.Images, nil
}

func (s *TaskService) DeleteImage(ctx context.Context, userID, taskID, imageID uuid.UUID) error {
	t, err := s.getOwned(ctx, userID, taskID)
	if err != nil {
		return err
	}

	var img *task.Image
	for _, candidate := range t.Images {
		if candidate.ID == imageID {
			img = candidate
			break
		}
	}
	if img == nil {
		return NewNotFound("картинка", imageID.String())
	}

	if err := s.repo.DeleteImage(ctx, imageID); err != nil {
		return NewTransientIO("delete_image", err)
	}

	if err := s.files.Remove(img.Path); err != nil {
		logger.Warn("Service: файл картинки не удалён",
			zap.String("path", img.Path), zap.Error(err))
	}
	return nil
}

func (s *TaskService) getOwned(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound("задача", id.String())
		}
		return nil, NewTransientIO("get_task", fmt.Errorf("получение задачи: %w", err))
	}
	return t, nil
}

func (s *TaskService) mapBatchErr(err error) error {
	if errors.Is(err, repository.ErrBatchRejected) || errors.Is(err, repository.ErrNotFound) {
		return &BusinessError{
			Code:    "NOT_FOUND",
			Message: "Пакет отклонён: задача не найдена или не принадлежит пользователю",
			Details: map[string]any{"atomic": true},
			Err:     err,
		}
	}
	return NewTransientIO("update_order_batch", err)
}

func findSubtask(t *task.Task, id uuid.UUID) *task.Subtask {
	for _, sub := range t.Subtasks {
		if sub.ID == id {
			return sub
		}
	}
	return nil
}
