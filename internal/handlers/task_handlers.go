package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"weekPlanner/internal/auth"
	"weekPlanner/internal/handlers/dto"
	"weekPlanner/internal/logger"
	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
	"weekPlanner/internal/service"
	"weekPlanner/internal/storage"
)

const maxImageSize = 10 << 20 // 10 MiB

type TaskHandler struct {
	service Service
	files   storage.FileStore
}

func NewTaskHandler(service Service, files storage.FileStore) *TaskHandler {
	return &TaskHandler{
		service: service,
		files:   files,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.service.HealthCheck(r.Context()); err != nil {
		responseWithError(w, http.StatusServiceUnavailable, "хранилище недоступно")
		return
	}
	healthCheck(w)
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON", zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	if request.Title == "" {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "title"),
			zap.String("error", "empty_field"))
		responseWithError(w, http.StatusBadRequest, "название не может быть пустым")
		return
	}

	var dueDate *time.Time
	if request.DueDate != nil {
		parsed, err := dto.ParseDate(*request.DueDate)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		dueDate = &parsed
	}

	var color *task.Color
	if request.Color != nil {
		c := task.Color(*request.Color)
		color = &c
	}

	completed := false
	if request.Completed != nil {
		completed = *request.Completed
	}

	created, err := h.service.CreateTask(r.Context(), userID, request.Title, request.Description, color, completed, dueDate)
	if err != nil {
		h.serviceError(w, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Int("http_status", http.StatusCreated))
	responseWithJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err, "list_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("query")
	if len(query) > 100 {
		responseWithError(w, http.StatusBadRequest, "слишком длинный запрос поиска")
		return
	}

	tasks, err := h.service.SearchTasks(r.Context(), userID, query)
	if err != nil {
		h.serviceError(w, err, "search_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := h.service.GetTask(r.Context(), userID, id)
	if err != nil {
		h.serviceError(w, err, "get_task")
		return
	}
	responseWithJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON", zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления: "+err.Error())
		return
	}

	options := []task.TaskOption{
		task.WithDescription(request.Description),
		task.WithCompleted(request.Completed),
	}
	if request.Title != nil {
		options = append(options, task.WithTitle(*request.Title))
	}
	if request.Color != nil {
		c := task.Color(*request.Color)
		options = append(options, task.WithColor(&c))
	}
	if request.DueDate.Set {
		options = append(options, task.WithDueDate(request.DueDate.Time))
	}

	updated, err := h.service.UpdateTask(r.Context(), userID, id, options...)
	if err != nil {
		h.serviceError(w, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена", zap.String("task_id", id.String()))
	responseWithJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(r.Context(), userID, id); err != nil {
		h.serviceError(w, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена", zap.String("task_id", id.String()))
	responseWithJSON(w, http.StatusNoContent, nil)
}

// UpdateTasksOrder применяет готовый пакет [{id, order, dueDate?}] одной
// атомарной операцией. dueDate: null - перенос в Someday, отсутствие
// поля - дату не трогать.
func (h *TaskHandler) UpdateTasksOrder(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTasksOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON", zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	updates := make([]planner.OrderUpdate, 0, len(request.Tasks))
	for _, item := range request.Tasks {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "неверный id задачи: "+item.ID)
			return
		}

		upd := planner.OrderUpdate{ID: id, Order: item.Order, DueDateSet: item.DueDate.Set}
		if item.DueDate.Set && item.DueDate.Time != nil {
			normalized := planner.Normalize(*item.DueDate.Time)
			upd.DueDate = &normalized
		}
		updates = append(updates, upd)
	}

	updated, err := h.service.ApplyOrderBatch(r.Context(), userID, updates)
	if err != nil {
		h.serviceError(w, err, "update_tasks_order")
		return
	}

	logger.Info("HTTP_OUT: Порядок задач обновлён", zap.Int("count", len(updated)))
	responseWithJSON(w, http.StatusOK, updated)
}

// MoveTask - серверная сверка drag-and-drop намерения.
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var request dto.MoveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON", zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	taskID, err := uuid.Parse(request.TaskID)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "неверный taskId")
		return
	}

	anchorID := uuid.Nil
	if request.AnchorID != nil {
		anchorID, err = uuid.Parse(*request.AnchorID)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, "неверный anchorId")
			return
		}
	}

	weekStart, err := dto.ParseDate(request.WeekStart)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "неверный weekStart: "+err.Error())
		return
	}

	updated, err := h.service.MoveTask(r.Context(), userID, service.MoveRequest{
		TaskID:    taskID,
		TargetID:  request.Target,
		AnchorID:  anchorID,
		WeekStart: weekStart,
	})
	if err != nil {
		h.serviceError(w, err, "move_task")
		return
	}

	responseWithJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) UpdateTaskDate(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.UpdateTaskDateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON", zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	action, err := planner.ParseAction(request.Action)
	if err != nil {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "action"),
			zap.String("received", request.Action))
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var customDate *time.Time
	if request.CustomDate != nil {
		parsed, err := dto.ParseDate(*request.CustomDate)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		customDate = &parsed
	}

	updated, err := h.service.UpdateTaskDate(r.Context(), userID, id, action, customDate)
	if err != nil {
		h.serviceError(w, err, "update_task_date")
		return
	}

	logger.Info("HTTP_OUT: Дата задачи изменена",
		zap.String("task_id", id.String()),
		zap.String("action", action.String()))
	responseWithJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) DuplicateTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	clone, err := h.service.DuplicateTask(r.Context(), userID, id)
	if err != nil {
		h.serviceError(w, err, "duplicate_task")
		return
	}

	logger.Info("HTTP_OUT: Задача продублирована",
		zap.String("source_id", id.String()),
		zap.String("clone_id", clone.ID.String()))
	responseWithJSON(w, http.StatusCreated, clone)
}

func (h *TaskHandler) PostSubtask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.CreateSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	completed := false
	if request.Completed != nil {
		completed = *request.Completed
	}

	sub, err := h.service.CreateSubtask(r.Context(), userID, taskID, request.Title, completed)
	if err != nil {
		h.serviceError(w, err, "create_subtask")
		return
	}
	responseWithJSON(w, http.StatusCreated, sub)
}

func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	subtaskID, ok := h.pathID(w, r, "subtaskId")
	if !ok {
		return
	}

	var request dto.UpdateSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	sub, err := h.service.UpdateSubtask(r.Context(), userID, taskID, subtaskID, request.Title, request.Completed)
	if err != nil {
		h.serviceError(w, err, "update_subtask")
		return
	}
	responseWithJSON(w, http.StatusOK, sub)
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	subtaskID, ok := h.pathID(w, r, "subtaskId")
	if !ok {
		return
	}

	if err := h.service.DeleteSubtask(r.Context(), userID, taskID, subtaskID); err != nil {
		h.serviceError(w, err, "delete_subtask")
		return
	}
	responseWithJSON(w, http.StatusNoContent, nil)
}

// UploadImage принимает multipart-файл, кладёт байты через файловое
// хранилище и регистрирует картинку за задачей. Конвертация форматов -
// вне этого сервиса.
func (h *TaskHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		logger.Warn("HTTP: не удалось прочитать файл", zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "не удалось прочитать файл image")
		return
	}
	defer file.Close()

	filename, path, err := h.files.Save(r.Context(), header.Filename, file)
	if err != nil {
		logger.Error("HTTP: Ошибка сохранения файла", err)
		responseWithError(w, http.StatusRequestTimeout, "не удалось сохранить файл, попробуйте уменьшить размер")
		return
	}

	img, err := h.service.AddImage(r.Context(), userID, taskID, filename, path)
	if err != nil {
		h.files.Remove(path)
		h.serviceError(w, err, "add_image")
		return
	}
	responseWithJSON(w, http.StatusCreated, img)
}

func (h *TaskHandler) GetImages(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	images, err := h.service.ListImages(r.Context(), userID, taskID)
	if err != nil {
		h.serviceError(w, err, "list_images")
		return
	}
	responseWithJSON(w, http.StatusOK, images)
}

func (h *TaskHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := h.pathID(w, r, "imageId")
	if !ok {
		return
	}

	if err := h.service.DeleteImage(r.Context(), userID, taskID, imageID); err != nil {
		h.serviceError(w, err, "delete_image")
		return
	}
	responseWithJSON(w, http.StatusNoContent, nil)
}

func (h *TaskHandler) owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "пользователь не аутентифицирован")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *TaskHandler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, param)
	id, err := uuid.Parse(idParam)
	if err != nil || id == uuid.Nil {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("param", param),
			zap.String("received", idParam))
		responseWithError(w, http.StatusBadRequest, "не удалось получить "+param)
		return uuid.Nil, false
	}
	return id, true
}

func (h *TaskHandler) serviceError(w http.ResponseWriter, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: Ошибка Service", err, zap.String("operation", operation))
	responseWithError(w, http.StatusInternalServerError, err.Error())
}
