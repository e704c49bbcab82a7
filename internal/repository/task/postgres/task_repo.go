package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"weekPlanner/internal/logger"
	"weekPlanner/internal/migrations"
	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
	repo "weekPlanner/internal/repository"
)

const slowQuery = 100 * time.Millisecond

type Storage struct {
	pool       *pgxpool.Pool
	connString string
}

type Options struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

func New(ctx context.Context, connString string, opts Options) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.IdleTimeout > 0 {
		config.MaxConnIdleTime = opts.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	// база могла ещё не подняться - пингуем с экспоненциальной паузой
	ping := func() error { return pool.Ping(ctx) }
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, connString: connString}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// Migrate применяет вшитые миграции через golang-migrate.
func (s *Storage) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}
	logger.Info("Repository: Миграции применены")
	return nil
}

func (s *Storage) MigrateDown() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка отката миграций", err)
		return fmt.Errorf("откат миграций: %w", err)
	}
	logger.Info("Repository: Миграции откачены")
	return nil
}

func (s *Storage) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	db, err := sql.Open("pgx", s.connString)
	if err != nil {
		return nil, fmt.Errorf("открытие соединения для миграций: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("драйвер миграций: %w", err)
	}

	return migrate.NewWithInstance("iofs", src, "pgx5", driver)
}

func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO tasks
				(id, user_id, title, description, completed, color, due_date, sort_order, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, t.Color, t.DueDate, t.Order, t.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать задачу", err)
		return fmt.Errorf("создание задачи: %w", err)
	}

	for _, sub := range t.Subtasks {
		_, err = tx.Exec(ctx,
			`INSERT INTO subtasks (id, task_id, title, completed, created_at) VALUES ($1, $2, $3, $4, $5)`,
			sub.ID, sub.TaskID, sub.Title, sub.Completed, sub.CreatedAt)
		if err != nil {
			logger.Error("Repository: Не удалось создать подзадачу", err)
			return fmt.Errorf("создание подзадачи: %w", err)
		}
	}

	for _, img := range t.Images {
		_, err = tx.Exec(ctx,
			`INSERT INTO task_images (id, task_id, filename, path, created_at) VALUES ($1, $2, $3, $4, $5)`,
			img.ID, img.TaskID, img.Filename, img.Path, img.CreatedAt)
		if err != nil {
			logger.Error("Repository: Не удалось создать запись картинки", err)
			return fmt.Errorf("создание картинки: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) ListByUser(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT id, user_id, title, description, completed, color, due_date, sort_order, created_at, updated_at
				FROM tasks
				WHERE user_id = $1
				ORDER BY sort_order ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachChildren(ctx, tasks); err != nil {
		return nil, err
	}

	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

func (s *Storage) GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	query := `SELECT id, user_id, title, description, completed, color, due_date, sort_order, created_at, updated_at
				FROM tasks
				WHERE id = $1 AND user_id = $2`

	t := &task.Task{}
	err := s.pool.QueryRow(ctx, query, id, userID).Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&t.Color, &t.DueDate, &t.Order, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	if err := s.attachChildren(ctx, []*task.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) Update(ctx context.Context, t *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				completed = $3,
				color = $4,
				due_date = $5,
				sort_order = $6,
				updated_at = NOW()
			WHERE id = $7 AND user_id = $8
			RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		t.Title, t.Description, t.Completed, t.Color, t.DueDate, t.Order, t.ID, t.UserID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// UpdateOrderBatch выполняет пакет в одной транзакции. Незнакомый или
// чужой id откатывает всё: клиент никогда не видит частично
// перенумерованную корзину.
func (s *Storage) UpdateOrderBatch(ctx context.Context, userID uuid.UUID, updates []planner.OrderUpdate) ([]*task.Task, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return nil, fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	res := make([]*task.Task, 0, len(updates))
	for _, upd := range updates {
		var query string
		var args []any
		if upd.DueDateSet {
			query = `UPDATE tasks
					SET sort_order = $1, due_date = $2, updated_at = NOW()
					WHERE id = $3 AND user_id = $4
					RETURNING id, user_id, title, description, completed, color, due_date, sort_order, created_at, updated_at`
			args = []any{upd.Order, upd.DueDate, upd.ID, userID}
		} else {
			query = `UPDATE tasks
					SET sort_order = $1, updated_at = NOW()
					WHERE id = $2 AND user_id = $3
					RETURNING id, user_id, title, description, completed, color, due_date, sort_order, created_at, updated_at`
			args = []any{upd.Order, upd.ID, userID}
		}

		t := &task.Task{}
		err := tx.QueryRow(ctx, query, args...).Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
			&t.Color, &t.DueDate, &t.Order, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Warn("Repository: пакет отклонён, чужой или неизвестный id",
					zap.String("task_id", upd.ID.String()))
				return nil, repo.ErrBatchRejected
			}
			logger.Error("Repository: Ошибка пакетного обновления", err)
			return nil, fmt.Errorf("пакетное обновление: %w", err)
		}
		res = append(res, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("фиксация транзакции: %w", err)
	}

	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return res, nil
}

func (s *Storage) Delete(ctx context.Context, userID, id uuid.UUID) error {
	// подзадачи и картинки уходят каскадом по внешнему ключу
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err)
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, userID uuid.UUID, query string) ([]*task.Task, error) {
	start := time.Now()

	pattern := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", `\%`), "_", `\_`) + "%"
	sqlQuery := `SELECT DISTINCT t.id, t.user_id, t.title, t.description, t.completed, t.color, t.due_date, t.sort_order, t.created_at, t.updated_at
				FROM tasks t
				LEFT JOIN subtasks s ON s.task_id = t.id
				WHERE t.user_id = $1
				  AND (t.title ILIKE $2 OR t.description ILIKE $2 OR s.title ILIKE $2)
				ORDER BY t.due_date DESC NULLS LAST`

	rows, err := s.pool.Query(ctx, sqlQuery, userID, pattern)
	if err != nil {
		logger.Error("Repository: Не удалось выполнить поиск", err)
		return nil, fmt.Errorf("поиск задач: %w", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachChildren(ctx, tasks); err != nil {
		return nil, err
	}

	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

func (s *Storage) CreateSubtask(ctx context.Context, sub *task.Subtask) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subtasks (id, task_id, title, completed, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.TaskID, sub.Title, sub.Completed, sub.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать подзадачу", err)
		return fmt.Errorf("создание подзадачи: %w", err)
	}
	return nil
}

func (s *Storage) UpdateSubtask(ctx context.Context, sub *task.Subtask) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subtasks SET title = $1, completed = $2 WHERE id = $3`,
		sub.Title, sub.Completed, sub.ID)
	if err != nil {
		logger.Error("Repository: Не удалось обновить подзадачу", err)
		return fmt.Errorf("обновление подзадачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteSubtask(ctx context.Context, subtaskID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, subtaskID)
	if err != nil {
		logger.Error("Repository: Не удалось удалить подзадачу", err)
		return fmt.Errorf("удаление подзадачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) CreateImage(ctx context.Context, img *task.Image) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_images (id, task_id, filename, path, created_at) VALUES ($1, $2, $3, $4, $5)`,
		img.ID, img.TaskID, img.Filename, img.Path, img.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать запись картинки", err)
		return fmt.Errorf("создание картинки: %w", err)
	}
	return nil
}

func (s *Storage) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM task_images WHERE id = $1`, imageID)
	if err != nil {
		logger.Error("Repository: Не удалось удалить картинку", err)
		return fmt.Errorf("удаление картинки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func scanTasks(rows pgx.Rows) ([]*task.Task, error) {
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t := &task.Task{Subtasks: []*task.Subtask{}, Images: []*task.Image{}}
		err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
			&t.Color, &t.DueDate, &t.Order, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

// attachChildren дочитывает подзадачи и картинки для пачки задач.
func (s *Storage) attachChildren(ctx context.Context, tasks []*task.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*task.Task, len(tasks))
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		if t.Subtasks == nil {
			t.Subtasks = []*task.Subtask{}
		}
		if t.Images == nil {
			t.Images = []*task.Image{}
		}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	subRows, err := s.pool.Query(ctx,
		`SELECT id, task_id, title, completed, created_at
			FROM subtasks WHERE task_id = ANY($1) ORDER BY created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("получение подзадач: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		sub := &task.Subtask{}
		if err := subRows.Scan(&sub.ID, &sub.TaskID, &sub.Title, &sub.Completed, &sub.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования подзадачи", zap.Error(err))
			continue
		}
		if parent, ok := byID[sub.TaskID]; ok {
			parent.Subtasks = append(parent.Subtasks, sub)
		}
	}
	if err := subRows.Err(); err != nil {
		return fmt.Errorf("итерация по подзадачам: %w", err)
	}

	imgRows, err := s.pool.Query(ctx,
		`SELECT id, task_id, filename, path, created_at
			FROM task_images WHERE task_id = ANY($1) ORDER BY created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("получение картинок: %w", err)
	}
	defer imgRows.Close()

	for imgRows.Next() {
		img := &task.Image{}
		if err := imgRows.Scan(&img.ID, &img.TaskID, &img.Filename, &img.Path, &img.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования картинки", zap.Error(err))
			continue
		}
		if parent, ok := byID[img.TaskID]; ok {
			parent.Images = append(parent.Images, img)
		}
	}
	return imgRows.Err()
}
