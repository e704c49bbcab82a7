// Package storage - файловое хранилище картинок задач.
// Для ядра планировщика это внешний коллаборатор: байты непрозрачны,
// важны только копирование под новым именем и удаление.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"weekPlanner/internal/logger"
)

type FileStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (filename, path string, err error)
	Copy(ctx context.Context, srcPath string) (filename, path string, err error)
	Remove(path string) error
}

// LocalStore кладёт файлы на локальный диск. Копирование ограничено
// таймаутом: зависшая операция с диском не должна держать запрос.
type LocalStore struct {
	dir         string
	copyTimeout time.Duration
}

func NewLocalStore(dir string, copyTimeout time.Duration) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, copyTimeout: copyTimeout}, nil
}

func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (string, string, error) {
	ext := filepath.Ext(originalName)
	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	err := s.withTimeout(ctx, func() error {
		f, err := os.Create(filepath.Join(s.dir, filename))
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(f, r)
		return err
	})
	if err != nil {
		return "", "", fmt.Errorf("сохранение файла: %w", err)
	}

	return filename, "/" + filepath.ToSlash(filepath.Join(s.dir, filename)), nil
}

// Copy дублирует уже сохранённый файл под новой идентичностью.
func (s *LocalStore) Copy(ctx context.Context, srcPath string) (string, string, error) {
	src := strings.TrimPrefix(srcPath, "/")

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	filename := fmt.Sprintf("%s_copy_%s%s", name, uuid.New().String()[:8], ext)

	err := s.withTimeout(ctx, func() error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(filepath.Join(s.dir, filename))
		if err != nil {
			return err
		}
		defer out.Close()

		_, err = io.Copy(out, in)
		return err
	})
	if err != nil {
		return "", "", fmt.Errorf("копирование файла %s: %w", srcPath, err)
	}

	return filename, "/" + filepath.ToSlash(filepath.Join(s.dir, filename)), nil
}

// Remove убирает файл с диска. Вызывающие считают это best-effort:
// ошибка логируется, но не останавливает операцию.
func (s *LocalStore) Remove(path string) error {
	err := os.Remove(strings.TrimPrefix(path, "/"))
	if err != nil && !os.IsNotExist(err) {
		logger.Warn("Storage: не удалось удалить файл")
		return fmt.Errorf("удаление файла %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) withTimeout(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.copyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
