// Package planner - ядро планировщика: корзины недели, порядок задач,
// сверка drag-and-drop перемещений и переходы дат. Всё чистые функции,
// без походов в хранилище.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"weekPlanner/internal/models/task"
)

var (
	ErrUnknownBucket = errors.New("неизвестная корзина")
	ErrTaskNotFound  = errors.New("задача не найдена в снимке")
	ErrAnchorLost    = errors.New("позиция вставки не найдена в корзине")
	ErrNoCustomDate  = errors.New("не передана дата для действия custom")
)

// Bucket - производная корзина задачи: конкретный календарный день
// либо Someday (задачи без даты). Идентичность дня - сама дата,
// неделя нужна только чтобы превратить индекс колонки в дату.
type Bucket struct {
	Someday bool
	Date    time.Time // нулевая для Someday
}

func SomedayBucket() Bucket {
	return Bucket{Someday: true}
}

func DayBucket(date time.Time) Bucket {
	return Bucket{Date: Normalize(date)}
}

func (b Bucket) Equal(other Bucket) bool {
	if b.Someday || other.Someday {
		return b.Someday == other.Someday
	}
	return b.Date.Equal(other.Date)
}

func (b Bucket) String() string {
	if b.Someday {
		return "someday"
	}
	return b.Date.Format("2006-01-02")
}

// Normalize отбрасывает время, оставляя полночь UTC.
// Весь планировщик сравнивает даты только по календарному дню.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Normalize(*a).Equal(Normalize(*b))
}

// BucketOf - чистая функция принадлежности: нет даты - Someday,
// иначе день календарной даты.
func BucketOf(t *task.Task) Bucket {
	if t.DueDate == nil {
		return SomedayBucket()
	}
	return DayBucket(*t.DueDate)
}

// ParseBucket разбирает идентификатор корзины из drag-метаданных:
// "someday" либо "day-N" (N от 0 до 6 относительно weekStart).
func ParseBucket(id string, weekStart time.Time) (Bucket, error) {
	if id == "someday" {
		return SomedayBucket(), nil
	}

	if rest, ok := strings.CutPrefix(id, "day-"); ok {
		idx, err := strconv.Atoi(rest)
		if err != nil || idx < 0 || idx > 6 {
			return Bucket{}, fmt.Errorf("%w: %q", ErrUnknownBucket, id)
		}
		return DayBucket(Normalize(weekStart).AddDate(0, 0, idx)), nil
	}

	return Bucket{}, fmt.Errorf("%w: %q", ErrUnknownBucket, id)
}

// BucketTasks возвращает задачи корзины, отсортированные по Order.
// Равные Order разрешаются порядком создания, затем id - после сверки
// двусмысленностей не остаётся.
func BucketTasks(b Bucket, tasks []*task.Task) []*task.Task {
	res := make([]*task.Task, 0)
	for _, t := range tasks {
		if BucketOf(t).Equal(b) {
			res = append(res, t)
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Order != res[j].Order {
			return res[i].Order < res[j].Order
		}
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID.String() < res[j].ID.String()
	})

	return res
}

// GroupByBucket раскладывает все задачи пользователя по корзинам.
// Каждая задача попадает ровно в одну корзину.
func GroupByBucket(tasks []*task.Task) map[string][]*task.Task {
	groups := make(map[string][]*task.Task)
	for _, t := range tasks {
		key := BucketOf(t).String()
		groups[key] = append(groups[key], t)
	}

	for key, b := range groups {
		groups[key] = BucketTasks(BucketOf(b[0]), tasks)
	}
	return groups
}
