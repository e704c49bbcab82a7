package planner_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekPlanner/internal/models/task"
	"weekPlanner/internal/planner"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func makeTask(title string, due *time.Time, order int) *task.Task {
	return &task.Task{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Title:     title,
		DueDate:   due,
		Order:     order,
		CreatedAt: time.Now(),
	}
}

func TestBucketOf(t *testing.T) {
	tests := []struct {
		name    string
		due     *time.Time
		someday bool
	}{
		{name: "без даты - Someday", due: nil, someday: true},
		{name: "с датой - день", due: datePtr(2025, 1, 10), someday: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := planner.BucketOf(makeTask("t", tt.due, 0))
			assert.Equal(t, tt.someday, b.Someday)
			if !tt.someday {
				assert.Equal(t, *tt.due, b.Date)
			}
		})
	}
}

func TestBucketOf_StripsTime(t *testing.T) {
	// время суток не участвует в идентичности корзины
	withTime := time.Date(2025, 1, 10, 18, 30, 0, 0, time.UTC)
	b := planner.BucketOf(makeTask("t", &withTime, 0))

	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), b.Date)
	assert.True(t, b.Equal(planner.DayBucket(*datePtr(2025, 1, 10))))
}

func TestParseBucket(t *testing.T) {
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // понедельник

	tests := []struct {
		name    string
		id      string
		wantErr bool
		check   func(t *testing.T, b planner.Bucket)
	}{
		{
			name: "someday",
			id:   "someday",
			check: func(t *testing.T, b planner.Bucket) {
				assert.True(t, b.Someday)
			},
		},
		{
			name: "day-0 - сам понедельник",
			id:   "day-0",
			check: func(t *testing.T, b planner.Bucket) {
				assert.Equal(t, weekStart, b.Date)
			},
		},
		{
			name: "day-4 - пятница",
			id:   "day-4",
			check: func(t *testing.T, b planner.Bucket) {
				assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), b.Date)
			},
		},
		{name: "day-7 вне недели", id: "day-7", wantErr: true},
		{name: "отрицательный индекс", id: "day--1", wantErr: true},
		{name: "мусор", id: "tuesday", wantErr: true},
		{name: "пустая строка", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := planner.ParseBucket(tt.id, weekStart)
			if tt.wantErr {
				require.ErrorIs(t, err, planner.ErrUnknownBucket)
				return
			}
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}

func TestBucketTasks_SortsAndBreaksTies(t *testing.T) {
	due := datePtr(2025, 1, 10)
	early := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	late := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	a := makeTask("a", due, 1)
	a.CreatedAt = late
	b := makeTask("b", due, 1) // тот же order - решает порядок создания
	b.CreatedAt = early
	c := makeTask("c", due, 0)
	other := makeTask("other", nil, 0)

	got := planner.BucketTasks(planner.DayBucket(*due), []*task.Task{a, b, c, other})

	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Title)
	assert.Equal(t, "b", got[1].Title)
	assert.Equal(t, "a", got[2].Title)
}

// Инвариант разбиения: каждая задача попадает ровно в одну корзину,
// объединение корзин совпадает с полным набором.
func TestGroupByBucket_Partition(t *testing.T) {
	tasks := []*task.Task{
		makeTask("mon", datePtr(2025, 1, 6), 0),
		makeTask("mon2", datePtr(2025, 1, 6), 1),
		makeTask("fri", datePtr(2025, 1, 10), 0),
		makeTask("someday1", nil, 0),
		makeTask("someday2", nil, 1),
	}

	groups := planner.GroupByBucket(tasks)

	seen := map[uuid.UUID]int{}
	total := 0
	for _, group := range groups {
		for _, item := range group {
			seen[item.ID]++
			total++
		}
	}

	assert.Equal(t, len(tasks), total)
	for _, item := range tasks {
		assert.Equal(t, 1, seen[item.ID])
	}

	assert.Len(t, groups["someday"], 2)
	assert.Len(t, groups["2025-01-06"], 2)
	assert.Len(t, groups["2025-01-10"], 1)
}

func TestNextOrder(t *testing.T) {
	due := datePtr(2025, 1, 10)

	tests := []struct {
		name  string
		tasks []*task.Task
		want  int
	}{
		{name: "пустая корзина", tasks: nil, want: 0},
		{
			name:  "в конец",
			tasks: []*task.Task{makeTask("a", due, 0), makeTask("b", due, 1)},
			want:  2,
		},
		{
			name:  "дырки в нумерации не мешают",
			tasks: []*task.Task{makeTask("a", due, 3), makeTask("b", due, 7)},
			want:  8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planner.NextOrder(tt.tasks))
		})
	}
}
