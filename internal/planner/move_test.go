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

// applyPlan накатывает план на снимок, как это сделал бы шлюз хранилища.
func applyPlan(snapshot []*task.Task, plan planner.Plan) {
	byID := map[uuid.UUID]*task.Task{}
	for _, t := range snapshot {
		byID[t.ID] = t
	}
	for _, upd := range plan.Updates {
		t := byID[upd.ID]
		t.Order = upd.Order
		if upd.DueDateSet {
			t.DueDate = upd.DueDate
		}
	}
}

func sameBucketFixture() (tasks []*task.Task, due *time.Time) {
	due = datePtr(2025, 1, 8) // среда
	t1 := makeTask("T1", due, 0)
	t2 := makeTask("T2", due, 1)
	t3 := makeTask("T3", due, 2)
	return []*task.Task{t1, t2, t3}, due
}

// Перетаскивание T3 на позицию T1: [T1, T2, T3] -> [T3, T1, T2].
func TestReconcile_ReorderWithinBucket(t *testing.T) {
	tasks, due := sameBucketFixture()
	t1, t2, t3 := tasks[0], tasks[1], tasks[2]

	plan, err := planner.Reconcile(tasks, planner.Move{
		TaskID:   t3.ID,
		Target:   planner.DayBucket(*due),
		AnchorID: t1.ID,
	})
	require.NoError(t, err)
	require.Len(t, plan.Updates, 3)

	applyPlan(tasks, plan)
	assert.Equal(t, 0, t3.Order)
	assert.Equal(t, 1, t1.Order)
	assert.Equal(t, 2, t2.Order)

	// перенумерация не трогает даты
	for _, upd := range plan.Updates {
		assert.False(t, upd.DueDateSet)
	}
}

func TestReconcile_ReorderToEnd(t *testing.T) {
	tasks, due := sameBucketFixture()
	t1, t2, t3 := tasks[0], tasks[1], tasks[2]

	// без якоря - задача уходит в конец корзины
	plan, err := planner.Reconcile(tasks, planner.Move{
		TaskID: t1.ID,
		Target: planner.DayBucket(*due),
	})
	require.NoError(t, err)

	applyPlan(tasks, plan)
	assert.Equal(t, 0, t2.Order)
	assert.Equal(t, 1, t3.Order)
	assert.Equal(t, 2, t1.Order)
}

// После сверки порядок тотален: повторный идентичный запрос ничего не меняет.
func TestReconcile_Idempotent(t *testing.T) {
	tasks, due := sameBucketFixture()
	t1, t3 := tasks[0], tasks[2]

	move := planner.Move{
		TaskID:   t3.ID,
		Target:   planner.DayBucket(*due),
		AnchorID: t1.ID,
	}

	first, err := planner.Reconcile(tasks, move)
	require.NoError(t, err)
	applyPlan(tasks, first)

	second, err := planner.Reconcile(tasks, move)
	require.NoError(t, err)
	applyPlan(tasks, second)

	assert.Equal(t, first.Updates, second.Updates)
}

func TestReconcile_DayToSomeday(t *testing.T) {
	tasks, due := sameBucketFixture()
	t2 := tasks[1]
	_ = due

	plan, err := planner.Reconcile(tasks, planner.Move{
		TaskID: t2.ID,
		Target: planner.SomedayBucket(),
	})
	require.NoError(t, err)

	// ровно одна мутация: дата в null, order 0, соседи не тронуты
	require.Len(t, plan.Updates, 1)
	upd := plan.Updates[0]
	assert.Equal(t, t2.ID, upd.ID)
	assert.Equal(t, 0, upd.Order)
	assert.True(t, upd.DueDateSet)
	assert.Nil(t, upd.DueDate)
}

// Задача без даты брошена на пятницу недели с понедельником 2025-01-06:
// dueDate = 2025-01-10, order = 0.
func TestReconcile_SomedayToDay(t *testing.T) {
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	someday := makeTask("T", nil, 5)
	snapshot := []*task.Task{someday, makeTask("fri", datePtr(2025, 1, 10), 0)}

	target, err := planner.ParseBucket("day-4", weekStart)
	require.NoError(t, err)

	plan, err := planner.Reconcile(snapshot, planner.Move{
		TaskID: someday.ID,
		Target: target,
	})
	require.NoError(t, err)

	require.Len(t, plan.Updates, 1)
	upd := plan.Updates[0]
	assert.Equal(t, 0, upd.Order)
	assert.True(t, upd.DueDateSet)
	require.NotNil(t, upd.DueDate)
	assert.Equal(t, "2025-01-10", upd.DueDate.Format("2006-01-02"))
}

func TestReconcile_DayToDay(t *testing.T) {
	wed := makeTask("wed", datePtr(2025, 1, 8), 2)
	snapshot := []*task.Task{wed}

	plan, err := planner.Reconcile(snapshot, planner.Move{
		TaskID: wed.ID,
		Target: planner.DayBucket(*datePtr(2025, 1, 9)),
	})
	require.NoError(t, err)

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, 0, plan.Updates[0].Order)
	require.NotNil(t, plan.Updates[0].DueDate)
	assert.Equal(t, "2025-01-09", plan.Updates[0].DueDate.Format("2006-01-02"))
}

// День -> Someday -> тот же день: дата восстанавливается,
// order по политике "в начало", не по исходной позиции.
func TestReconcile_RoundTrip(t *testing.T) {
	tasks, due := sameBucketFixture()
	t3 := tasks[2]

	out, err := planner.Reconcile(tasks, planner.Move{
		TaskID: t3.ID,
		Target: planner.SomedayBucket(),
	})
	require.NoError(t, err)
	applyPlan(tasks, out)
	require.Nil(t, t3.DueDate)

	back, err := planner.Reconcile(tasks, planner.Move{
		TaskID: t3.ID,
		Target: planner.DayBucket(*due),
	})
	require.NoError(t, err)
	applyPlan(tasks, back)

	require.NotNil(t, t3.DueDate)
	assert.True(t, planner.SameDay(t3.DueDate, due))
	assert.Equal(t, 0, t3.Order)
}

func TestReconcile_SelfDropIsNoop(t *testing.T) {
	tasks, due := sameBucketFixture()
	t2 := tasks[1]

	plan, err := planner.Reconcile(tasks, planner.Move{
		TaskID:   t2.ID,
		Target:   planner.DayBucket(*due),
		AnchorID: t2.ID,
	})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestReconcile_ConsistencyFailures(t *testing.T) {
	tasks, due := sameBucketFixture()

	t.Run("задача отсутствует в снимке", func(t *testing.T) {
		_, err := planner.Reconcile(tasks, planner.Move{
			TaskID: uuid.New(),
			Target: planner.DayBucket(*due),
		})
		assert.ErrorIs(t, err, planner.ErrTaskNotFound)
	})

	t.Run("якорь не из этой корзины", func(t *testing.T) {
		stranger := makeTask("someday", nil, 0)
		snapshot := append(tasks, stranger)

		_, err := planner.Reconcile(snapshot, planner.Move{
			TaskID:   tasks[0].ID,
			Target:   planner.DayBucket(*due),
			AnchorID: stranger.ID,
		})
		assert.ErrorIs(t, err, planner.ErrAnchorLost)
	})
}
