package planner

import (
	"fmt"
	"time"
)

// Action - закрытый набор действий над датой задачи.
// Разбор строк из запроса происходит один раз, дальше switch по типу.
type Action int

const (
	ActionTomorrow Action = iota
	ActionNextWeek
	ActionSomeday
	ActionCustom
)

func ParseAction(s string) (Action, error) {
	switch s {
	case "tomorrow":
		return ActionTomorrow, nil
	case "nextWeek":
		return ActionNextWeek, nil
	case "someday":
		return ActionSomeday, nil
	case "custom":
		return ActionCustom, nil
	}
	return 0, fmt.Errorf("неизвестное действие %q", s)
}

func (a Action) String() string {
	switch a {
	case ActionTomorrow:
		return "tomorrow"
	case ActionNextWeek:
		return "nextWeek"
	case ActionSomeday:
		return "someday"
	case ActionCustom:
		return "custom"
	}
	return "unknown"
}

// Transition вычисляет новую дату задачи. "Сегодня" передаётся снаружи
// (серверное время), так что функция детерминирована и проверяема.
// Order задачи здесь не меняется - перестановку делает только Reconcile.
//
// tomorrow/nextWeek отсчитываются от текущей даты задачи, а для задач
// без даты - от сегодня.
func Transition(current *time.Time, action Action, custom *time.Time, today time.Time) (*time.Time, error) {
	base := Normalize(today)
	if current != nil {
		base = Normalize(*current)
	}

	switch action {
	case ActionTomorrow:
		d := base.AddDate(0, 0, 1)
		return &d, nil
	case ActionNextWeek:
		d := base.AddDate(0, 0, 7)
		return &d, nil
	case ActionSomeday:
		return nil, nil
	case ActionCustom:
		if custom == nil {
			return nil, ErrNoCustomDate
		}
		d := Normalize(*custom)
		return &d, nil
	}
	return nil, fmt.Errorf("неизвестное действие %d", action)
}
