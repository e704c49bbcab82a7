package planner

import "weekPlanner/internal/models/task"

// NextOrder - порядок для новой задачи в корзине: в конец.
// Пустая корзина начинается с нуля, как и перенумерация при сверке.
func NextOrder(bucketTasks []*task.Task) int {
	if len(bucketTasks) == 0 {
		return 0
	}

	max := bucketTasks[0].Order
	for _, t := range bucketTasks[1:] {
		if t.Order > max {
			max = t.Order
		}
	}
	return max + 1
}
