package repository

import "errors"

var (
	// ErrNotFound - задача (или дочерняя сущность) не существует
	// либо принадлежит другому пользователю. Для хранилища это одно и то же.
	ErrNotFound = errors.New("запись не найдена")

	// ErrBatchRejected - пакетное обновление порядка отклонено целиком:
	// хотя бы один id не прошёл проверку владения.
	ErrBatchRejected = errors.New("пакет обновлений отклонён")
)
