package service

import "fmt"

// BusinessError - ошибка бизнес-логики с кодом для HTTP-слоя.
// Коды фиксированы: NOT_FOUND, VALIDATION_ERROR, CONSISTENCY_FAILURE,
// TRANSIENT_IO. Слой handlers маппит их в статусы, не переписывая вид
// ошибки (NOT_FOUND никогда не превращается в generic 500).
type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func NewNotFound(resource, id string) *BusinessError {
	return &BusinessError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{"field": field, "reason": reason},
	}
}

// NewConsistencyFailure - сверка перемещения не нашла задачу или якорь
// в свежем снимке корзины. Не ретраится автоматически.
func NewConsistencyFailure(reason string, err error) *BusinessError {
	return &BusinessError{
		Code:    "CONSISTENCY_FAILURE",
		Message: "Не удалось завершить перемещение",
		Details: map[string]any{"reason": reason},
		Err:     err,
	}
}

func NewTransientIO(operation string, err error) *BusinessError {
	return &BusinessError{
		Code:    "TRANSIENT_IO",
		Message: "Хранилище временно недоступно, попробуйте ещё раз",
		Details: map[string]any{"operation": operation},
		Err:     err,
	}
}
