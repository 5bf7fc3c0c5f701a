package models

import "errors"

var (
	ErrNotFound     = errors.New("не найдено")
	ErrForbidden    = errors.New("нет доступа")
	ErrValidation   = errors.New("ошибка валидации")
	ErrUnauthorized = errors.New("требуется авторизация")
	ErrConflict     = errors.New("уже существует")
)
