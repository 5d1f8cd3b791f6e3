// Package store содержит контракт документного хранилища и его реализации.
package store

import "errors"

// ErrNotFound возвращается, если документ с указанным идентификатором отсутствует.
var (
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable возвращается при недоступности хранилища. Операцию можно повторить.
	ErrUnavailable = errors.New("store unavailable")
)

// Fields содержит поля одного документа.
type Fields map[string]any

// Document описывает документ коллекции вместе с его идентификатором.
type Document struct {
	ID     string
	Fields Fields
}
