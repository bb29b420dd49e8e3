package employee

import (
	"errors"
	"strings"
)

var (
	ErrEmployeeNotFound   = errors.New("employee: not found")
	ErrEmailAlreadyExists = errors.New("employee: email already exists")
	ErrStorageUnavailable = errors.New("employee: storage unavailable")
	ErrArtifactWrite      = errors.New("employee: artifact write failed")
	ErrArtifactDelete     = errors.New("employee: artifact delete failed")
)

// FieldError は 1 フィールド分のバリデーションエラーです。
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError は入力バリデーションの失敗をフィールド単位で保持します。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "employee: validation failed"
	}

	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "employee: validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
