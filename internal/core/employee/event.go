package employee

import (
	"context"
	"time"
)

// EventKind はライフサイクルイベントの種別です。
type EventKind string

const (
	EventCreated EventKind = "employee.created"
	EventUpdated EventKind = "employee.updated"
	EventDeleted EventKind = "employee.deleted"
)

// Event は従業員レコードの変更を通知するイベントです。
type Event struct {
	Kind       EventKind
	Employee   *Employee
	OccurredAt time.Time
}

// EventPublisher はライフサイクルイベント配信の抽象です。
// 配信はベストエフォートであり、失敗してもレコード操作は成立します。
type EventPublisher interface {
	PublishEmployeeEvent(ctx context.Context, event Event) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) PublishEmployeeEvent(context.Context, Event) error {
	return nil
}
