package usecase

import (
	"context"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
)

// Broadcaster публикует уведомление всем остальным вкладкам.
type Broadcaster interface {
	Publish(ctx context.Context, msg domain.Message) error
}

// Subscriber доставляет уведомления других вкладок в handler.
type Subscriber interface {
	Subscribe(ctx context.Context, h domain.MessageHandler) error
}

// OpenerNotifier — резервный ненадёжный канал к окну, открывшему админку. Ошибки не возвращаются.
type OpenerNotifier interface {
	PostMessage(ctx context.Context, msg domain.Message)
}
