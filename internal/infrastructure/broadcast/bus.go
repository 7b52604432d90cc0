// Package broadcast реализует широковещательный канал между вкладками поверх Redis Pub/Sub.
// Каждый экземпляр Bus — отдельный контекст исполнения со своим id; свои же сообщения он не получает.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/pkg/clients"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
)

// envelope — то, что реально уходит в канал Redis
type envelope struct {
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

type Bus struct {
	client    *clients.RedisClient
	channel   string
	contextID string
	logger    logger.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewBus создаёт шину для нового контекста исполнения на канале channel.
func NewBus(client *clients.RedisClient, channel string, logger logger.Logger) *Bus {
	contextID := uuid.NewString()
	return &Bus{
		client:    client,
		channel:   channel,
		contextID: contextID,
		logger:    logger.With("context_id", contextID, "channel", channel),
	}
}

// ContextID возвращает id контекста, которым подписаны исходящие сообщения.
func (b *Bus) ContextID() string {
	return b.contextID
}

// Publish отправляет сообщение всем остальным подписчикам канала. Доставка асинхронная,
// не более одного раза; подписчики, подключившиеся позже, сообщение не получат.
func (b *Bus) Publish(ctx context.Context, msg domain.Message) error {
	payload, err := domain.EncodeMessage(msg)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	data, err := json.Marshal(envelope{Sender: b.contextID, Payload: payload})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if b.isClosed() {
		return e.ErrBusClosed
	}

	if err := b.client.Client.Publish(ctx, b.channel, data).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	b.logger.Debugf("published %s", msg.Type())
	return nil
}

// Subscribe подписывает h на канал. Возвращается после подтверждения подписки от Redis,
// сообщения обрабатываются последовательно в отдельной горутине до отмены ctx или Close.
func (b *Bus) Subscribe(ctx context.Context, h domain.MessageHandler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return e.ErrBusClosed
	}
	subCtx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	pubsub := b.client.Client.Subscribe(subCtx, b.channel)

	// Ждём подтверждения подписки
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return e.Wrap(whereami.WhereAmI(), err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		_ = pubsub.Close()
		return e.ErrBusClosed
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				b.dispatch([]byte(m.Payload), h)
			}
		}
	}()

	return nil
}

// Close отменяет все подписки и ждёт завершения их горутин.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	b.wg.Wait()

	return nil
}

func (b *Bus) dispatch(data []byte, h domain.MessageHandler) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Warnf("skip malformed envelope: %v", err)
		return
	}

	if env.Sender == b.contextID {
		return
	}

	msg, err := domain.DecodeMessage(env.Payload)
	if err != nil {
		b.logger.Warnf("skip malformed message from %s: %v", env.Sender, err)
		return
	}

	msg.Accept(h)
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
