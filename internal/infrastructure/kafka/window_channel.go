package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/DRSN-tech/storefront-sync/internal/cfg"
	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/jitter"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const (
	messageIDHeader = "message-id"
	readRetryBase   = 200 * time.Millisecond
	readRetryMax    = 10 * time.Second
)

// WindowChannel — резервный канал прямых сообщений между окнами.
// Ключ сообщения — context id окна-получателя. Отправка best-effort: ошибки только логируются.
type WindowChannel struct {
	writer    *kafka.Writer
	cfg       *cfg.KafkaCfg
	logger    logger.Logger
	contextID string // id этого окна, по нему фильтруются входящие
	targetID  string // id окна, которому шлём (opener), может быть пустым

	mu      sync.Mutex
	readers []*kafka.Reader
	wg      sync.WaitGroup
	closed  bool
}

func NewWindowChannel(logger logger.Logger, cfg *cfg.KafkaCfg, contextID, targetID string) *WindowChannel {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("window channel: failed to post %d message(s): %s", len(messages), err.Error())
			}
		},
	}

	return &WindowChannel{
		writer:    writer,
		cfg:       cfg,
		logger:    logger,
		contextID: contextID,
		targetID:  targetID,
	}
}

// PostMessage отправляет сообщение окну-получателю. Если получатель не задан, ничего не делает.
func (w *WindowChannel) PostMessage(ctx context.Context, msg domain.Message) {
	if w.targetID == "" {
		return
	}

	value, err := domain.EncodeMessage(msg)
	if err != nil {
		w.logger.Warnf("window channel: %v", e.Wrap(whereami.WhereAmI(), err))
		return
	}

	err = w.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(w.targetID),
		Value:   value,
		Headers: []kafka.Header{{Key: messageIDHeader, Value: []byte(uuid.NewString())}},
	})
	if err != nil {
		w.logger.Warnf("window channel: could not notify opener %s: %v", w.targetID, err)
	}
}

// Subscribe запускает чтение сообщений, адресованных этому окну.
// Читатель на каждую партицию без consumer group, начиная с конца: история окну не нужна.
func (w *WindowChannel) Subscribe(ctx context.Context, h domain.MessageHandler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return e.ErrBusClosed
	}

	readers := make([]*kafka.Reader, 0, max(w.cfg.Partitions, 1))
	for p := range max(w.cfg.Partitions, 1) {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:   w.cfg.Brokers,
			Topic:     w.cfg.Topic,
			Partition: p,
			MaxWait:   500 * time.Millisecond,
		})
		if err := reader.SetOffset(kafka.LastOffset); err != nil {
			_ = reader.Close()
			for _, r := range readers {
				_ = r.Close()
			}
			return e.Wrap(whereami.WhereAmI(), err)
		}
		readers = append(readers, reader)
	}

	for _, reader := range readers {
		w.readers = append(w.readers, reader)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.consume(ctx, reader, h)
		}()
	}

	return nil
}

func (w *WindowChannel) consume(ctx context.Context, reader *kafka.Reader, h domain.MessageHandler) {
	failures := 0
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				w.logger.Debugf("window channel: reader stopped")
				return
			}

			delay := jitter.ExponentialBackoff(readRetryBase, readRetryMax, failures, jitter.DefaultJitter)
			failures++
			w.logger.Warnf("window channel: read failed, retry in %s: %v", delay, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		failures = 0

		if string(msg.Key) != w.contextID {
			continue
		}

		m, err := domain.DecodeMessage(msg.Value)
		if err != nil {
			w.logger.Warnf("window channel: skip malformed message: %v", err)
			continue
		}

		m.Accept(h)
	}
}

// EnsureTopic создаёт топик, если его ещё нет.
func (w *WindowChannel) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(w.cfg.NetworkMode, w.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(w.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             w.cfg.Topic,
			NumPartitions:     w.cfg.Partitions,
			ReplicationFactor: w.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", w.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, w.cfg.Topic))
	}
}

// Close останавливает читателей и дожидается отправки буфера писателя.
func (w *WindowChannel) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	readers := w.readers
	w.readers = nil
	w.mu.Unlock()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	w.wg.Wait()

	if err := w.writer.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
