package domain

import (
	"encoding/json"
	"fmt"
)

// MessageTypeProductsUpdated — тип уведомления об изменении каталога на проводе
const MessageTypeProductsUpdated = "products_updated"

// Message — закрытый набор уведомлений между вкладками.
// Новый вариант добавляется вместе с методом в MessageHandler, поэтому все подписчики
// перестают компилироваться, пока не научатся его обрабатывать.
type Message interface {
	Type() string
	Accept(h MessageHandler)
	isMessage()
}

// MessageHandler обрабатывает каждый вариант Message.
type MessageHandler interface {
	OnProductsUpdated(msg ProductsUpdated)
	OnUnknown(msg UnknownMessage)
}

// ProductsUpdated — каталог изменился. Count отсутствует в сообщениях прямого канала.
type ProductsUpdated struct {
	Timestamp int64
	Count     *int
}

// UnknownMessage — сообщение неизвестного типа. Подписчики его игнорируют.
type UnknownMessage struct {
	MessageType string
	Raw         json.RawMessage
}

func (ProductsUpdated) Type() string              { return MessageTypeProductsUpdated }
func (m ProductsUpdated) Accept(h MessageHandler) { h.OnProductsUpdated(m) }
func (ProductsUpdated) isMessage()                {}
func (m UnknownMessage) Type() string             { return m.MessageType }
func (m UnknownMessage) Accept(h MessageHandler)  { h.OnUnknown(m) }
func (UnknownMessage) isMessage()                 {}

// NewProductsUpdated создаёт уведомление с количеством товаров.
func NewProductsUpdated(timestamp int64, count int) ProductsUpdated {
	return ProductsUpdated{Timestamp: timestamp, Count: &count}
}

type wireMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Count     *int   `json:"count,omitempty"`
}

// EncodeMessage сериализует сообщение в формат {type, timestamp, count?}.
func EncodeMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case ProductsUpdated:
		return json.Marshal(wireMessage{Type: MessageTypeProductsUpdated, Timestamp: m.Timestamp, Count: m.Count})
	case UnknownMessage:
		if len(m.Raw) > 0 {
			return m.Raw, nil
		}
		return json.Marshal(wireMessage{Type: m.MessageType})
	default:
		return nil, fmt.Errorf("unsupported message %T", msg)
	}
}

// DecodeMessage разбирает сообщение. Неизвестный type даёт UnknownMessage, а не ошибку.
func DecodeMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	switch w.Type {
	case MessageTypeProductsUpdated:
		return ProductsUpdated{Timestamp: w.Timestamp, Count: w.Count}, nil
	default:
		return UnknownMessage{MessageType: w.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
