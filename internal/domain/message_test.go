package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	updated []ProductsUpdated
	unknown []UnknownMessage
}

func (r *recordingHandler) OnProductsUpdated(msg ProductsUpdated) { r.updated = append(r.updated, msg) }
func (r *recordingHandler) OnUnknown(msg UnknownMessage)          { r.unknown = append(r.unknown, msg) }

func TestEncodeMessage_ProductsUpdated(t *testing.T) {
	data, err := EncodeMessage(NewProductsUpdated(1700000000000, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"products_updated","timestamp":1700000000000,"count":3}`, string(data))
}

func TestEncodeMessage_WithoutCount(t *testing.T) {
	data, err := EncodeMessage(ProductsUpdated{Timestamp: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"products_updated","timestamp":42}`, string(data))
}

func TestDecodeMessage_Dispatch(t *testing.T) {
	h := &recordingHandler{}

	msg, err := DecodeMessage([]byte(`{"type":"products_updated","timestamp":5,"count":1}`))
	require.NoError(t, err)
	msg.Accept(h)

	msg, err = DecodeMessage([]byte(`{"type":"cart_updated","timestamp":6}`))
	require.NoError(t, err)
	msg.Accept(h)

	require.Len(t, h.updated, 1)
	assert.Equal(t, int64(5), h.updated[0].Timestamp)
	require.NotNil(t, h.updated[0].Count)
	assert.Equal(t, 1, *h.updated[0].Count)

	require.Len(t, h.unknown, 1)
	assert.Equal(t, "cart_updated", h.unknown[0].Type())
}

func TestDecodeMessage_Malformed(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":`))
	assert.Error(t, err)
}
