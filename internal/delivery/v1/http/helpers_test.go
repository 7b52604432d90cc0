package http

import (
	"net/http"
	"testing"

	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{in: "40000", want: 40000},
		{in: "0", want: 0},
		{in: "1000.00", want: 1000},
		{in: "10.5", wantErr: e.ErrPricePrecision},
		{in: "-1", wantErr: e.ErrInvalidPrice},
		{in: "1000000001", wantErr: e.ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(decimal.RequireFromString(tt.in))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriceQuery(t *testing.T) {
	got, err := parsePriceQuery("")
	require.NoError(t, err)
	assert.Equal(t, int64(maxPrice), got)

	got, err = parsePriceQuery(" 50000 ")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got)

	_, err = parsePriceQuery("cheap")
	assert.ErrorIs(t, err, e.ErrInvalidPrice)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"M2", "M3", "M1"}, splitList([]string{"M2, M3", "", "M1"}))
	assert.Empty(t, splitList(nil))
}

func TestToHTTPResponse(t *testing.T) {
	code, _ := ToHTTPResponse(e.Wrap("op", e.ErrProductNotFound))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ToHTTPResponse(e.Wrap("op", e.ErrEmptyCart))
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ToHTTPResponse(e.Wrap("op", e.ErrStorageFailure))
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, msg := ToHTTPResponse(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, e.ErrInternalServerError.Error(), msg)
}
