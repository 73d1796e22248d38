package quote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/quote"
)

type quoteResponse struct {
	Data quote.Quote `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestCreateHandler(t *testing.T) {
	handler := quote.NewHandler(quote.HandlerConfig{Service: newService(t, 2)})

	cases := []struct {
		name   string
		body   string
		status int
		amount float64
		code   string
	}{
		{name: "one time", body: `{"price":10000,"discountPercent":10,"mode":"one_time"}`, status: http.StatusOK, amount: 9000},
		{name: "installment", body: `{"price":12000,"discountPercent":10,"mode":"installment","months":12}`, status: http.StatusOK, amount: 900},
		{name: "months on one time", body: `{"price":10000,"discountPercent":10,"mode":"one_time","months":3}`, status: http.StatusBadRequest, code: "INVALID_MONTHS"},
		{name: "zero months", body: `{"price":10000,"mode":"installment","months":0}`, status: http.StatusUnprocessableEntity, code: "INVALID_MONTHS"},
		{name: "negative price", body: `{"price":-5,"mode":"one_time"}`, status: http.StatusUnprocessableEntity, code: "INVALID_PRICE"},
		{name: "discount above hundred", body: `{"price":5,"discountPercent":101,"mode":"one_time"}`, status: http.StatusUnprocessableEntity, code: "INVALID_DISCOUNT"},
		{name: "unknown mode", body: `{"price":5,"mode":"barter"}`, status: http.StatusBadRequest, code: "INVALID_MODE"},
		{name: "unknown field", body: `{"price":5,"mode":"one_time","isInstallment":false}`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "malformed json", body: `{"price":`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Create(rec, req)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			if tc.status == http.StatusOK {
				var resp quoteResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				require.InDelta(t, tc.amount, resp.Data.Amount, 1e-9)
				return
			}
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestCreateHandlerWithoutService(t *testing.T) {
	handler := quote.NewHandler(quote.HandlerConfig{})
	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
