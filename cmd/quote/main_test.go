package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/quote"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"quote"}, args...))
	return stdout.String(), err
}

func TestTotalOneTime(t *testing.T) {
	out, err := run(t, "total", "--price", "100000", "--discount", "25")
	require.NoError(t, err)
	require.Contains(t, out, "total:     75000.00 IDR")
}

func TestTotalInstallmentJSON(t *testing.T) {
	out, err := run(t, "--format", "json", "--currency", "usd", "total", "--price", "12000", "--discount", "10", "--months", "12")
	require.NoError(t, err)

	var q quote.Quote
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	require.Equal(t, "installment", string(q.Mode))
	require.Equal(t, 12, q.Months)
	require.InDelta(t, 900, q.Amount, 1e-9)
	require.Equal(t, "USD", q.Currency)
}

func TestTotalRejectsInvalidInput(t *testing.T) {
	_, err := run(t, "total", "--price", "100", "--months", "0")
	require.Error(t, err)
	require.Equal(t, 2, exitCode(err))

	_, err = run(t, "total", "--price", "100", "--discount", "150")
	require.Error(t, err)
	require.Equal(t, 2, exitCode(err))
}

func TestProductQuote(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"Kaos","price":100000}]`))
	}))
	defer upstream.Close()

	out, err := run(t, "product", "--id", "1", "--source-url", upstream.URL, "--discount", "25", "--months", "12")
	require.NoError(t, err)
	require.Contains(t, out, "product:   1")
	require.Contains(t, out, "per month: 6250.00 IDR")

	_, err = run(t, "product", "--id", "404", "--source-url", upstream.URL)
	require.Error(t, err)
	require.Equal(t, 2, exitCode(err))
}

func TestTotalRejectsUnsupportedMinorUnits(t *testing.T) {
	_, err := run(t, "--minor-units", "7", "total", "--price", "100")
	require.Error(t, err)
	require.Equal(t, 1, exitCode(err))

	out, err := run(t, "--minor-units", "4", "total", "--price", "100")
	require.NoError(t, err)
	require.Contains(t, out, "100.0000")
}
