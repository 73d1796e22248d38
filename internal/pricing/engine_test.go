package pricing_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

func TestComputeTotalScenarios(t *testing.T) {
	cases := []struct {
		name string
		req  pricing.Request
		want float64
	}{
		{
			name: "one time quarter off",
			req:  pricing.OneTime{Base: pricing.Base{Price: 100_000, DiscountPercent: 25}},
			want: 75_000,
		},
		{
			name: "twelve month installment",
			req:  pricing.Installment{Base: pricing.Base{Price: 12_000, DiscountPercent: 10}, Months: 12},
			want: 900,
		},
		{
			name: "one time ten percent",
			req:  pricing.OneTime{Base: pricing.Base{Price: 10_000, DiscountPercent: 10}},
			want: 9_000,
		},
		{
			name: "installment quarter off",
			req:  pricing.Installment{Base: pricing.Base{Price: 100_000, DiscountPercent: 25}, Months: 12},
			want: 6_250,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pricing.ComputeTotal(tc.req)
			require.NoError(t, err)
			require.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestComputeTotalMatchesFormula(t *testing.T) {
	prices := []float64{0.01, 1, 99.99, 12_345.67, 1e9}
	discounts := []float64{0, 0.5, 12.5, 33, 50, 99.9, 100}
	months := []int{1, 2, 3, 6, 12, 24, 36}

	for _, p := range prices {
		for _, d := range discounts {
			discounted := p * (1 - d/100)

			got, err := pricing.ComputeTotal(pricing.OneTime{Base: pricing.Base{Price: p, DiscountPercent: d}})
			require.NoError(t, err)
			require.Equal(t, discounted, got)

			for _, m := range months {
				got, err := pricing.ComputeTotal(pricing.Installment{Base: pricing.Base{Price: p, DiscountPercent: d}, Months: m})
				require.NoError(t, err)
				require.Equal(t, discounted/float64(m), got)
			}
		}
	}
}

func TestComputeTotalBoundaries(t *testing.T) {
	full, err := pricing.ComputeTotal(pricing.OneTime{Base: pricing.Base{Price: 4_500}})
	require.NoError(t, err)
	require.Equal(t, 4_500.0, full)

	share, err := pricing.ComputeTotal(pricing.Installment{Base: pricing.Base{Price: 4_500}, Months: 3})
	require.NoError(t, err)
	require.Equal(t, 1_500.0, share)

	free, err := pricing.ComputeTotal(pricing.OneTime{Base: pricing.Base{Price: 4_500, DiscountPercent: 100}})
	require.NoError(t, err)
	require.Zero(t, free)

	freeShare, err := pricing.ComputeTotal(pricing.Installment{Base: pricing.Base{Price: 4_500, DiscountPercent: 100}, Months: 9})
	require.NoError(t, err)
	require.Zero(t, freeShare)
}

func TestComputeTotalIsIdempotent(t *testing.T) {
	req := pricing.Installment{Base: pricing.Base{Price: 77_777, DiscountPercent: 17}, Months: 7}
	first, err := pricing.ComputeTotal(req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = pricing.ComputeTotal(req)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, first, got)
	}
}

func TestComputeTotalValidation(t *testing.T) {
	cases := []struct {
		name string
		req  pricing.Request
		want error
	}{
		{"nil request", nil, pricing.ErrUnknownMode},
		{"zero price", pricing.OneTime{Base: pricing.Base{Price: 0}}, pricing.ErrInvalidPrice},
		{"negative price", pricing.OneTime{Base: pricing.Base{Price: -10}}, pricing.ErrInvalidPrice},
		{"nan price", pricing.OneTime{Base: pricing.Base{Price: math.NaN()}}, pricing.ErrInvalidPrice},
		{"infinite price", pricing.OneTime{Base: pricing.Base{Price: math.Inf(1)}}, pricing.ErrInvalidPrice},
		{"negative discount", pricing.OneTime{Base: pricing.Base{Price: 10, DiscountPercent: -1}}, pricing.ErrInvalidDiscount},
		{"discount over hundred", pricing.OneTime{Base: pricing.Base{Price: 10, DiscountPercent: 100.01}}, pricing.ErrInvalidDiscount},
		{"nan discount", pricing.OneTime{Base: pricing.Base{Price: 10, DiscountPercent: math.NaN()}}, pricing.ErrInvalidDiscount},
		{"zero months", pricing.Installment{Base: pricing.Base{Price: 10}, Months: 0}, pricing.ErrInvalidMonths},
		{"negative months", pricing.Installment{Base: pricing.Base{Price: 10}, Months: -3}, pricing.ErrInvalidMonths},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pricing.ComputeTotal(tc.req)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
			require.Zero(t, got)
		})
	}
}

func TestPriceIsCheckedBeforeMonths(t *testing.T) {
	_, err := pricing.ComputeTotal(pricing.Installment{Base: pricing.Base{Price: -1}, Months: 0})
	require.ErrorIs(t, err, pricing.ErrInvalidPrice)
}

func TestDiscountedTotalAndMonths(t *testing.T) {
	req := pricing.Installment{Base: pricing.Base{Price: 12_000, DiscountPercent: 10}, Months: 12}
	total, err := pricing.DiscountedTotal(req)
	require.NoError(t, err)
	require.InDelta(t, 10_800, total, 1e-9)
	require.Equal(t, 12, pricing.MonthsOf(req))
	require.Equal(t, 0, pricing.MonthsOf(pricing.OneTime{Base: req.Base}))
	require.Equal(t, pricing.ModeInstallment, req.Mode())
	require.Equal(t, pricing.ModeOneTime, pricing.OneTime{}.Mode())
}

func TestParseMode(t *testing.T) {
	mode, err := pricing.ParseMode(" Installment ")
	require.NoError(t, err)
	require.Equal(t, pricing.ModeInstallment, mode)

	mode, err = pricing.ParseMode("one_time")
	require.NoError(t, err)
	require.Equal(t, pricing.ModeOneTime, mode)

	_, err = pricing.ParseMode("layaway")
	require.ErrorIs(t, err, pricing.ErrUnknownMode)
}

func TestComputeTotalAcceptsPointerVariants(t *testing.T) {
	got, err := pricing.ComputeTotal(&pricing.OneTime{Base: pricing.Base{Price: 100, DiscountPercent: 10}})
	require.NoError(t, err)
	require.InDelta(t, 90, got, 1e-9)

	got, err = pricing.ComputeTotal(&pricing.Installment{Base: pricing.Base{Price: 120}, Months: 12})
	require.NoError(t, err)
	require.InDelta(t, 10, got, 1e-9)
	require.Equal(t, 12, pricing.MonthsOf(&pricing.Installment{Months: 12}))

	_, err = pricing.ComputeTotal(&pricing.Installment{Base: pricing.Base{Price: 120}, Months: 0})
	require.ErrorIs(t, err, pricing.ErrInvalidMonths)
}

func TestComputeTotalRejectsNilPointers(t *testing.T) {
	require.NotPanics(t, func() {
		got, err := pricing.ComputeTotal((*pricing.Installment)(nil))
		require.ErrorIs(t, err, pricing.ErrUnknownMode)
		require.Zero(t, got)

		_, err = pricing.ComputeTotal((*pricing.OneTime)(nil))
		require.ErrorIs(t, err, pricing.ErrUnknownMode)
		require.Zero(t, pricing.MonthsOf((*pricing.Installment)(nil)))
	})
}
