package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts price computations by payment mode and outcome.
	QuoteTotal *prometheus.CounterVec
	// QuoteAmount observes computed amounts by payment mode.
	QuoteAmount *prometheus.HistogramVec
	// CatalogFetchTotal counts upstream catalog fetches by outcome.
	CatalogFetchTotal *prometheus.CounterVec
	// CatalogFetchLatency records upstream catalog fetch latency in milliseconds.
	CatalogFetchLatency prometheus.Histogram
	// CatalogCacheTotal counts catalog cache lookups by outcome.
	CatalogCacheTotal *prometheus.CounterVec
	// RateLimitTotal counts rate limiter decisions.
	RateLimitTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the pricing and catalog
// collectors. Collectors already present in reg are reused.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = reuseOrRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of price computations by payment mode and result.",
		}, []string{"mode", "result"}))
		QuoteAmount = reuseOrRegister(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_amount",
			Help:      "Distribution of computed amounts in major currency units.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 10),
		}, []string{"mode"}))
		CatalogFetchTotal = reuseOrRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_total",
			Help:      "Count of upstream catalog fetches by result.",
		}, []string{"result"}))
		CatalogFetchLatency = reuseOrRegister(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_duration_ms",
			Help:      "Latency for upstream catalog fetches in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}))
		CatalogCacheTotal = reuseOrRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog cache lookups by result.",
		}, []string{"result"}))
		RateLimitTotal = reuseOrRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Count of rate limiter decisions: allowed, limited or error.",
		}, []string{"decision"}))
	})
}

// ObserveQuote records the outcome of a price computation. It is a no-op until
// MustRegisterDomainMetrics has run.
func ObserveQuote(mode, result string, amount float64) {
	if QuoteTotal != nil {
		QuoteTotal.WithLabelValues(mode, result).Inc()
	}
	if result == "ok" && QuoteAmount != nil {
		QuoteAmount.WithLabelValues(mode).Observe(amount)
	}
}

// ObserveCatalogFetch records an upstream catalog fetch.
func ObserveCatalogFetch(result string, millis float64) {
	if CatalogFetchTotal != nil {
		CatalogFetchTotal.WithLabelValues(result).Inc()
	}
	if CatalogFetchLatency != nil {
		CatalogFetchLatency.Observe(millis)
	}
}

// ObserveCatalogCache records a catalog cache lookup: hit, miss or error.
func ObserveCatalogCache(result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}

func ObserveRateLimit(decision string) {
	if RateLimitTotal != nil {
		RateLimitTotal.WithLabelValues(decision).Inc()
	}
}
