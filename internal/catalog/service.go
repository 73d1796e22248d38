package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/normalize"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/quote"
)

const (
	productsCacheKey = "products"
	refreshLockKey   = "products:refresh"
	refreshLockTTL   = 15 * time.Second
)

// Product is an upstream catalog record.
type Product struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

// UnmarshalJSON accepts numeric or string ids.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Title string          `json:"title"`
		Price float64         `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Title = raw.Title
	p.Price = raw.Price
	p.ID = ""
	id := bytes.TrimSpace(raw.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}
	if id[0] == '"' {
		return json.Unmarshal(id, &p.ID)
	}
	var n json.Number
	if err := json.Unmarshal(id, &n); err != nil {
		return fmt.Errorf("catalog: product id: %w", err)
	}
	p.ID = n.String()
	return nil
}

// Products is the normalized product table.
type Products = normalize.Table[string, Product]

// Source fetches JSON documents. *fetch.Client satisfies it.
type Source interface {
	GetJSON(ctx context.Context, url string, dst any) error
}

// Locker serialises upstream refreshes across instances. *lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service loads upstream products and quotes them.
type Service struct {
	source    Source
	sourceURL string
	cache     *Cache
	lock      Locker
	quotes    *quote.Service
	logger    zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source    Source
	SourceURL string
	Cache     *Cache
	Lock      Locker
	Quotes    *quote.Service
	Logger    *zerolog.Logger
}

// NewService constructs a catalog Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Quotes == nil {
		return nil, errors.New("catalog: quote service is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Service{
		source:    cfg.Source,
		sourceURL: strings.TrimSpace(cfg.SourceURL),
		cache:     cfg.Cache,
		lock:      cfg.Lock,
		quotes:    cfg.Quotes,
		logger:    logger.With().Str("component", "catalog").Logger(),
	}, nil
}

// Products returns the normalized product table, from cache when possible.
// With a Locker configured, only one caller refreshes from upstream at a time
// and the others pick up its cached result.
func (s *Service) Products(ctx context.Context) (Products, error) {
	if s.source == nil || s.sourceURL == "" {
		return Products{}, &common.AppError{Code: "CATALOG_UNAVAILABLE", Message: "catalog source not configured", HTTPStatus: http.StatusServiceUnavailable}
	}

	if table, ok := s.cached(ctx, true); ok {
		return table, nil
	}
	if s.lock == nil || !s.cache.enabled() {
		return s.refresh(ctx)
	}

	var table Products
	err := s.lock.WithLock(ctx, refreshLockKey, refreshLockTTL, func(ctx context.Context) error {
		if cached, ok := s.cached(ctx, false); ok {
			table = cached
			return nil
		}
		fresh, err := s.refresh(ctx)
		table = fresh
		return err
	})
	if err != nil && !common.IsAppError(err) {
		s.logger.Warn().Err(err).Msg("catalog refresh lock unavailable")
		return s.refresh(ctx)
	}
	return table, err
}

func (s *Service) cached(ctx context.Context, observe bool) (Products, bool) {
	var table Products
	hit, err := s.cache.GetJSON(ctx, productsCacheKey, &table)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	case hit:
		result = "hit"
	}
	if observe || hit {
		obs.ObserveCatalogCache(result)
	}
	return table, hit
}

func (s *Service) refresh(ctx context.Context) (Products, error) {
	start := time.Now()
	var records []Product
	if err := s.source.GetJSON(ctx, s.sourceURL, &records); err != nil {
		obs.ObserveCatalogFetch("error", obs.DurationMillis(time.Since(start)))
		return Products{}, &common.AppError{Code: "UPSTREAM_UNAVAILABLE", Message: "catalog source unavailable", HTTPStatus: http.StatusBadGateway, Err: err}
	}
	obs.ObserveCatalogFetch("ok", obs.DurationMillis(time.Since(start)))

	valid := records[:0]
	for _, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			s.logger.Warn().Str("title", rec.Title).Msg("skipping product without id")
			continue
		}
		valid = append(valid, rec)
	}
	table := normalize.ByKey(valid, func(p Product) string { return p.ID })

	if err := s.cache.SetJSON(ctx, productsCacheKey, table); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return table, nil
}

// Product returns a single product by id.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	table, err := s.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	p, ok := table.Get(strings.TrimSpace(id))
	if !ok {
		return Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Details: map[string]any{"id": id}}
	}
	return p, nil
}

// QuoteInput is a pricing request whose price comes from the catalog.
type QuoteInput struct {
	DiscountPercent float64 `json:"discountPercent"`
	Mode            string  `json:"mode"`
	Months          *int    `json:"months"`
}

// Quote prices the product identified by id.
func (s *Service) Quote(ctx context.Context, id string, in QuoteInput) (quote.Quote, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return quote.Quote{}, err
	}
	price := p.Price
	q, err := s.quotes.QuotePayload(ctx, quote.Payload{
		Price:           &price,
		DiscountPercent: in.DiscountPercent,
		Mode:            in.Mode,
		Months:          in.Months,
	})
	if err != nil {
		return quote.Quote{}, err
	}
	q.ProductID = p.ID
	return q, nil
}

// Invalidate drops the cached product table.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, productsCacheKey)
}
