// Package quote turns pricing requests into presentable quotes.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Payload is the wire shape of a pricing request.
type Payload struct {
	Price           *float64 `json:"price" validate:"required"`
	DiscountPercent float64  `json:"discountPercent"`
	Mode            string   `json:"mode" validate:"required,oneof=one_time installment"`
	Months          *int     `json:"months"`
}

// Quote is the presentation of a single price computation.
type Quote struct {
	ID              string       `json:"id"`
	ProductID       string       `json:"productId,omitempty"`
	Mode            pricing.Mode `json:"mode"`
	Months          int          `json:"months,omitempty"`
	Price           float64      `json:"price"`
	DiscountPercent float64      `json:"discountPercent"`
	DiscountedTotal float64      `json:"discountedTotal"`
	Amount          float64      `json:"amount"`
	AmountMinor     int64        `json:"amountMinor"`
	Display         string       `json:"display"`
	Currency        string       `json:"currency"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// MaxMinorUnits is the largest supported number of currency decimal places.
const MaxMinorUnits = 4

// Service computes quotes.
type Service struct {
	currency   string
	minorUnits int32
	validate   *validator.Validate
	now        func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Currency   string
	MinorUnits int32
	Now        func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if len(currency) != 3 {
		return nil, errors.New("quote: currency must be a three letter code")
	}
	if cfg.MinorUnits < 0 || cfg.MinorUnits > MaxMinorUnits {
		return nil, fmt.Errorf("quote: minor units must be between 0 and %d, got %d", MaxMinorUnits, cfg.MinorUnits)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		currency:   currency,
		minorUnits: cfg.MinorUnits,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        now,
	}, nil
}

// Build converts a wire payload into a pricing request. months must be
// present for installments and absent for one-time payments.
func (s *Service) Build(p Payload) (pricing.Request, error) {
	if err := s.validate.Struct(p); err != nil {
		return nil, shapeError(err)
	}
	mode, err := pricing.ParseMode(p.Mode)
	if err != nil {
		return nil, mapPricingError(err)
	}
	base := pricing.Base{Price: *p.Price, DiscountPercent: p.DiscountPercent}
	switch mode {
	case pricing.ModeInstallment:
		if p.Months == nil {
			return nil, &common.AppError{
				Code:       "INVALID_MONTHS",
				Message:    "months is required for installment payments",
				HTTPStatus: http.StatusBadRequest,
				Details:    map[string]any{"field": "months"},
			}
		}
		return pricing.Installment{Base: base, Months: *p.Months}, nil
	default:
		if p.Months != nil {
			return nil, &common.AppError{
				Code:       "INVALID_MONTHS",
				Message:    "months must be omitted for one-time payments",
				HTTPStatus: http.StatusBadRequest,
				Details:    map[string]any{"field": "months"},
			}
		}
		return pricing.OneTime{Base: base}, nil
	}
}

// Quote runs the price computation and renders the result.
func (s *Service) Quote(ctx context.Context, req pricing.Request) (Quote, error) {
	mode := "unknown"
	if resolved, err := pricing.Resolve(req); err == nil {
		req = resolved
		mode = string(req.Mode())
	}
	ctx, span := obs.Tracer().Start(ctx, "quote.compute", trace.WithAttributes(attribute.String("pricing.mode", mode)))
	defer span.End()

	amount, err := pricing.ComputeTotal(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		obs.ObserveQuote(mode, "invalid", 0)
		zerolog.Ctx(ctx).Debug().Err(err).Str("mode", mode).Msg("quote_rejected")
		return Quote{}, mapPricingError(err)
	}
	discounted, err := pricing.DiscountedTotal(req)
	if err != nil {
		return Quote{}, mapPricingError(err)
	}
	rounded := decimal.NewFromFloat(amount).Round(s.minorUnits)
	minor := rounded.Shift(s.minorUnits)
	if !minor.BigInt().IsInt64() {
		span.SetStatus(codes.Error, "amount out of range")
		obs.ObserveQuote(mode, "invalid", 0)
		return Quote{}, &common.AppError{
			Code:       "INVALID_PRICE",
			Message:    "amount too large to represent in minor units",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"field": "price", "display": rounded.StringFixed(s.minorUnits)},
		}
	}
	obs.ObserveQuote(mode, "ok", amount)

	q := Quote{
		ID:              uuid.NewString(),
		Mode:            req.Mode(),
		Months:          pricing.MonthsOf(req),
		DiscountedTotal: discounted,
		Amount:          amount,
		AmountMinor:     minor.IntPart(),
		Display:         rounded.StringFixed(s.minorUnits),
		Currency:        s.currency,
		CreatedAt:       s.now().UTC(),
	}
	switch r := req.(type) {
	case pricing.OneTime:
		q.Price, q.DiscountPercent = r.Price, r.DiscountPercent
	case pricing.Installment:
		q.Price, q.DiscountPercent = r.Price, r.DiscountPercent
	}
	return q, nil
}

// QuotePayload is Build followed by Quote.
func (s *Service) QuotePayload(ctx context.Context, p Payload) (Quote, error) {
	req, err := s.Build(p)
	if err != nil {
		return Quote{}, err
	}
	return s.Quote(ctx, req)
}

func shapeError(err error) *common.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &common.AppError{Code: "BAD_REQUEST", Message: "invalid payload", HTTPStatus: http.StatusBadRequest, Err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldName(fe.Field()))
	}
	code := "BAD_REQUEST"
	message := "missing or invalid fields"
	if len(verrs) == 1 && verrs[0].Field() == "Mode" && verrs[0].Tag() == "oneof" {
		code = "INVALID_MODE"
		message = "mode must be one_time or installment"
	}
	return &common.AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"fields": fields},
	}
}

func fieldName(structField string) string {
	switch structField {
	case "Price":
		return "price"
	case "DiscountPercent":
		return "discountPercent"
	case "Mode":
		return "mode"
	case "Months":
		return "months"
	default:
		return strings.ToLower(structField)
	}
}

func mapPricingError(err error) *common.AppError {
	appErr := &common.AppError{HTTPStatus: http.StatusUnprocessableEntity, Err: err, Message: err.Error()}
	switch {
	case errors.Is(err, pricing.ErrInvalidPrice):
		appErr.Code = "INVALID_PRICE"
		appErr.Details = map[string]any{"field": "price"}
	case errors.Is(err, pricing.ErrInvalidDiscount):
		appErr.Code = "INVALID_DISCOUNT"
		appErr.Details = map[string]any{"field": "discountPercent"}
	case errors.Is(err, pricing.ErrInvalidMonths):
		appErr.Code = "INVALID_MONTHS"
		appErr.Details = map[string]any{"field": "months"}
	case errors.Is(err, pricing.ErrUnknownMode):
		appErr.Code = "INVALID_MODE"
		appErr.HTTPStatus = http.StatusBadRequest
		appErr.Details = map[string]any{"field": "mode"}
	default:
		appErr.Code = "INTERNAL"
		appErr.Message = "internal error"
		appErr.HTTPStatus = http.StatusInternalServerError
	}
	return appErr
}
