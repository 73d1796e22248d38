package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidPrice is returned when the unit price is not a positive finite number.
	ErrInvalidPrice = errors.New("pricing: price must be greater than zero")
	// ErrInvalidDiscount is returned when the discount percent falls outside [0, 100].
	ErrInvalidDiscount = errors.New("pricing: discount percent must be between 0 and 100")
	// ErrInvalidMonths is returned when an installment plan has no positive month count.
	ErrInvalidMonths = errors.New("pricing: installment months must be greater than zero")
	// ErrUnknownMode is returned for a nil request or an unrecognised payment mode.
	ErrUnknownMode = errors.New("pricing: unknown payment mode")
)

// Mode identifies how the discounted price is paid.
type Mode string

const (
	// ModeOneTime pays the full discounted price at once.
	ModeOneTime Mode = "one_time"
	// ModeInstallment spreads the discounted price over equal monthly payments.
	ModeInstallment Mode = "installment"
)

// ParseMode resolves a wire value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeOneTime:
		return ModeOneTime, nil
	case ModeInstallment:
		return ModeInstallment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

// Base carries the fields shared by every payment mode.
type Base struct {
	Price           float64
	DiscountPercent float64
}

// Discounted returns the price after the percentage discount.
func (b Base) Discounted() float64 {
	return b.Price * (1 - b.DiscountPercent/100)
}

// Validate checks the shared numeric constraints.
func (b Base) Validate() error {
	if math.IsNaN(b.Price) || math.IsInf(b.Price, 0) || b.Price <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidPrice, b.Price)
	}
	if math.IsNaN(b.DiscountPercent) || b.DiscountPercent < 0 || b.DiscountPercent > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidDiscount, b.DiscountPercent)
	}
	return nil
}

// Request is a pricing request. It is implemented only by OneTime and
// Installment, so a months value cannot exist on a one-time purchase.
type Request interface {
	Mode() Mode
	base() Base
}

// OneTime is a purchase paid in full.
type OneTime struct {
	Base
}

// Mode implements Request.
func (OneTime) Mode() Mode { return ModeOneTime }

func (r OneTime) base() Base { return r.Base }

// Installment is a purchase split into Months equal payments.
type Installment struct {
	Base
	Months int
}

// Mode implements Request.
func (Installment) Mode() Mode { return ModeInstallment }

func (r Installment) base() Base { return r.Base }

// Resolve returns req as a OneTime or Installment value. Pointers to either
// are dereferenced; nil requests and nil pointers yield ErrUnknownMode.
func Resolve(req Request) (Request, error) {
	switch r := req.(type) {
	case OneTime, Installment:
		return r, nil
	case *OneTime:
		if r != nil {
			return *r, nil
		}
	case *Installment:
		if r != nil {
			return *r, nil
		}
	}
	return nil, ErrUnknownMode
}

// Validate checks the request against every constraint of its mode.
func Validate(req Request) error {
	_, err := validated(req)
	return err
}

func validated(req Request) (Request, error) {
	req, err := Resolve(req)
	if err != nil {
		return nil, err
	}
	if err := req.base().Validate(); err != nil {
		return nil, err
	}
	if in, ok := req.(Installment); ok && in.Months <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMonths, in.Months)
	}
	return req, nil
}

// ComputeTotal returns the amount due for the request: the full discounted
// price for a one-time purchase, or the monthly payment for an installment.
// The result is not rounded.
func ComputeTotal(req Request) (float64, error) {
	req, err := validated(req)
	if err != nil {
		return 0, err
	}
	discounted := req.base().Discounted()
	switch r := req.(type) {
	case OneTime:
		return discounted, nil
	case Installment:
		return discounted / float64(r.Months), nil
	default:
		return 0, ErrUnknownMode
	}
}

// DiscountedTotal returns the discounted price of the request regardless of mode.
func DiscountedTotal(req Request) (float64, error) {
	req, err := validated(req)
	if err != nil {
		return 0, err
	}
	return req.base().Discounted(), nil
}

// MonthsOf reports the installment count, or zero for a one-time purchase.
func MonthsOf(req Request) int {
	req, _ = Resolve(req)
	if in, ok := req.(Installment); ok {
		return in.Months
	}
	return 0
}
