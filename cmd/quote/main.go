// Command quote prices a single purchase from the command line.
//
// Usage:
//
//	quote total --price 100000 --discount 25 --months 12
//	quote product --id 1 --discount 10 --source-url https://catalog.local/products
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/fetch"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/quote"
	"github.com/noah-isme/toko-pricing/internal/resilience"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "quote",
		Usage:     "Compute discounted one-time or installment prices",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,

		ExitErrHandler: func(*cli.Context, error) {},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"OBS_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "currency",
				Value:   "IDR",
				Usage:   "ISO 4217 currency code used for display",
				EnvVars: []string{"CURRENCY_CODE"},
			},
			&cli.IntFlag{
				Name:    "minor-units",
				Value:   2,
				Usage:   "Digits after the decimal point in the display amount",
				EnvVars: []string{"CURRENCY_MINOR_UNITS"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format (text, json)",
			},
		},
		Commands: []*cli.Command{
			totalCommand(),
			productCommand(),
		},
	}
}

func pricingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    "discount",
			Aliases: []string{"d"},
			Usage:   "Discount percentage in [0, 100]",
		},
		&cli.IntFlag{
			Name:    "months",
			Aliases: []string{"m"},
			Usage:   "Installment count; omit for a one-time payment",
		},
	}
}

func totalCommand() *cli.Command {
	return &cli.Command{
		Name:  "total",
		Usage: "Price an explicit amount",
		Flags: append([]cli.Flag{
			&cli.Float64Flag{
				Name:     "price",
				Aliases:  []string{"p"},
				Usage:    "Base price before discount",
				Required: true,
			},
		}, pricingFlags()...),
		Action: runTotal,
	}
}

func productCommand() *cli.Command {
	return &cli.Command{
		Name:  "product",
		Usage: "Price a product loaded from the catalog source",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Product id in the catalog",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "source-url",
				Usage:    "URL returning the product list as JSON",
				EnvVars:  []string{"CATALOG_SOURCE_URL"},
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   3 * time.Second,
				Usage:   "Per-attempt timeout for the catalog request",
				EnvVars: []string{"OUTBOUND_TIMEOUT"},
			},
		}, pricingFlags()...),
		Action: runProduct,
	}
}

func runTotal(c *cli.Context) error {
	svc, err := newQuoteService(c)
	if err != nil {
		return err
	}
	price := c.Float64("price")
	q, err := svc.QuotePayload(withLogger(c), quote.Payload{
		Price:           &price,
		DiscountPercent: c.Float64("discount"),
		Mode:            modeOf(c),
		Months:          monthsOf(c),
	})
	if err != nil {
		return err
	}
	return render(c, q)
}

func runProduct(c *cli.Context) error {
	svc, err := newQuoteService(c)
	if err != nil {
		return err
	}
	ctx := withLogger(c)
	logger := zerolog.Ctx(ctx)
	client := fetch.NewClient(resilience.HTTPClient{
		Client:      &http.Client{},
		MaxAttempts: 2,
		BaseBackoff: 100 * time.Millisecond,
		Jitter:      0.2,
		Timeout:     c.Duration("timeout"),
		Target:      "catalog",
		Logger:      logger,
	}, *logger)
	cat, err := catalog.NewService(catalog.ServiceConfig{
		Source:    client,
		SourceURL: c.String("source-url"),
		Quotes:    svc,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	q, err := cat.Quote(ctx, c.String("id"), catalog.QuoteInput{
		DiscountPercent: c.Float64("discount"),
		Mode:            modeOf(c),
		Months:          monthsOf(c),
	})
	if err != nil {
		return err
	}
	return render(c, q)
}

func newQuoteService(c *cli.Context) (*quote.Service, error) {
	return quote.NewService(quote.ServiceConfig{
		Currency:   c.String("currency"),
		MinorUnits: int32(c.Int("minor-units")),
	})
}

func withLogger(c *cli.Context) context.Context {
	logger := obs.NewLoggerTo(c.App.ErrWriter, "console", c.String("log-level"))
	return logger.WithContext(context.Background())
}

// modeOf infers the payment mode from whether --months was given.
func modeOf(c *cli.Context) string {
	if c.IsSet("months") {
		return "installment"
	}
	return "one_time"
}

func monthsOf(c *cli.Context) *int {
	if !c.IsSet("months") {
		return nil
	}
	m := c.Int("months")
	return &m
}

func render(c *cli.Context, q quote.Quote) error {
	out := c.App.Writer
	if c.String("format") == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	}
	if q.ProductID != "" {
		fmt.Fprintf(out, "product:   %s\n", q.ProductID)
	}
	fmt.Fprintf(out, "price:     %v\n", q.Price)
	fmt.Fprintf(out, "discount:  %v%%\n", q.DiscountPercent)
	if q.Months > 0 {
		fmt.Fprintf(out, "months:    %d\n", q.Months)
		fmt.Fprintf(out, "per month: %s %s\n", q.Display, q.Currency)
		return nil
	}
	fmt.Fprintf(out, "total:     %s %s\n", q.Display, q.Currency)
	return nil
}

// exitCode maps client errors to 2 and everything else to 1.
func exitCode(err error) int {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus >= 400 && appErr.HTTPStatus < 500 {
		return 2
	}
	return 1
}
