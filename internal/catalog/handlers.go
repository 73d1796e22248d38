package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/quote"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service      *Service
	defaultLimit int
	maxLimit     int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 || defaultLimit > maxLimit {
		defaultLimit = min(20, maxLimit)
	}
	return &Handler{service: cfg.Service, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	table, err := h.service.Products(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, h.defaultLimit, h.maxLimit)
	pg := common.Pagination{Page: page, PerPage: perPage, TotalItems: table.Len()}
	start, end := pg.Window()
	items := table.Values(end)[start:]

	w.Header().Set("X-Total-Count", strconv.Itoa(table.Len()))
	common.Page(w, items, pg)
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	p, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Quote handles POST /api/v1/products/{id}/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var in QuoteInput
	if err := quote.DecodePayload(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.service.Quote(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}
