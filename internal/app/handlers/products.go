package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/online-store/internal/cart"
	"github.com/linemk/online-store/internal/domain/models"
	"github.com/linemk/online-store/internal/service"
	"github.com/linemk/online-store/internal/session"
	"github.com/linemk/online-store/internal/storage"
	"github.com/shopspring/decimal"
)

// ProductListResponse — витрина каталога: товары после фильтров, категории
// для навигации и счетчик корзины для бейджа.
type ProductListResponse struct {
	Products   []*models.Product  `json:"products"`
	Categories []*models.Category `json:"categories"`
	CartLength int                `json:"cart_length"`
}

// parseProductFilter собирает фильтры из query-параметров.
// Отсутствующий параметр — не фильтр, нечисловая цена — ошибка формы.
func parseProductFilter(r *http.Request) (storage.ProductFilter, error) {
	filter := storage.ProductFilter{
		CategorySlug: r.URL.Query().Get("category"),
		Query:        r.URL.Query().Get("q"),
		Brand:        r.URL.Query().Get("brand"),
	}

	if raw := r.URL.Query().Get("min_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errors.New("min_price must be a number")
		}
		filter.MinPrice = &price
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errors.New("max_price must be a number")
		}
		filter.MaxPrice = &price
	}
	return filter, nil
}

// ProductListHandler обрабатывает GET /products с необязательными фильтрами
// category, q, min_price, max_price, brand (все условия складываются по AND).
func ProductListHandler(log *slog.Logger, catalog service.CatalogService, engine *cart.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductListHandler"
		logger := log.With(slog.String("op", op))

		filter, err := parseProductFilter(r)
		if err != nil {
			logger.Error("invalid filter", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := ProductListResponse{
			Products:   catalog.ListProducts(r.Context(), filter),
			Categories: catalog.ListCategories(r.Context()),
		}

		if sessionID, ok := session.FromContext(r.Context()); ok {
			resp.CartLength = engine.Load(r.Context(), sessionID).Len()
		}

		writeJSON(w, logger, resp)
	}
}

// ProductDetailHandler обрабатывает GET /products/{id}.
func ProductDetailHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductDetailHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		product, err := catalog.GetProduct(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, product)
	}
}
