package service

import (
	"context"
	"log/slog"

	"github.com/linemk/online-store/internal/domain/models"
	"github.com/linemk/online-store/internal/storage"
)

// CatalogService отдаёт витрину каталога. Недоступность хранилища на
// читающих путях деградирует до пустой выдачи, а не до ошибки посетителю.
type CatalogService interface {
	ListProducts(ctx context.Context, filter storage.ProductFilter) []*models.Product
	ListCategories(ctx context.Context) []*models.Category
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

type catalogService struct {
	log          *slog.Logger
	productRepo  storage.ProductStorage
	categoryRepo storage.CategoryStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, categoryRepo storage.CategoryStorage) CatalogService {
	return &catalogService{
		log:          log,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter storage.ProductFilter) []*models.Product {
	const op = "service.CatalogService.ListProducts"

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products, degrading to empty result",
			slog.String("op", op), slog.Any("error", err))
		return []*models.Product{}
	}
	if products == nil {
		products = []*models.Product{}
	}
	return products
}

func (s *catalogService) ListCategories(ctx context.Context) []*models.Category {
	const op = "service.CatalogService.ListCategories"

	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories, degrading to empty result",
			slog.String("op", op), slog.Any("error", err))
		return []*models.Category{}
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return categories
}

// GetProduct в отличие от списков не деградирует: карточка товара без товара бессмысленна.
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		s.log.Warn("failed to get product", slog.String("op", op), slog.Int64("id", id), slog.Any("error", err))
		return nil, err
	}
	return product, nil
}
