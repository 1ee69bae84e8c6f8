package products

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dentatrack/console/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StockAction is the direction of a stock movement.
type StockAction string

const (
	StockIn  StockAction = "IN"
	StockOut StockAction = "OUT"
)

// Product is an inventory item scoped to a clinic.
type Product struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Unit              string     `json:"unit"`
	Quantity          int        `json:"quantity"`
	LowStockThreshold int        `json:"lowStockThreshold"`
	ExpirationDate    *time.Time `json:"expirationDate,omitempty"`
	ClinicID          string     `json:"clinicId"`
	IsLowStock        bool       `json:"isLowStock,omitempty"`
}

// CreateProductData is the product-creation form.
type CreateProductData struct {
	Name              string     `json:"name" validate:"required"`
	Category          string     `json:"category" validate:"required"`
	Unit              string     `json:"unit" validate:"required"`
	Quantity          int        `json:"quantity" validate:"gte=0"`
	LowStockThreshold int        `json:"lowStockThreshold" validate:"gte=0"`
	ExpirationDate    *time.Time `json:"expirationDate,omitempty"`
	ClinicID          string     `json:"clinicId" validate:"required"`
}

// StockUpdate is a single stock movement with its audit reason.
type StockUpdate struct {
	ActionType StockAction `json:"actionType" validate:"required,oneof=IN OUT"`
	Quantity   int         `json:"quantity" validate:"gt=0"`
	Reason     string      `json:"reason" validate:"required"`
}

// Service wraps the product endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// ListByClinic retrieves every product of a clinic.
func (s *Service) ListByClinic(ctx context.Context, clinicID string) ([]Product, error) {
	var products []Product
	path := fmt.Sprintf("/products/clinic/%s", clinicID)
	if err := s.client.Get(ctx, path, &products, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.ListByClinic]")
	}
	return products, nil
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, data CreateProductData) (*Product, error) {
	if err := validate.Struct(data); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] invalid product form")
	}
	product := &Product{}
	if err := s.client.Post(ctx, "/products", data, product, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return product, nil
}

// UpdateStock applies a stock movement and returns the updated product.
func (s *Service) UpdateStock(ctx context.Context, productID string, update StockUpdate) (*Product, error) {
	if err := validate.Struct(update); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateStock] invalid stock form")
	}
	product := &Product{}
	path := fmt.Sprintf("/products/%s/stock", productID)
	if err := s.client.Post(ctx, path, update, product, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateStock]")
	}
	return product, nil
}

// LowStock lists the clinic products at or below their low-stock threshold.
func (s *Service) LowStock(ctx context.Context, clinicID string) ([]Product, error) {
	var products []Product
	path := fmt.Sprintf("/products/clinic/%s/low-stock", clinicID)
	if err := s.client.Get(ctx, path, &products, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.LowStock]")
	}
	return products, nil
}
