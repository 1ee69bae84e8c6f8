package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/products"
)

// Log is a single recorded stock movement.
type Log struct {
	ProductID  string               `json:"productId"`
	ActionType products.StockAction `json:"actionType"`
	Quantity   int                  `json:"quantity"`
	Reason     string               `json:"reason"`
	UserID     string               `json:"userId"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Filters narrows a log query; zero values are omitted.
type Filters struct {
	ProductID string
	UserID    string
	StartDate string
	EndDate   string
}

func (f Filters) query() map[string]string {
	q := map[string]string{}
	if f.ProductID != "" {
		q["productId"] = f.ProductID
	}
	if f.UserID != "" {
		q["userId"] = f.UserID
	}
	if f.StartDate != "" {
		q["startDate"] = f.StartDate
	}
	if f.EndDate != "" {
		q["endDate"] = f.EndDate
	}
	return q
}

// Service wraps the inventory-log endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// List retrieves the stock-movement history of a clinic.
func (s *Service) List(ctx context.Context, clinicID string, filters Filters) ([]Log, error) {
	var logs []Log
	path := fmt.Sprintf("/inventory-logs/clinic/%s", clinicID)
	if err := s.client.Get(ctx, path, &logs, filters.query()); err != nil {
		return nil, errors.Wrap(err, "[Service.List]")
	}
	return logs, nil
}

// Export returns the clinic's log history as raw CSV bytes.
func (s *Service) Export(ctx context.Context, clinicID string, filters Filters) ([]byte, error) {
	path := fmt.Sprintf("/inventory-logs/clinic/%s/export", clinicID)
	data, err := s.client.GetBytes(ctx, path, filters.query())
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Export]")
	}
	return data, nil
}
