package dashboard

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dentatrack/console/api"
)

// LowStockProduct is a dashboard row for a product at or below threshold.
type LowStockProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

// ExpiredProduct is a dashboard row for a product past its expiration date.
type ExpiredProduct struct {
	Name           string `json:"name"`
	ExpirationDate string `json:"expirationDate"`
}

// Stats is the aggregate clinic dashboard.
type Stats struct {
	TotalAppointments        int               `json:"totalAppointments"`
	CompletedAppointments    int               `json:"completedAppointments"`
	CanceledAppointments     int               `json:"canceledAppointments"`
	LowStockCount            int               `json:"lowStockCount"`
	ExpiredCount             int               `json:"expiredCount"`
	ConsumptionLogsThisMonth int               `json:"consumptionLogsThisMonth"`
	LowStockProducts         []LowStockProduct `json:"lowStockProducts"`
	ExpiredProducts          []ExpiredProduct  `json:"expiredProducts"`
}

// Service wraps the dashboard endpoint.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Stats retrieves the aggregate statistics for a clinic.
func (s *Service) Stats(ctx context.Context, clinicID string) (*Stats, error) {
	stats := &Stats{}
	path := fmt.Sprintf("/dashboard/clinic/%s", clinicID)
	if err := s.client.Get(ctx, path, stats, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.Stats]")
	}
	return stats, nil
}
