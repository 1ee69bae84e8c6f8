package products_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/internal/utils"
	"github.com/dentatrack/console/products"
	"github.com/dentatrack/console/session"
	"github.com/dentatrack/console/session/storefake"
)

func serviceAgainst(t *testing.T, handler http.Handler) *products.Service {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	store := storefake.NewFakeStore()
	require.NoError(t, store.Save(&session.Session{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	return products.NewService(api.New(backend.URL, store))
}

func TestListByClinic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/clinic/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c1", r.PathValue("id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]products.Product{{ID: "p1", Name: "Gloves", Quantity: 40}})
	})
	service := serviceAgainst(t, mux)

	list, err := service.ListByClinic(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Gloves", list[0].Name)
}

func TestCreate(t *testing.T) {
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) {
		var data products.CreateProductData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		require.NotNil(t, data.ExpirationDate)
		assert.True(t, expiry.Equal(*data.ExpirationDate))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(products.Product{ID: "p1", Name: data.Name, ClinicID: data.ClinicID})
	})
	service := serviceAgainst(t, mux)

	product, err := service.Create(context.Background(), products.CreateProductData{
		Name:           "Anesthetic",
		Category:       "Pharmaceuticals",
		Unit:           "vial",
		Quantity:       20,
		ExpirationDate: utils.Ptr(expiry),
		ClinicID:       "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
}

func TestCreateValidatesForm(t *testing.T) {
	service := serviceAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid form must not reach the API")
	}))

	_, err := service.Create(context.Background(), products.CreateProductData{Name: "Gloves"})
	assert.Error(t, err)

	_, err = service.Create(context.Background(), products.CreateProductData{
		Name:     "Gloves",
		Category: "Consumables",
		Unit:     "box",
		Quantity: -1,
		ClinicID: "c1",
	})
	assert.Error(t, err)
}

func TestUpdateStock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /products/{id}/stock", func(w http.ResponseWriter, r *http.Request) {
		var update products.StockUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		assert.Equal(t, products.StockOut, update.ActionType)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(products.Product{ID: r.PathValue("id"), Quantity: 35})
	})
	service := serviceAgainst(t, mux)

	product, err := service.UpdateStock(context.Background(), "p1", products.StockUpdate{
		ActionType: products.StockOut,
		Quantity:   5,
		Reason:     "daily consumption",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
	assert.Equal(t, 35, product.Quantity)
}

func TestUpdateStockValidatesForm(t *testing.T) {
	service := serviceAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid form must not reach the API")
	}))

	tests := []struct {
		name   string
		update products.StockUpdate
	}{
		{name: "unknown action", update: products.StockUpdate{ActionType: "SIDEWAYS", Quantity: 5, Reason: "x"}},
		{name: "zero quantity", update: products.StockUpdate{ActionType: products.StockIn, Quantity: 0, Reason: "x"}},
		{name: "missing reason", update: products.StockUpdate{ActionType: products.StockIn, Quantity: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdateStock(context.Background(), "p1", tt.update)
			assert.Error(t, err)
		})
	}
}

func TestLowStock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/clinic/{id}/low-stock", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]products.Product{{ID: "p1", IsLowStock: true}})
	})
	service := serviceAgainst(t, mux)

	list, err := service.LowStock(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsLowStock)
}
