package storeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

func TestListProducts_DecodesEnvelope(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"products": [
					{"_id": "1", "slug": "ring", "name": "Ring", "images": ["a.jpg"], "price": 1200, "sale_price": 999},
					{"_id": "2", "slug": "chain", "name": "Chain", "images": [], "price": "2500.50"}
				],
				"currentPage": 2,
				"totalPages": 4,
				"totalProducts": 40
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/", time.Second)
	params := url.Values{}
	params.Set("page", "2")
	params.Set("color", "Gold,Silver")

	result, err := client.ListProducts(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "Gold,Silver", gotQuery.Get("color"))
	assert.Equal(t, 2, result.CurrentPage)
	assert.Equal(t, 4, result.TotalPages)
	assert.Equal(t, 40, result.TotalProducts)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "1", result.Products[0].ID)
	assert.Equal(t, "999", result.Products[0].EffectivePrice().String())
	assert.Equal(t, "2500.5", result.Products[1].Price.String())
}

func TestListProducts_ServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "500 with envelope", status: 500, body: `{"success":false,"message":"database down"}`, wantStatus: 500, wantMsg: "database down"},
		{name: "502 plain text", status: 502, body: `bad gateway`, wantStatus: 502, wantMsg: "bad gateway"},
		{name: "200 with success=false", status: 200, body: `{"success":false,"message":"invalid filter"}`, wantStatus: 200, wantMsg: "invalid filter"},
		{name: "200 with garbage", status: 200, body: `<html>`, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).ListProducts(context.Background(), url.Values{})

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrorTypeServer, appErr.Type)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestListProducts_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient(server.URL, time.Second).ListProducts(context.Background(), url.Values{})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNetwork), "got %v", err)
}

func TestGetProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/slug/silver-anklet":
			_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"42","slug":"silver-anklet","name":"Silver Anklet","price":799}}`))
		case "/products/42":
			_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"42","slug":"silver-anklet","name":"Silver Anklet","price":799}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"Product not found"}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	bySlug, err := client.GetProductBySlug(context.Background(), "silver-anklet")
	require.NoError(t, err)
	assert.Equal(t, "42", bySlug.ID)

	byID, err := client.GetProductByID(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Silver Anklet", byID.Name)

	_, err = client.GetProductByID(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))

	_, err = client.GetProductBySlug(context.Background(), " ")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}
