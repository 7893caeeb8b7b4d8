package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

func TestDefaultViewsAreValid(t *testing.T) {
	registry, err := NewViewRegistry(DefaultViews()...)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, v := range registry.List() {
		names = append(names, v.Name)
		assert.Equal(t, DefaultPageSize, v.PageSize)
	}
	assert.Equal(t, []string{
		"shop", "bags", "silver-jewellery", "silver-jewellery-men", "silver-jewellery-women",
		"artificial-jewellery", "decoratives", "best-sellers", "ethnic-wear", "collections",
	}, names)

	silver, err := registry.Get("silver-jewellery")
	require.NoError(t, err)
	assert.Equal(t, "silver", silver.FixedParams[entities.FacetMaterialType])
}

func TestViewRegistry_RejectsInvalidViews(t *testing.T) {
	valid := DefaultViews()[0]

	tests := []struct {
		name   string
		mutate func(v *entities.ViewConfig)
	}{
		{name: "zero page size", mutate: func(v *entities.ViewConfig) { v.PageSize = 0 }},
		{name: "unknown facet", mutate: func(v *entities.ViewConfig) { v.Facets = []entities.Facet{"brand"} }},
		{name: "unknown sort", mutate: func(v *entities.ViewConfig) { v.DefaultSort = "random" }},
		{name: "inverted price bounds", mutate: func(v *entities.ViewConfig) { v.PriceMax = decimal.NewFromInt(1) }},
		{name: "missing title", mutate: func(v *entities.ViewConfig) { v.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			tt.mutate(&v)
			_, err := NewViewRegistry(v)
			assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation), "got %v", err)
		})
	}

	_, err := NewViewRegistry(valid, valid)
	assert.Error(t, err, "duplicate names")
}

func TestViewRegistry_GetUnknown(t *testing.T) {
	registry, err := NewViewRegistry(DefaultViews()...)
	require.NoError(t, err)

	_, err = registry.Get("watches")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}
