package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// DefaultPageSize is the number of products per listing page
const DefaultPageSize = 12

var (
	jewelleryPrice = [2]int64{100, 10000}
	lifestylePrice = [2]int64{500, 15000}
)

// ViewRegistry holds the listing pages the gateway serves
type ViewRegistry struct {
	views map[string]entities.ViewConfig
	order []string
}

// NewViewRegistry validates and registers views
func NewViewRegistry(views ...entities.ViewConfig) (*ViewRegistry, error) {
	validate := validator.New()
	r := &ViewRegistry{views: make(map[string]entities.ViewConfig, len(views))}

	for _, v := range views {
		if err := validate.Struct(v); err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid view %q: %v", v.Name, err))
		}
		if v.PriceMin.IsNegative() || v.PriceMax.LessThan(v.PriceMin) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid view %q: price bounds %s..%s", v.Name, v.PriceMin, v.PriceMax))
		}
		if _, exists := r.views[v.Name]; exists {
			return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate view %q", v.Name))
		}
		r.views[v.Name] = v
		r.order = append(r.order, v.Name)
	}
	return r, nil
}

// Get returns a view by name
func (r *ViewRegistry) Get(name string) (entities.ViewConfig, error) {
	v, ok := r.views[name]
	if !ok {
		return entities.ViewConfig{}, apperrors.NewNotFoundError(fmt.Sprintf("catalog view %q not found", name))
	}
	return v, nil
}

// List returns every view in registration order
func (r *ViewRegistry) List() []entities.ViewConfig {
	out := make([]entities.ViewConfig, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.views[name])
	}
	return out
}

// DefaultViews returns the storefront's listing pages
func DefaultViews() []entities.ViewConfig {
	jewelleryFacets := []entities.Facet{
		entities.FacetJewelleryCategory,
		entities.FacetGender,
		entities.FacetColor,
		entities.FacetTags,
	}

	return []entities.ViewConfig{
		newView("shop", "Shop All", jewelleryPrice, nil,
			entities.FacetCategory, entities.FacetGender, entities.FacetMaterialType, entities.FacetColor, entities.FacetTags),
		newView("bags", "Bags", lifestylePrice,
			map[entities.Facet]string{entities.FacetCategory: "Bags"},
			entities.FacetGender, entities.FacetColor, entities.FacetTags),
		newView("silver-jewellery", "Silver Jewellery", jewelleryPrice,
			map[entities.Facet]string{entities.FacetMaterialType: "silver"},
			jewelleryFacets...),
		newView("silver-jewellery-men", "Silver Jewellery for Men", jewelleryPrice,
			map[entities.Facet]string{entities.FacetMaterialType: "silver", entities.FacetGender: "Men"},
			entities.FacetJewelleryCategory, entities.FacetColor, entities.FacetTags),
		newView("silver-jewellery-women", "Silver Jewellery for Women", jewelleryPrice,
			map[entities.Facet]string{entities.FacetMaterialType: "silver", entities.FacetGender: "Women"},
			entities.FacetJewelleryCategory, entities.FacetColor, entities.FacetTags),
		newView("artificial-jewellery", "Artificial Jewellery", jewelleryPrice,
			map[entities.Facet]string{entities.FacetMaterialType: "artificial"},
			jewelleryFacets...),
		newView("decoratives", "Decoratives", lifestylePrice,
			map[entities.Facet]string{entities.FacetCategory: "Decoratives"},
			entities.FacetColor, entities.FacetTags),
		newView("best-sellers", "Best Sellers", jewelleryPrice,
			map[entities.Facet]string{entities.FacetTags: "bestseller"},
			entities.FacetCategory, entities.FacetGender, entities.FacetMaterialType),
		newView("ethnic-wear", "Ethnic Wear", lifestylePrice,
			map[entities.Facet]string{entities.FacetCategory: "Ethnic Wear"},
			entities.FacetGender, entities.FacetColor, entities.FacetTags),
		withSort(newView("collections", "Collections", jewelleryPrice, nil,
			entities.FacetCategory, entities.FacetMaterialType, entities.FacetTags), entities.SortNewest),
	}
}

func newView(name, title string, price [2]int64, fixed map[entities.Facet]string, facets ...entities.Facet) entities.ViewConfig {
	return entities.ViewConfig{
		Name:        name,
		Title:       title,
		Facets:      facets,
		FixedParams: fixed,
		PageSize:    DefaultPageSize,
		PriceMin:    decimal.NewFromInt(price[0]),
		PriceMax:    decimal.NewFromInt(price[1]),
		DefaultSort: entities.SortFeatured,
	}
}

func withSort(v entities.ViewConfig, sort entities.SortOrder) entities.ViewConfig {
	v.DefaultSort = sort
	return v
}
