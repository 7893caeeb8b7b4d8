package entities

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product summary as returned by the product API listing
type Product struct {
	ID        string              `json:"id"`
	Slug      string              `json:"slug"`
	Name      string              `json:"name"`
	Images    ImageList           `json:"images"`
	Price     decimal.Decimal     `json:"price"`
	SalePrice decimal.NullDecimal `json:"sale_price"`
	Tags      []string            `json:"tags,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// UnmarshalJSON accepts both the API's "_id" and a plain "id".
func (p *Product) UnmarshalJSON(data []byte) error {
	type productAlias Product
	aux := struct {
		*productAlias
		MongoID string `json:"_id"`
	}{productAlias: (*productAlias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// EffectivePrice is the price a shopper pays: the sale price when it is set,
// positive and below the list price, otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid && p.SalePrice.Decimal.IsPositive() && p.SalePrice.Decimal.LessThan(p.Price) {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// OnSale reports whether the effective price differs from the list price
func (p Product) OnSale() bool {
	return !p.EffectivePrice().Equal(p.Price)
}

// ImageList holds image URLs. The API sends either plain strings or objects
// carrying a url field; both decode to the URL.
type ImageList []string

// UnmarshalJSON implements json.Unmarshaler
func (l *ImageList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(ImageList, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			URL       string `json:"url"`
			SecureURL string `json:"secure_url"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		switch {
		case obj.URL != "":
			out = append(out, obj.URL)
		case obj.SecureURL != "":
			out = append(out, obj.SecureURL)
		}
	}
	*l = out
	return nil
}

// CatalogResult is one page of the product listing, replaced wholesale on every fetch
type CatalogResult struct {
	Products      []Product `json:"products"`
	CurrentPage   int       `json:"currentPage"`
	TotalPages    int       `json:"totalPages"`
	TotalProducts int       `json:"totalProducts"`
}
