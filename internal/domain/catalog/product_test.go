package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduct() Product {
	return Product{
		ItemName: "Protein Ice Cream",
		Flavour:  "Vanilla",
		Price:    349,
		Stock:    10,
		Category: "Classic",
	}
}

func TestValidate(t *testing.T) {
	discount := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		mutate  func(*Product)
		field   string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Product) {}},
		{
			name:    "missing item name",
			mutate:  func(p *Product) { p.ItemName = "  " },
			field:   "itemName",
			wantErr: true,
		},
		{
			name:    "missing flavour",
			mutate:  func(p *Product) { p.Flavour = "" },
			field:   "flavour",
			wantErr: true,
		},
		{
			name:    "zero price",
			mutate:  func(p *Product) { p.Price = 0 },
			field:   "price",
			wantErr: true,
		},
		{
			name:    "negative discount",
			mutate:  func(p *Product) { p.DiscountPrice = discount(-5) },
			field:   "discountPrice",
			wantErr: true,
		},
		{
			name:    "discount not below price",
			mutate:  func(p *Product) { p.DiscountPrice = discount(349) },
			field:   "discountPrice",
			wantErr: true,
		},
		{
			name:   "discount below price",
			mutate: func(p *Product) { p.DiscountPrice = discount(299) },
		},
		{
			name:    "negative stock",
			mutate:  func(p *Product) { p.Stock = -1 },
			field:   "stock",
			wantErr: true,
		},
		{
			name:    "unknown category",
			mutate:  func(p *Product) { p.Category = "Frozen Yogurt" },
			field:   "category",
			wantErr: true,
		},
		{
			name:   "sports nutrition category",
			mutate: func(p *Product) { p.Category = "Pre-workout / Sports Nutrition" },
		},
		{
			name: "short description too long",
			mutate: func(p *Product) {
				for range 201 {
					p.ShortDescription += "x"
				}
			},
			field:   "shortDescription",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)

			err := p.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestUnitPrice(t *testing.T) {
	p := validProduct()
	assert.Equal(t, 349.0, p.UnitPrice())

	discount := 299.0
	p.DiscountPrice = &discount
	assert.Equal(t, 299.0, p.UnitPrice())
}

func TestFirstImage(t *testing.T) {
	p := validProduct()
	p.Image = "fallback.jpg"
	assert.Equal(t, "fallback.jpg", p.FirstImage())

	p.Images = []string{"first.jpg", "second.jpg"}
	assert.Equal(t, "first.jpg", p.FirstImage())
}
