package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := NewCatalog(DefaultProducts(config.StripeConfig{}), 100)
	require.NoError(t, err)

	products := c.Products()
	require.Len(t, products, 3)
	assert.Equal(t, []string{SKUBasic100, SKUPremium500, SKUBusiness1000},
		[]string{products[0].SKU, products[1].SKU, products[2].SKU})

	p, ok := c.BySKU(" Premium_500 ")
	require.True(t, ok)
	assert.Equal(t, int64(500), p.Credits)
	assert.True(t, decimal.RequireFromString("75").Equal(p.TotalPrice))
	assert.True(t, decimal.RequireFromString("0.15").Equal(p.PricePerUnit))
	assert.Equal(t, CategoryPremium, p.Category)

	business, ok := c.ByCredits(1000)
	require.True(t, ok)
	assert.Equal(t, SKUBusiness1000, business.SKU)

	_, ok = c.BySKU("gold")
	assert.False(t, ok)
}

func TestCatalogPriceOverrides(t *testing.T) {
	c, err := NewCatalog(DefaultProducts(config.StripeConfig{PriceBasic: "price_env_basic"}), 100)
	require.NoError(t, err)

	p, ok := c.ByPriceID("price_env_basic")
	require.True(t, ok)
	assert.Equal(t, SKUBasic100, p.SKU)
}

func TestCreditsForPrice(t *testing.T) {
	c, err := NewCatalog(DefaultProducts(config.StripeConfig{}), 100)
	require.NoError(t, err)

	credits, known := c.CreditsForPrice("price_1SBhBdA3Ey5GjayWBMmMqteL")
	assert.True(t, known)
	assert.Equal(t, int64(1000), credits)

	credits, known = c.CreditsForPrice("price_unknown")
	assert.False(t, known)
	assert.Equal(t, int64(100), credits)
}

func TestPricePerUnitFor(t *testing.T) {
	assert.Equal(t, "0.2", PricePerUnitFor(100).String())
	assert.Equal(t, "0.2", PricePerUnitFor(499).String())
	assert.Equal(t, "0.15", PricePerUnitFor(500).String())
	assert.Equal(t, "0.15", PricePerUnitFor(1000).String())
}

func TestNewCatalogValidation(t *testing.T) {
	tests := []struct {
		name     string
		products []Product
		fallback int64
		want     string
	}{
		{"zero fallback", nil, 0, "fallback credits"},
		{"missing sku", []Product{{PriceID: "p", Credits: 1}}, 100, "without sku"},
		{"missing price", []Product{{SKU: "a", Credits: 1}}, 100, "no price id"},
		{"zero credits", []Product{{SKU: "a", PriceID: "p"}}, 100, "positive credits"},
		{"duplicate sku", []Product{{SKU: "a", PriceID: "p1", Credits: 1}, {SKU: "A", PriceID: "p2", Credits: 2}}, 100, "duplicate catalog sku"},
		{"duplicate price", []Product{{SKU: "a", PriceID: "p", Credits: 1}, {SKU: "b", PriceID: "p", Credits: 2}}, 100, "duplicate catalog price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.products, tt.fallback)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCatalogYAML(t *testing.T) {
	raw := []byte(`
products:
  - sku: starter_50
    price_id: price_starter
    name: Starter
    credits: 50
    total_price: "12.50"
  - sku: studio_2000
    price_id: price_studio
    name: Studio
    credits: 2000
    total_price: "280.00"
    category: premium
`)
	products, err := ParseCatalogYAML(raw)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, CategoryBasic, products[0].Category)
	assert.Equal(t, "0.2", products[0].PricePerUnit.String())
	assert.Equal(t, "0.15", products[1].PricePerUnit.String())
	assert.True(t, decimal.RequireFromString("280").Equal(products[1].TotalPrice))

	c, err := NewCatalog(products, 25)
	require.NoError(t, err)
	_, ok := c.BySKU("basic_100")
	assert.False(t, ok)
}

func TestParseCatalogYAMLRejectsBadInput(t *testing.T) {
	_, err := ParseCatalogYAML([]byte("products: []"))
	assert.Error(t, err)

	_, err = ParseCatalogYAML([]byte("products:\n  - sku: a\n    total_price: cheap\n"))
	assert.Error(t, err)
}
