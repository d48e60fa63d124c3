package billing

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
)

const (
	CategoryBasic   = "basic"
	CategoryPremium = "premium"

	SKUBasic100     = "basic_100"
	SKUPremium500   = "premium_500"
	SKUBusiness1000 = "business_1000"
)

// Product is a purchasable credit pack.
type Product struct {
	SKU          string          `json:"sku"`
	PriceID      string          `json:"price_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Credits      int64           `json:"credits"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Category     string          `json:"category"`
	Mode         string          `json:"mode"`
}

// Catalog is the immutable table of credit packs. It is built once at
// startup; lookups never mutate it.
type Catalog struct {
	products        []Product
	bySKU           map[string]Product
	byPriceID       map[string]Product
	fallbackCredits int64
}

func normalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}

// PricePerUnitFor is the per-minute price tier of a pack size.
func PricePerUnitFor(credits int64) decimal.Decimal {
	if credits >= 500 {
		return decimal.RequireFromString("0.15")
	}
	return decimal.RequireFromString("0.20")
}

// DefaultProducts returns the three packs sold by the service. Price
// identifiers can be overridden per environment.
func DefaultProducts(cfg config.StripeConfig) []Product {
	pick := func(override, def string) string {
		if override != "" {
			return override
		}
		return def
	}
	return []Product{
		{
			SKU:          SKUBasic100,
			PriceID:      pick(cfg.PriceBasic, "price_1SBh9MA3Ey5GjayWnkwgOAQD"),
			Name:         "Basic",
			Description:  "100 minutes of rendering",
			Credits:      100,
			PricePerUnit: PricePerUnitFor(100),
			TotalPrice:   decimal.RequireFromString("20.00"),
			Category:     CategoryBasic,
			Mode:         "payment",
		},
		{
			SKU:          SKUPremium500,
			PriceID:      pick(cfg.PricePremium, "price_1SBhAmA3Ey5GjayWsBWfi0ty"),
			Name:         "Premium",
			Description:  "500 minutes of rendering",
			Credits:      500,
			PricePerUnit: PricePerUnitFor(500),
			TotalPrice:   decimal.RequireFromString("75.00"),
			Category:     CategoryPremium,
			Mode:         "payment",
		},
		{
			SKU:          SKUBusiness1000,
			PriceID:      pick(cfg.PriceBusiness, "price_1SBhBdA3Ey5GjayWBMmMqteL"),
			Name:         "Business",
			Description:  "1000 minutes of rendering",
			Credits:      1000,
			PricePerUnit: PricePerUnitFor(1000),
			TotalPrice:   decimal.RequireFromString("150.00"),
			Category:     CategoryPremium,
			Mode:         "payment",
		},
	}
}

// NewCatalog validates products and indexes them. SKUs and price IDs must be
// unique and every pack must grant a positive amount of credits.
func NewCatalog(products []Product, fallbackCredits int64) (*Catalog, error) {
	if fallbackCredits <= 0 {
		return nil, fmt.Errorf("fallback credits must be positive, got %d", fallbackCredits)
	}
	c := &Catalog{
		products:        make([]Product, 0, len(products)),
		bySKU:           make(map[string]Product, len(products)),
		byPriceID:       make(map[string]Product, len(products)),
		fallbackCredits: fallbackCredits,
	}
	for _, p := range products {
		p.SKU = normalizeSKU(p.SKU)
		p.PriceID = strings.TrimSpace(p.PriceID)
		if p.Mode == "" {
			p.Mode = "payment"
		}
		switch {
		case p.SKU == "":
			return nil, fmt.Errorf("catalog product without sku")
		case p.PriceID == "":
			return nil, fmt.Errorf("catalog product %s has no price id", p.SKU)
		case p.Credits <= 0:
			return nil, fmt.Errorf("catalog product %s must grant positive credits", p.SKU)
		}
		if _, dup := c.bySKU[p.SKU]; dup {
			return nil, fmt.Errorf("duplicate catalog sku %s", p.SKU)
		}
		if _, dup := c.byPriceID[p.PriceID]; dup {
			return nil, fmt.Errorf("duplicate catalog price id %s", p.PriceID)
		}
		c.bySKU[p.SKU] = p
		c.byPriceID[p.PriceID] = p
		c.products = append(c.products, p)
	}
	sort.SliceStable(c.products, func(i, j int) bool { return c.products[i].Credits < c.products[j].Credits })
	return c, nil
}

// LoadCatalog builds the catalog from the defaults or, when configured, from
// a YAML file replacing them.
func LoadCatalog(cfg *config.Config) (*Catalog, error) {
	products := DefaultProducts(cfg.Stripe)
	if cfg.Billing.CatalogFile != "" {
		raw, err := os.ReadFile(cfg.Billing.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		products, err = ParseCatalogYAML(raw)
		if err != nil {
			return nil, err
		}
	}
	return NewCatalog(products, cfg.Billing.FallbackCredits)
}

type catalogFile struct {
	Products []struct {
		SKU         string `yaml:"sku"`
		PriceID     string `yaml:"price_id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Credits     int64  `yaml:"credits"`
		TotalPrice  string `yaml:"total_price"`
		Category    string `yaml:"category"`
	} `yaml:"products"`
}

// ParseCatalogYAML decodes a catalog file. The per-unit price is derived
// from the pack size and is not read from the file.
func ParseCatalogYAML(raw []byte) ([]Product, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog file lists no products")
	}
	products := make([]Product, 0, len(f.Products))
	for _, p := range f.Products {
		total, err := decimal.NewFromString(strings.TrimSpace(p.TotalPrice))
		if err != nil {
			return nil, fmt.Errorf("catalog product %s: invalid total_price %q", p.SKU, p.TotalPrice)
		}
		category := p.Category
		if category == "" {
			category = CategoryBasic
		}
		products = append(products, Product{
			SKU:          p.SKU,
			PriceID:      p.PriceID,
			Name:         p.Name,
			Description:  p.Description,
			Credits:      p.Credits,
			PricePerUnit: PricePerUnitFor(p.Credits),
			TotalPrice:   total,
			Category:     category,
		})
	}
	return products, nil
}

// Products returns the packs ordered by size.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) BySKU(sku string) (Product, bool) {
	p, ok := c.bySKU[normalizeSKU(sku)]
	return p, ok
}

func (c *Catalog) ByPriceID(priceID string) (Product, bool) {
	p, ok := c.byPriceID[strings.TrimSpace(priceID)]
	return p, ok
}

func (c *Catalog) ByCredits(credits int64) (Product, bool) {
	for _, p := range c.products {
		if p.Credits == credits {
			return p, true
		}
	}
	return Product{}, false
}

func (c *Catalog) FallbackCredits() int64 {
	return c.fallbackCredits
}

// CreditsForPrice maps a paid price to credits. Unknown prices still grant
// the fallback amount; known=false marks the drift for the caller to record.
func (c *Catalog) CreditsForPrice(priceID string) (credits int64, known bool) {
	if p, ok := c.ByPriceID(priceID); ok {
		return p.Credits, true
	}
	return c.fallbackCredits, false
}
