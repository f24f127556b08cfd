// Package catalog holds the static reference data of the storefront:
// products, categories, payment methods and shipping addresses. The data
// is embedded at build time and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nazeru/storefront-lab-go/internal/store/domain"
)

//go:embed catalog.yaml
var rawCatalog []byte

type CategoryEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CategoryAll matches every product when used as a filter.
const CategoryAll = "all"

type Catalog struct {
	products       []domain.Product
	categories     []CategoryEntry
	paymentMethods []domain.PaymentMethod
	addresses      []domain.Address

	byProduct map[domain.ProductID]int
	byMethod  map[domain.PaymentMethodID]int
	byAddress map[domain.AddressID]int
}

type fileSchema struct {
	Products       []domain.Product       `yaml:"products"`
	Categories     []CategoryEntry        `yaml:"categories"`
	PaymentMethods []domain.PaymentMethod `yaml:"payment_methods"`
	Addresses      []domain.Address       `yaml:"addresses"`
}

// Load parses the embedded reference data.
func Load() (*Catalog, error) {
	var f fileSchema
	if err := yaml.Unmarshal(rawCatalog, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("parse catalog: no products")
	}
	c := &Catalog{
		products:       f.Products,
		categories:     f.Categories,
		paymentMethods: f.PaymentMethods,
		addresses:      f.Addresses,
		byProduct:      make(map[domain.ProductID]int, len(f.Products)),
		byMethod:       make(map[domain.PaymentMethodID]int, len(f.PaymentMethods)),
		byAddress:      make(map[domain.AddressID]int, len(f.Addresses)),
	}
	for i, p := range c.products {
		c.byProduct[p.ID] = i
	}
	for i, m := range c.paymentMethods {
		c.byMethod[m.ID] = i
	}
	for i, a := range c.addresses {
		c.byAddress[a.ID] = i
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the process-wide catalog, loading it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load()
	})
	return defaultCatalog, defaultErr
}

func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Categories() []CategoryEntry {
	out := make([]CategoryEntry, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c *Catalog) PaymentMethods() []domain.PaymentMethod {
	out := make([]domain.PaymentMethod, len(c.paymentMethods))
	copy(out, c.paymentMethods)
	return out
}

func (c *Catalog) Addresses() []domain.Address {
	out := make([]domain.Address, len(c.addresses))
	copy(out, c.addresses)
	return out
}

// Search filters products by a case-insensitive substring match on name or
// description and by category id. An empty query matches everything, and so
// does categoryID "all" (or empty).
func (c *Catalog) Search(query, categoryID string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []domain.Product
	for _, p := range c.products {
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if categoryID != "" && categoryID != CategoryAll && string(p.Category) != categoryID {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *Catalog) ProductByID(id domain.ProductID) (domain.Product, bool) {
	i, ok := c.byProduct[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) PaymentMethodByID(id domain.PaymentMethodID) (domain.PaymentMethod, bool) {
	i, ok := c.byMethod[id]
	if !ok {
		return domain.PaymentMethod{}, false
	}
	return c.paymentMethods[i], true
}

func (c *Catalog) AddressByID(id domain.AddressID) (domain.Address, bool) {
	i, ok := c.byAddress[id]
	if !ok {
		return domain.Address{}, false
	}
	return c.addresses[i], true
}

// DefaultPaymentMethod returns the first listed method; the reference data
// keeps the default entry first.
func (c *Catalog) DefaultPaymentMethod() domain.PaymentMethod {
	return c.paymentMethods[0]
}

func (c *Catalog) DefaultAddress() domain.Address {
	return c.addresses[0]
}
