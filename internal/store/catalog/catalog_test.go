package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/storefront-lab-go/internal/store/domain"
)

func TestLoadReferenceData(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.Products(), 8)
	assert.Len(t, c.Categories(), 6)
	assert.Len(t, c.PaymentMethods(), 3)
	assert.Len(t, c.Addresses(), 2)

	for _, p := range c.Products() {
		assert.NotEmpty(t, p.SKU, "product %s has no SKU", p.ID)
		assert.GreaterOrEqual(t, p.PriceCents, int64(0))
		assert.GreaterOrEqual(t, p.Rating, 0.0)
		assert.LessOrEqual(t, p.Rating, 5.0)
	}
}

func TestDefaultsComeFirst(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.DefaultPaymentMethod().IsDefault)
	assert.Equal(t, domain.PaymentTypeCard, c.DefaultPaymentMethod().Type)
	assert.True(t, c.DefaultAddress().IsDefault)
	assert.Equal(t, "Home", c.DefaultAddress().Name)
}

func TestSearch(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	t.Run("query matches name case-insensitively", func(t *testing.T) {
		got := c.Search("NULL POINTER", CategoryAll)
		require.Len(t, got, 1)
		assert.Equal(t, domain.ProductID("1"), got[0].ID)
	})

	t.Run("query matches description", func(t *testing.T) {
		got := c.Search("semicolons", "")
		require.Len(t, got, 1)
		assert.Equal(t, domain.ProductID("2"), got[0].ID)
	})

	t.Run("category filter is exact", func(t *testing.T) {
		got := c.Search("", "logic")
		require.Len(t, got, 3)
		for _, p := range got {
			assert.Equal(t, domain.CategoryLogic, p.Category)
		}
	})

	t.Run("all category matches everything", func(t *testing.T) {
		assert.Len(t, c.Search("", CategoryAll), 8)
		assert.Len(t, c.Search("", ""), 8)
	})

	t.Run("query and category combine", func(t *testing.T) {
		got := c.Search("loop", "logic")
		require.Len(t, got, 2)
	})

	t.Run("no matches", func(t *testing.T) {
		assert.Empty(t, c.Search("does not exist", CategoryAll))
		assert.Empty(t, c.Search("loop", "security"))
	})
}

func TestLookupsDoNotFault(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	_, ok := c.ProductByID("1")
	assert.True(t, ok)
	_, ok = c.ProductByID("missing")
	assert.False(t, ok)

	_, ok = c.PaymentMethodByID("1")
	assert.True(t, ok)
	_, ok = c.PaymentMethodByID("missing")
	assert.False(t, ok)

	_, ok = c.AddressByID("2")
	assert.True(t, ok)
	_, ok = c.AddressByID("missing")
	assert.False(t, ok)
}

func TestDefaultIsSharedAndStable(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
