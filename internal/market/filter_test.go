package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/price"
)

func ptr(p price.Price) *price.Price { return &p }

func TestFilterCriteriaValidate(t *testing.T) {
	tests := []struct {
		name       string
		criteria   FilterCriteria
		wantFields []string
	}{
		{name: "empty is fine", criteria: FilterCriteria{}},
		{name: "equal bounds", criteria: FilterCriteria{MinPrice: ptr(500), MaxPrice: ptr(500)}},
		{name: "inverted bounds", criteria: FilterCriteria{MinPrice: ptr(900), MaxPrice: ptr(100)}, wantFields: []string{"minPrice"}},
		{name: "unknown category", criteria: FilterCriteria{Category: "cars"}, wantFields: []string{"category"}},
		{name: "negative max", criteria: FilterCriteria{MaxPrice: ptr(-1)}, wantFields: []string{"maxPrice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var e *bazerrs.Error
			require.ErrorAs(t, err, &e)
			var fields []string
			for _, d := range e.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestFilterCriteriaValues(t *testing.T) {
	f := FilterCriteria{Keyword: " Lamp ", Category: " Furniture", MinPrice: ptr(1050)}.Normalize()

	v := f.Values(2, 8)
	assert.Equal(t, "Lamp", v.Get("keyword"))
	assert.Equal(t, "furniture", v.Get("category"))
	assert.Equal(t, "10.50", v.Get("minPrice"))
	assert.False(t, v.Has("maxPrice"))
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "8", v.Get("size"))
}
