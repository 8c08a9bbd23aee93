package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSKUValidation(t *testing.T) {
	v := InitValidator()

	type query struct {
		SKUCode string `json:"skuCode" validate:"omitempty,sku"`
	}

	tests := []struct {
		name  string
		sku   string
		valid bool
	}{
		{"standard code", "SKU-001", true},
		{"digits only", "12345", true},
		{"empty is allowed", "", true},
		{"lowercase", "sku-001", false},
		{"leading dash", "-SKU-001", false},
		{"too short", "AB", false},
		{"whitespace", "SKU 001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(query{SKUCode: tt.sku})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidationDetails(t *testing.T) {
	v := InitValidator()

	type query struct {
		SKUCode string `json:"skuCode" validate:"required,sku"`
	}

	err := v.Struct(query{SKUCode: "bad sku!"})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "failed validation: sku", details["skuCode"])
}
