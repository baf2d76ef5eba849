package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMappingFlag(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    map[int]string
		wantErr bool
	}{
		{
			name:  "pairs with spaces",
			value: "0=product_name, 1 = variant_sku,3=retail_price",
			want:  map[int]string{0: "product_name", 1: "variant_sku", 3: "retail_price"},
		},
		{name: "missing separator", value: "0product_name", wantErr: true},
		{name: "non numeric column", value: "a=product_name", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMappingFlag(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "import", "extract", "sku", "worker", "migrate"} {
		assert.True(t, names[want], want)
	}
}
