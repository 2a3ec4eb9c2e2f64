package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Gender
	}{
		{"portuguese male label", "Homem", GenderMan},
		{"english plural male", "MEN", GenderMan},
		{"female synonym", "feminino", GenderWoman},
		{"english female", "Women", GenderWoman},
		{"accented children label", "Crianças", GenderChildren},
		{"unaccented children label", "criancas", GenderChildren},
		{"kids", "  kids ", GenderChildren},
		{"unknown defaults to man", "unisex", GenderMan},
		{"empty defaults to man", "", GenderMan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeGender(tt.input))
		})
	}
}

func TestInferGender(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     Gender
	}{
		{"feminine keyword", "Vestidos Senhora", GenderWoman},
		{"english ladies", "ladies tops", GenderWoman},
		{"children keyword with accent", "Roupa de criança", GenderChildren},
		{"baby keyword", "BABY", GenderChildren},
		{"no keyword", "Camisas", GenderMan},
		{"empty category", "", GenderMan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferGender(tt.category))
		})
	}
}

func TestResolveGender(t *testing.T) {
	t.Run("explicit gender overrides category", func(t *testing.T) {
		explicit := "male"
		assert.Equal(t, GenderMan, ResolveGender(&explicit, "WOMEN DRESSES"))
	})

	t.Run("absent gender is inferred", func(t *testing.T) {
		assert.Equal(t, GenderWoman, ResolveGender(nil, "WOMEN DRESSES"))
	})

	t.Run("explicit but unknown gender defaults to man", func(t *testing.T) {
		explicit := "?"
		assert.Equal(t, GenderMan, ResolveGender(&explicit, "KIDS"))
	})
}
