package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonSplitName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, first, last string
	}{
		{"two tokens", "Jane Doe", "Jane", "Doe"},
		{"three tokens", "Mary Ann Smith", "Mary", "Ann Smith"},
		{"single token", "Cher", "Cher", ""},
		{"padded", "  Jane   Doe ", "Jane", "Doe"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			first, last := Person{Name: tt.in}.SplitName()
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestPersonDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Jane Doe", Person{Name: " Jane Doe "}.DisplayName())
	assert.Equal(t, "Unknown", Person{}.DisplayName())
}
