package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		term string
		key  uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short term", "test", 0x4fdcca5ddb678139},
		{"longer term", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, Key(tt.term))
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("body"), Key("body"))
}

func TestKey_DifferentTermsDifferentKeys(t *testing.T) {
	assert.NotEqual(t, Key("body1"), Key("body2"))
}
