package sessioncode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := New()
		require.NoError(t, err)
		require.Len(t, code, Length)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected character %q in %s", c, code)
		}
		assert.True(t, Valid(code))
	}
}

func TestAlphabetIsUnambiguous(t *testing.T) {
	for _, c := range "IO01" {
		assert.False(t, strings.ContainsRune(Alphabet, c), "alphabet contains %q", c)
	}
	assert.Len(t, Alphabet, 32)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABC234", Normalize(" abc234 "))
	assert.Equal(t, "", Normalize(""))
}

func TestValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC234", true},
		{"abc234", true},
		{"ABC23", false},
		{"ABC2345", false},
		{"ABCIO1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.code))
		})
	}
}

func TestIsDemo(t *testing.T) {
	assert.True(t, IsDemo("demo"))
	assert.True(t, IsDemo("DEMO"))
	assert.False(t, IsDemo("DEMO12"))
}
