package uuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"3f1c2b8e-9d4a-4c6f-8b2e-1a2b3c4d5e6f", true},
		{"3F1C2B8E-9D4A-4C6F-AB2E-1A2B3C4D5E6F", true},
		{"not-a-uuid", false},
		{"3f1c2b8e9d4a4c6f8b2e1a2b3c4d5e6f", false},
		{"3f1c2b8e-9d4a-1c6f-8b2e-1a2b3c4d5e6f", false}, // version 1
		{"3f1c2b8e-9d4a-4c6f-cb2e-1a2b3c4d5e6f", false}, // wrong variant
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsValid(c.in), c.in)
	}
}

func TestGenerators(t *testing.T) {
	id, err := V4Generator{}.Generate()
	require.NoError(t, err)
	assert.True(t, IsValid(id))

	short, err := NewNanoIDGenerator(12).Generate()
	require.NoError(t, err)
	assert.Len(t, short, 12)

	assert.Panics(t, func() { NewNanoIDGenerator(0) })
}
