package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator()

	assert.Equal(t, "off_1", gen.Generate())
	assert.Equal(t, "off_2", gen.Generate())
	assert.Equal(t, "off_3", gen.Generate())
}

func TestSequentialIDGenerator_Independent(t *testing.T) {
	a := NewSequentialIDGenerator()
	b := NewSequentialIDGenerator()

	a.Generate()
	assert.Equal(t, "off_1", b.Generate())
}
