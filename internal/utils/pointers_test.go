package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtrValueRoundTrip(t *testing.T) {
	p := Ptr("clinic-1")
	assert.Equal(t, "clinic-1", Value(p))
}

func TestValueNilYieldsZero(t *testing.T) {
	var p *string
	assert.Zero(t, Value(p))
}
