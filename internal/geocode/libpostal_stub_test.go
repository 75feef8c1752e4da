//go:build !libpostal

package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLibpostalRequiresBuildTag(t *testing.T) {
	_, err := New(Options{Provider: "libpostal"}, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
