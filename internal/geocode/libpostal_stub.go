//go:build !libpostal

package geocode

import "fmt"

func newLibpostal() (Standardizer, error) {
	return nil, fmt.Errorf("%w: built without libpostal support (rebuild with -tags libpostal)", ErrUnavailable)
}
