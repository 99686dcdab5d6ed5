//go:build cgo

package external

import (
	"github.com/openvenues/gopostal/expand"
)

// ExpandAddress returns libpostal expansions of a raw billing address,
// most canonical first. Empty when libpostal has nothing to offer.
func ExpandAddress(raw string) []string {
	opts := expand.DefaultOptions()
	opts.Languages = []string{"ru"}
	return expand.ExpandAddress(raw, opts)
}
