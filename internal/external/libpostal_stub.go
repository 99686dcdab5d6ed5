//go:build !cgo

package external

// ExpandAddress is a no-op without cgo; libpostal is optional.
func ExpandAddress(raw string) []string {
	return nil
}
