//go:build !linux

package gpio

// OpenChip always fails off Linux.
func OpenChip(name string) (Chip, error) {
	return nil, ErrUnsupported
}
