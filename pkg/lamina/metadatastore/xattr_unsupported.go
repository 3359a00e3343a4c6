//go:build !linux && !darwin

package metadatastore

import (
	"fmt"

	"github.com/laminastore/lamina/pkg/lamina/errs"
)

// XattrConfig configures the Xattr backend. On this platform it carries
// no usable fields; it exists so callers can compile against the same
// signature everywhere.
type XattrConfig struct {
	DataRoot string
	Prefix   string
	Info     ObjectInfoProvider
}

// Xattr is unavailable outside Linux and macOS.
type Xattr struct{}

// xattrSupported reports whether this platform can run the Xattr backend.
func xattrSupported() bool {
	return false
}

// NewXattr always fails on this platform: extended attributes have no
// portable implementation here.
func NewXattr(cfg XattrConfig) (*Xattr, error) {
	return nil, errs.New("NewXattr", errs.Unsupported, "", "", fmt.Errorf("extended attribute metadata backend is not available on this platform"))
}
