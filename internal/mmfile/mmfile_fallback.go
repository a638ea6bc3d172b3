//go:build !unix

// Package mmfile provides page-aligned memory for simulated address spaces.
package mmfile

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/mcukit/internal/buf"
)

const pageSize = 4096

// Anon allocates size zeroed bytes when anonymous mappings are unavailable.
// The returned slice starts on a page boundary.
func Anon(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("mmfile: negative size %d", size)
	}
	raw := make([]byte, size+pageSize)
	start := uintptr(unsafe.Pointer(&raw[0]))
	off := int(buf.AlignUp(start, pageSize) - start)
	return raw[off : off+size : off+size], func() error { return nil }, nil
}
