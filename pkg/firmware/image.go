// Package firmware handles firmware images as immutable in-memory blobs.
package firmware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Image errors.
var (
	// ErrEmptyImage indicates an image with no bytes.
	ErrEmptyImage = errors.New("firmware: image is empty")

	// ErrImageTooLarge indicates an image exceeding the 32-bit address space.
	ErrImageTooLarge = errors.New("firmware: image exceeds addressable flash")
)

// Image is an immutable firmware image held in memory.
type Image struct {
	name   string
	data   []byte
	digest [sha256.Size]byte
}

// New creates an Image from raw bytes. The data is copied, so later
// mutation of the caller's slice does not affect the image.
func New(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}
	img := &Image{
		name: name,
		data: append([]byte(nil), data...),
	}
	img.digest = sha256.Sum256(img.data)
	return img, nil
}

// LoadFile reads an image from disk. The image name is the file's base
// name.
func LoadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("firmware: read %s: %w", path, err)
	}
	return New(filepath.Base(path), data)
}

// Name returns the image name.
func (i *Image) Name() string {
	return i.name
}

// Size returns the image length in bytes.
func (i *Image) Size() uint32 {
	return uint32(len(i.data))
}

// Bytes returns the image contents. Callers must not modify the returned
// slice.
func (i *Image) Bytes() []byte {
	return i.data
}

// Digest returns the SHA-256 digest of the image contents.
func (i *Image) Digest() [sha256.Size]byte {
	return i.digest
}

// DigestHex returns the SHA-256 digest as a hex string.
func (i *Image) DigestHex() string {
	return hex.EncodeToString(i.digest[:])
}
