package stability

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"strconv"

	"golang.org/x/image/draw"
)

const (
	hashCols = 9
	hashRows = 8
)

// DHash computes the 64-bit difference hash of img: grayscale, Catmull-Rom
// resampled to 9x8, one bit per horizontally adjacent pair set when the left pixel is
// brighter. Bits are row-major, most significant first.
func DHash(img image.Image) uint64 {
	thumb := image.NewGray(image.Rect(0, 0, hashCols, hashRows))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)

	var h uint64
	for y := 0; y < hashRows; y++ {
		row := thumb.Pix[y*thumb.Stride : y*thumb.Stride+hashCols]
		for x := 0; x < hashCols-1; x++ {
			h <<= 1
			if row[x] > row[x+1] {
				h |= 1
			}
		}
	}
	return h
}

// DHashBytes decodes an encoded image (PNG or JPEG) and hashes it.
func DHashBytes(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}
	return DHash(img), nil
}

// Hamming returns the number of differing bits.
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// FormatHash renders a hash as 16 lowercase hex digits.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ParseHash is the inverse of FormatHash.
func ParseHash(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
