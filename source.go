package nesimg

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const tileSize = 8

var errTooSmall = errors.New("nesimg: image is smaller than a tile")

// Source is a decoded source image.
type Source struct {
	Path  string
	Hash  string
	Image image.Image
}

func hashString(sum uint64) string {
	return fmt.Sprintf("%016X", sum)
}

// decodeSource decodes an image from r, hashing the raw bytes as they are
// read.
func decodeSource(r io.Reader) (image.Image, string, error) {
	h := xxhash.New()
	m, _, err := image.Decode(io.TeeReader(r, h))
	if err != nil {
		return nil, "", err
	}
	// Hash any trailing bytes the decoder didn't consume
	if _, err := io.Copy(h, r); err != nil {
		return nil, "", err
	}
	return m, hashString(h.Sum64()), nil
}

// Crop cuts m down to the largest whole number of tiles, anchored at the top
// left corner. Images already on the tile grid are returned unchanged.
func Crop(m image.Image) (image.Image, error) {
	b := m.Bounds()
	w, h := b.Dx()/tileSize*tileSize, b.Dy()/tileSize*tileSize
	if w == 0 || h == 0 {
		return nil, errTooSmall
	}
	if w == b.Dx() && h == b.Dy() {
		return m, nil
	}
	return imaging.CropAnchor(m, w, h, imaging.TopLeft), nil
}

// LoadSource reads and decodes the image at file. If crop is set the image
// is cut down to the tile grid.
func LoadSource(file string, crop bool) (*Source, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, hash, err := decodeSource(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	if crop {
		if m, err = Crop(m); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	return &Source{
		Path:  file,
		Hash:  hash,
		Image: m,
	}, nil
}
