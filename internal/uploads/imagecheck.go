package uploads

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// MinReferenceDimension is the smallest acceptable edge for a reference
// image. Smaller images produce unusable generation references.
const MinReferenceDimension = 256

// ImageInfo describes a validated reference image.
type ImageInfo struct {
	Format      string // "jpeg", "png", "webp", "heif"
	ContentType string
	Width       int
	Height      int
}

// ValidateReferenceImage checks that data is a supported reference image
// format (JPEG, PNG, WebP, or HEIF) with acceptable dimensions. HEIF
// dimensions are not decodable here; HEIF passes on a successful metadata
// parse alone.
func ValidateReferenceImage(data []byte) (*ImageInfo, error) {
	format, contentType := sniffFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format: reference images must be JPEG, PNG, WebP, or HEIF")
	}

	info := &ImageInfo{Format: format, ContentType: contentType}

	if format == "heif" {
		// No stdlib decoder for HEIF containers; a successful metadata
		// parse is the best structural check available.
		if _, err := imagemeta.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("invalid HEIF image: %w", err)
		}
		log.Debug().Str("format", format).Msg("Reference image validated (dimensions unchecked for HEIF)")
		return info, nil
	}

	cfg, decodedFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid %s image: %w", format, err)
	}
	info.Width = cfg.Width
	info.Height = cfg.Height

	if cfg.Width < MinReferenceDimension || cfg.Height < MinReferenceDimension {
		return nil, fmt.Errorf("image too small: %dx%d (minimum %dpx on each edge)",
			cfg.Width, cfg.Height, MinReferenceDimension)
	}

	log.Debug().
		Str("format", decodedFormat).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("Reference image validated")
	return info, nil
}

// sniffFormat identifies the image format from file magic. Returns empty
// strings for anything unsupported.
func sniffFormat(data []byte) (format, contentType string) {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg", "image/jpeg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png", "image/png"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp", "image/webp"
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) && isHeifBrand(data[8:12]):
		return "heif", "image/heif"
	}
	return "", ""
}

// isHeifBrand matches the ftyp major brands HEIF/HEIC files carry.
func isHeifBrand(brand []byte) bool {
	switch string(brand) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}
