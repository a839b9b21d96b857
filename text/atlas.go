package text

import (
	"fmt"
	"strings"
)

// AtlasType selects what a glyph's pixel buffer encodes.
type AtlasType uint8

const (
	// AtlasBitmap stores 8-bit coverage.
	AtlasBitmap AtlasType = iota

	// AtlasSDF stores a single-channel signed distance field
	// where 128 lies on the outline.
	AtlasSDF

	// AtlasMSDF is a multi-channel distance field. Not supported by Rasterizer.
	AtlasMSDF

	// AtlasMTSDF is MSDF plus a true distance channel. Not supported by Rasterizer.
	AtlasMTSDF
)

// String returns the atlas type name.
func (a AtlasType) String() string {
	switch a {
	case AtlasBitmap:
		return "bitmap"
	case AtlasSDF:
		return "sdf"
	case AtlasMSDF:
		return "msdf"
	case AtlasMTSDF:
		return "mtsdf"
	default:
		return fmt.Sprintf("AtlasType(%d)", a)
	}
}

// ParseAtlasType parses a name produced by AtlasType.String.
func ParseAtlasType(s string) (AtlasType, error) {
	switch strings.ToLower(s) {
	case "bitmap", "":
		return AtlasBitmap, nil
	case "sdf":
		return AtlasSDF, nil
	case "msdf":
		return AtlasMSDF, nil
	case "mtsdf":
		return AtlasMTSDF, nil
	}
	return AtlasBitmap, fmt.Errorf("%w: %q", ErrUnsupportedAtlas, s)
}
