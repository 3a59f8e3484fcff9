package passbridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an opaque RGB color. The archive serializes it as rgb(r, g, b),
// the payload as #rrggbb.
type Color struct {
	R, G, B uint8
}

var (
	white = Color{255, 255, 255}
	black = Color{0, 0, 0}
)

// ParseColor accepts #rgb, #rrggbb, rgb(r, g, b) and rgba(r, g, b, a).
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s[1:])
	case strings.HasPrefix(s, "rgb"):
		open, end := strings.IndexByte(s, '('), strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return Color{}, fmt.Errorf("malformed color %q", s)
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return Color{}, fmt.Errorf("malformed color %q", s)
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil || v < 0 || v > 255 {
				return Color{}, fmt.Errorf("malformed color component %q", parts[i])
			}
			rgb[i] = uint8(v)
		}
		return Color{rgb[0], rgb[1], rgb[2]}, nil
	}
	return Color{}, fmt.Errorf("unrecognized color %q", s)
}

func parseHexColor(h string) (Color, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("malformed hex color %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("malformed hex color %q: %w", h, err)
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// Hex returns the #rrggbb form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGB returns the rgb(r, g, b) form.
func (c Color) RGB() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// IsDark reports whether the color's perceived brightness is below the
// midpoint.
func (c Color) IsDark() bool {
	luma := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	return luma < 128
}

// Foreground returns white on dark backgrounds and black otherwise.
func (c Color) Foreground() Color {
	if c.IsDark() {
		return white
	}
	return black
}
