// ABOUTME: Color value extracted from leaf photos
// ABOUTME: Serialized as channels and rendered as a CSS hex string for clients

package domain

import "fmt"

// RGBColor represents an RGB color value
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as #rrggbb
func (c RGBColor) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
