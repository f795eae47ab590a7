package theme

import (
	"github.com/lucasb-eyer/go-colorful"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// Appliance returns the stock palette: the green-on-black phosphor look
// of the original hardware display, warming toward white.
func Appliance() *Palette {
	return &Palette{
		Name: "appliance",
		Colors: []RGB{
			{0, 0, 0},       // background
			{0, 64, 0},      // surface
			{0, 128, 0},     // muted
			{0, 255, 0},     // text / highlight
			{128, 255, 128}, // bright
			{255, 255, 255}, // animation / peak
		},
	}
}

// Lookup returns the blended color for a normalized value 0-1.
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 || len(p.Colors) == 1 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := toColorful(p.Colors[i])
	c1 := toColorful(p.Colors[i+1])
	return fromColorful(c0.BlendRgb(c1, frac))
}

// Index returns the color at a specific index (no blending).
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{
		R: float64(c[0]) / 255,
		G: float64(c[1]) / 255,
		B: float64(c[2]) / 255,
	}
}

func fromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{r, g, b}
}
