package image

import (
	"strconv"
	"strings"

	"github.com/BaSui01/imageflow/types"
)

// Style keys.
const (
	StyleRealistic = "realistic"
	StyleArtistic  = "artistic"
	StyleCartoon   = "cartoon"
	StyleAbstract  = "abstract"
)

// StyleProfile maps a style tag to a primary/fallback model pair.
type StyleProfile struct {
	Key         string `json:"key"`
	Primary     string `json:"primary"`
	Fallback    string `json:"fallback"`
	Description string `json:"description"`
}

var styleOrder = []string{StyleRealistic, StyleArtistic, StyleCartoon, StyleAbstract}

var styleProfiles = map[string]StyleProfile{
	StyleRealistic: {
		Key:         StyleRealistic,
		Primary:     "stabilityai/stable-diffusion-xl-base-1.0",
		Fallback:    "runwayml/stable-diffusion-v1-5",
		Description: "High-quality realistic images",
	},
	StyleArtistic: {
		Key:         StyleArtistic,
		Primary:     "runwayml/stable-diffusion-v1-5",
		Fallback:    "CompVis/stable-diffusion-v1-4",
		Description: "Creative and artistic styles",
	},
	StyleCartoon: {
		Key:         StyleCartoon,
		Primary:     "prompthero/openjourney-v4",
		Fallback:    "nitrosocke/Arcane-Diffusion",
		Description: "Cartoon and animated styles",
	},
	StyleAbstract: {
		Key:         StyleAbstract,
		Primary:     "CompVis/stable-diffusion-v1-4",
		Fallback:    "stabilityai/stable-diffusion-2-1",
		Description: "Abstract and experimental art",
	},
}

// LookupStyle returns the profile for style.
func LookupStyle(style string) (StyleProfile, error) {
	p, ok := styleProfiles[style]
	if !ok {
		return StyleProfile{}, types.Errorf(types.ErrUnknownStyle, "unknown style %q", style)
	}
	return p, nil
}

// Styles returns every profile in declaration order.
func Styles() []StyleProfile {
	out := make([]StyleProfile, 0, len(styleOrder))
	for _, k := range styleOrder {
		out = append(out, styleProfiles[k])
	}
	return out
}

// ParseSize parses "<width>x<height>" into positive dimensions.
func ParseSize(size string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.TrimSpace(size), "x")
	if !ok {
		return 0, 0, types.Errorf(types.ErrInvalidSize, "size %q must look like <width>x<height>", size)
	}
	width, err = strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, types.Errorf(types.ErrInvalidSize, "invalid width in size %q", size)
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, types.Errorf(types.ErrInvalidSize, "invalid height in size %q", size)
	}
	return width, height, nil
}
