package provider

import "fmt"

// Viewport is a requested browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// DefaultViewport is used when DISPLAY_WIDTH/DISPLAY_HEIGHT are unset.
var DefaultViewport = Viewport{Width: 1920, Height: 1080}

// nearestSupported maps a requested viewport onto the closest entry of a
// vendor's fixed supported set, minimizing |Δwidth|+|Δheight|. Ties keep
// the earlier entry. An empty set returns the request unchanged.
func nearestSupported(req Viewport, supported []Viewport) Viewport {
	if len(supported) == 0 {
		return req
	}

	best := supported[0]
	bestDist := viewportDist(req, best)
	for _, s := range supported[1:] {
		if d := viewportDist(req, s); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

func viewportDist(a, b Viewport) int {
	return abs(a.Width-b.Width) + abs(a.Height-b.Height)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
