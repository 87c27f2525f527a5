// Package radar derives radar image frames from wall-clock time and cycles a
// display cursor through them.
package radar

import (
	"fmt"
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// TimestampLayout formats frame instants inside image URLs.
const TimestampLayout = "20060102.1504"

// Grid is the spacing of published radar images.
const Grid = 10 * time.Minute

// Templates are fmt patterns receiving the formatted UTC timestamp.
type Templates struct {
	Image     string
	Lightning string
}

// DefaultTemplates point at the radar.bourky.cz composite.
var DefaultTemplates = Templates{
	Image:     "https://radar.bourky.cz/data/pacz2gmaps.z_max3d.%s.0.png",
	Lightning: "https://radar.bourky.cz/data/celdn/pacz2gmaps6.blesk.%s.png",
}

// Bounds is the geographic extent covered by the images, as
// [[north, east], [south, west]].
var Bounds = [2][2]float64{{51.889, 20.223}, {47.09, 10.06}}

// Frames returns n ascending frames spaced by step, the last one at now
// rounded down to the ten-minute grid.
func Frames(now time.Time, n int, step time.Duration, tmpl Templates) []model.RadarFrame {
	if n <= 0 {
		return nil
	}
	if step <= 0 {
		step = Grid
	}
	last := now.UTC().Truncate(Grid)
	out := make([]model.RadarFrame, n)
	for i := range out {
		ts := last.Add(-time.Duration(n-1-i) * step)
		stamp := ts.Format(TimestampLayout)
		f := model.RadarFrame{Timestamp: ts}
		if tmpl.Image != "" {
			f.ImageURL = fmt.Sprintf(tmpl.Image, stamp)
		}
		if tmpl.Lightning != "" {
			f.LightningURL = fmt.Sprintf(tmpl.Lightning, stamp)
		}
		out[i] = f
	}
	return out
}

// Equal reports whether two frame sequences have the same timestamps.
func Equal(a, b []model.RadarFrame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Timestamp.Equal(b[i].Timestamp) || a[i].ImageURL != b[i].ImageURL {
			return false
		}
	}
	return true
}
