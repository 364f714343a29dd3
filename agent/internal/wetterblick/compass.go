package wetterblick

import (
	"math"

	"github.com/wetterblick/uploader/pkg/types"
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// DegToCompass maps a wind direction in degrees to one of 16 compass points.
// Each point covers 22.5 degrees centred on its heading, so 348.75 up to
// 11.25 is N and 11.25 starts NNE. nil and non-numeric input yield "".
func DegToCompass(deg any) string {
	d, ok := types.ToFloat(deg)
	if !ok || math.IsInf(d, 0) {
		return ""
	}
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	idx := int(math.Floor((d+11.25)/22.5)) % len(compassPoints)
	return compassPoints[idx]
}
