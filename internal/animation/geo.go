// Package animation moves a vehicle marker along a route of waypoints using
// time-proportional great-circle interpolation.
package animation

import (
	"math"

	"github.com/Mwapsam/tracker/pkg/polyline"
)

// EarthRadiusKm is the mean Earth radius used for all distance math.
const EarthRadiusKm = 6371.0

// Point is a geographic position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) coordinate() polyline.Coordinate {
	return polyline.Coordinate{Lat: p.Lat, Lon: p.Lng}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// centralAngle returns the angular distance between a and b in radians.
func centralAngle(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HaversineKm returns the great-circle distance between a and b.
func HaversineKm(a, b Point) float64 {
	return EarthRadiusKm * centralAngle(a, b)
}

// InitialBearing returns the forward azimuth from a to b in degrees, [0, 360).
func InitialBearing(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// Slerp interpolates along the great circle from a (f=0) to b (f=1).
func Slerp(a, b Point, f float64) Point {
	d := centralAngle(a, b)
	sinD := math.Sin(d)
	if d < 1e-12 {
		return a
	}
	if math.Abs(sinD) < 1e-12 {
		// Antipodal points have no unique great circle.
		if f < 0.5 {
			return a
		}
		return b
	}

	lat1, lng1 := radians(a.Lat), radians(a.Lng)
	lat2, lng2 := radians(b.Lat), radians(b.Lng)
	wa := math.Sin((1-f)*d) / sinD
	wb := math.Sin(f*d) / sinD

	x := wa*math.Cos(lat1)*math.Cos(lng1) + wb*math.Cos(lat2)*math.Cos(lng2)
	y := wa*math.Cos(lat1)*math.Sin(lng1) + wb*math.Cos(lat2)*math.Sin(lng2)
	z := wa*math.Sin(lat1) + wb*math.Sin(lat2)

	return Point{
		Lat: degrees(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lng: degrees(math.Atan2(y, x)),
	}
}
