package models

import "github.com/paulmach/orb"

// Location is a named point. orb.Point is (lon, lat).
type Location struct {
	Name  string
	Point orb.Point
}

func NewLocation(name string, lat, lon float64) Location {
	return Location{Name: name, Point: orb.Point{lon, lat}}
}

func (l Location) Lat() float64 { return l.Point.Lat() }
func (l Location) Lon() float64 { return l.Point.Lon() }
