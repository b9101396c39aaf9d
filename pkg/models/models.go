package models

import "math"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Envelope is an axis-aligned bounding box in planar coordinates
type Envelope struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// EmptyEnvelope returns an envelope that any call to Extend replaces.
func EmptyEnvelope() Envelope {
	return Envelope{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// Extend grows the envelope to include (x, y)
func (e Envelope) Extend(x, y float64) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, x),
		MinY: math.Min(e.MinY, y),
		MaxX: math.Max(e.MaxX, x),
		MaxY: math.Max(e.MaxY, y),
	}
}

// IsEmpty reports whether no point has been added to the envelope
func (e Envelope) IsEmpty() bool {
	return e.MinX > e.MaxX || e.MinY > e.MaxY
}

// Width returns the extent along X
func (e Envelope) Width() float64 {
	return e.MaxX - e.MinX
}

// Height returns the extent along Y
func (e Envelope) Height() float64 {
	return e.MaxY - e.MinY
}
