package fractal

// Point is a coordinate pair. Depending on context it is either relative
// ([0,1) along each axis of a grid) or a point in the complex plane.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Mapper maps a relative pixel coordinate onto the complex plane.
type Mapper interface {
	FromRelative(relative Point) Point
}

// Rectangle is an axis-aligned region of the complex plane.
type Rectangle struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// FromRelative interpolates a relative coordinate inside the rectangle.
// Relative y grows from Bottom towards Top.
func (r Rectangle) FromRelative(relative Point) Point {
	return Point{
		X: r.Left + relative.X*(r.Right-r.Left),
		Y: r.Bottom + relative.Y*(r.Top-r.Bottom),
	}
}

// Width returns the horizontal extent of the rectangle.
func (r Rectangle) Width() float64 {
	return r.Right - r.Left
}

// Height returns the vertical extent of the rectangle.
func (r Rectangle) Height() float64 {
	return r.Top - r.Bottom
}

// CenteredAt returns the rectangle of the given size centred on center.
func CenteredAt(center Point, width, height float64) Rectangle {
	return Rectangle{
		Left:   center.X - width/2,
		Right:  center.X + width/2,
		Top:    center.Y + height/2,
		Bottom: center.Y - height/2,
	}
}

// CenteredAtByRatio returns a rectangle of the given width whose height
// is derived from the aspect ratio (width / height).
func CenteredAtByRatio(center Point, ratio, width float64) Rectangle {
	return CenteredAt(center, width, width/ratio)
}
