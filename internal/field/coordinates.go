package field

import "fmt"

// CoordinateSystemType tags how a field's components are to be interpreted
// as a position.
type CoordinateSystemType int

const (
	RectangularCartesian CoordinateSystemType = iota
	CylindricalPolar
	SphericalPolar
	ProlateSpheroidal
	OblateSpheroidal
	Fibre
)

var coordinateSystemNames = map[CoordinateSystemType]string{
	RectangularCartesian: "rectangular_cartesian",
	CylindricalPolar:     "cylindrical_polar",
	SphericalPolar:       "spherical_polar",
	ProlateSpheroidal:    "prolate_spheroidal",
	OblateSpheroidal:     "oblate_spheroidal",
	Fibre:                "fibre",
}

func (t CoordinateSystemType) String() string {
	if s, ok := coordinateSystemNames[t]; ok {
		return s
	}
	return fmt.Sprintf("coordinate_system(%d)", int(t))
}

// ParseCoordinateSystemType accepts the names produced by String.
func ParseCoordinateSystemType(s string) (CoordinateSystemType, error) {
	for t, name := range coordinateSystemNames {
		if name == s {
			return t, nil
		}
	}
	return 0, InvalidArgumentf("unknown coordinate system %q", s)
}

// CoordinateSystem is a type plus the focus used by the spheroidal systems.
type CoordinateSystem struct {
	Type  CoordinateSystemType
	Focus float64
}

func (cs CoordinateSystem) String() string {
	switch cs.Type {
	case ProlateSpheroidal, OblateSpheroidal:
		return fmt.Sprintf("%s focus %g", cs.Type, cs.Focus)
	}
	return cs.Type.String()
}
