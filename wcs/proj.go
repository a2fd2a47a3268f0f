package wcs

import "strings"

type projection struct {
	name     string
	zenithal bool
}

var projections = map[string]projection{
	"AZP": {"zenithal/azimuthal perspective", true},
	"SZP": {"slant zenithal perspective", true},
	"TAN": {"gnomonic", true},
	"STG": {"stereographic", true},
	"SIN": {"orthographic/synthesis", true},
	"ARC": {"zenithal/azimuthal equidistant", true},
	"ZPN": {"zenithal/azimuthal polynomial", true},
	"ZEA": {"zenithal/azimuthal equal area", true},
	"AIR": {"Airy's zenithal", true},
	"CYP": {"cylindrical perspective", false},
	"CEA": {"cylindrical equal area", false},
	"CAR": {"plate caree", false},
	"MER": {"Mercator's", false},
	"SFL": {"Sanson-Flamsteed", false},
	"PAR": {"parabolic", false},
	"MOL": {"Mollweide's", false},
	"AIT": {"Hammer-Aitoff", false},
	"COP": {"conic perspective", false},
	"COE": {"conic equal area", false},
	"COD": {"conic equidistant", false},
	"COO": {"conic orthomorphic", false},
	"BON": {"Bonne's", false},
	"PCO": {"polyconic", false},
	"TSC": {"tangential spherical cube", false},
	"CSC": {"COBE quadrilateralized spherical cube", false},
	"QSC": {"quadrilateralized spherical cube", false},
	"HPX": {"HEALPix", false},
	"XPH": {"HEALPix polar, aka \"butterfly\"", false},
}

var coordinateNames = map[string]string{
	"RA":   "Right ascension",
	"DEC":  "Declination",
	"GLON": "galactic longitude",
	"GLAT": "galactic latitude",
	"ELON": "ecliptic longitude",
	"ELAT": "ecliptic latitude",
	"SLON": "supergalactic longitude",
	"SLAT": "supergalactic latitude",
	"HLON": "helioecliptic longitude",
	"HLAT": "helioecliptic latitude",
}

type celestialKind int

const (
	linear celestialKind = iota
	longitude
	latitude
)

// splitCType breaks a celestial CTYPE such as "RA---TAN" or "DEC--TAN-SIP"
// into its coordinate prefix and projection code.
func splitCType(ctype string) (prefix, code string, kind celestialKind) {
	if len(ctype) < 8 || ctype[4] != '-' {
		return "", "", linear
	}
	if len(ctype) > 8 && ctype[8:] != "-SIP" {
		return "", "", linear
	}

	prefix = strings.TrimRight(ctype[:4], "-")
	code = ctype[5:8]

	switch {
	case prefix == "RA" || (len(prefix) == 4 && strings.HasSuffix(prefix, "LON")):
		return prefix, code, longitude
	case prefix == "DEC" || (len(prefix) == 4 && strings.HasSuffix(prefix, "LAT")):
		return prefix, code, latitude
	}

	return "", "", linear
}

// partners reports whether a longitude and latitude prefix describe the same
// celestial system.
func partners(lng, lat string) bool {
	if lng == "RA" {
		return lat == "DEC"
	}
	return lat != "DEC" && lng[:1] == lat[:1]
}

func describe(prefix, code string) string {
	name, ok := coordinateNames[prefix]
	if !ok {
		name = prefix
	}
	if p, ok := projections[code]; ok {
		return name + ", " + p.name + " projection"
	}
	return name
}
