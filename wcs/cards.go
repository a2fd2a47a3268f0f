package wcs

import (
	"github.com/rickbassham/fitsnorm/common"
)

// Cards renders the descriptor in canonical order. PCi_j elements equal to
// the identity matrix are omitted.
func (w *WCS) Cards() []common.Card {
	n := len(w.Axes)
	cards := make([]common.Card, 0, 6*n+n*n+6)

	add := func(key string, value interface{}, comment string) {
		cards = append(cards, common.Card{Key: key, Value: value, Comment: comment})
	}

	add("WCSAXES", int64(n), "Number of coordinate axes")

	for i, ax := range w.Axes {
		add(indexed("CRPIX", i), ax.CRPix, "Pixel coordinate of reference point")
	}

	for i := range w.PC {
		for j, v := range w.PC[i] {
			if (i == j && v == 1) || (i != j && v == 0) {
				continue
			}
			add(matrixKey("PC", i, j), v, "Coordinate transformation matrix element")
		}
	}

	for i, ax := range w.Axes {
		add(indexed("CDELT", i), ax.CDelt, withUnit(ax.CUnit, "Coordinate increment at reference point"))
	}

	for i, ax := range w.Axes {
		if ax.CUnit != "" {
			add(indexed("CUNIT", i), ax.CUnit, "Units of coordinate increment and value")
		}
	}

	for i, ax := range w.Axes {
		if ax.CType == "" {
			continue
		}
		comment := "Coordinate type code"
		if i == w.Lng || i == w.Lat {
			prefix, code, _ := splitCType(ax.CType)
			comment = describe(prefix, code)
		}
		add(indexed("CTYPE", i), ax.CType, comment)
	}

	for i, ax := range w.Axes {
		add(indexed("CRVAL", i), ax.CRVal, withUnit(ax.CUnit, "Coordinate value at reference point"))
	}

	if w.Celestial() {
		add("LONPOLE", w.LonPole, "[deg] Native longitude of celestial pole")
		add("LATPOLE", w.LatPole, "[deg] Native latitude of celestial pole")
	}

	if w.DateObs != "" {
		add("DATE-OBS", w.DateObs, "ISO-8601 time of observation")
	}
	if w.hasMJD {
		add("MJD-OBS", w.MJDObs, "[d] MJD of observation")
	}

	if w.RADESys != "" {
		add("RADESYS", w.RADESys, "Equatorial coordinate system")
	}
	if w.Equinox != 0 {
		add("EQUINOX", w.Equinox, "[yr] Equinox of equatorial coordinates")
	}

	return cards
}

func withUnit(unit, comment string) string {
	if unit == "" {
		return comment
	}
	return "[" + unit + "] " + comment
}
