// Package wcs builds the world coordinate system described by a FITS header
// and renders it back as a canonical set of header cards.
//
// Only the primary (unlettered) WCS is handled. Legacy forms are translated
// on the way in: CDi_j and CDELTi+CROTAi become PCi_j+CDELTi, celestial
// angles in arcsec, arcmin or rad become degrees, and DD/MM/YY dates become
// ISO-8601.
package wcs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rickbassham/fitsnorm/common"
)

// maxAxes is the largest NAXIS the FITS standard permits.
const maxAxes = 999

var (
	ErrMissingCoordinateData = errors.New("missing coordinate data")
	ErrInvalidCoordinateData = errors.New("invalid coordinate data")
)

var (
	axisKeyRegex   = regexp.MustCompile(`^(CTYPE|CRPIX|CRVAL|CDELT|CUNIT|CROTA)([1-9][0-9]?)$`)
	matrixKeyRegex = regexp.MustCompile(`^(PC|CD)([1-9][0-9]?)_([1-9][0-9]?)$`)
)

var angleUnits = map[string]float64{
	"deg":    1,
	"arcmin": 1.0 / 60,
	"arcsec": 1.0 / 3600,
	"mas":    1.0 / 3600000,
	"rad":    180 / math.Pi,
}

var radesys = map[string]bool{
	"ICRS":     true,
	"FK5":      true,
	"FK4":      true,
	"FK4-NO-E": true,
	"GAPPT":    true,
}

type Axis struct {
	CRPix float64
	CDelt float64
	CRVal float64
	CType string
	CUnit string
}

// WCS is the coordinate system descriptor for one header.
type WCS struct {
	Axes []Axis
	PC   [][]float64

	// Lng and Lat index the celestial axes, -1 when there are none.
	Lng, Lat int

	LonPole float64
	LatPole float64

	RADESys string
	Equinox float64 // zero when not applicable

	DateObs string
	MJDObs  float64
	hasMJD  bool
}

type keywordScan struct {
	found    bool
	maxAxis  int
	hasPC    bool
	hasCD    bool
	hasCROTA bool
}

func scanKeywords(h common.Header) keywordScan {
	var s keywordScan

	for _, c := range h {
		if c.Commentary {
			continue
		}

		if m := axisKeyRegex.FindStringSubmatch(c.Key); m != nil {
			s.found = true
			i, _ := strconv.Atoi(m[2])
			if i > s.maxAxis {
				s.maxAxis = i
			}
			if m[1] == "CROTA" {
				s.hasCROTA = true
			}
			continue
		}

		if m := matrixKeyRegex.FindStringSubmatch(c.Key); m != nil {
			s.found = true
			for _, idx := range m[2:] {
				i, _ := strconv.Atoi(idx)
				if i > s.maxAxis {
					s.maxAxis = i
				}
			}
			if m[1] == "PC" {
				s.hasPC = true
			} else {
				s.hasCD = true
			}
		}
	}

	return s
}

// FromHeader constructs the descriptor for h. It fails with
// ErrMissingCoordinateData when h has no WCS keywords at all and with
// ErrInvalidCoordinateData when the keywords present do not form a valid
// coordinate system.
func FromHeader(h common.Header) (*WCS, error) {
	scan := scanKeywords(h)
	if !scan.found {
		return nil, ErrMissingCoordinateData
	}

	naxis := scan.maxAxis
	for _, key := range []string{"NAXIS", "WCSAXES"} {
		v, ok := h.Get(key)
		if !ok {
			continue
		}
		n, ok := v.(int64)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%w: %s is not a non-negative integer", ErrInvalidCoordinateData, key)
		}
		if n > maxAxes {
			return nil, fmt.Errorf("%w: %s = %d exceeds %d", ErrInvalidCoordinateData, key, n, maxAxes)
		}
		if int(n) > naxis {
			naxis = int(n)
		}
	}

	w := &WCS{
		Axes: make([]Axis, naxis),
		Lng:  -1,
		Lat:  -1,
	}

	for i := range w.Axes {
		var err error
		ax := &w.Axes[i]
		if ax.CRPix, err = number(h, indexed("CRPIX", i), 0); err != nil {
			return nil, err
		}
		if ax.CDelt, err = number(h, indexed("CDELT", i), 1); err != nil {
			return nil, err
		}
		if ax.CRVal, err = number(h, indexed("CRVAL", i), 0); err != nil {
			return nil, err
		}
		if ax.CType, err = text(h, indexed("CTYPE", i)); err != nil {
			return nil, err
		}
		if ax.CUnit, err = text(h, indexed("CUNIT", i)); err != nil {
			return nil, err
		}
	}

	if err := w.findCelestial(); err != nil {
		return nil, err
	}

	if err := w.linearTransform(h, scan); err != nil {
		return nil, err
	}

	if w.Lng >= 0 {
		if err := w.celestialUnits(); err != nil {
			return nil, err
		}
		if err := w.celestialPole(h); err != nil {
			return nil, err
		}
		if err := w.referenceFrame(h); err != nil {
			return nil, err
		}
	}

	if err := w.observationDate(h); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *WCS) findCelestial() error {
	var lngPrefix, latPrefix, lngCode, latCode string

	for i, ax := range w.Axes {
		prefix, code, kind := splitCType(ax.CType)
		switch kind {
		case longitude:
			if w.Lng >= 0 {
				return fmt.Errorf("%w: more than one celestial longitude axis", ErrInvalidCoordinateData)
			}
			w.Lng, lngPrefix, lngCode = i, prefix, code
		case latitude:
			if w.Lat >= 0 {
				return fmt.Errorf("%w: more than one celestial latitude axis", ErrInvalidCoordinateData)
			}
			w.Lat, latPrefix, latCode = i, prefix, code
		}
	}

	switch {
	case w.Lng < 0 && w.Lat < 0:
		return nil
	case w.Lng < 0 || w.Lat < 0:
		return fmt.Errorf("%w: unpaired celestial axis", ErrInvalidCoordinateData)
	case !partners(lngPrefix, latPrefix):
		return fmt.Errorf("%w: celestial axes %s and %s do not match", ErrInvalidCoordinateData, lngPrefix, latPrefix)
	case lngCode != latCode:
		return fmt.Errorf("%w: projection codes %s and %s differ", ErrInvalidCoordinateData, lngCode, latCode)
	}

	if _, ok := projections[lngCode]; !ok {
		return fmt.Errorf("%w: unknown projection %q", ErrInvalidCoordinateData, lngCode)
	}

	return nil
}

// linearTransform fills PC from PCi_j, CDi_j or CROTAi, in that order of
// precedence.
func (w *WCS) linearTransform(h common.Header, scan keywordScan) error {
	n := len(w.Axes)
	w.PC = identity(n)

	switch {
	case scan.hasPC:
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				def := 0.0
				if i == j {
					def = 1
				}
				v, err := number(h, matrixKey("PC", i, j), def)
				if err != nil {
					return err
				}
				w.PC[i][j] = v
			}
		}

	case scan.hasCD:
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v, err := number(h, matrixKey("CD", i, j), 0)
				if err != nil {
					return err
				}
				w.PC[i][j] = v
			}
		}
		// degenerate axes with no CD terms keep a unit scale
		for i := 0; i < n; i++ {
			empty := true
			for j := 0; j < n; j++ {
				if w.PC[i][j] != 0 || w.PC[j][i] != 0 {
					empty = false
				}
			}
			if empty {
				w.PC[i][i] = 1
			}
			w.Axes[i].CDelt = 1
		}

	case scan.hasCROTA:
		lng, lat := w.Lng, w.Lat
		if lng < 0 {
			lng, lat = 0, 1
		}
		if lat >= n {
			break
		}
		rho, err := number(h, indexed("CROTA", lat), 0)
		if err != nil {
			return err
		}
		if rho == 0 {
			break
		}
		if w.Axes[lng].CDelt == 0 || w.Axes[lat].CDelt == 0 {
			return fmt.Errorf("%w: zero CDELT with CROTA", ErrInvalidCoordinateData)
		}
		sin, cos := math.Sincos(rho * math.Pi / 180)
		ratio := w.Axes[lat].CDelt / w.Axes[lng].CDelt
		w.PC[lng][lng] = cos
		w.PC[lng][lat] = -sin * ratio
		w.PC[lat][lng] = sin / ratio
		w.PC[lat][lat] = cos
	}

	for i, ax := range w.Axes {
		if ax.CDelt == 0 {
			return fmt.Errorf("%w: %s is zero", ErrInvalidCoordinateData, indexed("CDELT", i))
		}
	}

	if n > 0 && determinant(w.PC) == 0 {
		return fmt.Errorf("%w: singular linear transformation matrix", ErrInvalidCoordinateData)
	}

	return nil
}

// celestialUnits rescales celestial axes to degrees.
func (w *WCS) celestialUnits() error {
	for _, i := range []int{w.Lng, w.Lat} {
		ax := &w.Axes[i]
		unit := strings.ToLower(strings.TrimSpace(ax.CUnit))
		if unit == "" {
			unit = "deg"
		}
		scale, ok := angleUnits[unit]
		if !ok {
			return fmt.Errorf("%w: unsupported celestial unit %q", ErrInvalidCoordinateData, ax.CUnit)
		}
		ax.CDelt *= scale
		ax.CRVal *= scale
		ax.CUnit = "deg"
	}

	lat := w.Axes[w.Lat].CRVal
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: reference latitude %v out of range", ErrInvalidCoordinateData, lat)
	}

	return nil
}

func (w *WCS) celestialPole(h common.Header) error {
	_, code, _ := splitCType(w.Axes[w.Lng].CType)
	delta0 := w.Axes[w.Lat].CRVal

	theta0 := 0.0
	if projections[code].zenithal {
		theta0 = 90
	}

	lonpole := 180.0
	if delta0 >= theta0 {
		lonpole = 0
	}
	latpole := 90.0
	if theta0 == 90 {
		latpole = delta0
	}

	var err error
	if w.LonPole, err = number(h, "LONPOLE", lonpole); err != nil {
		return err
	}
	if w.LatPole, err = number(h, "LATPOLE", latpole); err != nil {
		return err
	}

	return nil
}

// referenceFrame resolves RADESYS and EQUINOX for equatorial systems.
func (w *WCS) referenceFrame(h common.Header) error {
	prefix, _, _ := splitCType(w.Axes[w.Lng].CType)
	if prefix != "RA" {
		return nil
	}

	frame, err := text(h, "RADESYS")
	if err != nil {
		return err
	}
	if frame == "" {
		if frame, err = text(h, "RADECSYS"); err != nil {
			return err
		}
	}
	frame = strings.ToUpper(strings.TrimSpace(frame))

	equinox, hasEquinox, err := epoch(h, "EQUINOX")
	if err != nil {
		return err
	}
	if !hasEquinox {
		if equinox, hasEquinox, err = epoch(h, "EPOCH"); err != nil {
			return err
		}
	}

	if frame == "" {
		switch {
		case !hasEquinox:
			frame = "ICRS"
		case equinox < 1984:
			frame = "FK4"
		default:
			frame = "FK5"
		}
	}
	if !radesys[frame] {
		return fmt.Errorf("%w: unknown RADESYS %q", ErrInvalidCoordinateData, frame)
	}

	switch frame {
	case "FK4", "FK4-NO-E":
		if !hasEquinox {
			equinox = 1950
		}
	case "FK5":
		if !hasEquinox {
			equinox = 2000
		}
	default:
		equinox = 0
	}

	w.RADESys, w.Equinox = frame, equinox

	return nil
}

func (w *WCS) observationDate(h common.Header) error {
	mjd, err := number(h, "MJD-OBS", math.NaN())
	if err != nil {
		return err
	}
	if !math.IsNaN(mjd) {
		w.MJDObs, w.hasMJD = mjd, true
	}

	date, err := text(h, "DATE-OBS")
	if err != nil || date == "" {
		return err
	}

	w.DateObs = fixDate(date)
	if t, ok := parseDate(w.DateObs); ok {
		w.MJDObs, w.hasMJD = modifiedJulianDate(t), true
	}

	return nil
}

// Naxis is the number of coordinate axes.
func (w *WCS) Naxis() int {
	return len(w.Axes)
}

// Celestial reports whether the descriptor has a longitude/latitude pair.
func (w *WCS) Celestial() bool {
	return w.Lng >= 0
}

func indexed(key string, i int) string {
	return key + strconv.Itoa(i+1)
}

func matrixKey(key string, i, j int) string {
	return key + strconv.Itoa(i+1) + "_" + strconv.Itoa(j+1)
}

func number(h common.Header, key string, def float64) (float64, error) {
	v, ok := h.Get(key)
	if !ok {
		return def, nil
	}
	f, ok := common.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidCoordinateData, key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidCoordinateData, key)
	}
	return f, nil
}

func text(h common.Header, key string) (string, error) {
	v, ok := h.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := common.AsString(v)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrInvalidCoordinateData, key)
	}
	return strings.TrimSpace(s), nil
}

// epoch reads an equinox given as a number or as 'J2000' / 'B1950'.
func epoch(h common.Header, key string) (float64, bool, error) {
	v, ok := h.Get(key)
	if !ok || v == nil {
		return 0, false, nil
	}
	if f, ok := common.AsFloat(v); ok {
		return f, true, nil
	}
	if s, ok := common.AsString(v); ok {
		s = strings.TrimLeft(strings.TrimSpace(s), "JB")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %s is not an epoch", ErrInvalidCoordinateData, key)
}

func identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

// determinant uses Gaussian elimination with partial pivoting on a copy of m.
func determinant(m [][]float64) float64 {
	n := len(m)
	data := make([]float64, 0, n*n)
	for _, row := range m {
		data = append(data, row...)
	}
	return mat.Det(mat.NewDense(n, n, data))
}
