package wcs_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/fitstest"
	"github.com/rickbassham/fitsnorm/wcs"
)

func cardMap(cards []common.Card) map[string]common.Card {
	m := make(map[string]common.Card, len(cards))
	for _, c := range cards {
		m[c.Key] = c
	}
	return m
}

func TestFromHeaderMissing(t *testing.T) {
	_, err := wcs.FromHeader(fitstest.Primary(common.Card{Key: "OBJECT", Value: "M31"}))
	assert.ErrorIs(t, err, wcs.ErrMissingCoordinateData)
}

func TestFromHeaderGnomonic(t *testing.T) {
	w, err := wcs.FromHeader(fitstest.Primary(fitstest.Celestial()...))
	require.NoError(t, err)

	assert.Equal(t, 2, w.Naxis())
	assert.True(t, w.Celestial())
	assert.Equal(t, 0, w.Lng)
	assert.Equal(t, 1, w.Lat)

	got := w.Cards()
	keys := make([]string, len(got))
	for i, c := range got {
		keys[i] = c.Key
	}
	assert.Equal(t, []string{
		"WCSAXES", "CRPIX1", "CRPIX2", "CDELT1", "CDELT2", "CUNIT1", "CUNIT2",
		"CTYPE1", "CTYPE2", "CRVAL1", "CRVAL2", "LONPOLE", "LATPOLE", "RADESYS",
	}, keys)

	m := cardMap(got)
	assert.Equal(t, int64(2), m["WCSAXES"].Value)
	assert.Equal(t, 2.0, m["CRPIX1"].Value)
	assert.Equal(t, -0.000277, m["CDELT1"].Value)
	assert.Equal(t, "[deg] Coordinate increment at reference point", m["CDELT1"].Comment)
	assert.Equal(t, "deg", m["CUNIT2"].Value)
	assert.Equal(t, "Right ascension, gnomonic projection", m["CTYPE1"].Comment)
	assert.Equal(t, 180.0, m["LONPOLE"].Value)
	assert.Equal(t, 41.2687, m["LATPOLE"].Value)
	assert.Equal(t, "ICRS", m["RADESYS"].Value)
}

func TestFromHeaderIsStable(t *testing.T) {
	h := fitstest.Primary(fitstest.Celestial()...)
	h = append(h,
		common.Card{Key: "CROTA2", Value: 30.0},
		common.Card{Key: "DATE-OBS", Value: "2024-03-01T21:15:00.5"},
		common.Card{Key: "EQUINOX", Value: 2000.0},
	)

	w, err := wcs.FromHeader(h)
	require.NoError(t, err)
	first := w.Cards()
	h.Update(first...)

	w, err = wcs.FromHeader(h)
	require.NoError(t, err)

	if diff := cmp.Diff(first, w.Cards()); diff != "" {
		t.Fatalf("cards changed on second pass (-first +second):\n%s", diff)
	}
}

func TestFromHeaderCDMatrix(t *testing.T) {
	w, err := wcs.FromHeader(fitstest.Primary(
		common.Card{Key: "CTYPE1", Value: "RA---TAN"},
		common.Card{Key: "CTYPE2", Value: "DEC--TAN"},
		common.Card{Key: "CD1_1", Value: -0.0002},
		common.Card{Key: "CD1_2", Value: 0.0001},
		common.Card{Key: "CD2_1", Value: 0.0001},
		common.Card{Key: "CD2_2", Value: 0.0002},
		common.Card{Key: "CDELT1", Value: 5.0},
	))
	require.NoError(t, err)

	m := cardMap(w.Cards())
	assert.Equal(t, -0.0002, m["PC1_1"].Value)
	assert.Equal(t, 0.0001, m["PC1_2"].Value)
	assert.Equal(t, 1.0, m["CDELT1"].Value, "CD takes precedence over CDELT")
	assert.Equal(t, 1.0, m["CDELT2"].Value)
}

func TestFromHeaderRotation(t *testing.T) {
	h := fitstest.Primary(fitstest.Celestial()...)
	h = append(h, common.Card{Key: "CROTA2", Value: 90.0})

	w, err := wcs.FromHeader(h)
	require.NoError(t, err)

	assert.InDelta(t, 0, w.PC[0][0], 1e-12)
	assert.InDelta(t, 1, w.PC[0][1], 1e-12, "-sin(90) * cdelt2/cdelt1")
	assert.InDelta(t, -1, w.PC[1][0], 1e-12)
	assert.InDelta(t, 0, w.PC[1][1], 1e-12)
}

func TestFromHeaderPCPrecedence(t *testing.T) {
	h := fitstest.Primary(fitstest.Celestial()...)
	h = append(h,
		common.Card{Key: "PC1_2", Value: 0.5},
		common.Card{Key: "CD1_1", Value: 9.0},
		common.Card{Key: "CROTA2", Value: 45.0},
	)

	w, err := wcs.FromHeader(h)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0.5}, {0, 1}}, w.PC)
	assert.Equal(t, -0.000277, w.Axes[0].CDelt)
}

func TestFromHeaderAngleUnits(t *testing.T) {
	w, err := wcs.FromHeader(fitstest.Primary(
		common.Card{Key: "CTYPE1", Value: "GLON-CAR"},
		common.Card{Key: "CTYPE2", Value: "GLAT-CAR"},
		common.Card{Key: "CUNIT1", Value: "arcsec"},
		common.Card{Key: "CUNIT2", Value: "arcmin"},
		common.Card{Key: "CDELT1", Value: 3.6},
		common.Card{Key: "CDELT2", Value: 6.0},
		common.Card{Key: "CRVAL2", Value: -30.0},
	))
	require.NoError(t, err)

	assert.InDelta(t, 0.001, w.Axes[0].CDelt, 1e-15)
	assert.InDelta(t, 0.1, w.Axes[1].CDelt, 1e-15)
	assert.InDelta(t, -0.5, w.Axes[1].CRVal, 1e-15)
	assert.Equal(t, "deg", w.Axes[0].CUnit)
	assert.Equal(t, 180.0, w.LonPole, "reference latitude below theta0=0")
	assert.Equal(t, 90.0, w.LatPole)
	assert.Empty(t, w.RADESys, "galactic coordinates have no equatorial frame")
}

func TestFromHeaderReferenceFrame(t *testing.T) {
	tests := []struct {
		name        string
		extra       []common.Card
		wantFrame   string
		wantEquinox float64
	}{
		{"default", nil, "ICRS", 0},
		{"equinox 2000", []common.Card{{Key: "EQUINOX", Value: 2000.0}}, "FK5", 2000},
		{"equinox 1950", []common.Card{{Key: "EQUINOX", Value: int64(1950)}}, "FK4", 1950},
		{"epoch string", []common.Card{{Key: "EPOCH", Value: "J2000"}}, "FK5", 2000},
		{"explicit fk5", []common.Card{{Key: "RADESYS", Value: "fk5"}}, "FK5", 2000},
		{"legacy keyword", []common.Card{{Key: "RADECSYS", Value: "FK4"}}, "FK4", 1950},
		{"icrs ignores equinox", []common.Card{{Key: "RADESYS", Value: "ICRS"}, {Key: "EQUINOX", Value: 2000.0}}, "ICRS", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := fitstest.Primary(fitstest.Celestial()...)
			h = append(h, tt.extra...)

			w, err := wcs.FromHeader(h)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrame, w.RADESys)
			assert.Equal(t, tt.wantEquinox, w.Equinox)
		})
	}
}

func TestFromHeaderDates(t *testing.T) {
	h := fitstest.Primary(fitstest.Celestial()...)
	h = append(h, common.Card{Key: "DATE-OBS", Value: "2000-01-01T12:00:00"})

	w, err := wcs.FromHeader(h)
	require.NoError(t, err)
	m := cardMap(w.Cards())
	assert.Equal(t, "2000-01-01T12:00:00", m["DATE-OBS"].Value)
	assert.Equal(t, 51544.5, m["MJD-OBS"].Value)

	h.Set("DATE-OBS", "25/12/99", "")
	w, err = wcs.FromHeader(h)
	require.NoError(t, err)
	assert.Equal(t, "1999-12-25", w.DateObs)
	assert.Equal(t, 51537.0, w.MJDObs)
}

func TestFromHeaderInvalid(t *testing.T) {
	tests := []struct {
		name  string
		cards []common.Card
	}{
		{"unpaired longitude", []common.Card{{Key: "CTYPE1", Value: "RA---TAN"}}},
		{"mismatched systems", []common.Card{{Key: "CTYPE1", Value: "RA---TAN"}, {Key: "CTYPE2", Value: "GLAT-TAN"}}},
		{"mismatched projections", []common.Card{{Key: "CTYPE1", Value: "RA---TAN"}, {Key: "CTYPE2", Value: "DEC--SIN"}}},
		{"unknown projection", []common.Card{{Key: "CTYPE1", Value: "RA---XYZ"}, {Key: "CTYPE2", Value: "DEC--XYZ"}}},
		{"non-numeric", []common.Card{{Key: "CRVAL1", Value: "ten"}}},
		{"zero scale", []common.Card{{Key: "CDELT1", Value: 0.0}}},
		{"singular matrix", []common.Card{{Key: "PC1_1", Value: 0.0}}},
		{"bad unit", []common.Card{{Key: "CTYPE1", Value: "RA---TAN"}, {Key: "CTYPE2", Value: "DEC--TAN"}, {Key: "CUNIT1", Value: "furlong"}}},
		{"latitude out of range", []common.Card{{Key: "CTYPE1", Value: "RA---TAN"}, {Key: "CTYPE2", Value: "DEC--TAN"}, {Key: "CRVAL2", Value: 95.0}}},
		{"non-finite", []common.Card{{Key: "CRPIX1", Value: math.Inf(1)}}},
		{"too many axes", []common.Card{{Key: "WCSAXES", Value: int64(100000000)}, {Key: "CRPIX1", Value: 1.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wcs.FromHeader(fitstest.Primary(tt.cards...))
			assert.ErrorIs(t, err, wcs.ErrInvalidCoordinateData)
		})
	}
}

func TestFromHeaderLinearAxes(t *testing.T) {
	w, err := wcs.FromHeader(common.Header{
		{Key: "SIMPLE", Value: true},
		{Key: "NAXIS", Value: int64(0)},
		{Key: "CTYPE3", Value: "FREQ"},
		{Key: "CUNIT3", Value: "Hz"},
		{Key: "CDELT3", Value: 1e6},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, w.Naxis())
	assert.False(t, w.Celestial())

	m := cardMap(w.Cards())
	assert.Equal(t, "[Hz] Coordinate increment at reference point", m["CDELT3"].Comment)
	assert.Equal(t, "Coordinate type code", m["CTYPE3"].Comment)
	assert.NotContains(t, m, "LONPOLE")
	assert.NotContains(t, m, "CTYPE1")
}
