package wcs

import (
	"regexp"
	"strings"
	"time"
)

var legacyDateRegex = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2})$`)

var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04",
	"2006-01-02",
}

var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC).Unix()

// fixDate rewrites the pre-2000 DD/MM/YY form to ISO-8601. Other values are
// returned unchanged.
func fixDate(s string) string {
	m := legacyDateRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	return "19" + m[3] + "-" + m[2] + "-" + m[1]
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func modifiedJulianDate(t time.Time) float64 {
	return float64(t.Unix()-mjdEpoch)/86400 + float64(t.Nanosecond())/86400e9
}
