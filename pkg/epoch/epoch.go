// Package epoch provides Julian date helpers for observation times.
package epoch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/keplerfit/pkg/constants"
)

// DateTimeLayout is the calendar format accepted by Parse and used for
// output.
const DateTimeLayout = "2006-01-02T15:04:05"

// JulianDate returns the Julian date of t. No barycentric or leap-second
// correction is applied.
func JulianDate(t time.Time) float64 {
	unix := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return constants.JulianUnixEpoch + unix/constants.SecondsPerDay
}

// Time converts a Julian date to UTC, rounded to the millisecond.
func Time(jd float64) time.Time {
	days := jd - constants.JulianUnixEpoch
	ms := math.Round(days * constants.SecondsPerDay * 1e3)
	return time.UnixMilli(int64(ms)).UTC()
}

// Reduce subtracts the reference epoch bjd0 from jd.
func Reduce(jd, bjd0 float64) float64 {
	return jd - bjd0
}

// Expand adds the reference epoch bjd0 back to a reduced date.
func Expand(reduced, bjd0 float64) float64 {
	return reduced + bjd0
}

// Parse reads an epoch either as a decimal Julian date or as a calendar
// date in DateTimeLayout or RFC 3339.
func Parse(s string) (float64, error) {
	jd, _, err := parse(s)
	return jd, err
}

// ParseReduced is Parse for times on the reduced scale: a decimal value is
// taken as already reduced, a calendar date is reduced by bjd0.
func ParseReduced(s string, bjd0 float64) (float64, error) {
	jd, calendar, err := parse(s)
	if err != nil || !calendar {
		return jd, err
	}
	return Reduce(jd, bjd0), nil
}

func parse(s string) (jd float64, calendar bool, err error) {
	s = strings.TrimSpace(s)
	if jd, err := strconv.ParseFloat(s, 64); err == nil {
		return jd, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, DateTimeLayout, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return JulianDate(t), true, nil
		}
	}
	return math.NaN(), false, fmt.Errorf("epoch: cannot parse %q as a Julian date or calendar date", s)
}

// Format renders a Julian date as a UTC calendar date.
func Format(jd float64) string {
	return Time(jd).Format(DateTimeLayout)
}
