// Date/time functions restored from
// original_source/xdl-stdlib/src/system.rs: SYSTIME, JULDAY, CALDAT,
// TIMESTAMP. Formatting goes through github.com/ncruces/go-strftime,
// the way the rest of the domain stack favors an ecosystem library over a
// hand-rolled strftime table (SPEC_FULL.md §3).
package stdlib

import (
	"time"

	"github.com/ncruces/go-strftime"

	"xdl/internal/context"
	"xdl/internal/value"
)

func init() {
	register("SYSTIME", systimeFn)
	register("JULDAY", juldayFn)
	register("CALDAT", caldatFn)
	register("TIMESTAMP", timestampFn)
}

// systimeFn returns the current time: seconds since epoch by default, or
// a formatted string when the STR flag-style keyword is set (desugared to
// STR=1 by the parser).
func systimeFn(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	now := time.Now().UTC()
	if kwBool(kwargs, "STR", false) {
		return value.String(strftime.Format("%a %b %d %H:%M:%S %Y", now)), nil
	}
	return value.Double(float64(now.Unix())), nil
}

// juldayFn returns the Julian day number for a (month, day, year)
// triple, using the standard Gregorian calendar conversion.
func juldayFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 3, "JULDAY"); err != nil {
		return value.Undefined, err
	}
	month := int(args[0].ToLong())
	day := int(args[1].ToLong())
	year := int(args[2].ToLong())
	jd := gregorianToJulian(year, month, day)
	return value.Double(jd), nil
}

func gregorianToJulian(year, month, day int) float64 {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return float64(jdn)
}

// caldatFn is JULDAY's inverse: given a Julian day number, returns
// [month, day, year] as an Array.
func caldatFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "CALDAT"); err != nil {
		return value.Undefined, err
	}
	jdn := int(args[0].ToLong())
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - (146097*b)/4
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153
	day := e - (153*m+2)/5 + 1
	month := m + 3 - 12*(m/10)
	year := 100*b + d - 4800 + m/10
	return value.Array([]float64{float64(month), float64(day), float64(year)}), nil
}

// timestampFn renders an strftime-style formatted timestamp; defaults to
// ISO-8601-ish if no FORMAT keyword is given.
func timestampFn(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	now := time.Now().UTC()
	format := kwString(kwargs, "FORMAT", "%Y-%m-%dT%H:%M:%SZ")
	return value.String(strftime.Format(format, now)), nil
}
