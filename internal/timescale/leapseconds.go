package timescale

import (
	"fmt"
	"sort"
	"time"
)

// leapSecond is TAI − UTC in effect from jd onwards.
type leapSecond struct {
	jd  float64
	dat float64
}

// leapSeconds is TAI − UTC since the introduction of integral leap seconds.
var leapSeconds = buildLeapSeconds([]struct {
	year  int
	month time.Month
	dat   float64
}{
	{1972, time.January, 10},
	{1972, time.July, 11},
	{1973, time.January, 12},
	{1974, time.January, 13},
	{1975, time.January, 14},
	{1976, time.January, 15},
	{1977, time.January, 16},
	{1978, time.January, 17},
	{1979, time.January, 18},
	{1980, time.January, 19},
	{1981, time.July, 20},
	{1982, time.July, 21},
	{1983, time.July, 22},
	{1985, time.July, 23},
	{1988, time.January, 24},
	{1990, time.January, 25},
	{1991, time.January, 26},
	{1992, time.July, 27},
	{1993, time.July, 28},
	{1994, time.July, 29},
	{1996, time.January, 30},
	{1997, time.July, 31},
	{1999, time.January, 32},
	{2006, time.January, 33},
	{2009, time.January, 34},
	{2012, time.July, 35},
	{2015, time.July, 36},
	{2017, time.January, 37},
})

func buildLeapSeconds(in []struct {
	year  int
	month time.Month
	dat   float64
}) []leapSecond {
	out := make([]leapSecond, len(in))
	for i, e := range in {
		out[i] = leapSecond{
			jd:  JulianDate(time.Date(e.year, e.month, 1, 0, 0, 0, 0, time.UTC)),
			dat: e.dat,
		}
	}
	return out
}

// TAIMinusUTC returns TAI − UTC in seconds at the given UTC Julian Date.
// Epochs before 1972-01-01 are rejected.
func TAIMinusUTC(jdUTC float64) (float64, error) {
	i := sort.Search(len(leapSeconds), func(i int) bool {
		return leapSeconds[i].jd > jdUTC
	})
	if i == 0 {
		return 0, fmt.Errorf("%w: JD %.6f precedes the leap-second table (JD %.1f)", ErrEpochOutOfRange, jdUTC, leapSeconds[0].jd)
	}
	return leapSeconds[i-1].dat, nil
}
