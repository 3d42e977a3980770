// Package timescale converts UTC Julian Dates to the UT1 and TT scales used
// by the Earth-orientation models.
package timescale

import (
	"errors"
	"fmt"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

// MJDOffset converts between Julian Date and Modified Julian Date.
const MJDOffset = 2400000.5

// SecondsPerDay is the length of the Julian day in SI seconds.
const SecondsPerDay = 86400.0

// ttMinusTAI is the constant offset TT − TAI in seconds.
const ttMinusTAI = 32.184

// ErrEpochOutOfRange is returned for epochs the leap-second table does not cover.
var ErrEpochOutOfRange = errors.New("epoch out of range")

// Scale is a time scale tag.
type Scale uint8

const (
	UTC Scale = iota
	UT1
	TT
)

func (s Scale) String() string {
	switch s {
	case UTC:
		return "UTC"
	case UT1:
		return "UT1"
	case TT:
		return "TT"
	}
	return fmt.Sprintf("Scale(%d)", uint8(s))
}

// Epoch is a Julian Date tagged with its time scale.
type Epoch struct {
	JD    float64
	Scale Scale
}

// MJD returns the Modified Julian Date.
func (e Epoch) MJD() float64 {
	return e.JD - MJDOffset
}

// Centuries returns Julian centuries elapsed since J2000.0.
func (e Epoch) Centuries() float64 {
	return (e.JD - J2000) / 36525.0
}

// UT1Source supplies UT1 − UTC in seconds at a UTC Julian Date.
type UT1Source interface {
	UT1UTC(jdUTC float64) (float64, error)
}

// ToUT1 converts a UTC Julian Date to UT1. With a nil source UT1 is assumed
// equal to UTC.
func ToUT1(jdUTC float64, src UT1Source) (Epoch, error) {
	if src == nil {
		return Epoch{JD: jdUTC, Scale: UT1}, nil
	}
	dut1, err := src.UT1UTC(jdUTC)
	if err != nil {
		return Epoch{}, fmt.Errorf("UT1-UTC at JD %.6f: %w", jdUTC, err)
	}
	return Epoch{JD: jdUTC + dut1/SecondsPerDay, Scale: UT1}, nil
}

// ToTT converts a UTC Julian Date to Terrestrial Time.
func ToTT(jdUTC float64) (Epoch, error) {
	dat, err := TAIMinusUTC(jdUTC)
	if err != nil {
		return Epoch{}, err
	}
	return Epoch{JD: jdUTC + (dat+ttMinusTAI)/SecondsPerDay, Scale: TT}, nil
}

// JulianDate converts an instant to a Julian Date on the UTC calendar. The
// location of t is ignored.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t)
}

// Time converts a Julian Date back to a UTC time.Time.
func Time(jd float64) time.Time {
	return julian.JDToTime(jd).UTC()
}
