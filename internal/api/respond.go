package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/rotation"
	"github.com/star/framerot/internal/timescale"
)

var (
	errBadRequest     = errors.New("bad request")
	errEOPUnavailable = errors.New("EOP data unavailable")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and writes {"error": ...}. extra
// fields are merged into the body.
func writeError(w http.ResponseWriter, err error, extra map[string]any) {
	body := map[string]any{"error": err.Error(), "code": errorCode(err)}
	var cov *eop.CoverageError
	if errors.As(err, &cov) {
		body["coverage"] = map[string]any{
			"series":    cov.Series,
			"first_mjd": cov.First - timescale.MJDOffset,
			"last_mjd":  cov.Last - timescale.MJDOffset,
		}
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, statusFor(err), body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errEOPUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, frames.ErrUnsupportedConversion),
		errors.Is(err, frames.ErrInvalidRepresentation),
		errors.Is(err, frames.ErrInvalidSeries):
		return http.StatusBadRequest
	case errors.Is(err, frames.ErrModelMismatch),
		errors.Is(err, frames.ErrMissingOrientationData),
		errors.Is(err, frames.ErrDataCoverage),
		errors.Is(err, timescale.ErrEpochOutOfRange):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// errorCode is a stable machine-readable class, also used as the metrics
// result label.
func errorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errEOPUnavailable):
		return "eop_unavailable"
	case errors.Is(err, frames.ErrUnsupportedConversion):
		return "unsupported_conversion"
	case errors.Is(err, frames.ErrInvalidRepresentation):
		return "invalid_representation"
	case errors.Is(err, frames.ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, frames.ErrModelMismatch):
		return "model_mismatch"
	case errors.Is(err, frames.ErrMissingOrientationData):
		return "missing_orientation_data"
	case errors.Is(err, frames.ErrDataCoverage):
		return "data_coverage"
	case errors.Is(err, timescale.ErrEpochOutOfRange):
		return "epoch_out_of_range"
	case errors.Is(err, errBadRequest):
		return "bad_request"
	}
	return "internal"
}

// epochParam reads the epoch from "jd" (Julian Date UTC) or "time"
// (RFC 3339). Exactly one must be given.
func epochParam(jd, ts string) (float64, error) {
	switch {
	case jd != "" && ts != "":
		return 0, badRequest("give either jd or time, not both")
	case jd != "":
		v, err := strconv.ParseFloat(jd, 64)
		if err != nil {
			return 0, badRequest("invalid jd %q", jd)
		}
		return v, nil
	case ts != "":
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return 0, badRequest("invalid time %q, want RFC 3339", ts)
		}
		return timescale.JulianDate(t.UTC()), nil
	}
	return 0, badRequest("missing epoch: set jd or time")
}

func frameParams(from, to string) (frames.Frame, frames.Frame, error) {
	if from == "" || to == "" {
		return 0, 0, badRequest("from and to are required")
	}
	f, err := frames.ParseFrame(from)
	if err != nil {
		return 0, 0, err
	}
	t, err := frames.ParseFrame(to)
	if err != nil {
		return 0, 0, err
	}
	return f, t, nil
}

func representationParam(s string) (rotation.Representation, error) {
	rep, err := rotation.ParseRepresentation(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", frames.ErrInvalidRepresentation, err)
	}
	return rep, nil
}

func floatParam(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, s)
	}
	return v, nil
}

// valueJSON carries a rotation in the representation it was computed in.
type valueJSON struct {
	Representation string         `json:"representation"`
	Matrix         *[3][3]float64 `json:"matrix,omitempty"`
	Quaternion     *[4]float64    `json:"quaternion,omitempty"`
}

func encodeValue(v rotation.Value) valueJSON {
	out := valueJSON{Representation: v.Representation().String()}
	switch r := v.(type) {
	case rotation.DCM:
		rows := r.Rows()
		out.Matrix = &rows
	case rotation.Quat:
		q0, q1, q2, q3 := r.Components()
		out.Quaternion = &[4]float64{q0, q1, q2, q3}
	}
	return out
}
