package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/metrics"
	"github.com/star/framerot/internal/rotation"
	"github.com/star/framerot/internal/timescale"
	"github.com/star/framerot/internal/transform"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

type handlers struct {
	logger    *slog.Logger
	store     *eop.Store
	series    *frames.SeriesRunner
	lookup    timescale.Scale
	maxPoints int
}

func (h *handlers) options() []frames.Option {
	return []frames.Option{frames.WithEOPLookup(h.lookup)}
}

// familyLabel returns the family the conversion would use, or "none" when
// it cannot be planned.
func familyLabel(from, to frames.Frame, data eop.Data) (frames.Route, string) {
	route, err := frames.Plan(from, to, data)
	if err != nil {
		return route, "none"
	}
	return route, route.Family.String()
}

type rotationResponse struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	JDUTC    float64  `json:"jd_utc"`
	Family   string   `json:"family"`
	Route    []string `json:"route"`
	EOPModel string   `json:"eop_model"`
	valueJSON
}

// GET /api/v1/rotation?from=&to=&jd=|time=&repr=&eop=
func (h *handlers) rotate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := frameParams(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	jd, err := epochParam(q.Get("jd"), q.Get("time"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	rep, err := representationParam(q.Get("repr"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	data, err := selectEOP(h.store, q.Get("eop"), from, to)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	start := time.Now()
	v, err := frames.Rotate(rep, from, to, jd, data, h.options()...)
	route, family := familyLabel(from, to, data)
	metrics.RecordRotation(family, from.String(), to.String(), errorCode(err), time.Since(start))
	if err != nil {
		h.logger.Debug("rotation rejected", "component", "api", "from", from.String(), "to", to.String(), "jd_utc", jd, "error", err)
		writeError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, rotationResponse{
		From:      from.String(),
		To:        to.String(),
		JDUTC:     jd,
		Family:    family,
		Route:     route.Steps,
		EOPModel:  modelName(data),
		valueJSON: encodeValue(v),
	})
}

type seriesPointJSON struct {
	JDUTC float64 `json:"jd_utc"`
	*valueJSON
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// GET /api/v1/rotation/series?from=&to=&start=|start_time=&step=&count=&repr=&eop=
// step is in seconds.
func (h *handlers) rotationSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := frameParams(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	start, err := epochParam(q.Get("start"), q.Get("start_time"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	rep, err := representationParam(q.Get("repr"))
	if err != nil {
		writeError(w, err, nil)
		return
	}

	count := 1
	if s := q.Get("count"); s != "" {
		count, err = strconv.Atoi(s)
		if err != nil {
			writeError(w, badRequest("invalid count %q", s), nil)
			return
		}
	}
	stepSeconds := 60.0
	if s := q.Get("step"); s != "" {
		if stepSeconds, err = floatParam("step", s); err != nil {
			writeError(w, err, nil)
			return
		}
	}
	if count > h.maxPoints {
		writeError(w, badRequest("count %d exceeds the maximum of %d points", count, h.maxPoints),
			map[string]any{"max_points": h.maxPoints})
		return
	}

	data, err := selectEOP(h.store, q.Get("eop"), from, to)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	points, err := h.series.Run(r.Context(), frames.SeriesRequest{
		From:           from,
		To:             to,
		Start:          start,
		Step:           stepSeconds / timescale.SecondsPerDay,
		Count:          count,
		Representation: rep,
		Data:           data,
		Options:        h.options(),
	})
	if err != nil {
		writeError(w, err, nil)
		return
	}

	route, family := familyLabel(from, to, data)
	out := make([]seriesPointJSON, len(points))
	failed := 0
	for i, p := range points {
		out[i].JDUTC = p.JD
		if p.Err != nil {
			failed++
			out[i].Error = p.Err.Error()
			out[i].Code = errorCode(p.Err)
			continue
		}
		v := encodeValue(p.Value)
		out[i].valueJSON = &v
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"from":           from.String(),
		"to":             to.String(),
		"family":         family,
		"route":          route.Steps,
		"eop_model":      modelName(data),
		"representation": rep.String(),
		"step_seconds":   stepSeconds,
		"count":          len(out),
		"failed":         failed,
		"points":         out,
	})
}

type stateRequest struct {
	From     string     `json:"from"`
	To       string     `json:"to"`
	JD       *float64   `json:"jd"`
	Time     string     `json:"time"`
	EOP      string     `json:"eop"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

// POST /api/v1/state
func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, badRequest("invalid body: %v", err), nil)
		return
	}

	from, to, err := frameParams(req.From, req.To)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	var jdStr string
	if req.JD != nil {
		jdStr = strconv.FormatFloat(*req.JD, 'f', -1, 64)
	}
	jd, err := epochParam(jdStr, req.Time)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	data, err := selectEOP(h.store, req.EOP, from, to)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	in := frames.State{
		R: r3.Vec{X: req.Position[0], Y: req.Position[1], Z: req.Position[2]},
		V: r3.Vec{X: req.Velocity[0], Y: req.Velocity[1], Z: req.Velocity[2]},
	}
	out, err := frames.TransformState(from, to, jd, data, in, h.options()...)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	_, family := familyLabel(from, to, data)
	writeJSON(w, http.StatusOK, map[string]any{
		"from":      from.String(),
		"to":        to.String(),
		"jd_utc":    jd,
		"family":    family,
		"eop_model": modelName(data),
		"position":  [3]float64{out.R.X, out.R.Y, out.R.Z},
		"velocity":  [3]float64{out.V.X, out.V.Y, out.V.Z},
	})
}

// GET /api/v1/plan/{from}/{to}?eop=
func (h *handlers) plan(w http.ResponseWriter, r *http.Request) {
	from, to, err := frameParams(r.PathValue("from"), r.PathValue("to"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	data, err := selectEOP(h.store, r.URL.Query().Get("eop"), from, to)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	route, err := frames.Plan(from, to, data)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":      from.String(),
		"to":        to.String(),
		"family":    route.Family.String(),
		"eop_model": modelName(data),
		"steps":     route.Steps,
	})
}

type frameJSON struct {
	Name       string   `json:"name"`
	EarthFixed bool     `json:"earth_fixed"`
	Families   []string `json:"families"`
}

// GET /api/v1/frames
func (h *handlers) listFrames(w http.ResponseWriter, r *http.Request) {
	var out []frameJSON
	for _, f := range frames.Frames() {
		fam := f.Families()
		entry := frameJSON{Name: f.String(), EarthFixed: f.EarthFixed(), Families: []string{}}
		for _, one := range []frames.Family{frames.FK5, frames.IAU2006} {
			if fam&one != 0 {
				entry.Families = append(entry.Families, one.String())
			}
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"frames": out})
}

// GET /api/v1/station?lat=&lon=&alt=&frame=&jd=|time=&eop=[&x=&y=&z=]
// lat and lon are degrees, alt and target coordinates meters. The station
// position is returned in frame; with a target (given in frame) the look
// angles from the station are added.
func (h *handlers) station(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [3]float64
	for i, name := range []string{"lat", "lon", "alt"} {
		s := q.Get(name)
		if s == "" && name == "alt" {
			continue
		}
		v, err := floatParam(name, s)
		if err != nil {
			writeError(w, err, nil)
			return
		}
		coords[i] = v
	}
	if coords[0] < -90 || coords[0] > 90 {
		writeError(w, badRequest("lat %v outside [-90, 90]", coords[0]), nil)
		return
	}
	g := transform.Geodetic{Lat: unit.AngleFromDeg(coords[0]), Lon: unit.AngleFromDeg(coords[1]), Alt: coords[2]}

	frameName := q.Get("frame")
	if frameName == "" {
		frameName = frames.ITRF.String()
	}
	target, err := frames.ParseFrame(frameName)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	jd, err := epochParam(q.Get("jd"), q.Get("time"))
	if err != nil && target != frames.ITRF {
		writeError(w, err, nil)
		return
	}
	data, err := selectEOP(h.store, q.Get("eop"), frames.ITRF, target)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	d := rotation.IdentityDCM()
	if target != frames.ITRF {
		if d, err = frames.RotateDCM(frames.ITRF, target, jd, data, h.options()...); err != nil {
			writeError(w, err, nil)
			return
		}
	}

	itrf := transform.GeodeticToITRF(g)
	pos := d.Apply(itrf)
	resp := map[string]any{
		"frame":     target.String(),
		"eop_model": modelName(data),
		"itrf":      [3]float64{itrf.X, itrf.Y, itrf.Z},
		"position":  [3]float64{pos.X, pos.Y, pos.Z},
	}

	if hasTarget(q.Get("x"), q.Get("y"), q.Get("z")) {
		var t [3]float64
		for i, name := range []string{"x", "y", "z"} {
			v, err := floatParam(name, q.Get(name))
			if err != nil {
				writeError(w, err, nil)
				return
			}
			t[i] = v
		}
		la := transform.Topocentric(g, d.Inverse().Apply(r3.Vec{X: t[0], Y: t[1], Z: t[2]}))
		resp["look_angles"] = map[string]float64{
			"azimuth_deg":   la.Azimuth.Deg(),
			"elevation_deg": la.Elevation.Deg(),
			"range_m":       la.Range,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func hasTarget(vals ...string) bool {
	return strings.Join(vals, "") != ""
}
