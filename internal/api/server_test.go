package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/framerot/internal/auth"
	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/frames"
	"github.com/star/framerot/internal/timescale"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// epoch1986 is 1986-06-19 21:35:00 UTC, inside the fixture's coverage.
var epoch1986 = timescale.JulianDate(time.Date(1986, 6, 19, 21, 35, 0, 0, time.UTC))

func fk5Store(t *testing.T) *eop.Store {
	t.Helper()
	var recs []eop.Record
	for i, mjd := range []float64{46599, 46600, 46601, 46602} {
		recs = append(recs, eop.Record{
			MJD:    mjd,
			XP:     -0.041 - 0.0005*float64(i),
			YP:     0.296 + 0.0005*float64(i),
			UT1UTC: 0.0794 - 0.0014*float64(i),
			LOD:    0.0014,
			DPsi:   -0.052,
			DEps:   -0.003,
			DX:     math.NaN(),
			DY:     math.NaN(),
		})
	}
	d, err := eop.NewIAU1980(recs)
	require.NoError(t, err)
	s := eop.NewStore()
	s.SetModel(d, "test", time.Now())
	return s
}

func newTestHandler(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Store == nil {
		deps.Store = fk5Store(t)
	}
	if deps.Series == nil {
		deps.Series = frames.NewSeriesRunner(4, testLogger())
	}
	return NewHandler(testLogger(), deps)
}

func jdString(jd float64) string {
	return strconv.FormatFloat(jd, 'f', -1, 64)
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRotationMatrix(t *testing.T) {
	store := fk5Store(t)
	h := newTestHandler(t, Deps{Store: store})

	q := url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jdString(epoch1986)}}
	w, _ := get(t, h, "/api/v1/rotation?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp rotationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ITRF", resp.From)
	assert.Equal(t, "GCRF", resp.To)
	assert.Equal(t, "fk5", resp.Family)
	assert.Equal(t, "iau1980", resp.EOPModel)
	assert.Equal(t, "matrix", resp.Representation)
	assert.Nil(t, resp.Quaternion)
	require.NotNil(t, resp.Matrix)

	want, err := frames.RotateDCM(frames.ITRF, frames.GCRF, epoch1986, store.ForModel(eop.ModelIAU1980))
	require.NoError(t, err)
	rows := want.Rows()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, rows[i][j], resp.Matrix[i][j], 1e-15)
		}
	}
	assert.InDelta(t, -0.619267, resp.Matrix[0][0], 1e-6)

	route, err := frames.Plan(frames.ITRF, frames.GCRF, store.ForModel(eop.ModelIAU1980))
	require.NoError(t, err)
	assert.Equal(t, route.Steps, resp.Route)
}

func TestRotationQuaternionByTime(t *testing.T) {
	h := newTestHandler(t, Deps{})

	q := url.Values{"from": {"itrs"}, "to": {"gcrs"}, "time": {"1986-06-19T21:35:00Z"}, "repr": {"quat"}}
	w, _ := get(t, h, "/api/v1/rotation?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp rotationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "quaternion", resp.Representation)
	assert.Nil(t, resp.Matrix)
	require.NotNil(t, resp.Quaternion)

	qv := resp.Quaternion
	assert.InDelta(t, 1.0, math.Sqrt(qv[0]*qv[0]+qv[1]*qv[1]+qv[2]*qv[2]+qv[3]*qv[3]), 1e-12)
	assert.GreaterOrEqual(t, qv[0], 0.0)
	assert.InDelta(t, 0.43631, qv[0], 5e-6)
}

func TestRotationNoEOP(t *testing.T) {
	h := newTestHandler(t, Deps{})

	q := url.Values{"from": {"TEME"}, "to": {"PEF"}, "jd": {jdString(epoch1986)}, "eop": {"none"}}
	w, body := get(t, h, "/api/v1/rotation?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "none", body["eop_model"])
	assert.Equal(t, "fk5", body["family"])
}

func TestRotationErrors(t *testing.T) {
	h := newTestHandler(t, Deps{})
	jd := jdString(epoch1986)

	tests := []struct {
		name   string
		query  url.Values
		status int
		code   string
	}{
		{"missing frames", url.Values{"jd": {jd}}, http.StatusBadRequest, "bad_request"},
		{"unknown frame", url.Values{"from": {"ECEF"}, "to": {"GCRF"}, "jd": {jd}}, http.StatusBadRequest, "unsupported_conversion"},
		{"missing epoch", url.Values{"from": {"ITRF"}, "to": {"GCRF"}}, http.StatusBadRequest, "bad_request"},
		{"both epochs", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jd}, "time": {"1986-06-19T21:35:00Z"}}, http.StatusBadRequest, "bad_request"},
		{"bad time", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "time": {"yesterday"}}, http.StatusBadRequest, "bad_request"},
		{"bad representation", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jd}, "repr": {"euler"}}, http.StatusBadRequest, "invalid_representation"},
		{"bad eop mode", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jd}, "eop": {"latest"}}, http.StatusBadRequest, "bad_request"},
		{"model not loaded", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jd}, "eop": {"iau2000a"}}, http.StatusServiceUnavailable, "eop_unavailable"},
		{"no data for family", url.Values{"from": {"TIRS"}, "to": {"GCRF"}, "jd": {jd}}, http.StatusServiceUnavailable, "eop_unavailable"},
		{"polar motion without data", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jd}, "eop": {"none"}}, http.StatusUnprocessableEntity, "missing_orientation_data"},
		{"no shared family", url.Values{"from": {"PEF"}, "to": {"CIRS"}, "jd": {jd}}, http.StatusUnprocessableEntity, "model_mismatch"},
		{"family against data", url.Values{"from": {"TIRS"}, "to": {"GCRF"}, "jd": {jd}, "eop": {"iau1980"}}, http.StatusUnprocessableEntity, "model_mismatch"},
		{"outside coverage", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jdString(epoch1986 + 30)}}, http.StatusUnprocessableEntity, "data_coverage"},
		{"NaN epoch", url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {"NaN"}}, http.StatusUnprocessableEntity, "epoch_out_of_range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := get(t, h, "/api/v1/rotation?"+tt.query.Encode())
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRotationCoverageDetails(t *testing.T) {
	h := newTestHandler(t, Deps{})
	q := url.Values{"from": {"ITRF"}, "to": {"GCRF"}, "jd": {jdString(epoch1986 + 30)}}
	w, body := get(t, h, "/api/v1/rotation?"+q.Encode())
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	cov, ok := body["coverage"].(map[string]any)
	require.True(t, ok, "coverage details in %v", body)
	assert.Equal(t, 46599.0, cov["first_mjd"])
	assert.Equal(t, 46602.0, cov["last_mjd"])
}

// TestSeriesBudget verifies that requests exceeding the max points budget
// are rejected with 400 instead of consuming unbounded CPU.
func TestSeriesBudget(t *testing.T) {
	h := newTestHandler(t, Deps{MaxPoints: 100})
	start := jdString(epoch1986)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"max budget exceeded", "count=101&step=1", http.StatusBadRequest},
		{"far over budget", "count=86400&step=1", http.StatusBadRequest},
		{"within budget: defaults", "", http.StatusOK},
		{"within budget: at limit", "count=100&step=60", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/rotation/series?from=ITRF&to=GCRF&start=" + start
			if tt.query != "" {
				target += "&" + tt.query
			}
			w, resp := get(t, h, target)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest {
				if resp["error"] == nil {
					t.Error("expected error field in response")
				}
				if resp["max_points"] == nil {
					t.Error("expected max_points field in response")
				}
			}
		})
	}
}

func TestSeriesPoints(t *testing.T) {
	h := newTestHandler(t, Deps{})

	// Seven hourly points starting 5.5 h before the end of coverage: the
	// last falls outside and is reported per point.
	start := eop.Record{MJD: 46602}.JD() - 5.5/24
	q := url.Values{
		"from": {"ITRF"}, "to": {"J2000"},
		"start": {jdString(start)}, "step": {"3600"}, "count": {"7"},
		"repr": {"quaternion"},
	}
	w, _ := get(t, h, "/api/v1/rotation/series?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Count  int    `json:"count"`
		Failed int    `json:"failed"`
		Family string `json:"family"`
		Points []struct {
			JDUTC      float64     `json:"jd_utc"`
			Quaternion *[4]float64 `json:"quaternion"`
			Code       string      `json:"code"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Count)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "fk5", resp.Family)
	require.Len(t, resp.Points, 7)

	for i, p := range resp.Points {
		assert.InDelta(t, start+float64(i)/24, p.JDUTC, 1e-9)
		if i < 6 {
			assert.NotNil(t, p.Quaternion, "point %d", i)
			assert.Empty(t, p.Code)
		} else {
			assert.Nil(t, p.Quaternion)
			assert.Equal(t, "data_coverage", p.Code)
		}
	}
}

func TestSeriesInvalid(t *testing.T) {
	h := newTestHandler(t, Deps{})
	start := jdString(epoch1986)

	for _, q := range []string{"count=0", "count=3&step=0", "count=x", "step=fast"} {
		t.Run(q, func(t *testing.T) {
			w, _ := get(t, h, "/api/v1/rotation/series?from=ITRF&to=GCRF&start="+start+"&"+q)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestState(t *testing.T) {
	h := newTestHandler(t, Deps{})

	body := `{"from":"TEME","to":"PEF","jd":` + jdString(epoch1986) + `,"eop":"none",
		"position":[7000000,0,0],"velocity":[0,7500,0]}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/state", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Position [3]float64 `json:"position"`
		Velocity [3]float64 `json:"velocity"`
		EOPModel string     `json:"eop_model"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "none", resp.EOPModel)

	in := frames.State{}
	in.R.X, in.V.Y = 7000000, 7500
	want, err := frames.TransformState(frames.TEME, frames.PEF, epoch1986, nil, in)
	require.NoError(t, err)
	assert.InDelta(t, want.R.X, resp.Position[0], 1e-6)
	assert.InDelta(t, want.R.Y, resp.Position[1], 1e-6)
	assert.InDelta(t, want.V.X, resp.Velocity[0], 1e-9)
	assert.InDelta(t, want.V.Y, resp.Velocity[1], 1e-9)
	assert.InDelta(t, 7000000.0, math.Hypot(resp.Position[0], resp.Position[1]), 1e-6)
}

func TestStateBadRequests(t *testing.T) {
	h := newTestHandler(t, Deps{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"unknown field", `{"from":"TEME","to":"PEF","jd":2446601.4,"extra":1}`, http.StatusBadRequest},
		{"no epoch", `{"from":"TEME","to":"PEF"}`, http.StatusBadRequest},
		{"mismatch", `{"from":"CIRS","to":"PEF","jd":2446601.4,"eop":"none"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/state", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestPlan(t *testing.T) {
	h := newTestHandler(t, Deps{})

	w, body := get(t, h, "/api/v1/plan/GCRF/TEME?eop=none")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "fk5", body["family"])
	assert.Equal(t, []any{"inverse(MOD->GCRF)", "inverse(PEF->MOD)", "PEF->TEME"}, body["steps"])

	w, body = get(t, h, "/api/v1/plan/CIRS/GCRF")
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	assert.Equal(t, "eop_unavailable", body["code"])

	w, body = get(t, h, "/api/v1/plan/CIRS/GCRF?eop=none")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "iau2006", body["family"])
	assert.Equal(t, "none", body["eop_model"])

	w, _ = get(t, h, "/api/v1/plan/PEF/CIRS")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFrames(t *testing.T) {
	h := newTestHandler(t, Deps{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/frames", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Frames []frameJSON `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Frames, len(frames.Frames()))
	assert.Equal(t, frameJSON{Name: "ITRF", EarthFixed: true, Families: []string{"fk5", "iau2006"}}, resp.Frames[0])
	for _, f := range resp.Frames {
		if f.Name == "CIRS" {
			assert.False(t, f.EarthFixed)
			assert.Equal(t, []string{"iau2006"}, f.Families)
		}
	}
}

func TestStation(t *testing.T) {
	h := newTestHandler(t, Deps{})

	w, body := get(t, h, "/api/v1/station?lat=0&lon=0&alt=0&x=6778137&y=0&z=0")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ITRF", body["frame"])
	pos := body["position"].([]any)
	assert.InDelta(t, 6378137.0, pos[0].(float64), 1e-6)
	la := body["look_angles"].(map[string]any)
	assert.InDelta(t, 90.0, la["elevation_deg"].(float64), 1e-9)
	assert.InDelta(t, 400000.0, la["range_m"].(float64), 1e-6)

	// The same station seen from GCRF keeps its radius.
	q := url.Values{"lat": {"39.7392"}, "lon": {"-104.9903"}, "alt": {"1609"}, "frame": {"GCRF"}, "jd": {jdString(epoch1986)}}
	w, body = get(t, h, "/api/v1/station?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	itrf := body["itrf"].([]any)
	gcrf := body["position"].([]any)
	norm := func(v []any) float64 {
		x, y, z := v[0].(float64), v[1].(float64), v[2].(float64)
		return math.Sqrt(x*x + y*y + z*z)
	}
	assert.InDelta(t, norm(itrf), norm(gcrf), 1e-6)
	assert.NotEqual(t, itrf[0], gcrf[0])

	w, _ = get(t, h, "/api/v1/station?lat=91&lon=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = get(t, h, "/api/v1/station?lat=0&lon=0&frame=GCRF")
	assert.Equal(t, http.StatusBadRequest, w.Code, "epoch required outside ITRF")
}

func TestEOPMetadata(t *testing.T) {
	h := newTestHandler(t, Deps{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/eop/metadata", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Models []eopModelJSON `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Models, 2)
	assert.Equal(t, "iau1980", resp.Models[0].Model)
	assert.True(t, resp.Models[0].Loaded)
	assert.Equal(t, 4, resp.Models[0].Records)
	assert.Equal(t, 46599.0, resp.Models[0].FirstMJD)
	assert.Equal(t, 46602.0, resp.Models[0].LastMJD)
	assert.Equal(t, "test", resp.Models[0].Source)
	assert.Equal(t, "iau2000a", resp.Models[1].Model)
	assert.False(t, resp.Models[1].Loaded)
}

func TestEOPFetch(t *testing.T) {
	var calls int
	ok := newTestHandler(t, Deps{Refresh: func(ctx context.Context) error { calls++; return nil }})
	failing := newTestHandler(t, Deps{Refresh: func(ctx context.Context) error { return errors.New("upstream down") }})
	absent := newTestHandler(t, Deps{})

	w := httptest.NewRecorder()
	ok.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/eop/fetch", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)

	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/eop/fetch", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream down")

	w = httptest.NewRecorder()
	absent.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/eop/fetch", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiddlewareChain(t *testing.T) {
	h := newTestHandler(t, Deps{
		Auth:  auth.Config{Enabled: true, Tokens: []string{"secret-token"}},
		Ready: func() error { return errors.New("no EOP data loaded") },
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/frames", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err, "request id generated")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/frames", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSelectEOP(t *testing.T) {
	store := fk5Store(t)

	d, err := selectEOP(store, "auto", frames.ITRF, frames.GCRF)
	require.NoError(t, err)
	assert.Equal(t, eop.ModelIAU1980, d.Model())

	// IAU-2006 frames with only IAU-1980 data loaded.
	_, err = selectEOP(store, "", frames.TIRS, frames.GCRF)
	assert.ErrorIs(t, err, errEOPUnavailable)

	d, err = selectEOP(store, "none", frames.TIRS, frames.GCRF)
	require.NoError(t, err)
	assert.Nil(t, d)

	// No shared family is left to the dispatcher.
	d, err = selectEOP(store, "auto", frames.PEF, frames.CIRS)
	require.NoError(t, err)
	assert.Nil(t, d)

	// An empty store serves the approximation.
	d, err = selectEOP(eop.NewStore(), "auto", frames.TIRS, frames.GCRF)
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = selectEOP(nil, "auto", frames.ITRF, frames.GCRF)
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = selectEOP(store, "IAU2000A", frames.ITRF, frames.GCRF)
	assert.ErrorIs(t, err, errEOPUnavailable)
}
