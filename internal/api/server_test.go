package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/config"
	"offerlens/internal/issues"
	"offerlens/internal/model"
	"offerlens/internal/summary"
)

type fakeSource struct {
	rows []model.EnrichedRow
	run  *model.RunRecord
	err  error
}

func (f *fakeSource) LoadRows(context.Context, bool) ([]model.EnrichedRow, error) {
	return f.rows, f.err
}

func (f *fakeSource) LatestRun(context.Context) (model.RunRecord, bool, error) {
	if f.run == nil {
		return model.RunRecord{}, false, f.err
	}
	return *f.run, true, f.err
}

func matchedRow(offer, gender string, net float64) model.EnrichedRow {
	r := model.EnrichedRow{Gender: gender, AgeRange: "50-60", IncomeRange: "70000-80000", OfferType: "bogo"}
	r.CustomerID = "c-" + offer
	r.OfferID = offer
	r.Kind = model.KindCompleted
	r.CompletedAndViewed = true
	r.NetReturn = net
	return r
}

func newTestServer(t *testing.T, src *fakeSource) (*Server, *summary.Store, *issues.Store) {
	t.Helper()
	mgr, err := config.NewManager("")
	require.NoError(t, err)
	sums := summary.NewStore(10)
	iss := issues.NewStore(10)
	return NewServer(mgr, src, sums, iss, nil, "test"), sums, iss
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if rec.Code == http.StatusOK || rec.Code == http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestReloadAndRecommend(t *testing.T) {
	src := &fakeSource{
		rows: []model.EnrichedRow{matchedRow("o1", "F", 10), matchedRow("o2", "M", 30), matchedRow("o3", "F", 20)},
		run:  &model.RunRecord{ID: "run-1", FinishedAt: time.Now().UTC(), Events: 3, Customers: 3},
	}
	srv, _, _ := newTestServer(t, src)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := get(t, h, "/recommend?gender=f")
	require.Equal(t, http.StatusOK, rec.Code)
	offers := body["offers"].([]any)
	require.Len(t, offers, 2)
	assert.Equal(t, "o3", offers[0].(map[string]any)["offer_id"])

	_, body = get(t, h, "/recommend?n=1")
	assert.Equal(t, float64(1), body["count"])

	rec, _ = get(t, h, "/recommend?age=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = get(t, h, "/status")
	assert.Equal(t, "run-1", body["last_run"].(map[string]any)["id"])
	assert.Equal(t, float64(3), body["snapshot"].(map[string]any)["rows"])
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{rows: []model.EnrichedRow{matchedRow("o1", "F", 10)}}
	srv, _, _ := newTestServer(t, src)
	_, err := srv.Reload(context.Background())
	require.NoError(t, err)

	src.err = errors.New("database locked")
	_, err = srv.Reload(context.Background())
	require.Error(t, err)
	assert.Len(t, srv.Snapshot().Rows, 1)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboard(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeSource{rows: []model.EnrichedRow{matchedRow("o1", "F", 10)}})
	_, err := srv.Reload(context.Background())
	require.NoError(t, err)

	rec, body := get(t, srv.Handler(), "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(10), body["totals"].(map[string]any)["net_return"])
}

func TestCustomersAndIssues(t *testing.T) {
	srv, sums, iss := newTestServer(t, &fakeSource{})
	sums.Replace([]model.CustomerSummary{{CustomerID: "a", NetReturn: 4}, {CustomerID: "b", NetReturn: 6}})
	iss.Replace([]model.CustomerError{{CustomerID: "z", GlobalIndex: 7, Kind: "malformed_event", Message: "bad"}})
	h := srv.Handler()

	rec, body := get(t, h, "/customers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(10), body["totals"].(map[string]any)["net_return"])

	rec, body = get(t, h, "/customers/b")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(6), body["summary"].(map[string]any)["net_return"])

	rec, body = get(t, h, "/customers/z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["issues"], 1)

	rec, _ = get(t, h, "/customers/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = get(t, h, "/issues")
	assert.Equal(t, float64(1), body["count"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeSource{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
