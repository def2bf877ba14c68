package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boxwatch/boxwatch-api/internal/boxes"
	"github.com/boxwatch/boxwatch-api/internal/locations"
	"github.com/boxwatch/boxwatch-api/internal/provision"
	"github.com/boxwatch/boxwatch-api/internal/reports"
	"github.com/boxwatch/boxwatch-api/internal/suggestions"
	"github.com/boxwatch/boxwatch-api/internal/testutil"
	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/blob"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t      *testing.T
	engine *gin.Engine
	jwt    *auth.JWTVerifier
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := testutil.NewStore(t)
	testutil.SeedPasscode(t, s, "semperfi")
	log := testutil.Logger()
	gate := auth.NewGate(s, log)
	rec := audit.NewRecorder(s, log)
	rows := &testutil.Rows{Values: [][]string{
		{"Label", "Address"},
		{"Corner Store", "1 Main St"},
		{"Library", "2 Oak Ave"},
	}}
	verifier := auth.NewJWTVerifier("test-secret")

	h := &Handler{
		Verifier:    verifier,
		Gate:        gate,
		Provision:   provision.NewService(s, gate, &testutil.Geocoder{Lat: 1, Lng: 2}, rec, log),
		Reports:     reports.NewService(s, gate, &testutil.Mailer{}, rec, log),
		Boxes:       boxes.NewService(s, gate, rec, log),
		Suggestions: suggestions.NewSyncer(rows, s, gate, rec, log),
		Locations:   locations.NewBuilder(s, blob.NewDir(t.TempDir(), "http://test/static"), gate, rec, log),
		Log:         log,
	}
	r := gin.New()
	h.Register(r)
	return &server{t: t, engine: r, jwt: verifier}
}

func (s *server) token(c auth.Caller) string {
	tok, err := s.jwt.CreateToken(c, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

var sam = auth.Caller{UID: "vol-1", Email: "sam@example.org", Name: "Sam"}

func TestBanner(t *testing.T) {
	srv := newServer(t)
	w := srv.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BoxWatch API", decodeBody(t, w)["message"])
}

func TestAuthFlow(t *testing.T) {
	srv := newServer(t)
	tok := srv.token(sam)

	w := srv.do(http.MethodGet, "/api/auth/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, w)["code"])

	w = srv.do(http.MethodGet, "/api/auth/status", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "bad tokens are anonymous")

	w = srv.do(http.MethodGet, "/api/auth/status", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["isAuthorized"])

	w = srv.do(http.MethodPost, "/api/auth/passcode", tok, gin.H{"code": "WRONG"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, auth.MsgWrongPasscode, decodeBody(t, w)["error"])

	w = srv.do(http.MethodPost, "/api/auth/passcode", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, w)["code"])

	w = srv.do(http.MethodPost, "/api/auth/passcode", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "an empty body reaches the gate")

	w = srv.do(http.MethodPost, "/api/auth/passcode", tok, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, auth.MsgPasscodeRequired, decodeBody(t, w)["error"])

	w = srv.do(http.MethodPost, "/api/auth/passcode", tok, gin.H{"code": "semperfi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody(t, w)["success"])

	w = srv.do(http.MethodGet, "/api/auth/status", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["isAuthorized"])
	assert.Equal(t, "Sam", body["displayName"])

	// Authorized volunteers do not need the passcode again.
	w = srv.do(http.MethodPost, "/api/auth/passcode", tok, gin.H{})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestProvisionAndHistory(t *testing.T) {
	srv := newServer(t)
	tok := srv.token(sam)
	req := models.ProvisionRequest{BoxID: "BOX42", Address: "1 Main St", Label: "Corner Store", Passcode: "semperfi"}

	w := srv.do(http.MethodPost, "/api/boxes", "", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodPost, "/api/boxes", tok, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "BOX42", decodeBody(t, w)["boxId"])

	w = srv.do(http.MethodPost, "/api/boxes", tok, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already-exists", decodeBody(t, w)["code"])

	bad := req
	bad.BoxID = "BOX43"
	bad.ContactEmail = "nope"
	w = srv.do(http.MethodPost, "/api/boxes", "", bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "sign-in is checked before input")
	w = srv.do(http.MethodPost, "/api/boxes", tok, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "contactEmail must be a valid email address.", decodeBody(t, w)["error"])

	w = srv.do(http.MethodGet, "/api/boxes/BOX42", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist models.BoxHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, "Corner Store", hist.Box.Label)
	require.Len(t, hist.Reports, 1)

	w = srv.do(http.MethodGet, "/api/boxes/NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(http.MethodDelete, "/api/boxes/BOX42", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BoxDeleted, decodeBody(t, w)["status"])
}

func TestReports(t *testing.T) {
	srv := newServer(t)
	tok := srv.token(sam)
	w := srv.do(http.MethodPost, "/api/boxes", tok, models.ProvisionRequest{BoxID: "BOX42", Address: "1 Main St", Passcode: "semperfi"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = srv.do(http.MethodPost, "/api/reports", "", models.ReportRequest{BoxID: "BOX42", FormType: "pickup"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["emailSent"])
	id, _ := body["recordId"].(string)
	require.NotEmpty(t, id)

	w = srv.do(http.MethodPost, "/api/reports", "", gin.H{"boxId": "BOX42"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodPost, "/api/reports", "", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodPost, "/api/reports/"+id+"/clear", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodPost, "/api/reports/"+id+"/clear", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportCleared, decodeBody(t, w)["status"])
}

func TestLocations(t *testing.T) {
	srv := newServer(t)
	tok := srv.token(sam)
	w := srv.do(http.MethodPost, "/api/boxes", tok, models.ProvisionRequest{BoxID: "BOX42", Address: "1 Main St", Passcode: "semperfi"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = srv.do(http.MethodGet, "/api/locations", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	var cache models.LocationsCache
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cache))
	assert.Equal(t, 1, cache.Count)

	w = srv.do(http.MethodPost, "/api/locations/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodPost, "/api/locations/refresh", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = srv.do(http.MethodGet, "/triggers/refresh-locations", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSuggestionRoutes(t *testing.T) {
	srv := newServer(t)
	tok := srv.token(sam)

	w := srv.do(http.MethodPost, "/triggers/sync-suggestions?delaySeconds=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decodeBody(t, w)["synced"])

	w = srv.do(http.MethodGet, "/triggers/sync-suggestions?delaySeconds=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodPost, "/api/suggestions/sync", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodPost, "/api/auth/passcode", tok, gin.H{"code": "semperfi"})
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodPost, "/api/suggestions/sync", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(http.MethodGet, "/api/suggestions?q=corn", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Suggestions []models.LocationSuggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "Corner Store", out.Suggestions[0].Label)
}
