package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/geoguess/internal/api"
	"github.com/mcoot/geoguess/internal/api/apierr"
	"github.com/mcoot/geoguess/internal/api/response"
	"github.com/mcoot/geoguess/internal/factory"
	"github.com/mcoot/geoguess/internal/testutil"
)

// testServer wraps a router over a test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Coordinator: app.Coordinator,
		Rounds:      app.Rounds,
		Metrics:     app.Metrics,
		WSHandler:   app.WSHandler,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) signIn(t *testing.T, id int64, name string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/auth", map[string]string{"assertion": ts.app.Assertion(id, name)}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionToken
}

func (ts *testServer) operator(t *testing.T) string {
	return ts.signIn(t, int64(factory.TestOperatorID), "Olga")
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func coord(lat, lng float64) map[string]float64 {
	return map[string]float64{"latitude": lat, "longitude": lng}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var health response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "no_active_round", health.Phase)
}

func TestAuthenticate(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth", map[string]string{"assertion": ts.app.Assertion(2, "Alice")}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, int64(2), resp.Participant.ExternalID)
	assert.Equal(t, "Alice", resp.Participant.DisplayName)
	assert.False(t, resp.Participant.IsOperator)
}

func TestAuthenticateReusesToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth", map[string]string{"assertion": ts.app.Assertion(2, "Alice")}, "sess_existing")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sess_existing", resp.SessionToken)
}

func TestAuthenticateIgnoresForeignToken(t *testing.T) {
	ts := newTestServer(t)

	for _, token := range []string{"a", "sess_", "admin"} {
		rr := ts.request(http.MethodPost, "/api/v1/auth/test", map[string]any{"role": "participant", "external_id": 2, "display_name": "Alice"}, token)
		require.Equal(t, http.StatusOK, rr.Code, token)

		var resp response.AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEqual(t, token, resp.SessionToken)
		assert.True(t, strings.HasPrefix(resp.SessionToken, "sess_"), resp.SessionToken)

		rr = ts.request(http.MethodGet, "/api/v1/state", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, token)
	}
}

func TestAuthenticateBadSignature(t *testing.T) {
	ts := newTestServer(t)

	assertion := testutil.SignAssertion("999:other", testutil.UserFields(2, "Alice"))
	rr := ts.request(http.MethodPost, "/api/v1/auth", map[string]string{"assertion": assertion}, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeAuthFailed, errorCode(t, rr))
	assert.NotContains(t, rr.Body.String(), "signature")
}

func TestAuthenticateMissingAssertion(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestTestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth/test", map[string]any{"role": "operator"}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Participant.IsOperator)

	rr = ts.request(http.MethodPost, "/api/v1/auth/test", map[string]any{"role": "king"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/state", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/state", nil, "sess_unknown")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr))
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, 2, "Alice")

	rr := ts.request(http.MethodPost, "/api/v1/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/state", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRoundLifecycle(t *testing.T) {
	ts := newTestServer(t)
	op := ts.operator(t)
	alice := ts.signIn(t, 2, "Alice")
	bob := ts.signIn(t, 3, "Bob")

	// Open
	rr := ts.request(http.MethodPost, "/api/v1/rounds", coord(52.0, 5.0), op)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created response.RoundEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "full", created.Round.Visibility)
	assert.True(t, created.Round.IsOpen)

	// Guess
	rr = ts.request(http.MethodPost, "/api/v1/rounds/current/guesses", coord(51.9, 5.0), alice)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var accepted response.GuessAccepted
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	assert.Equal(t, int64(1), accepted.RoundID)
	assert.Nil(t, accepted.Guess.DistanceKm)

	rr = ts.request(http.MethodPost, "/api/v1/rounds/current/guesses", coord(52.0, 5.1), bob)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Alice sees only her own guess
	rr = ts.request(http.MethodGet, "/api/v1/state", nil, alice)
	require.Equal(t, http.StatusOK, rr.Code)
	var state response.GameState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.NotNil(t, state.Current)
	assert.Equal(t, "partial_self", state.Current.Visibility)
	assert.Nil(t, state.Current.SecretLocation)
	assert.Empty(t, state.Current.Guesses)
	require.NotNil(t, state.Current.OwnGuess)
	assert.Equal(t, 51.9, state.Current.OwnGuess.Location.Latitude)
	assert.Equal(t, 2, state.Current.GuessCount)
	assert.NotContains(t, rr.Body.String(), "5.1")

	// Close
	rr = ts.request(http.MethodPost, "/api/v1/rounds/current/close", nil, op)
	require.Equal(t, http.StatusOK, rr.Code)
	var closed response.RoundEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &closed))
	assert.False(t, closed.Round.IsOpen)
	require.Len(t, closed.Round.Guesses, 2)
	assert.Equal(t, "Bob", closed.Round.Guesses[0].SubmitterName)
	require.NotNil(t, closed.Round.Guesses[0].DistanceKm)
	assert.InDelta(t, 6.85, *closed.Round.Guesses[0].DistanceKm, 0.01)

	// History
	rr = ts.request(http.MethodGet, "/api/v1/history", nil, alice)
	require.Equal(t, http.StatusOK, rr.Code)
	var history response.History
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history.Rounds, 1)
	assert.Equal(t, "full", history.Rounds[0].Visibility)
	require.NotNil(t, history.Rounds[0].SecretLocation)
	assert.Equal(t, 52.0, history.Rounds[0].SecretLocation.Latitude)
}

func TestRoundErrors(t *testing.T) {
	ts := newTestServer(t)
	op := ts.operator(t)
	alice := ts.signIn(t, 2, "Alice")

	rr := ts.request(http.MethodPost, "/api/v1/rounds", coord(52.0, 5.0), alice)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotAuthorized, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rounds/current/guesses", coord(52.0, 5.0), alice)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeNoActiveRound, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rounds", coord(95.0, 5.0), op)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCoordinate, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rounds", map[string]float64{"latitude": 1}, op)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rounds", coord(52.0, 5.0), op)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rounds", coord(52.0, 5.0), op)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeRoundAlreadyOpen, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/rounds/current/guesses", coord(52.0, 5.0), op)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	_ = ts.request(http.MethodPost, "/api/v1/rounds/current/guesses", coord(10, 10), alice)
	rr = ts.request(http.MethodPost, "/api/v1/rounds/current/guesses", coord(11, 11), alice)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeDuplicateGuess, errorCode(t, rr))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.request(http.MethodPost, "/api/v1/auth", map[string]string{"assertion": "user=x"}, "")

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `geoguess_auth_failures_total{reason="missing_signature"} 1`)
}
