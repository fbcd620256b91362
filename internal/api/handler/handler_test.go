package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"traderadar/backend/internal/api/handler"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/localization"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/storage"
	"traderadar/backend/internal/storage/storagetest"
)

const secret = "test-secret"

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*storagetest.MockStorage, http.Handler) {
	t.Helper()
	store := new(storagetest.MockStorage)
	loc, err := localization.NewEmbedded()
	require.NoError(t, err)
	h := handler.NewHandler(store, loc, nil, handler.Options{
		JWTSecret:          secret,
		TokenTTL:           time.Hour,
		NearbyRadiusMeters: 1000,
		CallTimeout:        time.Second,
	})
	return store, h.Router()
}

func do(t *testing.T, srv http.Handler, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

// login creates userID through the API and returns its token.
func login(t *testing.T, store *storagetest.MockStorage, srv http.Handler, userID string) string {
	t.Helper()
	store.On("SaveUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.DisplayName == userID })).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = userID }).
		Return(nil).Once()

	w := do(t, srv, http.MethodPost, "/auth/token", "", map[string]any{"display_name": userID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, userID, resp.UserID)
	return resp.Token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestAuth_RejectsMissingAndForgedTokens(t *testing.T) {
	_, srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/lists/want", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodGet, "/lists/want", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Code)
}

func TestCreateUser_RequiresDisplayName(t *testing.T) {
	_, srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/auth/token", "", map[string]any{"display_name": "  "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLists_GetAndBadKind(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("GetList", mock.Anything, "alice", models.WantList).
		Return([]models.TradeListEntry{{CardTemplateID: "A", CardName: "Alpha"}}, nil)

	w := do(t, srv, http.MethodGet, "/lists/want", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.TradeListEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Equal(t, "A", entries[0].CardTemplateID)

	w = do(t, srv, http.MethodGet, "/lists/wishlist", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLists_RemoveConflictIsLocalized(t *testing.T) {
	// Arrange
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("RemoveEntries", mock.Anything, "alice", []string{"A", "B"}, models.HaveList).
		Return(failure.ConflictErr("remove", errors.New("1 of 2 cards no longer in have list")))

	// Act
	w := do(t, srv, http.MethodDelete, "/lists/have", token,
		map[string]any{"card_ids": []string{"A", "B"}}, "Accept-Language", "uk-UA,uk;q=0.9")

	// Assert
	require.Equal(t, http.StatusConflict, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, "conflict", e.Code)
	assert.Equal(t, "Деякі картки вже видалено з вашого списку. Оновіть і спробуйте ще раз.", e.Message)
}

func TestLists_RemoveSuccess(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("RemoveEntries", mock.Anything, "alice", []string{"A"}, models.WantList).Return(nil)

	w := do(t, srv, http.MethodDelete, "/lists/want", token, map[string]any{"card_ids": []string{"A"}})

	assert.Equal(t, http.StatusNoContent, w.Code)
	store.AssertExpectations(t)
}

func TestLocation_UnknownIs404(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("GetLocation", mock.Anything, "alice").Return(nil, nil)

	w := do(t, srv, http.MethodGet, "/location", token, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLocation_InvalidCoordinateIs400(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	c := geo.Coordinate{Latitude: 95, Longitude: 0}
	store.On("SetLocation", mock.Anything, "alice", c).Return(failure.ValidationErr("set location", "latitude 95 out of range"))

	w := do(t, srv, http.MethodPut, "/location", token, c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decodeError(t, w).Code)
}

func TestMatches_ComputedServerSide(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("GetList", mock.Anything, "alice", models.WantList).Return([]models.TradeListEntry{}, nil)
	store.On("GetList", mock.Anything, "alice", models.HaveList).Return([]models.TradeListEntry{{CardTemplateID: "C", CardName: "C"}}, nil)
	store.On("GetList", mock.Anything, "bob", models.WantList).Return([]models.TradeListEntry{{CardTemplateID: "C", CardName: "C"}}, nil)
	store.On("GetList", mock.Anything, "bob", models.HaveList).Return([]models.TradeListEntry{}, nil)
	store.On("FindNearbyUsers", mock.Anything, "alice", 1000.0).Return([]models.Profile{{UserID: "bob", DisplayName: "Bob"}}, nil)
	store.On("GetSessionsForUser", mock.Anything, "alice").Return([]models.NegotiationSession{}, nil)
	store.On("GetLocation", mock.Anything, "alice").Return(nil, nil)

	w := do(t, srv, http.MethodGet, "/matches", token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var matches []models.Match
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, models.IHaveWhatTheyWant, matches[0].Type)
	assert.Nil(t, matches[0].DistanceMeters)
	assert.Equal(t, models.StatusActive, matches[0].Status)
}

func TestMatches_PoolOutageIs503(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("GetList", mock.Anything, "alice", mock.Anything).Return([]models.TradeListEntry{}, nil)
	store.On("FindNearbyUsers", mock.Anything, "alice", 1000.0).
		Return(nil, failure.TransientErr("nearby", errors.New("redis: connection refused")))

	w := do(t, srv, http.MethodGet, "/matches", token, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func session(id string, status models.NegotiationStatus) *models.NegotiationSession {
	return &models.NegotiationSession{
		ID: id, MatchID: models.PairKey("alice", "bob"), User1ID: "alice", User2ID: "bob",
		Status: status, StartedAt: time.Now(),
	}
}

func TestPoll_ReturnsSnapshot(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "bob")
	store.On("GetSessionByID", mock.Anything, "s1").Return(session("s1", models.StatusActive), nil)
	store.On("GetMessages", mock.Anything, "s1").Return([]models.MessageRecord{
		{ID: "01A", SessionID: "s1", SenderID: "alice", Content: "hi", SentAt: time.Now()},
	}, nil)

	w := do(t, srv, http.MethodGet, "/sessions/s1/messages", token, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, models.StatusActive, snap.Status)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "hi", snap.Messages[0].Content)
}

func TestPoll_OutsiderGets404(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "mallory")
	store.On("GetSessionByID", mock.Anything, "s1").Return(session("s1", models.StatusActive), nil)

	w := do(t, srv, http.MethodGet, "/sessions/s1/messages", token, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	store.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything)
}

func TestPoll_UnknownSessionIs404(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "bob")
	store.On("GetSessionByID", mock.Anything, "nope").Return(nil, storage.ErrNotFound)

	w := do(t, srv, http.MethodGet, "/sessions/nope/messages", token, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSend_TerminalSessionIs409(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("GetSessionByID", mock.Anything, "s1").Return(session("s1", models.StatusCompleted), nil)
	store.On("SaveMessage", mock.Anything, "s1", "alice", "still there?").
		Return(nil, failure.ConflictErr("save message", errors.New("session s1 is completed")))

	w := do(t, srv, http.MethodPost, "/sessions/s1/messages", token, map[string]any{"content": "still there?"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSend_RateLimitedPerUser(t *testing.T) {
	store, srv := newTestServer(t)
	alice := login(t, store, srv, "alice")
	bob := login(t, store, srv, "bob")
	store.On("GetSessionByID", mock.Anything, "s1").Return(session("s1", models.StatusActive), nil)
	store.On("SaveMessage", mock.Anything, "s1", mock.Anything, mock.Anything).
		Return(&models.MessageRecord{ID: "01A", SessionID: "s1"}, nil)

	limited := false
	for i := 0; i < 20; i++ {
		w := do(t, srv, http.MethodPost, "/sessions/s1/messages", alice, map[string]any{"content": fmt.Sprintf("msg %d", i)})
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusCreated, w.Code)
	}
	assert.True(t, limited, "alice should be rate limited")

	w := do(t, srv, http.MethodPost, "/sessions/s1/messages", bob, map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusCreated, w.Code, "bob has his own bucket")
}

func TestComplete_SecondTransitionIs409(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("GetSessionByID", mock.Anything, "s1").Return(session("s1", models.StatusActive), nil)
	store.On("TransitionSession", mock.Anything, "s1", models.StatusCompleted, "completed").Return(nil).Once()
	store.On("TransitionSession", mock.Anything, "s1", models.StatusCompleted, "completed").
		Return(failure.ConflictErr("transition", errors.New("session s1 is already completed"))).Once()

	first := do(t, srv, http.MethodPost, "/sessions/s1/complete", token, nil)
	second := do(t, srv, http.MethodPost, "/sessions/s1/complete", token, nil)

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestCancel_PassesReason(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "bob")
	store.On("GetSessionByID", mock.Anything, "s1").Return(session("s1", models.StatusActive), nil)
	store.On("TransitionSession", mock.Anything, "s1", models.StatusCancelled, "stale").Return(nil)

	w := do(t, srv, http.MethodPost, "/sessions/s1/cancel", token, map[string]any{"reason": "stale"})

	assert.Equal(t, http.StatusNoContent, w.Code)
	store.AssertExpectations(t)
}

func TestOpenSession_ValidationIs400(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "alice")
	store.On("OpenSession", mock.Anything, "alice", mock.Anything).
		Return(nil, failure.ValidationErr("open session", "invalid counterpart"))

	w := do(t, srv, http.MethodPost, "/sessions", token, map[string]any{"match_id": "x", "counterpart_id": "alice"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessions_SummarizedForCaller(t *testing.T) {
	store, srv := newTestServer(t)
	token := login(t, store, srv, "bob")
	store.On("GetSessionsForUser", mock.Anything, "bob").
		Return([]models.NegotiationSession{*session("s1", models.StatusCancelled)}, nil)

	w := do(t, srv, http.MethodGet, "/sessions", token, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var out []models.SessionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "alice", out[0].CounterpartID)
	assert.Equal(t, models.StatusCancelled, out[0].Status)
}
