package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/repository"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := zap.NewNop()
	svc := service.NewEventService(
		repository.NewMemoryEventRepository(),
		repository.NewMemoryUserRepository(
			model.User{UUID: "u-alice", Nickname: "alice"},
			model.User{UUID: "u-bob", Nickname: "bob"},
		),
		repository.NewMemoryGameRepository(model.Game{UUID: "game-catan", Name: "Catan"}),
		repository.NewMemoryLocationRepository(),
		log,
	)
	return NewRouter(NewEventHandler(svc, log), log)
}

func eventBody(t *testing.T, mutate func(m map[string]any)) []byte {
	t.Helper()
	now := time.Now().UTC()
	m := map[string]any{
		"title":         "Catan night",
		"description":   "Bring snacks",
		"min_player":    2,
		"max_player":    2,
		"creator":       map[string]string{"nickname": "alice"},
		"game":          map[string]string{"uuid": "game-catan"},
		"location":      map[string]string{"town": "Lyon", "zip_code": "69001", "address": "1 rue de la Paix"},
		"limit_date":    now.Add(24 * time.Hour).Format(time.RFC3339),
		"starting_date": now.Add(48 * time.Hour).Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(m)
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createEvent(t *testing.T, h http.Handler) model.EventResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/events", eventBody(t, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out model.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateEvent(t *testing.T) {
	h := newTestRouter(t)
	out := createEvent(t, h)

	assert.NotEmpty(t, out.UUID)
	assert.Equal(t, "alice", out.Creator.Nickname)
	assert.Equal(t, []string{}, out.RegisteredUsers)

	w := do(t, h, http.MethodGet, "/events/"+out.UUID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateEvent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		status int
	}{
		{"malformed json", []byte(`{"title":`), http.StatusBadRequest},
		{"unknown field", []byte(`{"colour":"red"}`), http.StatusBadRequest},
		{"min above max", eventBody(t, func(m map[string]any) { m["min_player"] = 3 }), http.StatusBadRequest},
		{"unknown creator", eventBody(t, func(m map[string]any) {
			m["creator"] = map[string]string{"nickname": "mallory"}
		}), http.StatusNotFound},
		{"unknown game", eventBody(t, func(m map[string]any) {
			m["game"] = map[string]string{"uuid": "game-missing"}
		}), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestRouter(t), http.MethodPost, "/events", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateEvent(t *testing.T) {
	h := newTestRouter(t)
	created := createEvent(t, h)

	w := do(t, h, http.MethodPut, "/events/"+created.UUID, eventBody(t, func(m map[string]any) {
		m["title"] = "Catan marathon"
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out model.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, created.UUID, out.UUID)
	assert.Equal(t, "Catan marathon", out.Title)

	w = do(t, h, http.MethodPut, "/events/missing", eventBody(t, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEvent_Idempotent(t *testing.T) {
	h := newTestRouter(t)
	created := createEvent(t, h)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/events/"+created.UUID, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/events/"+created.UUID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/events/"+created.UUID, nil).Code)
}

func TestListEvents(t *testing.T) {
	h := newTestRouter(t)
	created := createEvent(t, h)

	decode := func(w *httptest.ResponseRecorder) []model.EventResponse {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []model.EventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	out := decode(do(t, h, http.MethodGet, "/events?town=yo", nil))
	require.Len(t, out, 1)
	assert.Equal(t, created.UUID, out[0].UUID)

	// The date filter wins even though the town would match.
	far := time.Now().Add(365 * 24 * time.Hour).Format("2006-01-02")
	assert.Empty(t, decode(do(t, h, http.MethodGet, "/events?town=Lyon&date="+far, nil)))

	w := do(t, h, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/events?date=someday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMembershipEndpoints(t *testing.T) {
	h := newTestRouter(t)
	created := createEvent(t, h)
	base := "/events/" + created.UUID

	success := func(w *httptest.ResponseRecorder) bool {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out model.MembershipResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out.Success
	}

	assert.True(t, success(do(t, h, http.MethodPost, base+"/users/alice", nil)))
	assert.False(t, success(do(t, h, http.MethodPost, base+"/users/alice", nil)))
	assert.False(t, success(do(t, h, http.MethodPost, base+"/waiting/alice", nil)))
	assert.True(t, success(do(t, h, http.MethodPost, base+"/waiting/bob", nil)))
	assert.False(t, success(do(t, h, http.MethodPost, base+"/users/mallory", nil)))
	assert.False(t, success(do(t, h, http.MethodPost, "/events/missing/users/bob", nil)))

	assert.True(t, success(do(t, h, http.MethodDelete, base+"/waiting/bob", nil)))
	assert.False(t, success(do(t, h, http.MethodDelete, base+"/waiting/bob", nil)))
	assert.True(t, success(do(t, h, http.MethodDelete, base+"/users/alice", nil)))
	assert.False(t, success(do(t, h, http.MethodDelete, base+"/users/alice", nil)))
}

func TestCORS_Preflight(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodOptions, "/events", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
