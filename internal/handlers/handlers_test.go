package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deo-backend/internal/middleware"
	"deo-backend/internal/models"
	"deo-backend/internal/services"
	"deo-backend/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router      chi.Router
	gate        *services.SessionGate
	feed        *services.Feed
	hub         *services.WSHub
	users       *testutil.Users
	streaks     *testutil.Streaks
	prayers     *testutil.Prayers
	checklist   *testutil.Checklist
	inspiration *testutil.Inspirations
	clock       *testutil.Clock
	ws          *WebSocketHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))
	env := &testEnv{
		feed:        services.NewFeed(),
		users:       testutil.NewUsers(),
		prayers:     testutil.NewPrayers(),
		checklist:   testutil.NewChecklist(),
		inspiration: testutil.NewInspirations(),
		clock:       clock,
	}
	env.streaks = testutil.NewStreaks(env.users)
	env.gate = services.NewSessionGate(testutil.NewSessions(), "test-secret", 30, clock)
	env.feed.FollowSessions(env.gate)
	env.hub = services.NewWSHub(env.gate)

	share := services.NewShareService(testutil.NewPublisher(), time.Hour)
	userService := services.NewUserService(env.users, env.gate, clock)
	streakService := services.NewStreakService(env.streaks, env.feed, clock, time.UTC)
	prayerService := services.NewPrayerService(env.prayers, env.feed, clock)
	checklistService := services.NewChecklistService(env.checklist, env.feed, clock)
	reflectionService := services.NewReflectionService(testutil.NewReflections(), env.feed, clock)
	inspirationService := services.NewInspirationService(env.inspiration, env.feed, share, clock)

	users := NewUserHandler(userService)
	streak := NewStreakHandler(streakService, time.UTC)
	prayers := NewPrayerHandler(prayerService)
	checklist := NewChecklistHandler(checklistService)
	reflections := NewReflectionHandler(reflectionService)
	inspirations := NewInspirationHandler(inspirationService)
	shares := NewShareHandler(share)
	env.ws = NewWebSocketHandler(env.hub, env.gate, map[string]services.Subscribable{
		"streak":       streakService,
		"prayers":      prayerService,
		"checklist":    checklistService,
		"reflections":  reflectionService,
		"inspirations": inspirationService,
	})

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", users.SignUp)
		r.Post("/auth/signin", users.SignIn)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(env.gate))
			r.Post("/auth/signout", users.SignOut)
			r.Get("/me", users.Me)
			r.Put("/me/push-token", users.UpdatePushToken)
			r.Get("/streak", streak.GetStreak)
			r.Post("/streak/log", streak.LogStreak)
			r.Get("/prayers", prayers.ListPrayers)
			r.Post("/prayers", prayers.AddPrayer)
			r.Get("/checklist", checklist.GetChecklist)
			r.Post("/checklist/{item_id}/toggle", checklist.ToggleItem)
			r.Get("/reflections", reflections.ListReflections)
			r.Post("/reflections", reflections.AddReflection)
			r.Get("/inspirations", inspirations.ListInspirations)
			r.Post("/inspirations", inspirations.AddInspiration)
			r.Patch("/inspirations/{inspiration_id}", inspirations.UpdateInspiration)
			r.Post("/inspirations/{inspiration_id}/share", inspirations.ShareInspiration)
			r.Post("/share", shares.Share)
		})
	})
	r.Get("/ws", env.ws.HandleWebSocket)
	env.router = r
	return env
}

// signIn creates a user directly in the store and opens a session for it
func (e *testEnv) signIn(t *testing.T, userID string) (string, *models.Session) {
	t.Helper()
	user := &models.User{ID: userID, Username: userID, Email: userID + "@example.com", CreatedAt: e.clock.Now()}
	require.NoError(t, e.users.Create(context.Background(), user))
	token, session, err := e.gate.Open(context.Background(), user)
	require.NoError(t, err)
	return token, session
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSignUpFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", SignUpRequest{
		Username: "maria", Email: "maria@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	auth := decode[services.AuthResult](t, rec)
	assert.NotEmpty(t, auth.Token)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", SignUpRequest{
		Username: "maria2", Email: "maria@example.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signin", "", SignInRequest{Email: "maria@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, "maria", me.Username)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signout", auth.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/me", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", SignUpRequest{Email: "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "missing info")
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/streak", "/api/v1/prayers", "/api/v1/checklist", "/api/v1/inspirations"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.Equal(t, 0, env.checklist.Seeds())
}

func TestStreakEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")

	rec := env.do(t, http.MethodGet, "/api/v1/streak", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[models.StreakState](t, rec)
	assert.Equal(t, 0, state.StreakCount)
	assert.Nil(t, state.LastLoggedDate)

	rec = env.do(t, http.MethodPost, "/api/v1/streak/log", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logged := decode[services.StreakLog](t, rec)
	assert.Equal(t, 1, logged.State.StreakCount)
	assert.True(t, logged.Result.Updated)

	rec = env.do(t, http.MethodPost, "/api/v1/streak/log", token, LogStreakRequest{Today: "2024-03-12"})
	require.Equal(t, http.StatusOK, rec.Code)
	logged = decode[services.StreakLog](t, rec)
	assert.Equal(t, 2, logged.State.StreakCount)

	rec = env.do(t, http.MethodPost, "/api/v1/streak/log", token, LogStreakRequest{Today: "12/03/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, today := range []string{"2024-03-14", "2030-01-01"} {
		rec = env.do(t, http.MethodPost, "/api/v1/streak/log", token, LogStreakRequest{Today: today})
		assert.Equal(t, http.StatusBadRequest, rec.Code, today)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/streak", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[models.StreakState](t, rec)
	assert.Equal(t, 2, state.StreakCount)
	require.NotNil(t, state.LastLoggedDate)
	assert.Equal(t, "2024-03-12", state.LastLoggedDate.Format(time.DateOnly))
}

func TestStreakWriteFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")
	env.streaks.FailWrites(testutil.ErrInjected)

	rec := env.do(t, http.MethodPost, "/api/v1/streak/log", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.True(t, resp.Retryable)
}

func TestChecklistEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")

	rec := env.do(t, http.MethodGet, "/api/v1/checklist", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[services.ChecklistView](t, rec)
	require.Len(t, view.Items, 4)
	assert.Equal(t, models.ChecklistSummary{Completed: 0, Total: 4}, view.Summary)

	done := false
	rec = env.do(t, http.MethodPost, "/api/v1/checklist/"+view.Items[0].ID+"/toggle", token, ToggleRequest{Done: &done})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := decode[models.ChecklistItem](t, rec)
	assert.True(t, item.Done)

	rec = env.do(t, http.MethodGet, "/api/v1/checklist", token, nil)
	view = decode[services.ChecklistView](t, rec)
	assert.Equal(t, 1, view.Summary.Completed)

	rec = env.do(t, http.MethodPost, "/api/v1/checklist/"+view.Items[0].ID+"/toggle", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	other, _ := env.signIn(t, "u2")
	rec = env.do(t, http.MethodPost, "/api/v1/checklist/"+view.Items[0].ID+"/toggle", other, ToggleRequest{Done: &done})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrayerAndReflectionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")

	rec := env.do(t, http.MethodPost, "/api/v1/prayers", token, AddPrayerRequest{Title: "Morning", Body: "Guide me."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/prayers", token, AddPrayerRequest{Title: "Missing body"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/prayers", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prayers := decode[map[string][]models.Prayer](t, rec)
	require.Len(t, prayers["prayers"], 1)
	assert.Equal(t, "Morning", prayers["prayers"][0].Title)

	rec = env.do(t, http.MethodPost, "/api/v1/reflections", token, AddReflectionRequest{Body: "Grateful."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/reflections", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reflections := decode[map[string][]models.ReflectionEntry](t, rec)
	assert.Len(t, reflections["reflections"], 1)
}

func TestInspirationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")

	rec := env.do(t, http.MethodGet, "/api/v1/inspirations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]models.InspirationPrayer](t, rec)["inspirations"]
	require.Len(t, list, len(services.BuiltinInspirations))

	title := "Edited"
	rec = env.do(t, http.MethodPatch, "/api/v1/inspirations/"+list[0].ID, token, UpdateInspirationRequest{Title: &title})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.clock.Advance(time.Minute)
	rec = env.do(t, http.MethodPost, "/api/v1/inspirations", token, AddInspirationRequest{Title: "Mine", Body: "Text"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.InspirationPrayer](t, rec)

	rec = env.do(t, http.MethodPatch, "/api/v1/inspirations/"+created.ID, token, UpdateInspirationRequest{Title: &title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Edited", decode[models.InspirationPrayer](t, rec).Title)

	rec = env.do(t, http.MethodPost, "/api/v1/inspirations/"+created.ID+"/share", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shared := decode[services.ShareResult](t, rec)
	assert.Equal(t, services.ShareShared, shared.Status)
	assert.NotEmpty(t, shared.URL)
}

func TestShareEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")

	rec := env.do(t, http.MethodPost, "/api/v1/share", token, services.ShareRequest{Message: "Pray with me"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, services.ShareShared, decode[services.ShareResult](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/api/v1/share", token, services.ShareRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareUnavailable(t *testing.T) {
	h := NewShareHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/share", bytes.NewBufferString(`{"message":"x"}`))
	req = req.WithContext(middleware.WithSession(req.Context(), &models.Session{ID: "s1", UserID: "u1"}))
	rec := httptest.NewRecorder()

	h.Share(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPushToken(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signIn(t, "u1")

	rec := env.do(t, http.MethodPut, "/api/v1/me/push-token", token, PushTokenRequest{PushToken: "device-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	u, err := env.users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, u.PushToken)
	assert.Equal(t, "device-1", *u.PushToken)
}
