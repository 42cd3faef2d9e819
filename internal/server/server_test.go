package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BLOSSOM1234321/aurawell-sub002/internal/config"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/database"
	"github.com/BLOSSOM1234321/aurawell-sub002/internal/models"
)

type testServer struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T, mutateCfg ...func(*config.Config)) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	cfg := &config.Config{
		Env:               "test",
		Port:              "8460",
		JWTSecret:         "test-secret-at-least-32-characters-long",
		RoomMaxMembers:    3,
		JoinMaxRetries:    5,
		JoinBackoffBaseMS: 0,
	}
	for _, mutate := range mutateCfg {
		mutate(cfg)
	}

	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	return &testServer{srv: srv, app: app, db: db}
}

func (ts *testServer) createUser(t *testing.T, status models.UserStatus, isModerator bool) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret!Pass"), bcrypt.MinCost)
	require.NoError(t, err)

	name := "user-" + uuid.NewString()[:8]
	user := &models.User{
		Username:    name,
		Email:       name + "@example.com",
		Password:    string(hash),
		Status:      status,
		IsModerator: isModerator,
	}
	require.NoError(t, ts.db.Create(user).Error)

	token, err := ts.srv.generateToken(user.ID, user.Username)
	require.NoError(t, err)
	return user, token
}

func (ts *testServer) createGroup(t *testing.T) *models.SupportGroup {
	t.Helper()
	slug := "group-" + uuid.NewString()[:8]
	group := &models.SupportGroup{Name: "Group " + slug, Slug: slug}
	require.NoError(t, ts.db.Create(group).Error)
	return group
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp, parsed
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)

	signup := map[string]string{
		"username": "wellness_fan",
		"email":    "fan@example.com",
		"password": "Sup3rSecret!Pass",
	}
	resp, body := ts.request(t, http.MethodPost, "/api/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "wellness_fan", user["username"])
	assert.Nil(t, user["password"], "password hash must never serialize")

	resp, _ = ts.request(t, http.MethodPost, "/api/auth/signup", "", signup)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate email")

	resp, body = ts.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "fan@example.com", "password": "Sup3rSecret!Pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	resp, _ = ts.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "fan@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "Sup3rSecret!Pass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignup_WeakPassword(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "weakling",
		"email":    "weak@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	user, token := ts.createUser(t, models.UserStatusActive, false)

	resp, _ := ts.request(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodGet, "/api/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ts.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, user.ID, body["id"])
}

func TestJoinAndLeaveFlow(t *testing.T) {
	ts := newTestServer(t)
	group := ts.createGroup(t)
	_, token := ts.createUser(t, models.UserStatusActive, false)
	joinPath := fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID)

	resp, body := ts.request(t, http.MethodPost, joinPath, token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "joined", body["status"])
	room := body["room"].(map[string]any)
	assert.EqualValues(t, 1, room["room_number"])
	roomID := uint(room["id"].(float64))

	resp, body = ts.request(t, http.MethodPost, joinPath, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "already_member", body["status"])

	leavePath := fmt.Sprintf("/api/rooms/%d/leave", roomID)
	resp, _ = ts.request(t, http.MethodPost, leavePath, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.request(t, http.MethodPost, leavePath, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOT_A_MEMBER", body["code"])
}

func TestJoinRoom_BadRequests(t *testing.T) {
	ts := newTestServer(t)
	group := ts.createGroup(t)
	_, token := ts.createUser(t, models.UserStatusActive, false)

	resp, body := ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/stages/expert/join", group.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	resp, body = ts.request(t, http.MethodPost,
		"/api/groups/9999/stages/beginner/join", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestJoinRoom_SuspendedUser(t *testing.T) {
	ts := newTestServer(t)
	group := ts.createGroup(t)
	user, token := ts.createUser(t, models.UserStatusActive, false)

	until := time.Now().UTC().Add(49 * time.Hour)
	require.NoError(t, ts.db.Model(user).Updates(map[string]any{
		"status": models.UserStatusSuspended, "suspended_until": until,
	}).Error)

	resp, body := ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID), token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "JOIN_REJECTED", body["code"])
	assert.Equal(t, "suspended", body["status"])
	assert.EqualValues(t, 3, body["days_remaining"], "49 hours rounds up to 3 days")
	assert.NotEmpty(t, body["suspended_until"])
}

func TestJoinRoom_MaintenanceFlag(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.FeatureFlags = "join_maintenance=on"
	})
	group := ts.createGroup(t)
	_, token := ts.createUser(t, models.UserStatusActive, false)

	resp, body := ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID), token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVER_BUSY", body["code"])
}

func TestFeatureFlagsEndpoint(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.FeatureFlags = "join_maintenance=off,room_directory_v2=100%"
	})
	_, modToken := ts.createUser(t, models.UserStatusActive, true)
	_, userToken := ts.createUser(t, models.UserStatusActive, false)

	resp, body := ts.request(t, http.MethodGet, "/api/moderation/flags", modToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	configured := body["configured"].(map[string]any)
	assert.Equal(t, "off", configured["join_maintenance"])
	assert.Equal(t, "100%", configured["room_directory_v2"])

	evaluated := body["evaluated"].(map[string]any)
	assert.Equal(t, false, evaluated["join_maintenance"])
	assert.Equal(t, true, evaluated["room_directory_v2"])

	resp, _ = ts.request(t, http.MethodGet, "/api/moderation/flags", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRoomDirectory(t *testing.T) {
	ts := newTestServer(t)
	group := ts.createGroup(t)
	_, token := ts.createUser(t, models.UserStatusActive, false)
	_, _ = ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID), token, nil)

	resp, body := ts.request(t, http.MethodGet, "/api/groups", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["groups"], 1)

	resp, body = ts.request(t, http.MethodGet,
		fmt.Sprintf("/api/groups/%d/stages/beginner/rooms", group.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["rooms"], 1)

	resp, body = ts.request(t, http.MethodGet, fmt.Sprintf("/api/groups/%d", group.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, group.Slug, body["slug"])
}

func TestGetRoomAndMemberships(t *testing.T) {
	ts := newTestServer(t)
	group := ts.createGroup(t)
	user, token := ts.createUser(t, models.UserStatusActive, false)
	_, body := ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID), token, nil)
	roomID := uint(body["room"].(map[string]any)["id"].(float64))

	resp, body := ts.request(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d", roomID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members := body["members"].([]any)
	require.Len(t, members, 1)
	assert.EqualValues(t, user.ID, members[0].(map[string]any)["user_id"])

	resp, body = ts.request(t, http.MethodGet, "/api/users/me/memberships", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["memberships"], 1)

	resp, _ = ts.request(t, http.MethodGet, "/api/rooms/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestModerationEndpoints(t *testing.T) {
	ts := newTestServer(t)
	group := ts.createGroup(t)
	_, modToken := ts.createUser(t, models.UserStatusActive, true)
	target, targetToken := ts.createUser(t, models.UserStatusActive, false)
	_, body := ts.request(t, http.MethodPost,
		fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID), targetToken, nil)
	roomID := uint(body["room"].(map[string]any)["id"].(float64))

	t.Run("non-moderator is rejected at the gate", func(t *testing.T) {
		resp, respBody := ts.request(t, http.MethodGet, "/api/moderation/actions", targetToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", respBody["code"])
	})

	t.Run("kick", func(t *testing.T) {
		resp, _ := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/rooms/%d/kick/%d", roomID, target.ID), modToken,
			map[string]any{"reason": "disruptive"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, respBody := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/rooms/%d/kick/%d", roomID, target.ID), modToken, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "NOT_A_MEMBER", respBody["code"])
	})

	t.Run("suspend and unsuspend", func(t *testing.T) {
		resp, _ := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/suspend", target.ID), modToken,
			map[string]any{"days": 5, "reason": "cooling off"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stored models.User
		require.NoError(t, ts.db.First(&stored, target.ID).Error)
		assert.Equal(t, models.UserStatusSuspended, stored.Status)

		resp, respBody := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/suspend", target.ID), modToken,
			map[string]any{"days": 0})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", respBody["code"])

		resp, _ = ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/unsuspend", target.ID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ban and unban", func(t *testing.T) {
		resp, _ := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/ban", target.ID), modToken,
			map[string]any{"reason": "harassment"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// A banned user cannot join.
		joinResp, joinBody := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/groups/%d/stages/beginner/join", group.ID), targetToken, nil)
		assert.Equal(t, http.StatusForbidden, joinResp.StatusCode)
		assert.Equal(t, "banned", joinBody["status"])

		resp, _ = ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/unban", target.ID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("archive room", func(t *testing.T) {
		resp, _ := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/rooms/%d/archive", roomID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, respBody := ts.request(t, http.MethodPost,
			fmt.Sprintf("/api/moderation/rooms/%d/archive", roomID), modToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", respBody["code"])
	})

	t.Run("delete content", func(t *testing.T) {
		msg := &models.Message{RoomID: roomID, AuthorID: target.ID, Body: "off topic"}
		require.NoError(t, ts.db.Create(msg).Error)

		resp, _ := ts.request(t, http.MethodDelete,
			fmt.Sprintf("/api/moderation/messages/%d", msg.ID), modToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, respBody := ts.request(t, http.MethodDelete,
			"/api/moderation/messages/9999", modToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", respBody["code"])
	})

	t.Run("user standing", func(t *testing.T) {
		resp, respBody := ts.request(t, http.MethodGet,
			fmt.Sprintf("/api/moderation/users/%d", target.ID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		user := respBody["user"].(map[string]any)
		assert.EqualValues(t, target.ID, user["id"])
		assert.NotEmpty(t, respBody["actions"])

		resp, _ = ts.request(t, http.MethodGet, "/api/moderation/users/9999", modToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("audit trail", func(t *testing.T) {
		resp, respBody := ts.request(t, http.MethodGet, "/api/moderation/actions", modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		actions := respBody["actions"].([]any)
		assert.NotEmpty(t, actions)

		types := make(map[string]int)
		for _, a := range actions {
			types[a.(map[string]any)["action_type"].(string)]++
		}
		assert.Equal(t, 1, types["kick"])
		assert.Equal(t, 1, types["suspend"])
		assert.Equal(t, 1, types["unsuspend"])
		assert.Equal(t, 1, types["ban"])
		assert.Equal(t, 1, types["unban"])
		assert.Equal(t, 1, types["archive_room"])
		assert.Equal(t, 1, types["delete_message"])
	})
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = ts.request(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"], "redis is optional")
}

func TestParseIDValidation(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, models.UserStatusActive, false)

	resp, body := ts.request(t, http.MethodGet, "/api/rooms/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ID", body["error"])
}
