package routers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lms/config"
	authController "lms/controllers/auth"
	courseController "lms/controllers/course"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/services/events"
	"lms/services/provisioning"
	"lms/testutil"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Errors  map[string]interface{} `json:"errors"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.Defaults()
	cfg.PublicDir = ""
	cfg.RateLimitPerMinute = 0
	cfg.SaltRound = bcrypt.MinCost
	cfg.JWTKey = "test-secret"
	config.AppConfig = cfg

	database.Database = database.DbInstance{Db: testutil.NewDB(t)}
	utils.SetMailer(utils.ConsoleMailer{})

	bus := events.New()
	bus.Subscribe(events.OrderPaidEvent, provisioning.HandleOrderPaid)
	courseController.Setup(courseController.Deps{Bus: bus})
	authController.Setup(cfg, nil)

	return NewApp(cfg)
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return res.StatusCode, env
}

func tokenFor(t *testing.T, role string) (models.User, string) {
	t.Helper()
	user := testutil.User(t, database.Database.Db, role)
	token, err := middleware.GenerateJWT(user)
	require.NoError(t, err)
	return user, token
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada Lovelace", "email": "not-an-email", "password": "secret123",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, env.Errors, "email")

	status, _ = call(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada Lovelace", "email": "Ada@Example.com", "password": "secret123",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, env = call(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	require.Equal(t, fiber.StatusOK, status)
	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	status, env = call(t, app, http.MethodGet, "/auth/me", login.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ada@example.com", me.Email)

	status, _ = call(t, app, http.MethodPost, "/auth/logout", login.Token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/auth/me", login.Token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	app := newTestApp(t)
	_, studentToken := tokenFor(t, models.RoleStudent)
	_, instructorToken := tokenFor(t, models.RoleInstructor)
	_, adminToken := tokenFor(t, models.RoleAdmin)

	status, _ := call(t, app, http.MethodGet, "/admin/dashboard/stats", studentToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/admin/dashboard/stats", instructorToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/admin/submissions/pending", instructorToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/admin/dashboard/stats", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestPurchaseFlow(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := tokenFor(t, models.RoleAdmin)
	_, studentToken := tokenFor(t, models.RoleStudent)

	status, env := call(t, app, http.MethodPost, "/admin/courses", adminToken, map[string]interface{}{
		"title": "Go Basics", "price": "150000",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var crs struct {
		ID     uint   `json:"ID"`
		Slug   string `json:"slug"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &crs))
	assert.Equal(t, "go-basics", crs.Slug)
	assert.Equal(t, "DRAFT", crs.Status)

	status, _ = call(t, app, http.MethodPost, fmt.Sprintf("/admin/courses/%d/publish", crs.ID), adminToken, map[string]bool{"published": true})
	require.Equal(t, fiber.StatusOK, status)

	status, env = call(t, app, http.MethodGet, "/courses", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 1, page.Total)

	// Paid courses cannot be enrolled into directly.
	status, _ = call(t, app, http.MethodPost, "/enrollments", studentToken, map[string]uint{"course_id": crs.ID})
	assert.NotEqual(t, fiber.StatusOK, status)
	assert.NotEqual(t, fiber.StatusCreated, status)

	status, env = call(t, app, http.MethodPost, "/orders", studentToken, map[string]interface{}{"course_id": crs.ID})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var order struct {
		ID     uint   `json:"ID"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "pending", order.Status)

	status, env = call(t, app, http.MethodPost, fmt.Sprintf("/admin/orders/%d/approve", order.ID), adminToken, map[string]string{"reference": "TRX-1"})
	require.Equal(t, fiber.StatusOK, status, env.Message)

	// Approving twice is a no-op.
	status, _ = call(t, app, http.MethodPost, fmt.Sprintf("/admin/orders/%d/approve", order.ID), adminToken, map[string]string{"reference": "TRX-1"})
	require.Equal(t, fiber.StatusOK, status)

	status, env = call(t, app, http.MethodGet, "/enrollments", studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var enrollments []struct {
		CourseID uint   `json:"course_id"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &enrollments))
	require.Len(t, enrollments, 1)
	assert.Equal(t, crs.ID, enrollments[0].CourseID)
	assert.Equal(t, "active", enrollments[0].Status)

	status, _ = call(t, app, http.MethodPost, "/orders", studentToken, map[string]interface{}{"course_id": crs.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)
}
