package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kaplan-Paving/fleet-backend/internal/config"
	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/permission"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// memUsers is an in-memory UserStore keyed by id.
type memUsers struct {
	UserStore
	byID   map[uint64]model.User
	nextID uint64
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	for _, o := range m.byID {
		if o.Email == u.Email || o.UserID == u.UserID {
			return repository.ErrDuplicate
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	m.nextID++
	u.ID, u.PasswordHash = m.nextID, hash
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByLogin(_ context.Context, login string) (model.User, error) {
	for _, u := range m.byID {
		if u.Email == login || u.UserID == login {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

const authSecret = "auth-test-secret"

func newAuthServer(t *testing.T) (*echo.Echo, *memUsers) {
	t.Helper()
	presets, err := permission.LoadPresets()
	require.NoError(t, err)
	enf, err := permission.NewEnforcer()
	require.NoError(t, err)

	users := newMemUsers()
	cfg := config.Config{JWTSecret: authSecret, TokenTTLHour: 24, BcryptCost: bcrypt.MinCost, CookieSecure: true}
	h := NewAuthHandler(cfg, users, presets, enf)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(nil)
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/logout", h.Logout)
	e.POST("/api/auth/register", h.Register)
	e.POST("/api/auth/create", h.CreateWithGeneratedPassword)
	e.GET("/api/auth/me", h.Me, middleware.JWTAuth(authSecret, users))
	return e, users
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return serveReq(e, req)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	return nil
}

const danaJSON = `{"name":"Dana","userId":"dana01","email":"dana@example.com",
	"contactNo":"555-0100","password":"s3cret!","role":"mechanic"}`

func TestRegisterAppliesPresets(t *testing.T) {
	e, users := newAuthServer(t)

	rec := postJSON(e, "/api/auth/register", danaJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, users.byID, 1)
	u := users.byID[1]
	assert.Equal(t, model.RoleMechanic, u.Role)
	assert.NotEmpty(t, u.Permissions)
	assert.NotContains(t, rec.Body.String(), "s3cret!")

	rec = postJSON(e, "/api/auth/register", danaJSON)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(e, "/api/auth/register", `{"name":"X","userId":"x","email":"nope","contactNo":"1","password":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	e, _ := newAuthServer(t)
	require.Equal(t, http.StatusCreated, postJSON(e, "/api/auth/register", danaJSON).Code)

	for _, login := range []string{"dana01", "dana@example.com"} {
		rec := postJSON(e, "/api/auth/login", `{"loginId":"`+login+`","password":"s3cret!"}`)
		require.Equal(t, http.StatusOK, rec.Code, login)
		assert.Contains(t, rec.Body.String(), `"userId":"dana01"`)

		ck := sessionCookie(rec)
		require.NotNil(t, ck)
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
		assert.Equal(t, "/", ck.Path)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), ck.Expires, time.Minute)

		claims, err := utils.ParseSessionToken(authSecret, ck.Value)
		require.NoError(t, err)
		assert.Equal(t, model.RoleMechanic, claims.Role)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)

		// the cookie authenticates follow-up requests
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(ck)
		me := serveReq(e, req)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), `"name":"Dana"`)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, _ := newAuthServer(t)
	require.Equal(t, http.StatusCreated, postJSON(e, "/api/auth/register", danaJSON).Code)

	cases := map[string]struct {
		body string
		code int
	}{
		"wrong password": {`{"loginId":"dana01","password":"nope"}`, http.StatusUnauthorized},
		"unknown user":   {`{"loginId":"ghost","password":"s3cret!"}`, http.StatusUnauthorized},
		"missing fields": {`{"loginId":""}`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(e, "/api/auth/login", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	e, _ := newAuthServer(t)
	rec := postJSON(e, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Less(t, ck.MaxAge, 0)
}

func TestCreateReturnsGeneratedPassword(t *testing.T) {
	e, users := newAuthServer(t)
	rec := postJSON(e, "/api/auth/create", `{"name":"Op","userId":"op1","email":"op@example.com","contactNo":"1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		GeneratedPassword string `json:"generatedPassword"`
	}
	require.NoError(t, decodeJSON(rec, &body))
	require.NotEmpty(t, body.GeneratedPassword)
	u := users.byID[1]
	assert.Equal(t, model.RoleOperator, u.Role)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, body.GeneratedPassword))
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	for name, tc := range map[string]struct {
		db   Pinger
		code int
	}{
		"no database": {nil, http.StatusOK},
		"healthy":     {pinger{}, http.StatusOK},
		"down":        {pinger{errors.New("connection refused")}, http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			h := &HealthHandler{DB: tc.db, Started: time.Now()}
			e := echo.New()
			e.GET("/healthz", h.Health)
			rec := serveReq(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
