package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/config"
	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/permission"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// UserStore is the user persistence used by AuthHandler.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByLogin(ctx context.Context, loginID string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, role string) ([]model.User, error)
	Search(ctx context.Context, q string, limit int) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	SetPayRate(ctx context.Context, id uint64, rate float64) error
	SetPasswordHash(ctx context.Context, id uint64, hash string) error
}

// AuthHandler serves login, session and user management endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   UserStore
	Presets permission.Presets
	Perms   middleware.PermissionChecker
}

func NewAuthHandler(cfg config.Config, users UserStore, presets permission.Presets, perms middleware.PermissionChecker) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Presets: presets, Perms: perms}
}

// ----- DTOs -----

type registerReq struct {
	Name        string            `json:"name" validate:"required"`
	UserID      string            `json:"userId" validate:"required"`
	Email       string            `json:"email" validate:"required,email"`
	ContactNo   string            `json:"contactNo" validate:"required"`
	Password    string            `json:"password" validate:"required,min=6"`
	Role        string            `json:"role" validate:"omitempty,oneof=admin mechanic operator"`
	PayRate     *float64          `json:"payRate" validate:"omitempty,gte=0"`
	Permissions model.Permissions `json:"permissions"`
	ClockIn     *time.Time        `json:"clockIn"`
	ClockOut    *time.Time        `json:"clockOut"`
}

type loginReq struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type updateUserReq struct {
	Name           *string           `json:"name" validate:"omitempty,min=1"`
	UserID         *string           `json:"userId" validate:"omitempty,min=1"`
	Email          *string           `json:"email" validate:"omitempty,email"`
	ContactNo      *string           `json:"contactNo"`
	Role           *string           `json:"role" validate:"omitempty,oneof=admin mechanic operator"`
	ProfilePicture *string           `json:"profilePicture"`
	Permissions    model.Permissions `json:"permissions"`
	ClockIn        *time.Time        `json:"clockIn"`
	ClockOut       *time.Time        `json:"clockOut"`
}

type payRateReq struct {
	PayRate *float64 `json:"payRate" validate:"required,gte=0"`
}

type resetPasswordReq struct {
	ID              uint64 `json:"id"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// publicUser is the subset of a user returned by login and register.
type publicUser struct {
	ID     uint64 `json:"_id"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func toPublic(u model.User) publicUser {
	return publicUser{ID: u.ID, Name: u.Name, UserID: u.UserID, Email: u.Email, Role: u.Role}
}

// create inserts the user described by req, applying the role's preset
// permissions when none were given.
func (h *AuthHandler) create(ctx context.Context, req registerReq) (model.User, error) {
	req.Name, req.UserID = strings.TrimSpace(req.Name), strings.TrimSpace(req.UserID)
	req.Email, req.ContactNo = strings.TrimSpace(req.Email), strings.TrimSpace(req.ContactNo)
	if err := utils.ValidateStruct(req); err != nil {
		return model.User{}, err
	}
	if req.Role == "" {
		req.Role = model.RoleOperator
	}
	perms := req.Permissions
	if len(perms) == 0 {
		perms = h.Presets.For(req.Role)
	}
	u := model.User{
		Name:        req.Name,
		UserID:      req.UserID,
		Email:       req.Email,
		ContactNo:   req.ContactNo,
		Role:        req.Role,
		PayRate:     req.PayRate,
		Permissions: perms,
		ClockIn:     req.ClockIn,
		ClockOut:    req.ClockOut,
	}
	err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, apperror.NewConflict("A user with this email or User ID already exists.")
	}
	if err != nil {
		return model.User{}, apperror.NewInternal("Server error during registration.").WithCause(err)
	}
	return u, nil
}

// Register creates a user with the given password.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.create(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully", "user": toPublic(u)})
}

// CreateWithGeneratedPassword creates a user and returns the generated
// password once.
func (h *AuthHandler) CreateWithGeneratedPassword(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Password = utils.GeneratePassword()
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.create(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": toPublic(u), "generatedPassword": req.Password})
}

// Login checks credentials against email or login id and sets the
// session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.LoginID) == "" || req.Password == "" {
		return apperror.NewValidation("Please provide both a login ID and password.")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, req.LoginID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials."})
	}
	if err != nil {
		return apperror.NewInternal("Server error during login.").WithCause(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials."})
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.TokenTTL())
	if err != nil {
		return apperror.NewInternal("Server error during login.").WithCause(err)
	}
	c.SetCookie(h.sessionCookie(tok.Token, tok.Exp))
	return c.JSON(http.StatusOK, echo.Map{"user": toPublic(u)})
}

// Logout expires the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) sessionCookie(value string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	return ck
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": middleware.CurrentUser(c)})
}

// ListUsers returns every user, optionally filtered by ?role=.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx, strings.TrimSpace(c.QueryParam("role")))
	if err != nil {
		return storeErr(err, "User")
	}
	return c.JSON(http.StatusOK, users)
}

// Search matches ?q= against name, login id and email.
func (h *AuthHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apperror.NewValidation("Search query is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.Search(ctx, q, 20)
	if err != nil {
		return storeErr(err, "User")
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser applies a partial update to a user.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "User")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.Name, req.Name)
	set(&u.UserID, req.UserID)
	set(&u.Email, req.Email)
	set(&u.ContactNo, req.ContactNo)
	set(&u.Role, req.Role)
	set(&u.ProfilePicture, req.ProfilePicture)
	if req.Permissions != nil {
		u.Permissions = req.Permissions
	}
	if req.ClockIn != nil {
		u.ClockIn = req.ClockIn
	}
	if req.ClockOut != nil {
		u.ClockOut = req.ClockOut
	}
	if err := h.Users.Update(ctx, &u); err != nil {
		return storeErr(err, "User")
	}
	return c.JSON(http.StatusOK, u)
}

// SetPayRate updates a user's hourly pay rate.
func (h *AuthHandler) SetPayRate(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req payRateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetPayRate(ctx, id, *req.PayRate); err != nil {
		return storeErr(err, "User")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Pay rate updated", "payRate": *req.PayRate})
}

// ResetPassword changes a password.  Callers changing their own password
// must give the current one; changing someone else's needs edit rights on
// Users.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	me := middleware.CurrentUser(c)
	if me == nil {
		return apperror.NewUnauthorized("Authentication required.")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	target := *me
	if req.ID != 0 && req.ID != me.ID {
		ok, err := h.Perms.Allowed(*me, model.ModuleUsers, permission.ActionEdit)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewForbidden("You may only reset your own password.")
		}
		if target, err = h.Users.GetByID(ctx, req.ID); err != nil {
			return storeErr(err, "User")
		}
	} else if !utils.VerifyPassword(me.PasswordHash, req.CurrentPassword) {
		return apperror.NewValidation("Current password is incorrect.")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return apperror.NewInternal("Server error").WithCause(err)
	}
	if err := h.Users.SetPasswordHash(ctx, target.ID, hash); err != nil {
		return storeErr(err, "User")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}
