package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

// UserAdmin lists users and changes roles.
type UserAdmin interface {
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id uint64, role string) error
}

// SettingsAdmin reads and replaces the working-calendar settings.
type SettingsAdmin interface {
	Current(ctx context.Context) (model.WorkSettings, error)
	Update(ctx context.Context, s model.WorkSettings, updatedBy uint64) error
}

// StatsProvider aggregates the dashboard overview.
type StatsProvider interface {
	Overview(ctx context.Context) (*repository.Overview, error)
}

// AvailabilityInvalidator drops the cached availability payload after a
// settings change.
type AvailabilityInvalidator interface {
	InvalidateAvailability(ctx context.Context) error
}

// SessionRevoker invalidates a user's refresh tokens.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AdminHandler bundles the admin-only endpoints: user management,
// settings, and the stats dashboard.
type AdminHandler struct {
	Users    UserAdmin
	Settings SettingsAdmin
	Stats    StatsProvider
	Cache    AvailabilityInvalidator
	Tokens   SessionRevoker
}

func NewAdminHandler(users UserAdmin, settings SettingsAdmin, stats StatsProvider, cache AvailabilityInvalidator, tokens SessionRevoker) *AdminHandler {
	return &AdminHandler{Users: users, Settings: settings, Stats: stats, Cache: cache, Tokens: tokens}
}

type userView struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Picture   string `json:"picture"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// ListUsers returns all accounts without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{
			ID: u.ID, Email: u.Email, Name: u.Name, Picture: u.Picture,
			Role: u.Role, CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

type roleReq struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// UpdateRole promotes or demotes a user.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdateRole(ctx, id, req.Role); err != nil {
		return writeError(c, err)
	}
	// Existing sessions still carry the old role claim; force a re-login.
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		c.Logger().Warnf("role change: revoking sessions for user %d failed: %v", id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSettings returns the current working-calendar settings.
func (h *AdminHandler) GetSettings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Settings.Current(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

type settingsReq struct {
	WorkDays      []int `json:"work_days" validate:"required,min=1,dive,min=0,max=6"`
	WorkStart     int   `json:"work_start" validate:"min=0,max=23"`
	WorkEnd       int   `json:"work_end" validate:"min=1,max=24,gtfield=WorkStart"`
	BufferMinutes int   `json:"buffer_minutes" validate:"min=0,max=240"`
}

// UpdateSettings replaces the current settings, appends to the history
// table, and invalidates the availability cache.
func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var req settingsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s := model.WorkSettings{
		WorkDays:      req.WorkDays,
		WorkStart:     req.WorkStart,
		WorkEnd:       req.WorkEnd,
		BufferMinutes: req.BufferMinutes,
	}
	if err := h.Settings.Update(ctx, s, identityFrom(c).UserID); err != nil {
		return writeError(c, err)
	}
	if err := h.Cache.InvalidateAvailability(ctx); err != nil {
		c.Logger().Warnf("settings: availability invalidate failed: %v", err)
	}
	return c.JSON(http.StatusOK, s)
}

// GetStats returns the dashboard overview.
func (h *AdminHandler) GetStats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Stats.Overview(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
