package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// AdminController serves account moderation and the audit log. Every
// route requires an admin token.
type AdminController struct {
	Prefix   string
	Logger   Logger
	Accounts *AccountService
	Repo     RepositoryManager
	Guards   *Guards
}

func NewAdminController(repo RepositoryManager, accounts *AccountService, guards *Guards) *AdminController {
	return &AdminController{
		Prefix:   "/admin",
		Logger:   defLogger{},
		Accounts: accounts,
		Repo:     repo,
		Guards:   guards,
	}
}

func (a *AdminController) WithLogger(logger Logger) *AdminController {
	a.Logger = normalizeLogger(logger)
	return a
}

// RegisterAdminRoutes mounts the moderation endpoints served by controller
// on app. Guards are attached per route so /admin/auth/login, which shares
// the prefix, stays public.
func RegisterAdminRoutes[T any](app router.Router[T], controller *AdminController) {
	admin := app.Group(controller.Prefix)
	guard := controller.Guards.AdminTokenRequired()

	admin.Get("/users", controller.ListUsers, guard).
		SetName("admin.users.list")
	admin.Patch("/users/:id", controller.UpdateUser, guard).
		SetName("admin.users.patch")
	admin.Post("/users/:id/toggle-admin", controller.ToggleAdmin, guard).
		SetName("admin.users.toggle_admin")
	admin.Post("/users/:id/toggle-active", controller.ToggleActive, guard).
		SetName("admin.users.toggle_active")
	admin.Get("/audit-logs", controller.ListAuditLogs, guard).
		SetName("admin.audit_logs.list")
}

func (a *AdminController) ListUsers(ctx router.Context) error {
	isAdmin, err := queryBool(ctx, "is_admin")
	if err != nil {
		return err
	}
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}

	skip, limit := queryPage(ctx, DefaultUserListLimit)
	filter := AccountFilter{
		Skip:     skip,
		Limit:    limit,
		Search:   strings.TrimSpace(ctx.Query("search", "")),
		IsAdmin:  isAdmin,
		IsActive: isActive,
	}

	items, total, err := a.Repo.Accounts().List(ctx.Context(), filter)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.StatusOK, PageResponse[*Account]{Items: items, Total: total, Skip: skip, Limit: limit})
}

func (a *AdminController) UpdateUser(ctx router.Context) error {
	actor, ok := CurrentAccount(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	payload := new(UpdateAccountPayload)
	if err := parseBody(ctx, payload); err != nil {
		return err
	}

	account, err := a.Accounts.AdminUpdate(ctx.Context(), actor, ctx.Param("id", ""), payload.Patch())
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, account)
}

func (a *AdminController) ToggleAdmin(ctx router.Context) error {
	actor, ok := CurrentAccount(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	account, err := a.Accounts.ToggleAdmin(ctx.Context(), actor, ctx.Param("id", ""))
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, account)
}

func (a *AdminController) ToggleActive(ctx router.Context) error {
	actor, ok := CurrentAccount(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	account, err := a.Accounts.ToggleActive(ctx.Context(), actor, ctx.Param("id", ""))
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, account)
}

func (a *AdminController) ListAuditLogs(ctx router.Context) error {
	skip, limit := queryPage(ctx, DefaultListLimit)
	filter := AuditFilter{
		Skip:         skip,
		Limit:        limit,
		Action:       ctx.Query("action", ""),
		ResourceType: ctx.Query("resource_type", ""),
		UserID:       ctx.Query("user_id", ""),
	}

	items, total, err := a.Repo.AuditLogs().List(ctx.Context(), filter)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.StatusOK, PageResponse[*AuditLog]{Items: items, Total: total, Skip: skip, Limit: limit})
}
