package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes holds the paths served by the auth controller
type AuthControllerRoutes struct {
	Register    string
	Login       string
	LoginForm   string
	Me          string
	Logout      string
	UpdateMe    string
	AdminLogin  string
	HealthCheck string
}

func DefaultAuthRoutes() *AuthControllerRoutes {
	return &AuthControllerRoutes{
		Register:    "/auth/register",
		Login:       "/auth/login",
		LoginForm:   "/auth/login/form",
		Me:          "/auth/me",
		Logout:      "/auth/logout",
		UpdateMe:    "/users/me",
		AdminLogin:  "/admin/auth/login",
		HealthCheck: "/health",
	}
}

// AuthController serves registration, login and the caller's own account
type AuthController struct {
	Debug    bool
	Logger   Logger
	Routes   *AuthControllerRoutes
	Auther   *Auther
	Accounts *AccountService
	Guards   *Guards
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(auther *Auther, accounts *AccountService, guards *Guards, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Routes:   DefaultAuthRoutes(),
		Auther:   auther,
		Accounts: accounts,
		Guards:   guards,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Guards == nil {
		panic("Missing Guards in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints served by controller on app
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Get(controller.Routes.HealthCheck, controller.Health).
		SetName("health")

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")
	app.Post(controller.Routes.LoginForm, controller.LoginForm).
		SetName("auth.login.form")

	app.Get(controller.Routes.Me, controller.Me, controller.Guards.UserRequired()).
		SetName("auth.me")
	app.Post(controller.Routes.Logout, controller.Logout, controller.Guards.UserRequired()).
		SetName("auth.logout")
	app.Patch(controller.Routes.UpdateMe, controller.UpdateMe, controller.Guards.UserRequired()).
		SetName("users.me.patch")

	app.Post(controller.Routes.AdminLogin, controller.AdminLogin).
		SetName("admin.auth.login")
}

func (a *AuthController) Health(ctx router.Context) error {
	return ctx.JSON(fiber.StatusOK, fiber.Map{"status": "healthy"})
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterAccountMessage)
	if err := parseBody(ctx, payload); err != nil {
		return err
	}

	result, err := a.Auther.Register(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("registered account: %s", print.MaybePrettyJSON(result.Account))
	}

	return ctx.JSON(fiber.StatusCreated, newTokenResponse(result))
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := parseBody(ctx, payload); err != nil {
		return err
	}
	return a.login(ctx, payload.Email, payload.Password)
}

// LoginForm accepts the OAuth2 password grant form fields
func (a *AuthController) LoginForm(ctx router.Context) error {
	payload := new(LoginFormPayload)
	if err := parseBody(ctx, payload); err != nil {
		return err
	}
	return a.login(ctx, payload.Username, payload.Password)
}

func (a *AuthController) login(ctx router.Context, email, password string) error {
	result, err := a.Auther.Login(ctx.Context(), email, password)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, newTokenResponse(result))
}

func (a *AuthController) Me(ctx router.Context) error {
	account, ok := CurrentAccount(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	return ctx.JSON(fiber.StatusOK, account)
}

// Logout is stateless, the client drops its token
func (a *AuthController) Logout(ctx router.Context) error {
	return ctx.JSON(fiber.StatusOK, fiber.Map{"message": "Successfully logged out"})
}

func (a *AuthController) UpdateMe(ctx router.Context) error {
	account, ok := CurrentAccount(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	payload := new(UpdateAccountPayload)
	if err := parseBody(ctx, payload); err != nil {
		return err
	}

	updated, err := a.Accounts.UpdateSelf(ctx.Context(), account, payload.Patch())
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, updated)
}

func (a *AuthController) AdminLogin(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := parseBody(ctx, payload); err != nil {
		return err
	}

	result, err := a.Auther.AdminLogin(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, newTokenResponse(result))
}
