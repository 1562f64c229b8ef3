package accounts

import (
	"errors"
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes mounts the session-less auth flows. Session-gated
// routes (dashboard, profile) are registered by the caller with a
// ProtectedRoute middleware.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {

	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow)
	app.Post(controller.Routes.Login, controller.LoginPost)

	app.Get(controller.Routes.Logout, controller.LogOut)
	app.Post(controller.Routes.Logout, controller.LogOut)

	app.Get(controller.Routes.Register, controller.RegistrationShow)
	app.Post(controller.Routes.Register, controller.RegistrationCreate)

	app.Get(controller.Routes.Reactivate, controller.ReactivateShow)
	app.Post(controller.Routes.Reactivate, controller.ReactivatePost)

	app.Get(controller.Routes.Check, controller.CheckLogin)

	return controller
}

type AuthControllerRoutes struct {
	Login      string
	Logout     string
	Register   string
	Reactivate string
	Dashboard  string
	Check      string
}

type AuthControllerViews struct {
	Login      string
	Register   string
	Reactivate string
	Dashboard  string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	Auth         Authenticator
	Config       Config
	ErrorHandler func(router.Context, error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func WithAuthLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithAuthRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithHTTPAuth(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithAuth(auth Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auth = auth
		return c
	}
}

func WithAuthConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:      "/auth/login",
			Logout:     "/auth/logout",
			Register:   "/auth/register",
			Reactivate: "/auth/reactivate",
			Dashboard:  "/auth/dashboard",
			Check:      "/auth/check",
		},
		Views: &AuthControllerViews{
			Login:      "login",
			Register:   "register",
			Reactivate: "reactivate",
			Dashboard:  "dashboard",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// Valid credentials on a deactivated account: hand off to the
		// reactivation flow instead of authenticating.
		if errors.Is(err, ErrAccountInactive) {
			return ctx.Redirect(
				a.Routes.Reactivate+"?email="+url.QueryEscape(payload.Email),
				router.StatusSeeOther,
			)
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Invalid email or password",
		}).Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{"authentication": "Invalid email or password"},
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, a.Routes.Dashboard)

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// LogOut is idempotent: it stamps last_login_at when a session resolves,
// and always clears the cookie.
func (a *AuthController) LogOut(ctx router.Context) error {
	if raw := ctx.Cookies(a.Config.GetContextKey()); raw != "" {
		if session, err := a.Auth.SessionFromToken(raw); err == nil {
			if id, err := session.GetUserUUID(); err == nil {
				if user, err := a.Repo.Users().GetUser(ctx.Context(), id); err == nil {
					if err := a.Repo.Users().TrackLogin(ctx.Context(), user); err != nil {
						a.Logger.Error("logout failed to stamp last login", "error", err)
					}
				}
			}
		}
	}

	a.Auther.Logout(ctx)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Logged out successfully!",
	}).Redirect(a.Routes.Login, router.StatusSeeOther)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": CreateUserMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	DOB      string `form:"dob" json:"dob"`
}

// Validate will validate the payload. The accept-set matches the JSON
// create endpoint: all three fields present, email well formed.
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errors := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "All fields are required",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errors,
		})
	}

	req := CreateUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		DOB:      payload.DOB,
	}

	createUser := NewCreateUserHandler(a.Repo)
	if err := createUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error", "error", err)

		message := "Error creating account"
		if errors.Is(err, ErrDuplicateEmail) {
			message = "Email already exists"
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": message,
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{message},
		})
	}

	// No auto-login after registration: the account is active but the
	// caller still has to sign in.
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created. Please log in.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

const (
	stepKey  = "step"
	emailKey = "email"

	// Reactivation steps: ask for the email first, then the password.
	stepEmail    = "email"
	stepPassword = "password"
)

// ReactivateShow decides which reactivation step to render. The flow is
// session-less; state travels in the query string.
func (a *AuthController) ReactivateShow(ctx router.Context) error {
	email := ctx.Query(emailKey, "")

	if email == "" {
		return ctx.Render(a.Views.Reactivate, router.ViewContext{
			"errors": nil,
			"reactivate": map[string]string{
				stepKey:  stepEmail,
				emailKey: "",
			},
		})
	}

	user, err := a.Repo.Users().GetByEmail(ctx.Context(), email)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Account not found",
		}).Redirect(a.Routes.Reactivate, router.StatusSeeOther)
	}

	if user.IsActive {
		// Already active, do not even show the password step.
		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": "This account is already active. Please log in directly.",
		}).Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	return ctx.Render(a.Views.Reactivate, router.ViewContext{
		"errors": nil,
		"reactivate": map[string]string{
			stepKey:  stepPassword,
			emailKey: email,
		},
	})
}

// ReactivatePayload holds values for the reactivation flow
type ReactivatePayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (a *AuthController) ReactivatePost(ctx router.Context) error {
	payload := new(ReactivatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reactivate parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.Reactivate, router.StatusSeeOther)
	}

	email := payload.Email
	if email == "" {
		email = ctx.Query(emailKey, "")
	}

	// Step A submit: only an email, advance to the password step.
	if payload.Password == "" {
		if email == "" {
			return flash.WithError(ctx, router.ViewContext{
				"system_message": "Please enter your email",
			}).Redirect(a.Routes.Reactivate, router.StatusSeeOther)
		}

		return ctx.Redirect(
			a.Routes.Reactivate+"?email="+url.QueryEscape(email),
			router.StatusSeeOther,
		)
	}

	req := ReactivateUserMessage{
		Email:    email,
		Password: payload.Password,
	}

	reactivate := NewReactivateUserHandler(a.Repo)
	if err := reactivate.Execute(ctx.Context(), req); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return flash.WithError(ctx, router.ViewContext{
				"system_message": "Account not found",
			}).Redirect(a.Routes.Reactivate, router.StatusSeeOther)
		case errors.Is(err, ErrAccountAlreadyActive):
			return flash.WithSuccess(ctx, router.ViewContext{
				"system_message": "This account is already active. Please log in directly.",
			}).Redirect(a.Routes.Login, router.StatusSeeOther)
		case errors.Is(err, ErrMismatchedHashAndPassword):
			return flash.WithError(ctx, router.ViewContext{
				"system_message": "Incorrect password",
			}).Redirect(
				a.Routes.Reactivate+"?email="+url.QueryEscape(email),
				router.StatusSeeOther,
			)
		default:
			return a.ErrorHandler(ctx, err)
		}
	}

	// Reactivated but still unauthenticated; the user logs in next.
	return ctx.Render(a.Views.Reactivate, router.ViewContext{
		"errors": nil,
		"reactivate": map[string]string{
			emailKey: email,
		},
		"success": "Your account has been reactivated successfully. Please log in to continue.",
	})
}

// Dashboard renders the session-gated landing page.
func (a *AuthController) Dashboard(ctx router.Context) error {
	session, err := GetSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	id, err := session.GetUserUUID()
	if err != nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	user, err := a.Repo.Users().GetUser(ctx.Context(), id)
	if err != nil || !user.IsActive {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	return ctx.Render(a.Views.Dashboard, router.ViewContext{
		"user":       user,
		"last_login": user.LastLoginAt,
		"created_at": user.CreatedAt,
	})
}

// CheckLogin reports whether the request carries a session cookie.
func (a *AuthController) CheckLogin(ctx router.Context) error {
	token := ctx.Cookies(a.Config.GetContextKey())
	return ctx.JSON(router.StatusOK, map[string]any{
		"logged_in": token != "",
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors per field
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verr validation.Errors
	if errors.As(err, &verr) {
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
