package accounts

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// RegisterProfileRoutes mounts the user directory and profile management
// endpoints. Every route is session gated through the given middleware.
func RegisterProfileRoutes[T any](app router.Router[T], protected router.MiddlewareFunc, opts ...ProfileControllerOption) *ProfileController {

	controller := NewProfileController(opts...)

	app.Get(controller.Routes.List, controller.List, protected)
	app.Post(controller.Routes.Create, controller.CreateJSON, protected)

	app.Get(controller.Routes.EditMe, controller.EditMePage, protected)
	app.Post(controller.Routes.EditMe, controller.EditMeConfirm, protected)

	app.Get(controller.Routes.Edit, controller.EditPage, protected)

	app.Patch(controller.Routes.Update, controller.UpdateJSON, protected)
	app.Delete(controller.Routes.Delete, controller.DeleteJSON, protected)

	return controller
}

type ProfileControllerRoutes struct {
	List   string
	Create string
	Edit   string
	EditMe string
	Update string
	Delete string
	Login  string
}

type ProfileControllerViews struct {
	List     string
	Edit     string
	EditAuth string
}

type ProfileController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *ProfileControllerRoutes
	Views        *ProfileControllerViews
	Auther       HTTPAuthenticator
	Config       Config
	ErrorHandler func(router.Context, error) error
}

type ProfileControllerOption func(*ProfileController) *ProfileController

func WithProfileLogger(logger Logger) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Logger = logger
		return c
	}
}

func WithProfileRepository(repo RepositoryManager) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Repo = repo
		return c
	}
}

func WithProfileHTTPAuth(auther HTTPAuthenticator) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Auther = auther
		return c
	}
}

func WithProfileConfig(cfg Config) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Config = cfg
		return c
	}
}

func NewProfileController(opts ...ProfileControllerOption) *ProfileController {
	c := &ProfileController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &ProfileControllerRoutes{
			List:   "/users/list",
			Create: "/users",
			Edit:   "/users/:id/edit",
			EditMe: "/users/me/edit",
			Update: "/users/:id",
			Delete: "/users/:id",
			Login:  "/auth/login",
		},
		Views: &ProfileControllerViews{
			List:     "users/list",
			Edit:     "users/edit",
			EditAuth: "users/edit_auth",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in profile controller...")
	}

	if c.Config == nil {
		panic("Missing Config in profile controller...")
	}

	return c
}

// currentUserID resolves the authenticated user from the session the
// ProtectedRoute middleware stored for this request.
func (a *ProfileController) currentUserID(ctx router.Context) (uuid.UUID, error) {
	session, err := GetSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return uuid.Nil, err
	}
	return session.GetUserUUID()
}

// List renders the user directory. Unknown filter values fall back to
// defaults rather than erroring.
func (a *ProfileController) List(ctx router.Context) error {
	criteria := NormalizeListCriteria(ListUsersCriteria{
		Status: ctx.Query("status"),
		SortBy: ctx.Query("sort_by"),
		Order:  ctx.Query("order"),
	})

	users, err := a.Repo.Users().ListUsers(ctx.Context(), criteria)
	if err != nil {
		a.Logger.Error("list users", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	uid, _ := a.currentUserID(ctx)

	return ctx.Render(a.Views.List, router.ViewContext{
		"users":           users,
		"current_user_id": uid.String(),
		"status":          criteria.Status,
		"sort_by":         criteria.SortBy,
		"order":           criteria.Order,
	})
}

// EditPage renders the edit form, but only for the session owner. Any
// other id gets a 403 page, even when the target user does not exist.
func (a *ProfileController) EditPage(ctx router.Context) error {
	uid, err := a.currentUserID(ctx)
	if err != nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	target, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil || target != uid {
		return ctx.Status(router.StatusForbidden).Render("errors/403", router.ViewContext{
			"message": "You can edit only your own profile",
		})
	}

	user, err := a.Repo.Users().GetUser(ctx.Context(), uid)
	if err != nil {
		return ctx.Status(router.StatusNotFound).Render("errors/404", router.ViewContext{
			"message": "User not found",
		})
	}

	dob := ""
	if user.DOB != nil {
		dob = user.DOB.Format(DateLayout)
	}

	return ctx.Render(a.Views.Edit, router.ViewContext{
		"user": user,
		"dob":  dob,
	})
}

// EditMePage renders the password confirmation gate that fronts the edit
// form.
func (a *ProfileController) EditMePage(ctx router.Context) error {
	if _, err := a.currentUserID(ctx); err != nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	return ctx.Render(a.Views.EditAuth, router.ViewContext{
		"errors": nil,
	})
}

// EditMeConfirmPayload carries the password gate form
type EditMeConfirmPayload struct {
	Password string `form:"password" json:"password"`
}

// EditMeConfirm verifies the current password and forwards to the edit
// form for the session owner.
func (a *ProfileController) EditMeConfirm(ctx router.Context) error {
	uid, err := a.currentUserID(ctx)
	if err != nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	payload := new(EditMeConfirmPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("edit gate parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.EditMe, router.StatusSeeOther)
	}

	user, err := a.Repo.Users().GetUser(ctx.Context(), uid)
	if err != nil {
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Incorrect password",
		}).Redirect(a.Routes.EditMe, router.StatusSeeOther)
	}

	edit := strings.Replace(a.Routes.Edit, ":id", uid.String(), 1)

	return ctx.Redirect(edit, router.StatusSeeOther)
}

// CreateUserPayload is the JSON create body
type CreateUserPayload struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	DOB      string `json:"dob" form:"dob"`
}

// Validate runs validation rules
func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// CreateJSON creates a user from a JSON body and answers JSON. This is
// the API twin of the registration form.
func (a *ProfileController) CreateJSON(ctx router.Context) error {
	payload := new(CreateUserPayload)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Name, email and password are required",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var created *User
	handler := NewCreateUserHandler(a.Repo)
	msg := CreateUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		DOB:      payload.DOB,
		OnResponse: func(u *User) {
			created = u
		},
	}

	if err := handler.Execute(ctx.Context(), msg); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return ctx.JSON(router.StatusConflict, map[string]any{
				"error": "Email already exists",
			})
		}
		a.Logger.Error("create user", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error": "Failed to create user",
		})
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "User created",
		"id":      created.ID.String(),
	})
}

// UpdateUserPayload is the JSON patch body. Pointer fields distinguish
// absent keys from explicit values.
type UpdateUserPayload struct {
	Name        *string `json:"name" form:"name"`
	Email       *string `json:"email" form:"email"`
	DOB         *string `json:"dob" form:"dob"`
	OldPassword *string `json:"old_password" form:"old_password"`
	NewPassword *string `json:"new_password" form:"new_password"`
	IsActive    *bool   `json:"is_active" form:"is_active"`
}

// UpdateJSON applies a partial update to the session owner's record.
func (a *ProfileController) UpdateJSON(ctx router.Context) error {
	uid, err := a.currentUserID(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"error": "Authentication required",
		})
	}

	target, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil || target != uid {
		return ctx.JSON(router.StatusForbidden, map[string]any{
			"error": "You can update only your own data",
		})
	}

	user, err := a.Repo.Users().GetUser(ctx.Context(), uid)
	if err != nil {
		return ctx.JSON(router.StatusNotFound, map[string]any{
			"error": "User not found",
		})
	}

	if !user.IsActive {
		return ctx.JSON(router.StatusForbidden, map[string]any{
			"error": "Account inactive",
		})
	}

	payload := new(UpdateUserPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "Failed to parse body",
		})
	}

	msg := PatchUserMessage{
		ID:          uid,
		Name:        payload.Name,
		Email:       payload.Email,
		DOB:         payload.DOB,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
		IsActive:    payload.IsActive,
	}

	handler := NewUpdateUserHandler(a.Repo)
	if err := handler.Execute(ctx.Context(), msg); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return ctx.JSON(router.StatusNotFound, map[string]any{
				"error": "User not found",
			})
		case errors.Is(err, ErrIncorrectOldPassword):
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": "Old password incorrect",
			})
		default:
			a.Logger.Error("update user", "error", err)
			return ctx.JSON(router.StatusInternalServerError, map[string]any{
				"error": "Failed to update user",
			})
		}
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Updated",
	})
}

// DeleteJSON soft-deletes the session owner's account and revokes the
// session cookie in the same response.
func (a *ProfileController) DeleteJSON(ctx router.Context) error {
	uid, err := a.currentUserID(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]any{
			"error": "Authentication required",
		})
	}

	target, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil || target != uid {
		return ctx.JSON(router.StatusForbidden, map[string]any{
			"error": "You can delete only your own account",
		})
	}

	handler := NewDeactivateUserHandler(a.Repo)
	if err := handler.Execute(ctx.Context(), DeactivateUserMessage{ID: uid}); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ctx.JSON(router.StatusNotFound, map[string]any{
				"error": "User not found",
			})
		}
		a.Logger.Error("deactivate user", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error": "Failed to deactivate account",
		})
	}

	if a.Auther != nil {
		a.Auther.Logout(ctx)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Account deactivated. You have been logged out.",
	})
}
