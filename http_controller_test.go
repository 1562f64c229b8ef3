package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAuthController(t *testing.T, repo accounts.RepositoryManager) *accounts.AuthController {
	t.Helper()

	cfg := newMockConfig()
	auth := accounts.NewAuthenticator(accounts.NewUserProvider(repo.Users()), cfg)
	auther, err := accounts.NewHTTPAuthenticator(auth, cfg)
	require.NoError(t, err)

	return accounts.NewAuthController(
		accounts.WithAuthRepository(repo),
		accounts.WithHTTPAuth(auther),
		accounts.WithAuth(auth),
		accounts.WithAuthConfig(cfg),
	)
}

func TestLoginShowRendersForm(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestAuthController(t, repo)

	ctx := router.NewMockContext()
	ctx.On("Render", ctrl.Views.Login, mock.Anything).Return(nil)

	err := ctrl.LoginShow(ctx)
	assert.NoError(t, err)
	ctx.AssertExpectations(t)
}

func TestCheckLogin(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestAuthController(t, repo)

	t.Run("No cookie", func(t *testing.T) {
		ctx := router.NewMockContext()

		var payload map[string]any
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]any)
		}).Return(nil)

		err := ctrl.CheckLogin(ctx)
		assert.NoError(t, err)
		assert.Equal(t, false, payload["logged_in"])
	})

	t.Run("With cookie", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.CookiesM["app_session"] = "some-token"

		var payload map[string]any
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]any)
		}).Return(nil)

		err := ctrl.CheckLogin(ctx)
		assert.NoError(t, err)
		assert.Equal(t, true, payload["logged_in"])
	})
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestAuthController(t, repo)

	ctx := router.NewMockContext()

	var redirect string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Return(nil)

	err := ctrl.Dashboard(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ctrl.Routes.Login, redirect)
}

func TestDashboardRedirectsWhenUserInactive(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestAuthController(t, repo)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")

	handler := accounts.NewDeactivateUserHandler(repo)
	require.NoError(t, handler.Execute(context.Background(), accounts.DeactivateUserMessage{ID: created.ID}))

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx.On("Context").Return(context.Background())

	var redirect string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Return(nil)

	err := ctrl.Dashboard(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ctrl.Routes.Login, redirect)
}

func TestDashboardRendersForActiveSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestAuthController(t, repo)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx.On("Context").Return(context.Background())

	var data router.ViewContext
	ctx.On("Render", ctrl.Views.Dashboard, mock.Anything).Run(func(args mock.Arguments) {
		data = args.Get(1).(router.ViewContext)
	}).Return(nil)

	err := ctrl.Dashboard(ctx)
	assert.NoError(t, err)

	user, ok := data["user"].(*accounts.User)
	require.True(t, ok)
	assert.Equal(t, created.ID, user.ID)
}

func TestLogOutStampsLastLogin(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestAuthController(t, repo)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")
	require.Nil(t, created.LastLoginAt)

	// Mint the session token directly so the login path does not stamp
	// last_login_at before the logout does.
	token, err := newTestTokenService(1).Generate(mockIdentity{id: created.ID.String()})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.CookiesM["app_session"] = token
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything).Return()
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil)

	var redirect string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Return(nil)

	err = ctrl.LogOut(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ctrl.Routes.Login, redirect)

	got, err := repo.Users().GetUser(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *got.LastLoginAt, time.Minute)
}

func newTestProfileController(t *testing.T, repo accounts.RepositoryManager) *accounts.ProfileController {
	t.Helper()

	return accounts.NewProfileController(
		accounts.WithProfileRepository(repo),
		accounts.WithProfileConfig(newMockConfig()),
	)
}

func TestUpdateJSONRejectsOtherUsers(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestProfileController(t, repo)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx.ParamsM["id"] = uuid.NewString()

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := ctrl.UpdateJSON(ctx)
	assert.NoError(t, err)
	assert.Equal(t, router.StatusForbidden, status)

	// Nothing changed for the would-be victim.
	got, err := repo.Users().GetUser(context.Background(), created.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Test User", got.Name)
}

func TestDeleteJSONRejectsOtherUsers(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestProfileController(t, repo)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")
	victim := seedUser(t, repo, "Victim", "victim@example.com", "password123")

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx.ParamsM["id"] = victim.ID.String()

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := ctrl.DeleteJSON(ctx)
	assert.NoError(t, err)
	assert.Equal(t, router.StatusForbidden, status)

	got, err := repo.Users().GetUser(context.Background(), victim.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestDeleteJSONDeactivatesOwnerAndClearsSession(t *testing.T) {
	repo := setupTestRepo(t)

	cfg := newMockConfig()
	auth := accounts.NewAuthenticator(accounts.NewUserProvider(repo.Users()), cfg)
	auther, err := accounts.NewHTTPAuthenticator(auth, cfg)
	require.NoError(t, err)

	ctrl := accounts.NewProfileController(
		accounts.WithProfileRepository(repo),
		accounts.WithProfileConfig(cfg),
		accounts.WithProfileHTTPAuth(auther),
	)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx.ParamsM["id"] = created.ID.String()
	ctx.On("Context").Return(context.Background())

	cookieCleared := false
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "app_session" && c.Value == ""
	})).Run(func(mock.Arguments) {
		cookieCleared = true
	}).Return()

	var status int
	var payload map[string]any
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	err = ctrl.DeleteJSON(ctx)
	assert.NoError(t, err)
	assert.Equal(t, router.StatusOK, status)
	assert.Equal(t, "Account deactivated. You have been logged out.", payload["message"])
	assert.True(t, cookieCleared, "session cookie should be revoked")

	// Soft delete: the row survives with credentials intact.
	got, err := repo.Users().GetUser(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotEmpty(t, got.PasswordHash)
	require.NotNil(t, got.LastLoginAt)
	require.NotNil(t, got.UpdatedAt)
}

func TestEditMeConfirmForwardsOnCorrectPassword(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestProfileController(t, repo)

	created := seedUser(t, repo, "Test User", "test@example.com", "password123")

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*accounts.EditMeConfirmPayload)
		payload.Password = "password123"
	}).Return(nil)

	var redirect string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Return(nil)

	err := ctrl.EditMeConfirm(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "/users/"+created.ID.String()+"/edit", redirect)

	// The forward target follows the configured edit route.
	ctrl.Routes.Edit = "/profiles/:id/edit"

	ctx2 := router.NewMockContext()
	ctx2.LocalsMock["app_session"] = &accounts.SessionObject{UserID: created.ID.String()}
	ctx2.On("Context").Return(context.Background())
	ctx2.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*accounts.EditMeConfirmPayload)
		payload.Password = "password123"
	}).Return(nil)
	ctx2.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		redirect = args.String(0)
	}).Return(nil)

	err = ctrl.EditMeConfirm(ctx2)
	assert.NoError(t, err)
	assert.Equal(t, "/profiles/"+created.ID.String()+"/edit", redirect)
}

func TestEditPageMissingOwnerRecordIsNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestProfileController(t, repo)

	ghost := uuid.NewString()

	ctx := router.NewMockContext()
	ctx.LocalsMock["app_session"] = &accounts.SessionObject{UserID: ghost}
	ctx.ParamsM["id"] = ghost
	ctx.On("Context").Return(context.Background())
	ctx.On("Status", router.StatusNotFound).Return(ctx)

	var view string
	ctx.On("Render", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		view = args.String(0)
	}).Return(nil)

	err := ctrl.EditPage(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "errors/404", view)
}

func TestRegistrationPayloadAcceptsAnyNonEmptyPassword(t *testing.T) {
	payload := accounts.RegistrationCreatePayload{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "short",
	}
	assert.NoError(t, payload.Validate())

	payload.Password = ""
	assert.Error(t, payload.Validate())
}

func TestUpdateJSONRequiresSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctrl := newTestProfileController(t, repo)

	ctx := router.NewMockContext()
	ctx.ParamsM["id"] = uuid.NewString()

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := ctrl.UpdateJSON(ctx)
	assert.NoError(t, err)
	assert.Equal(t, router.StatusUnauthorized, status)
}
