package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// List filter and sort vocabulary. Unknown inputs are normalized to the
// defaults instead of erroring; this permissive policy is part of the
// listing contract.
const (
	StatusAll      = "all"
	StatusActive   = "active"
	StatusInactive = "inactive"

	SortByID        = "id"
	SortByName      = "name"
	SortByCreated   = "created"
	SortByLastLogin = "last_login"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListUsersCriteria carries the server-side filter and sort options.
type ListUsersCriteria struct {
	Status string
	SortBy string
	Order  string
}

// NormalizeListCriteria maps unknown values to the defaults all/id/asc.
func NormalizeListCriteria(c ListUsersCriteria) ListUsersCriteria {
	switch c.Status {
	case StatusAll, StatusActive, StatusInactive:
	default:
		c.Status = StatusAll
	}

	switch c.SortBy {
	case SortByID, SortByName, SortByCreated, SortByLastLogin:
	default:
		c.SortBy = SortByID
	}

	switch c.Order {
	case OrderAsc, OrderDesc:
	default:
		c.Order = OrderAsc
	}

	return c
}

var sortColumns = map[string]string{
	SortByID:        "id",
	SortByName:      "name",
	SortByCreated:   "created_at",
	SortByLastLogin: "last_login_at",
}

type Users interface {
	repository.Repository[*User]

	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	ListUsers(ctx context.Context, criteria ListUsersCriteria) ([]*User, error)
	ListUsersTx(ctx context.Context, tx bun.IDB, criteria ListUsersCriteria) ([]*User, error)

	TrackLogin(ctx context.Context, user *User) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	ReactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetUserTx(ctx, a.db, id)
}

func (a *users) GetUserTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.getByColumnTx(ctx, tx, "id", id.String())
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "email", email)
}

func (a *users) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) ListUsers(ctx context.Context, criteria ListUsersCriteria) ([]*User, error) {
	return a.ListUsersTx(ctx, a.db, criteria)
}

func (a *users) ListUsersTx(ctx context.Context, tx bun.IDB, criteria ListUsersCriteria) ([]*User, error) {
	criteria = NormalizeListCriteria(criteria)

	records := []*User{}
	q := tx.NewSelect().Model(&records)

	switch criteria.Status {
	case StatusActive:
		q.Where("?TableAlias.is_active = ?", true)
	case StatusInactive:
		q.Where("?TableAlias.is_active = ?", false)
	}

	direction := "ASC"
	if criteria.Order == OrderDesc {
		direction = "DESC"
	}

	q.OrderExpr("?TableAlias." + sortColumns[criteria.SortBy] + " " + direction)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *users) TrackLogin(ctx context.Context, user *User) error {
	return a.TrackLoginTx(ctx, a.db, user)
}

// TrackLoginTx stamps last_login_at only. updated_at is reserved for real
// profile/account changes, so we bypass the ORM update path here.
func (a *users) TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?
		WHERE
			("usr".id = ?);
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

// DeactivateTx flips is_active off and stamps BOTH last_login_at and
// updated_at: deactivation records the last moment the account was in use.
func (a *users) DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	now := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"is_active" = ?,
			"last_login_at" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?);
	`, false, now, now, id).Exec(ctx)

	if err != nil {
		return nil, err
	}

	return a.GetUserTx(ctx, tx, id)
}

// ReactivateTx flips is_active on and stamps updated_at only; the user has
// not logged in yet so last_login_at stays where deactivation left it.
func (a *users) ReactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	now := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"is_active" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?);
	`, true, now, id).Exec(ctx)

	if err != nil {
		return nil, err
	}

	return a.GetUserTx(ctx, tx, id)
}
