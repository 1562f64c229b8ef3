package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DateLayout is the wire format for calendar dates (date of birth).
const DateLayout = "2006-01-02"

// User is the account model. Rows are deactivated, never hard-deleted.
//
// Timestamp policy: CreatedAt is set once. UpdatedAt moves only on real
// profile/account changes (create, field update, deactivation,
// reactivation). LastLoginAt moves on login, logout, and deactivation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DOB           *time.Time `bun:"dob,nullzero" json:"dob,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	IsActive      bool       `bun:"is_active,notnull,default:true" json:"is_active"`
}

// ParseDate parses a calendar date in DateLayout. The second return is
// false when the input does not parse; callers decide whether that is an
// error or a skip.
func ParseDate(value string) (*time.Time, bool) {
	if value == "" {
		return nil, false
	}

	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, false
	}

	return &d, true
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
