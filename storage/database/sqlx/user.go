package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core/user"
)

const (
	userColumns = `id, name, email, school_id, is_active, email_verified, roles, password_hash,
		created_at, updated_at, last_login`
	uniqueViolation = "23505"
)

type userRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Email         string         `db:"email"`
	SchoolID      sql.NullString `db:"school_id"`
	IsActive      bool           `db:"is_active"`
	EmailVerified bool           `db:"email_verified"`
	Roles         pq.StringArray `db:"roles"`
	PasswordHash  []byte         `db:"password_hash"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastLogin     sql.NullTime   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:            usr.ID,
		Name:          usr.Name,
		Email:         usr.Email,
		SchoolID:      sql.NullString{String: usr.SchoolID, Valid: usr.SchoolID != ""},
		IsActive:      usr.IsActive,
		EmailVerified: usr.EmailVerified,
		Roles:         roles,
		PasswordHash:  usr.PasswordHash,
		CreatedAt:     usr.CreatedAt.UTC(),
		UpdatedAt:     usr.UpdatedAt.UTC(),
		LastLogin:     sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		SchoolID:      r.SchoolID.String,
		IsActive:      r.IsActive,
		EmailVerified: r.EmailVerified,
		Roles:         []string(r.Roles),
		PasswordHash:  r.PasswordHash,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		LastLogin:     r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapUserNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND NOT (id::text = ANY($2)))`
	if err := repo.db.GetContext(ctx, &exists, q, email, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :school_id, :is_active, :email_verified, :roles, :password_hash,
			:created_at, :updated_at, :last_login)`
	row := toUserRow(usr)
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "selecting user by id")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "selecting user by email")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET
			name = :name, email = :email, school_id = :school_id, is_active = :is_active,
			email_verified = :email_verified, roles = :roles, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	row := toUserRow(usr)
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}
