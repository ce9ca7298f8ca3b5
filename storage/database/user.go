package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/user"
)

const uniqueViolation = "23505"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
		INSERT INTO users (subject_id, name, email, avatar_url, role, school_id, is_active, is_approved, last_login_at, created_at, updated_at)
		VALUES (:subject_id, :name, :email, :avatar_url, :role, :school_id, :is_active, :is_approved, :last_login_at, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, repo.db, query, usr)
	if err != nil {
		if perr, ok := err.(*pq.Error); ok && perr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&usr.ID); err != nil {
			return user.User{}, errors.Wrap(err, "scanning user id")
		}
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE id = $1`, id)
	return usr, repo.mapGetErr(err, "finding user by id")
}

func (repo *userRepository) GetUserBySubject(ctx context.Context, subjectID string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE subject_id = $1`, subjectID)
	return usr, repo.mapGetErr(err, "finding user by subject")
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE email = $1`, email)
	return usr, repo.mapGetErr(err, "finding user by email")
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	query := `SELECT * FROM users`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		ph := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", ph, ph))
	}
	if len(filter.Roles) > 0 {
		conds = append(conds, fmt.Sprintf("role = ANY(%s)", arg(pq.Array(filter.Roles))))
	}
	if filter.SchoolID != 0 {
		conds = append(conds, fmt.Sprintf("school_id = %s", arg(filter.SchoolID)))
	}
	if filter.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
	}
	if filter.IsApproved != nil {
		conds = append(conds, fmt.Sprintf("is_approved = %s", arg(*filter.IsApproved)))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	var users []user.User
	if err := repo.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return users, nil
}

func (repo *userRepository) CountUsersByRole(ctx context.Context, schoolID int64) (map[auth.Role]int, error) {
	query := `
		SELECT role, COUNT(*) AS count FROM users
		WHERE ($1 = 0 OR school_id = $1)
		GROUP BY role`
	var rows []struct {
		Role  auth.Role `db:"role"`
		Count int       `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, errors.Wrap(err, "counting users by role")
	}

	byRole := make(map[auth.Role]int, len(rows))
	for _, row := range rows {
		byRole[row.Role] = row.Count
	}
	return byRole, nil
}

func (repo *userRepository) UpdateUserRole(ctx context.Context, id int64, role auth.Role, schoolID int64) (user.User, error) {
	var usr user.User
	query := `
		UPDATE users SET role = $2, school_id = $3, updated_at = $4
		WHERE id = $1
		RETURNING *`
	err := repo.db.GetContext(ctx, &usr, query, id, role, schoolID, time.Now().UTC())
	return usr, repo.mapGetErr(err, "updating user role")
}

func (repo *userRepository) UpdateUserStatus(ctx context.Context, id int64, isActive, isApproved *bool) (user.User, error) {
	var usr user.User
	query := `
		UPDATE users SET
			is_active = COALESCE($2, is_active),
			is_approved = COALESCE($3, is_approved),
			updated_at = $4
		WHERE id = $1
		RETURNING *`
	err := repo.db.GetContext(ctx, &usr, query, id, isActive, isApproved, time.Now().UTC())
	return usr, repo.mapGetErr(err, "updating user status")
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	return errors.Wrap(err, "setting last login")
}

func (repo *userRepository) mapGetErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
