package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
)

var userColumns = []string{
	"id", "email", "full_name", "password_hash", "role", "is_active", "created_at",
}

const usersEmailUniq = "users_email_uniq"

func (r *queries) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("email", "full_name", "password_hash", "role", "is_active").
		Values(user.Email, user.FullName, user.PasswordHash, string(user.Role), user.IsActive).
		Suffix("returning " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	created, err := r.collectUser(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, usersEmailUniq) {
			return model.User{}, errs.ErrEmailTaken
		}
		r.log.Error("CreateUser", zap.String("q", query), zap.Error(err))
		return model.User{}, errors.Wrap(err, "create user")
	}
	return created, nil
}

func (r *queries) GetUser(ctx context.Context, id int) (model.User, error) {
	return r.getUser(ctx, sq.Eq{"id": id}, false)
}

func (r *queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getUser(ctx, sq.Expr("lower(email) = lower(?)", email), false)
}

func (r *queries) LockUser(ctx context.Context, id int) (model.User, error) {
	return r.getUser(ctx, sq.Eq{"id": id}, true)
}

func (r *queries) getUser(ctx context.Context, pred sq.Sqlizer, lock bool) (model.User, error) {
	b := qb.Select(userColumns...).
		From(usersTableName).
		Where(pred).
		Where("deleted_at is null")
	if lock {
		b = b.Suffix("for update")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return model.User{}, err
	}
	user, err := r.collectUser(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, errs.ErrUserNotFound
		}
		return model.User{}, errors.Wrap(err, "get user")
	}
	return user, nil
}

func (r *queries) ListUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTableName).
		Where("deleted_at is null").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return users, nil
}

func (r *queries) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	q := `
update users
    set full_name = @full_name,
        role = @role,
        is_active = @is_active
where id = @id and deleted_at is null
returning ` + strings.Join(userColumns, ", ")
	args := pgx.NamedArgs{
		"id":        user.ID,
		"full_name": user.FullName,
		"role":      string(user.Role),
		"is_active": user.IsActive,
	}
	updated, err := r.collectUser(ctx, q, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, errs.ErrUserNotFound
		}
		return model.User{}, errors.Wrap(err, "update user")
	}
	return updated, nil
}

// DeleteUser soft-deletes the account; borrows and reviews keep pointing at it.
func (r *queries) DeleteUser(ctx context.Context, id int) error {
	q := `
update users
    set deleted_at = now(),
        is_active = false
where id = @id and deleted_at is null`
	tag, err := r.q.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}

func (r *queries) LockActiveAdmins(ctx context.Context) ([]int, error) {
	q := `
select id from users
where role = @role and is_active and deleted_at is null
order by id
for update`
	rows, err := r.q.Query(ctx, q, pgx.NamedArgs{"role": string(model.RoleAdmin)})
	if err != nil {
		return nil, errors.Wrap(err, "lock admins")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return ids, nil
}

func (r *queries) collectUser(ctx context.Context, query string, args ...any) (model.User, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return model.User{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
}
