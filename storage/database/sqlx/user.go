package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

const userCols = `id, name, username, email, role, is_active, password_hash, created_at, updated_at, last_login`

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q, inArgs, err := sqlx.In(` AND id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		query += q
		args = append(args, inArgs...)
	}

	rows, err := repo.db.Queryx(repo.db.Rebind(query), args...)
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	defer rows.Close()

	for rows.Next() {
		var uname, mail string
		if err = rows.Scan(&uname, &mail); err != nil {
			return errors.Wrap(err, "scanning row")
		}
		if uname == username {
			return user.ErrUsernameExists
		}
		if mail == email {
			return user.ErrEmailExists
		}
	}
	return rows.Err()
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	query := `
INSERT INTO "user" (name, username, email, role, is_active, password_hash, created_at, updated_at, last_login)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	err := repo.db.QueryRow(
		query,
		usr.Name, usr.Username, usr.Email, usr.Role, usr.IsActive,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.db.Select(&users, `SELECT `+userCols+` FROM "user"`)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	return repo.getUser(`id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser(`username = $1`, username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getUser(`email = $1`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getUser(`username = $1 OR email = $1`, username)
}

func (repo *userRepository) getUser(where string, args ...interface{}) (user.User, error) {
	var usr user.User
	err := repo.db.Get(&usr, `SELECT `+userCols+` FROM "user" WHERE `+where, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{usr.UpdatedAt}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Role != "" {
		set("role", usr.Role)
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, usr.ID)

	query := repo.db.Rebind(`UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := repo.db.Exec(query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(usr.ID)
}

func (repo *userRepository) DeleteUsersByID(ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
