package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// InsertUser hashes the password and stores a new user with the USER role.
func (c *Conf) InsertUser(ctx context.Context, newUser NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(newUser.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		FirstName:    newUser.FirstName,
		LastName:     newUser.LastName,
		Username:     newUser.Username,
		Email:        newUser.Email,
		PasswordHash: string(hash),
		PhoneNumber:  newUser.PhoneNumber,
		Address:      newUser.Address,
		Role:         auth.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO users (id, first_name, last_name, username, email, password_hash,
		                   phone_number, address, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = c.db.ExecContext(ctx, query, user.ID, user.FirstName, user.LastName,
		user.Username, user.Email, user.PasswordHash, user.PhoneNumber,
		user.Address, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}

	return user, nil
}

// AuthenticateUser checks the email/password pair. A failed lookup or a
// wrong password both return ErrInvalidCredentials, never a usable User.
func (c *Conf) AuthenticateUser(ctx context.Context, email, password string) (User, error) {
	query := `
		SELECT id, first_name, last_name, username, email, password_hash,
		       phone_number, address, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user User
	err := c.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.FirstName,
		&user.LastName, &user.Username, &user.Email, &user.PasswordHash,
		&user.PhoneNumber, &user.Address, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("querying user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}
