package users

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is the console role carried in the access token's `role` claim
type Role string

const (
	RoleSuperAdmin    Role = "superadmin"    // Full access, including user management
	RoleValidateur    Role = "validateur"    // Validates témoins submitted by others
	RoleDeveloppement Role = "developpement" // Developers, access to dossiers in progress
	RoleVisiteur      Role = "visiteur"      // Read-only
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleValidateur, RoleDeveloppement, RoleVisiteur:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	Role         Role      `json:"role,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`
	Active       bool      `json:"active,omitempty"` // inactive accounts cannot obtain tokens
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// NewUser builds an active user with a hashed password
func NewUser(email, password string, role Role) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		DateJoined:   time.Now(),
		Active:       true,
	}, nil
}
