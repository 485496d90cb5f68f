package devserver

import (
	"fmt"
	"os"

	"github.com/jrsteele09/temoins-console/users"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultSeedPassword is the password of the built-in development accounts
const DefaultSeedPassword = "Temoins123!"

// SeedUser describes an account created at startup
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// DefaultSeedUsers returns one account per console role.
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{
		{Email: "superadmin@temoins.local", Password: DefaultSeedPassword, Role: string(users.RoleSuperAdmin)},
		{Email: "validateur@temoins.local", Password: DefaultSeedPassword, Role: string(users.RoleValidateur)},
		{Email: "dev@temoins.local", Password: DefaultSeedPassword, Role: string(users.RoleDeveloppement)},
		{Email: "visiteur@temoins.local", Password: DefaultSeedPassword, Role: string(users.RoleVisiteur)},
	}
}

// LoadSeedUsers reads a YAML list of SeedUser from path. An empty path gives the
// default accounts.
func LoadSeedUsers(path string) ([]SeedUser, error) {
	if path == "" {
		return DefaultSeedUsers(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed users %s: %w", path, err)
	}
	var seeds []SeedUser
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed users %s: %w", path, err)
	}
	return seeds, nil
}

// Seed creates the accounts that do not exist yet. Existing accounts are left untouched.
func Seed(repo users.UserRepo, seeds []SeedUser) error {
	for _, seed := range seeds {
		if existing, err := repo.GetByEmail(seed.Email); err == nil && existing != nil {
			log.Debug().Str("email", seed.Email).Msg("seed user already exists")
			continue
		}
		role, err := users.ParseRole(seed.Role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Email, err)
		}
		user, err := users.NewUser(seed.Email, seed.Password, role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Email, err)
		}
		if err := repo.Upsert(user); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Email, err)
		}
		log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("seeded user")
	}
	return nil
}
