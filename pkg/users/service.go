package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/noticias/pkg/cache"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

const (
	listCacheKey = "users_list"
	listCacheTTL = 120 * time.Second
)

// Service implements account management on top of a Store
type Service struct {
	store      *Store
	cache      *cache.Store
	metrics    *observability.OTelMetrics
	logger     *observability.Logger
	bcryptCost int
}

// Option configures a Service
type Option func(*Service)

// WithMetrics records login attempts and cache lookups
func WithMetrics(m *observability.OTelMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the fallback logger used outside request scope
func WithLogger(l *observability.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates a user service. c may be shared with other services.
func NewService(store *Store, c *cache.Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		cache:      c,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return s
}

func (s *Service) log(ctx context.Context) *observability.Logger {
	return observability.FromContextOr(ctx, s.logger)
}

// Register creates a usuario account
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	return s.create(ctx, req.Username, req.Password, req.Name, req.Email, string(rbac.RoleUsuario))
}

// CreateUser creates an account with any built-in role. An empty role
// means usuario.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	role := req.Role
	if role == "" {
		role = string(rbac.RoleUsuario)
	}
	if !rbac.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.create(ctx, req.Username, req.Password, req.Name, req.Email, role)
}

func (s *Service) create(ctx context.Context, username, password, name, email, role string) (*User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	exists, err := s.store.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	s.cache.Delete(listCacheKey)
	s.log(ctx).WithFields(map[string]interface{}{
		"usuario": username,
		"rol":     role,
	}).Info("User created")
	return u, nil
}

// Authenticate checks username and password
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.store.GetByUsername(ctx, creds.Username)
	if errors.Is(err, ErrUserNotFound) {
		s.metrics.RecordLogin(ctx, false)
		s.log(ctx).WithField("usuario", creds.Username).Warn("Login failed: unknown user")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		s.metrics.RecordLogin(ctx, false)
		s.log(ctx).WithField("usuario", creds.Username).Warn("Login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	s.metrics.RecordLogin(ctx, true)
	return u, nil
}

// List returns every user. Results are cached for two minutes.
func (s *Service) List(ctx context.Context) ([]User, error) {
	var cached []User
	if err := cache.GetJSON(s.cache, listCacheKey, &cached); err == nil {
		s.metrics.RecordCacheLookup(ctx, "users", true)
		return cached, nil
	}
	s.metrics.RecordCacheLookup(ctx, "users", false)

	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(s.cache, listCacheKey, list, listCacheTTL); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to cache user list")
	}
	return list, nil
}

// UpdateRole changes the role of user id and returns the updated user
func (s *Service) UpdateRole(ctx context.Context, id int64, role *string) (*User, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if role == nil || *role == "" {
		return nil, ErrRoleRequired
	}
	if !rbac.ValidRole(*role) {
		return nil, ErrInvalidRole
	}

	if err := s.store.UpdateRole(ctx, id, *role); err != nil {
		return nil, err
	}
	s.cache.Delete(listCacheKey)

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log(ctx).WithFields(map[string]interface{}{
		"usuario": u.Username,
		"rol":     u.Role,
	}).Info("User role updated")
	return u, nil
}

// Delete removes user id, refusing to remove the last superadmin
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(listCacheKey)
	s.log(ctx).WithField("user_id", id).Info("User deleted")
	return nil
}

// DefaultAccount is an account created by SeedDefaultAccounts
type DefaultAccount struct {
	Username string
	Name     string
	Role     rbac.Role
}

// DefaultAccounts are created on an empty installation
var DefaultAccounts = []DefaultAccount{
	{Username: "superadmin", Name: "Super Administrador", Role: rbac.RoleSuperAdmin},
	{Username: "admin", Name: "Administrador", Role: rbac.RoleAdmin},
}

// SeedDefaultAccounts creates any missing DefaultAccounts with password and
// returns how many were created
func (s *Service) SeedDefaultAccounts(ctx context.Context, password string) (int, error) {
	created := 0
	for _, acct := range DefaultAccounts {
		_, err := s.create(ctx, acct.Username, password, acct.Name, "", string(acct.Role))
		switch {
		case errors.Is(err, ErrUserExists):
			continue
		case err != nil:
			return created, fmt.Errorf("failed to seed %s: %w", acct.Username, err)
		}
		created++
	}
	return created, nil
}
