package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidValidator is returned when registering an incomplete validator
var ErrInvalidValidator = errors.New("role validator must define every function")

// ValidationRules are the per-role thresholds applied to article content
type ValidationRules struct {
	MinTitleLength int  `json:"min_titulo_length"`
	MinBodyLength  int  `json:"min_contenido_length"`
	RequireImage   bool `json:"require_image"`
	MaxTitleLength int  `json:"max_titulo_length"`
}

// RoleValidator answers ownership-aware questions for one role
type RoleValidator struct {
	CanCreateNews func() bool
	CanEditNews   func(author, actor string) bool
	CanDeleteNews func(author, actor string) bool
	Rules         func() ValidationRules
}

func (v RoleValidator) complete() bool {
	return v.CanCreateNews != nil && v.CanEditNews != nil && v.CanDeleteNews != nil && v.Rules != nil
}

func always(string, string) bool { return true }
func never(string, string) bool  { return false }
func owner(author, actor string) bool {
	return author != "" && author == actor
}

func rules(r ValidationRules) func() ValidationRules {
	return func() ValidationRules { return r }
}

var (
	superAdminValidator = RoleValidator{
		CanCreateNews: func() bool { return true },
		CanEditNews:   always,
		CanDeleteNews: always,
		Rules:         rules(ValidationRules{MinTitleLength: 3, MinBodyLength: 10, RequireImage: false, MaxTitleLength: 500}),
	}
	adminValidator = RoleValidator{
		CanCreateNews: func() bool { return true },
		CanEditNews:   always,
		CanDeleteNews: always,
		Rules:         rules(ValidationRules{MinTitleLength: 5, MinBodyLength: 20, RequireImage: false, MaxTitleLength: 255}),
	}
	maestroValidator = RoleValidator{
		CanCreateNews: func() bool { return true },
		CanEditNews:   owner,
		CanDeleteNews: owner,
		Rules:         rules(ValidationRules{MinTitleLength: 5, MinBodyLength: 30, RequireImage: false, MaxTitleLength: 255}),
	}
	usuarioValidator = RoleValidator{
		CanCreateNews: func() bool { return false },
		CanEditNews:   never,
		CanDeleteNews: never,
		Rules:         rules(ValidationRules{MinTitleLength: 5, MinBodyLength: 20, RequireImage: false, MaxTitleLength: 255}),
	}
)

// ValidatorRegistry maps lower-cased role names to validators
type ValidatorRegistry struct {
	mu         sync.RWMutex
	validators map[string]RoleValidator
}

// NewValidatorRegistry returns a registry holding the built-in validators
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: map[string]RoleValidator{
			string(RoleSuperAdmin): superAdminValidator,
			string(RoleAdmin):      adminValidator,
			string(RoleMaestro):    maestroValidator,
			string(RoleUsuario):    usuarioValidator,
		},
	}
}

// For returns the validator for role. Lookup is case-insensitive and unknown
// roles get the usuario validator.
func (vr *ValidatorRegistry) For(role string) RoleValidator {
	vr.mu.RLock()
	defer vr.mu.RUnlock()

	if v, ok := vr.validators[strings.ToLower(role)]; ok {
		return v
	}
	return usuarioValidator
}

// Register adds or replaces the validator for role
func (vr *ValidatorRegistry) Register(role string, v RoleValidator) error {
	if strings.TrimSpace(role) == "" {
		return fmt.Errorf("role name is required")
	}
	if !v.complete() {
		return fmt.Errorf("register %q: %w", role, ErrInvalidValidator)
	}

	vr.mu.Lock()
	defer vr.mu.Unlock()
	vr.validators[strings.ToLower(role)] = v
	return nil
}

// AvailableRoles returns the sorted roles that have a registered validator
func (vr *ValidatorRegistry) AvailableRoles() []string {
	vr.mu.RLock()
	defer vr.mu.RUnlock()

	roles := make([]string, 0, len(vr.validators))
	for role := range vr.validators {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
