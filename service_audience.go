package authorization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// ProfileUpdate changes the username and/or password of a principal.
// Empty fields are left untouched.
type ProfileUpdate struct {
	PrincipalID int64  `json:"principal_id"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"-"`
}

type RoleAssignment struct {
	PrincipalID int64    `json:"principal_id"`
	Roles       []string `json:"roles"`
}

type AudienceServiceConfig struct {
	Store     PrincipalStore
	Roles     RoleRegistry
	Observer  CallObserver
	Detachers []ReferenceDetacher
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// AudienceService owns principal registration, profiles and role
// assignment. Every operation is traced; profile operations are
// self-scoped.
type AudienceService struct {
	store     PrincipalStore
	roles     RoleRegistry
	detachers []ReferenceDetacher
	hashCost  int
	// dummyHash is compared against when a username is unknown, so
	// both failure paths cost one bcrypt comparison.
	dummyHash []byte

	register     Operation[Credentials, Principal]
	authenticate Operation[Credentials, Principal]
	list         Operation[string, []Principal]
	view         Operation[int64, Principal]
	update       Operation[ProfileUpdate, Principal]
	remove       Operation[int64, Void]
	assign       Operation[RoleAssignment, Principal]
}

const audienceClass = "AudienceService"

func NewAudienceService(cfg AudienceServiceConfig) *AudienceService {
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &AudienceService{
		store:     cfg.Store,
		roles:     cfg.Roles,
		detachers: cfg.Detachers,
		hashCost:  cost,
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("catalog-authorization-unknown-principal"), cost)
	owner := NewOwnershipChecker(cfg.Store)

	s.register = Chain[Credentials, Principal](s.doRegister, Trace[Credentials, Principal](observer, audienceClass, "Register"))
	s.authenticate = Chain[Credentials, Principal](s.doAuthenticate, Trace[Credentials, Principal](observer, audienceClass, "Authenticate"))
	s.list = Chain[string, []Principal](s.doList, Trace[string, []Principal](observer, audienceClass, "List"))
	s.view = Chain[int64, Principal](s.doView,
		Trace[int64, Principal](observer, audienceClass, "ViewProfile"),
		SelfScoped[int64, Principal](owner, func(id int64) int64 { return id }),
	)
	s.update = Chain[ProfileUpdate, Principal](s.doUpdate,
		Trace[ProfileUpdate, Principal](observer, audienceClass, "UpdateProfile"),
		SelfScoped[ProfileUpdate, Principal](owner, func(u ProfileUpdate) int64 { return u.PrincipalID }),
	)
	s.remove = Chain[int64, Void](s.doDelete,
		Trace[int64, Void](observer, audienceClass, "DeleteAccount"),
		SelfScoped[int64, Void](owner, func(id int64) int64 { return id }),
	)
	s.assign = Chain[RoleAssignment, Principal](s.doAssign, Trace[RoleAssignment, Principal](observer, audienceClass, "AssignRoles"))
	return s
}

// Register creates a principal holding exactly the baseline role.
func (s *AudienceService) Register(ctx context.Context, c Credentials) (Principal, error) {
	return s.register(ctx, Principal{}, c)
}

// Authenticate resolves credentials to a principal. Unknown usernames
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AudienceService) Authenticate(ctx context.Context, c Credentials) (Principal, error) {
	return s.authenticate(ctx, Principal{}, c)
}

// List returns principals whose username matches pattern.
func (s *AudienceService) List(ctx context.Context, caller Principal, pattern string) ([]Principal, error) {
	return s.list(ctx, caller, pattern)
}

func (s *AudienceService) ViewProfile(ctx context.Context, caller Principal, id int64) (Principal, error) {
	return s.view(ctx, caller, id)
}

func (s *AudienceService) UpdateProfile(ctx context.Context, caller Principal, u ProfileUpdate) (Principal, error) {
	return s.update(ctx, caller, u)
}

// DeleteAccount detaches collaborator references and then deletes the
// caller's own principal.
func (s *AudienceService) DeleteAccount(ctx context.Context, caller Principal, id int64) error {
	_, err := s.remove(ctx, caller, id)
	return err
}

// AssignRoles replaces the role set of a principal after validating it.
func (s *AudienceService) AssignRoles(ctx context.Context, caller Principal, a RoleAssignment) (Principal, error) {
	return s.assign(ctx, caller, a)
}

func (s *AudienceService) doRegister(ctx context.Context, _ Principal, c Credentials) (Principal, error) {
	username := strings.TrimSpace(c.Username)
	if username == "" || c.Password == "" {
		return Principal{}, fmt.Errorf("username and password required: %w", ErrInvalidArgument)
	}
	baseline, err := s.roles.FindByName(ctx, RoleUser)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to load baseline role: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.hashCost)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to hash password: %w", err)
	}
	p, err := s.store.Save(ctx, Principal{
		Username:     username,
		PasswordHash: string(hash),
		Roles:        []RoleRef{baseline.Ref()},
	})
	if err != nil {
		return Principal{}, fmt.Errorf("failed to save principal: %w", err)
	}
	return p, nil
}

func (s *AudienceService) doAuthenticate(ctx context.Context, _ Principal, c Credentials) (Principal, error) {
	p, err := s.store.FindByUsername(ctx, c.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(c.Password))
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(c.Password)); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return p, nil
}

func (s *AudienceService) doList(ctx context.Context, _ Principal, pattern string) ([]Principal, error) {
	return s.store.List(ctx, pattern)
}

func (s *AudienceService) doView(ctx context.Context, _ Principal, id int64) (Principal, error) {
	return s.store.FindByID(ctx, id)
}

func (s *AudienceService) doUpdate(ctx context.Context, _ Principal, u ProfileUpdate) (Principal, error) {
	p, err := s.store.FindByID(ctx, u.PrincipalID)
	if err != nil {
		return Principal{}, err
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		p.Username = name
	}
	if u.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.hashCost)
		if err != nil {
			return Principal{}, fmt.Errorf("failed to hash password: %w", err)
		}
		p.PasswordHash = string(hash)
	}
	return s.store.Save(ctx, p)
}

func (s *AudienceService) doDelete(ctx context.Context, _ Principal, id int64) (Void, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range s.detachers {
		g.Go(func() error {
			return d.DetachPrincipal(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return Void{}, fmt.Errorf("failed to detach references of principal %d: %w", id, err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return Void{}, err
	}
	return Void{}, nil
}

func (s *AudienceService) doAssign(ctx context.Context, caller Principal, a RoleAssignment) (Principal, error) {
	target, err := s.store.FindByID(ctx, a.PrincipalID)
	if err != nil {
		return Principal{}, err
	}
	requested := NewRoleSet()
	refs := make([]RoleRef, 0, len(a.Roles))
	for _, name := range a.Roles {
		if requested.Has(name) {
			continue
		}
		role, err := s.roles.FindByName(ctx, name)
		if err != nil {
			return Principal{}, fmt.Errorf("failed to resolve role %q: %w", name, err)
		}
		requested[name] = struct{}{}
		refs = append(refs, role.Ref())
	}
	decision := ValidateRoleAssignment(target.RoleSet(), requested, caller.ID == target.ID)
	if err := decision.Err(); err != nil {
		return Principal{}, err
	}
	target.Roles = refs
	return s.store.Save(ctx, target)
}

// BootstrapAdmin describes an administrator created at startup when no
// principal with that username exists yet.
type BootstrapAdmin struct {
	Username string
	Password string
}

// Bootstrap makes sure the baseline and elevated roles exist and, when
// admin.Username is set, that an administrator holding both exists.
func (s *AudienceService) Bootstrap(ctx context.Context, admin BootstrapAdmin) error {
	refs := make([]RoleRef, 0, 2)
	for _, name := range []string{RoleUser, RoleAdmin} {
		role, err := s.roles.FindByName(ctx, name)
		if errors.Is(err, ErrNotFound) {
			role, err = s.roles.SaveRole(ctx, Role{Name: name})
		}
		if err != nil {
			return fmt.Errorf("failed to ensure role %s: %w", name, err)
		}
		refs = append(refs, role.Ref())
	}
	if admin.Username == "" {
		return nil
	}
	_, err := s.store.FindByUsername(ctx, admin.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}
	p, err := s.Register(ctx, Credentials{Username: admin.Username, Password: admin.Password})
	if err != nil {
		return fmt.Errorf("failed to register bootstrap admin: %w", err)
	}
	p.Roles = refs
	if _, err := s.store.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to grant bootstrap admin roles: %w", err)
	}
	return nil
}
