package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

// ErrInvalidCredentials hides whether the account exists or the password
// was wrong.
var ErrInvalidCredentials = errors.New("store: invalid email or password")

// ErrOwnRole rejects an admin demoting or promoting themselves.
var ErrOwnRole = errors.New("store: cannot change your own role")

type ProfileInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthStore owns the authenticated session and mirrors the profiles table
// for the admin panel.
type AuthStore struct {
	gw       gateway.Gateway
	bus      EventBus.Bus
	activity *Activity

	mu       sync.Mutex
	current  *domain.Profile
	profiles []domain.Profile
	fetching atomic.Bool
}

func NewAuthStore(gw gateway.Gateway, bus EventBus.Bus, activity *Activity) *AuthStore {
	return &AuthStore{gw: gw, bus: bus, activity: activity}
}

func (s *AuthStore) notifySession(p *domain.Profile) {
	if s.bus != nil {
		s.bus.Publish(TopicSessionChanged, p)
	}
}

// OnSessionChange registers fn for sign-in/sign-out transitions; fn
// receives the new profile or nil.
func (s *AuthStore) OnSessionChange(fn func(p *domain.Profile)) error {
	return s.bus.Subscribe(TopicSessionChanged, fn)
}

// SignIn verifies the password and establishes the session.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) (*domain.Profile, error) {
	s.activity.Start()
	defer s.activity.Done()

	var rows []domain.Profile
	q := gateway.Clauses{Equals: map[string]interface{}{"email": email}, Limit: 1}
	if err := s.gw.Select(ctx, domain.Profile{}.TableName(), q, &rows); err != nil {
		zap.L().Error("sign-in lookup failed", zap.Error(err))
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrInvalidCredentials
	}
	p := rows[0]
	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.gw.Update(ctx, p.TableName(), p.ID, map[string]interface{}{"last_login": time.Now()}, &p); err != nil {
		zap.L().Warn("recording last login failed", zap.Int64("id", p.ID), zap.Error(err))
	}

	s.mu.Lock()
	s.current = &p
	s.mu.Unlock()
	s.notifySession(&p)
	zap.L().Info("operator signed in", zap.String("username", p.Username), zap.String("role", p.Role))
	return &p, nil
}

// SignOut drops the session.
func (s *AuthStore) SignOut() {
	s.mu.Lock()
	was := s.current
	s.current = nil
	s.mu.Unlock()
	if was != nil {
		zap.L().Info("operator signed out", zap.String("username", was.Username))
	}
	s.notifySession(nil)
}

// Session returns the signed-in profile, or nil.
func (s *AuthStore) Session() *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	return &p
}

// Load fetches a profile by id and establishes it as the session; used when
// resuming from a bearer token.
func (s *AuthStore) Load(ctx context.Context, id int64) (*domain.Profile, error) {
	p, err := s.profileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return p, nil
}

func (s *AuthStore) profileByID(ctx context.Context, id int64) (*domain.Profile, error) {
	var rows []domain.Profile
	q := gateway.Clauses{Equals: map[string]interface{}{"id": id}, Limit: 1}
	if err := s.gw.Select(ctx, domain.Profile{}.TableName(), q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNotFound
	}
	return &rows[0], nil
}

// FetchAllProfiles mirrors every account for the admin panel. Same
// single-flight rule as the entity stores.
func (s *AuthStore) FetchAllProfiles(ctx context.Context) ([]domain.Profile, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return []domain.Profile{}, nil
	}
	defer s.fetching.Store(false)
	s.activity.Start()
	defer s.activity.Done()

	var rows []domain.Profile
	err := s.gw.Select(ctx, domain.Profile{}.TableName(), gateway.Clauses{}, &rows)

	s.mu.Lock()
	if err != nil {
		s.profiles = nil
	} else {
		s.profiles = rows
	}
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(TopicProfilesChanged)
	}

	if err != nil {
		zap.L().Error("fetch profiles failed", zap.Error(err))
		return nil, err
	}
	return append([]domain.Profile(nil), rows...), nil
}

// Profiles returns the mirrored admin-panel collection.
func (s *AuthStore) Profiles() []domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Profile(nil), s.profiles...)
}

// CreateProfile registers an account with a bcrypt-hashed password.
func (s *AuthStore) CreateProfile(ctx context.Context, in ProfileInput) (*domain.Profile, error) {
	s.activity.Start()
	defer s.activity.Done()

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	row := domain.Profile{Username: in.Username, Email: in.Email, Password: string(hash), Role: role}
	if err := s.gw.Insert(ctx, row.TableName(), &row); err != nil {
		zap.L().Error("create profile failed", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.profiles = append([]domain.Profile{row}, s.profiles...)
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(TopicProfilesChanged)
	}
	return &row, nil
}

// UpdateRole switches an account between user and admin. The acting
// operator may not change their own role.
func (s *AuthStore) UpdateRole(ctx context.Context, id int64, role string) (*domain.Profile, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, errors.Errorf("store: unknown role %q", role)
	}
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.mu.Unlock()
		return nil, ErrOwnRole
	}
	s.mu.Unlock()

	s.activity.Start()
	defer s.activity.Done()

	var row domain.Profile
	if err := s.gw.Update(ctx, row.TableName(), id, map[string]interface{}{"role": role}, &row); err != nil {
		zap.L().Error("update role failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles[i] = row
			break
		}
	}
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(TopicProfilesChanged)
	}
	zap.L().Info("role changed", zap.Int64("id", id), zap.String("role", role))
	return &row, nil
}
