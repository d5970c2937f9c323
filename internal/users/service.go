package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/validation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

var (
	ErrEmailTaken         = errors.New("User already exists with this email")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrNotFound           = errors.New("User not found")
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72,strong_password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial update of the caller's own account.
type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
}

// Service encapsulates account registration, sign in and profile changes.
type Service struct {
	store     resource.Store[models.User]
	cost      int
	validator *validation.Validator
	log       *zap.Logger
}

func NewService(store resource.Store[models.User], bcryptCost int, log *zap.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = DefaultBcryptCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cost: bcryptCost, validator: validation.Default(), log: log.Named("users")}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

// CreateAdmin creates an administrator, or promotes the existing account
// registered under the same email.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	u, err := s.create(ctx, in, models.RoleAdmin)
	if !errors.Is(err, ErrEmailTaken) {
		return u, err
	}
	u, err = s.store.UpdateOne(ctx, bson.M{"email": normalizeEmail(in.Email)}, bson.M{"role": models.RoleAdmin, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", in.Email, err)
	}
	s.log.Info("promoted to admin", zap.String("id", u.ID.Hex()))
	return u, nil
}

func (s *Service) create(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	_, err := s.store.FindOne(ctx, bson.M{"email": in.Email})
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, resource.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Base:     resource.Base{IsActive: true},
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.validator.Struct(u); err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, u); err != nil {
		if errors.Is(err, resource.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("id", u.ID.Hex()), zap.String("role", role))
	return u, nil
}

// Authenticate returns the active user matching the credentials.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.store.FindOne(ctx, bson.M{"email": in.Email})
	if errors.Is(err, resource.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		s.log.Info("login for inactive user", zap.String("id", u.ID.Hex()))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID returns an active user.
func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.store.FindOne(ctx, bson.M{"_id": id, "isActive": true})
	if errors.Is(err, resource.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// UpdateProfile changes the name and/or email of an active user.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*models.User, error) {
	if in.Name == nil && in.Email == nil {
		return nil, validation.New("at least one field must be provided")
	}
	set := bson.M{}
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
		set["name"] = v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
		set["email"] = v
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if email, ok := set["email"].(string); ok {
		other, err := s.store.FindOne(ctx, bson.M{"email": email})
		if err == nil && other.ID != id {
			return nil, ErrEmailTaken
		}
		if err != nil && !errors.Is(err, resource.ErrNotFound) {
			return nil, err
		}
	}
	u, err := s.store.UpdateOne(ctx, bson.M{"_id": id, "isActive": true}, set)
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, resource.ErrDuplicateKey):
		return nil, ErrEmailTaken
	}
	return u, err
}
