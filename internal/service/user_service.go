package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Varun5711/placeshare/internal/auth"
	"github.com/Varun5711/placeshare/internal/logger"
	usermodel "github.com/Varun5711/placeshare/internal/models/user"
	"github.com/Varun5711/placeshare/internal/storage"
	"github.com/Varun5711/placeshare/internal/validation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type UserService struct {
	users      storage.UserStore
	hasher     *auth.PasswordHasher
	jwtManager *auth.JWTManager
	log        *logger.Logger
}

func NewUserService(users storage.UserStore, hasher *auth.PasswordHasher, jwtManager *auth.JWTManager, log *logger.Logger) *UserService {
	return &UserService{
		users:      users,
		hasher:     hasher,
		jwtManager: jwtManager,
		log:        log,
	}
}

func (s *UserService) Signup(ctx context.Context, req *usermodel.CreateUserRequest) (*usermodel.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.ValidateSignup(req.Name, req.Email, req.Password); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	existingUser, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to check existing user: %v", err)
	}
	if existingUser != nil {
		return nil, status.Error(codes.AlreadyExists, "User exists already, please login instead.")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}

	user, err := s.users.CreateUser(ctx, req, passwordHash)
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return nil, status.Error(codes.AlreadyExists, "User exists already, please login instead.")
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create user: %v", err)
	}

	s.log.Info("User %s signed up", user.ID)
	return s.issue(user)
}

// Login reports the same Unauthenticated error for an unknown email and a
// wrong password.
func (s *UserService) Login(ctx context.Context, req *usermodel.LoginRequest) (*usermodel.AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.ValidateLogin(req.Email, req.Password); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get user: %v", err)
	}
	if user == nil || !s.hasher.Verify(user.PasswordHash, req.Password) {
		return nil, status.Error(codes.Unauthenticated, "Invalid credentials, could not log you in.")
	}

	return s.issue(user)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*usermodel.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list users: %v", err)
	}
	return users, nil
}

func (s *UserService) issue(user *usermodel.User) (*usermodel.AuthResponse, error) {
	token, expiresAt, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}

	return &usermodel.AuthResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
