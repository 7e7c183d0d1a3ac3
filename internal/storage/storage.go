package storage

import (
	"context"
	"errors"

	"github.com/Varun5711/placeshare/internal/models"
	usermodel "github.com/Varun5711/placeshare/internal/models/user"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserStore persists accounts. Lookups return (nil, nil) when nothing matches.
type UserStore interface {
	CreateUser(ctx context.Context, req *usermodel.CreateUserRequest, passwordHash string) (*usermodel.User, error)
	GetUserByEmail(ctx context.Context, email string) (*usermodel.User, error)
	GetUserByID(ctx context.Context, userID string) (*usermodel.User, error)
	ListUsers(ctx context.Context) ([]*usermodel.User, error)
}

// PlaceStore persists places together with their owner's membership list.
// CreatePlace and DeletePlace change both records in one transaction.
type PlaceStore interface {
	CreatePlace(ctx context.Context, place *models.Place) (*models.Place, error)
	GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error)
	ListPlacesByOwner(ctx context.Context, ownerID string) ([]*models.Place, error)
	UpdatePlace(ctx context.Context, placeID, title, description string) (*models.Place, error)
	DeletePlace(ctx context.Context, placeID, ownerID string) error
}
