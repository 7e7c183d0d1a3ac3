package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Varun5711/placeshare/internal/models"
	usermodel "github.com/Varun5711/placeshare/internal/models/user"
	"github.com/google/uuid"
)

// Transaction steps that can be failed with InjectFault.
const (
	StepInsertPlace   = "insert_place"
	StepAppendToOwner = "append_to_owner"
	StepDeletePlace   = "delete_place"
	StepRemoveOwner   = "remove_from_owner"
	StepUpdatePlace   = "update_place"
)

// MemoryStorage implements UserStore and PlaceStore in process. Relation
// writes are staged on copies and swapped in only when every step succeeds,
// all under one lock, which gives readers the same all-or-nothing view a
// database transaction would.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[string]*usermodel.User
	places map[string]*models.Place
	faults map[string]error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[string]*usermodel.User),
		places: make(map[string]*models.Place),
		faults: make(map[string]error),
	}
}

// InjectFault makes the next execution of step fail with err.
func (s *MemoryStorage) InjectFault(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[step] = err
}

func (s *MemoryStorage) fault(step string) error {
	if err, ok := s.faults[step]; ok {
		delete(s.faults, step)
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

func (s *MemoryStorage) CreateUser(ctx context.Context, req *usermodel.CreateUserRequest, passwordHash string) (*usermodel.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == req.Email {
			return nil, ErrDuplicateEmail
		}
	}

	now := time.Now()
	user := &usermodel.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		Image:        req.Image,
		PlaceIDs:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user

	return copyUser(user, false), nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u, true), nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) GetUserByID(ctx context.Context, userID string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[userID]
	if !exists {
		return nil, nil
	}
	return copyUser(u, false), nil
}

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*usermodel.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u, false))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

func (s *MemoryStorage) CreatePlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, exists := s.users[place.CreatorID]
	if !exists {
		return nil, ErrNotFound
	}
	if _, exists := s.places[place.ID]; exists {
		return nil, fmt.Errorf("place %s already exists", place.ID)
	}

	now := time.Now()
	staged := *place
	staged.CreatedAt = now
	staged.UpdatedAt = now
	if err := s.fault(StepInsertPlace); err != nil {
		return nil, fmt.Errorf("failed to insert place: %w", err)
	}

	stagedOwner := copyUser(owner, true)
	stagedOwner.PlaceIDs = append(stagedOwner.PlaceIDs, place.ID)
	stagedOwner.UpdatedAt = now
	if err := s.fault(StepAppendToOwner); err != nil {
		return nil, fmt.Errorf("failed to link place to owner: %w", err)
	}

	s.places[staged.ID] = &staged
	s.users[stagedOwner.ID] = stagedOwner

	created := staged
	return &created, nil
}

func (s *MemoryStorage) GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	place, exists := s.places[placeID]
	if !exists {
		return nil, nil
	}
	found := *place
	return &found, nil
}

func (s *MemoryStorage) ListPlacesByOwner(ctx context.Context, ownerID string) ([]*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	places := make([]*models.Place, 0)
	owner, exists := s.users[ownerID]
	if !exists {
		return places, nil
	}

	for _, id := range owner.PlaceIDs {
		if p, ok := s.places[id]; ok {
			found := *p
			places = append(places, &found)
		}
	}
	return places, nil
}

func (s *MemoryStorage) UpdatePlace(ctx context.Context, placeID, title, description string) (*models.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	place, exists := s.places[placeID]
	if !exists {
		return nil, ErrNotFound
	}
	if err := s.fault(StepUpdatePlace); err != nil {
		return nil, fmt.Errorf("failed to update place: %w", err)
	}

	updated := *place
	updated.Title = title
	updated.Description = description
	updated.UpdatedAt = time.Now()
	s.places[placeID] = &updated

	result := updated
	return &result, nil
}

func (s *MemoryStorage) DeletePlace(ctx context.Context, placeID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	place, exists := s.places[placeID]
	if !exists || place.CreatorID != ownerID {
		return ErrNotFound
	}
	owner, exists := s.users[ownerID]
	if !exists {
		return ErrNotFound
	}

	if err := s.fault(StepDeletePlace); err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}

	stagedOwner := copyUser(owner, true)
	stagedOwner.PlaceIDs = slices.DeleteFunc(stagedOwner.PlaceIDs, func(id string) bool {
		return id == placeID
	})
	stagedOwner.UpdatedAt = time.Now()
	if err := s.fault(StepRemoveOwner); err != nil {
		return fmt.Errorf("failed to unlink place from owner: %w", err)
	}

	delete(s.places, placeID)
	s.users[ownerID] = stagedOwner

	return nil
}

func copyUser(u *usermodel.User, withHash bool) *usermodel.User {
	c := *u
	c.PlaceIDs = slices.Clone(u.PlaceIDs)
	if c.PlaceIDs == nil {
		c.PlaceIDs = []string{}
	}
	if !withHash {
		c.PasswordHash = ""
	}
	return &c
}
