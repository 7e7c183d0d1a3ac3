package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Varun5711/placeshare/internal/geocode"
	"github.com/Varun5711/placeshare/internal/idgen"
	"github.com/Varun5711/placeshare/internal/images"
	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/middleware"
	"github.com/Varun5711/placeshare/internal/models"
	"github.com/Varun5711/placeshare/internal/qrcode"
	"github.com/Varun5711/placeshare/internal/storage"
	"github.com/Varun5711/placeshare/internal/validation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type IDGenerator interface {
	NextPlaceID() (string, error)
}

type PlaceService struct {
	places   storage.PlaceStore
	users    storage.UserStore
	geocoder geocode.Geocoder
	ids      IDGenerator
	images   images.Store
	log      *logger.Logger
}

// NewPlaceService wires the place operations. imageStore may be nil, in which
// case stored image references are never cleaned up.
func NewPlaceService(places storage.PlaceStore, users storage.UserStore, geocoder geocode.Geocoder, ids IDGenerator, imageStore images.Store, log *logger.Logger) *PlaceService {
	return &PlaceService{
		places:   places,
		users:    users,
		geocoder: geocoder,
		ids:      ids,
		images:   imageStore,
		log:      log,
	}
}

func (s *PlaceService) GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error) {
	if !idgen.IsPlaceID(placeID) {
		return nil, status.Error(codes.NotFound, "Could not find place for the provided id.")
	}

	place, err := s.places.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get place: %v", err)
	}
	if place == nil {
		return nil, status.Error(codes.NotFound, "Could not find place for the provided id.")
	}
	return place, nil
}

// GetPlacesByOwner treats an unknown user and a user without places alike.
func (s *PlaceService) GetPlacesByOwner(ctx context.Context, userID string) ([]*models.Place, error) {
	places, err := s.places.ListPlacesByOwner(ctx, userID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list places: %v", err)
	}
	if len(places) == 0 {
		return nil, status.Error(codes.NotFound, "Could not find places for the provided user id.")
	}
	return places, nil
}

// CreatePlace stores a place owned by the authenticated caller. imageRef is
// whatever the image store returned for the upload, or empty.
func (s *PlaceService) CreatePlace(ctx context.Context, identity middleware.Identity, req *models.CreatePlaceRequest, imageRef string) (*models.Place, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Address = strings.TrimSpace(req.Address)
	if err := validation.ValidatePlace(req.Title, req.Description, req.Address); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	owner, err := s.users.GetUserByID(ctx, identity.UserID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get user: %v", err)
	}
	if owner == nil {
		return nil, status.Error(codes.NotFound, "Could not find user for provided id.")
	}

	location, err := s.geocoder.Geocode(ctx, req.Address)
	if err != nil {
		if !errors.Is(err, geocode.ErrNoMatch) {
			s.log.Warn("Geocoding %q failed: %v", req.Address, err)
		}
		return nil, status.Error(codes.FailedPrecondition, "Could not find location for the specified address.")
	}

	placeID, err := s.ids.NextPlaceID()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to allocate place id: %v", err)
	}

	created, err := s.places.CreatePlace(ctx, &models.Place{
		ID:          placeID,
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Location:    location,
		Image:       imageRef,
		CreatorID:   owner.ID,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "Could not find user for provided id.")
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create place: %v", err)
	}

	s.log.Info("Place %s created by %s", created.ID, created.CreatorID)
	return created, nil
}

func (s *PlaceService) PatchPlace(ctx context.Context, identity middleware.Identity, placeID string, req *models.PatchPlaceRequest) (*models.Place, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.ValidatePlacePatch(req.Title, req.Description); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	place, err := s.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if err := middleware.AuthorizeOwner(identity, place.CreatorID); err != nil {
		return nil, err
	}

	updated, err := s.places.UpdatePlace(ctx, placeID, req.Title, req.Description)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "Could not find place for the provided id.")
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to update place: %v", err)
	}
	return updated, nil
}

// DeletePlace removes the place and unlinks it from its owner, returning the
// deleted title. The stored image is removed after the commit with a single
// attempt; a failure there is logged and not reported.
func (s *PlaceService) DeletePlace(ctx context.Context, identity middleware.Identity, placeID string) (string, error) {
	place, err := s.GetPlaceByID(ctx, placeID)
	if err != nil {
		return "", err
	}
	if err := middleware.AuthorizeOwner(identity, place.CreatorID); err != nil {
		return "", err
	}

	err = s.places.DeletePlace(ctx, placeID, place.CreatorID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", status.Error(codes.NotFound, "Could not find place for the provided id.")
	}
	if err != nil {
		return "", status.Errorf(codes.Internal, "failed to delete place: %v", err)
	}

	s.RemoveImage(ctx, place.Image)
	s.log.Info("Place %s deleted by %s", placeID, identity.UserID)
	return place.Title, nil
}

// PlaceQRCode renders a PNG QR code pointing at the place's coordinates.
func (s *PlaceService) PlaceQRCode(ctx context.Context, placeID string, size int) ([]byte, error) {
	place, err := s.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.PNG(qrcode.GeoURI(place.Location), size)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to render QR code: %v", err)
	}
	return png, nil
}

// PlaceQRCodeText renders the same QR code as block characters.
func (s *PlaceService) PlaceQRCodeText(ctx context.Context, placeID string) (string, error) {
	place, err := s.GetPlaceByID(ctx, placeID)
	if err != nil {
		return "", err
	}

	text, err := qrcode.ASCII(qrcode.GeoURI(place.Location))
	if err != nil {
		return "", status.Errorf(codes.Internal, "failed to render QR code: %v", err)
	}
	return text, nil
}

// RemoveImage makes one attempt to delete a stored image. Cancellation of ctx
// is ignored.
func (s *PlaceService) RemoveImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(context.WithoutCancel(ctx), ref); err != nil {
		s.log.Warn("Failed to remove image %s: %v", ref, err)
	}
}
