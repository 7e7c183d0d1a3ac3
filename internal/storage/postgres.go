package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/placeshare/internal/database"
	"github.com/Varun5711/placeshare/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

type PlaceStorage struct {
	db      database.Pools
	timeout time.Duration
}

func NewPlaceStorage(db database.Pools, timeout time.Duration) *PlaceStorage {
	return &PlaceStorage{
		db:      db,
		timeout: timeout,
	}
}

func (s *PlaceStorage) CreatePlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	insertPlace := `
		INSERT INTO places (id, title, description, address, lat, lng, image, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	appendToOwner := `
		UPDATE users
		SET place_ids = array_append(place_ids, $1),
			updated_at = NOW()
		WHERE id = $2
	`

	created := *place
	err := database.WithTx(ctx, s.db.Write(), func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertPlace,
			place.ID,
			place.Title,
			place.Description,
			place.Address,
			place.Location.Lat,
			place.Location.Lng,
			place.Image,
			place.CreatorID,
		).Scan(&created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return ErrNotFound
			}
			return fmt.Errorf("failed to insert place: %w", err)
		}

		cmdTag, err := tx.Exec(ctx, appendToOwner, place.ID, place.CreatorID)
		if err != nil {
			return fmt.Errorf("failed to link place to owner: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrNotFound
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (s *PlaceStorage) GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, title, description, address, lat, lng, image, creator_id, created_at, updated_at
		FROM places
		WHERE id = $1
	`

	place, err := scanPlace(s.db.Read().QueryRow(ctx, query, placeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	return place, nil
}

// ListPlacesByOwner returns the owner's places in membership-list order.
// An unknown owner yields an empty list.
func (s *PlaceStorage) ListPlacesByOwner(ctx context.Context, ownerID string) ([]*models.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT p.id, p.title, p.description, p.address, p.lat, p.lng, p.image, p.creator_id, p.created_at, p.updated_at
		FROM users u
		CROSS JOIN LATERAL unnest(u.place_ids) WITH ORDINALITY AS l(place_id, ord)
		JOIN places p ON p.id = l.place_id
		WHERE u.id = $1
		ORDER BY l.ord
	`

	rows, err := s.db.Read().Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list places by owner: %w", err)
	}
	defer rows.Close()

	places := make([]*models.Place, 0)
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		places = append(places, place)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return places, nil
}

func (s *PlaceStorage) UpdatePlace(ctx context.Context, placeID, title, description string) (*models.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE places
		SET title = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, title, description, address, lat, lng, image, creator_id, created_at, updated_at
	`

	place, err := scanPlace(s.db.Write().QueryRow(ctx, query, title, description, placeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update place: %w", err)
	}

	return place, nil
}

func (s *PlaceStorage) DeletePlace(ctx context.Context, placeID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deletePlace := `
		DELETE FROM places
		WHERE id = $1 AND creator_id = $2
	`
	removeFromOwner := `
		UPDATE users
		SET place_ids = array_remove(place_ids, $1),
			updated_at = NOW()
		WHERE id = $2
	`

	return database.WithTx(ctx, s.db.Write(), func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, deletePlace, placeID, ownerID)
		if err != nil {
			return fmt.Errorf("failed to delete place: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrNotFound
		}

		cmdTag, err = tx.Exec(ctx, removeFromOwner, placeID, ownerID)
		if err != nil {
			return fmt.Errorf("failed to unlink place from owner: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrNotFound
		}

		return nil
	})
}

func scanPlace(row pgx.Row) (*models.Place, error) {
	var place models.Place
	err := row.Scan(
		&place.ID,
		&place.Title,
		&place.Description,
		&place.Address,
		&place.Location.Lat,
		&place.Location.Lng,
		&place.Image,
		&place.CreatorID,
		&place.CreatedAt,
		&place.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &place, nil
}
