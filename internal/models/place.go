package models

import "time"

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is the ownership side of the user/place relation: CreatorID always
// names the user whose PlaceIDs list contains ID.
type Place struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Location    Location  `json:"location"`
	Image       string    `json:"image"`
	CreatorID   string    `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreatePlaceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

type PatchPlaceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type PlaceResponse struct {
	Place *Place `json:"place"`
}

type ListPlacesResponse struct {
	Places []*Place `json:"places"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
