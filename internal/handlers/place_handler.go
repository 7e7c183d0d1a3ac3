package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Varun5711/placeshare/internal/images"
	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/middleware"
	"github.com/Varun5711/placeshare/internal/models"
	"github.com/Varun5711/placeshare/internal/qrcode"
	"github.com/Varun5711/placeshare/internal/response"
	"github.com/Varun5711/placeshare/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type PlaceHandler struct {
	places  *service.PlaceService
	uploads *uploads
	log     *logger.Logger
}

func NewPlaceHandler(places *service.PlaceService, imageStore images.Store, maxUploadBytes int64, log *logger.Logger) *PlaceHandler {
	return &PlaceHandler{
		places:  places,
		uploads: &uploads{store: imageStore, maxBytes: maxUploadBytes, log: log},
		log:     log,
	}
}

func (h *PlaceHandler) GetPlace(w http.ResponseWriter, r *http.Request) {
	place, err := h.places.GetPlaceByID(r.Context(), r.PathValue("pid"))
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusOK, models.PlaceResponse{Place: place})
}

func (h *PlaceHandler) ListUserPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := h.places.GetPlacesByOwner(r.Context(), r.PathValue("uid"))
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusOK, models.ListPlacesResponse{Places: places})
}

func (h *PlaceHandler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Error(w, h.log, status.Error(codes.Unauthenticated, "Authentication failed."))
		return
	}

	var req models.CreatePlaceRequest
	isForm, err := h.uploads.decode(w, r, &req)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	if isForm {
		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
		req.Address = r.FormValue("address")
	}

	imageRef, err := h.uploads.save(r.Context(), r)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	place, err := h.places.CreatePlace(r.Context(), identity, &req, imageRef)
	if err != nil {
		h.uploads.discard(r.Context(), imageRef)
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusCreated, models.PlaceResponse{Place: place})
}

func (h *PlaceHandler) PatchPlace(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Error(w, h.log, status.Error(codes.Unauthenticated, "Authentication failed."))
		return
	}

	var req models.PatchPlaceRequest
	isForm, err := h.uploads.decode(w, r, &req)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	if isForm {
		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
	}

	place, err := h.places.PatchPlace(r.Context(), identity, r.PathValue("pid"), &req)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusOK, models.PlaceResponse{Place: place})
}

func (h *PlaceHandler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Error(w, h.log, status.Error(codes.Unauthenticated, "Authentication failed."))
		return
	}

	title, err := h.places.DeletePlace(r.Context(), identity, r.PathValue("pid"))
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusOK, models.MessageResponse{Message: title + " deleted!"})
}

// PlaceQRCode serves a PNG QR code; ?size= picks the edge length in pixels.
// ?format=text returns a plain-text rendering for terminals instead.
func (h *PlaceHandler) PlaceQRCode(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "text" {
		h.placeQRCodeText(w, r)
		return
	}

	size := qrcode.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, h.log, status.Error(codes.InvalidArgument, "size must be a number"))
			return
		}
		size = n
	}

	png, err := h.places.PlaceQRCode(r.Context(), r.PathValue("pid"), size)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *PlaceHandler) placeQRCodeText(w http.ResponseWriter, r *http.Request) {
	text, err := h.places.PlaceQRCodeText(r.Context(), r.PathValue("pid"))
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}
