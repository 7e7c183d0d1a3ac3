package handlers

import (
	"net/http"

	"github.com/Varun5711/placeshare/internal/images"
	"github.com/Varun5711/placeshare/internal/logger"
	usermodel "github.com/Varun5711/placeshare/internal/models/user"
	"github.com/Varun5711/placeshare/internal/response"
	"github.com/Varun5711/placeshare/internal/service"
)

type UserHandler struct {
	users   *service.UserService
	uploads *uploads
	log     *logger.Logger
}

func NewUserHandler(users *service.UserService, imageStore images.Store, maxUploadBytes int64, log *logger.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		uploads: &uploads{store: imageStore, maxBytes: maxUploadBytes, log: log},
		log:     log,
	}
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req usermodel.CreateUserRequest
	isForm, err := h.uploads.decode(w, r, &req)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	if isForm {
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	req.Image, err = h.uploads.save(r.Context(), r)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	resp, err := h.users.Signup(r.Context(), &req)
	if err != nil {
		h.uploads.discard(r.Context(), req.Image)
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req usermodel.LoginRequest
	isForm, err := h.uploads.decode(w, r, &req)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}
	if isForm {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	resp, err := h.users.Login(r.Context(), &req)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusOK, usermodel.ListUsersResponse{Users: users})
}
