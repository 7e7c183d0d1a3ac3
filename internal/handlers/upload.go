package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/Varun5711/placeshare/internal/images"
	"github.com/Varun5711/placeshare/internal/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const formOverheadBytes = 1 << 20

var errInvalidInput = status.Error(codes.InvalidArgument, "Invalid inputs passed, please check your data.")

// uploads reads request bodies that are either JSON or multipart forms
// carrying an optional "image" file.
type uploads struct {
	store    images.Store
	maxBytes int64
	log      *logger.Logger
}

// decode fills dst from a JSON body. For multipart requests it parses the
// form instead and reports true; the caller reads fields with r.FormValue.
func (u *uploads) decode(w http.ResponseWriter, r *http.Request, dst interface{}) (bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes+formOverheadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(u.maxBytes); err != nil {
			u.log.Debug("Failed to parse form: %v", err)
			return true, errInvalidInput
		}
		return true, nil
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		u.log.Debug("Failed to decode request: %v", err)
		return false, errInvalidInput
	}
	return false, nil
}

// save stores the request's "image" file and returns its reference, or ""
// when none was sent.
func (u *uploads) save(ctx context.Context, r *http.Request) (string, error) {
	if u.store == nil || r.MultipartForm == nil {
		return "", nil
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errInvalidInput
	}
	defer file.Close()

	if header.Size > u.maxBytes {
		return "", status.Error(codes.InvalidArgument, "Image is too large.")
	}
	contentType := header.Header.Get("Content-Type")
	if !images.IsSupportedType(contentType) {
		return "", status.Error(codes.InvalidArgument, "Invalid image type, use png or jpeg.")
	}

	ref, err := u.store.Save(ctx, header.Filename, contentType, file, header.Size)
	if err != nil {
		return "", status.Errorf(codes.Internal, "failed to store image: %v", err)
	}
	return ref, nil
}

// discard removes an image saved for a request that then failed.
func (u *uploads) discard(ctx context.Context, ref string) {
	if ref == "" || u.store == nil {
		return
	}
	if err := u.store.Remove(context.WithoutCancel(ctx), ref); err != nil {
		u.log.Warn("Failed to remove image %s: %v", ref, err)
	}
}
