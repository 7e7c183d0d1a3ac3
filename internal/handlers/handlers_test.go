package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Varun5711/placeshare/internal/auth"
	"github.com/Varun5711/placeshare/internal/geocode"
	"github.com/Varun5711/placeshare/internal/idgen"
	"github.com/Varun5711/placeshare/internal/images"
	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/middleware"
	"github.com/Varun5711/placeshare/internal/models"
	usermodel "github.com/Varun5711/placeshare/internal/models/user"
	"github.com/Varun5711/placeshare/internal/service"
	"github.com/Varun5711/placeshare/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	err error
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	if g.err != nil {
		return models.Location{}, g.err
	}
	return models.Location{Lat: 40.7484, Lng: -73.9857}, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	handler  http.Handler
	store    *storage.MemoryStorage
	geo      *stubGeocoder
	imageDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.Discard()
	store := storage.NewMemoryStorage()
	geo := &stubGeocoder{}
	imageDir := t.TempDir()
	imageStore, err := images.NewLocalStore(imageDir)
	require.NoError(t, err)
	ids, err := idgen.NewGenerator(1, 1)
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("handler-secret", time.Hour)
	users := service.NewUserService(store, auth.NewPasswordHasher(4), jwtManager, log)
	places := service.NewPlaceService(store, store, geo, ids, imageStore, log)

	handler := NewRouter(Routes{
		Users:          NewUserHandler(users, imageStore, 1<<20, log),
		Places:         NewPlaceHandler(places, imageStore, 1<<20, log),
		Health:         NewHealthHandler(pingFunc(func(context.Context) error { return nil }), nil),
		Auth:           middleware.NewAuthMiddleware(jwtManager, log),
		RequestTimeout: 5 * time.Second,
		Log:            log,
	})

	return &testServer{handler: handler, store: store, geo: geo, imageDir: imageDir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, name, email string) usermodel.AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users/signup", "", map[string]string{
		"name": name, "email": email, "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp usermodel.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (s *testServer) createPlace(t *testing.T, token, title string) models.Place {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/places", token, map[string]string{
		"title": title, "description": "A very tall building", "address": "20 W 34th St",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.PlaceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return *resp.Place
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Message
}

func (s *testServer) userPlaces(t *testing.T, userID string) []string {
	t.Helper()
	u, err := s.store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.PlaceIDs
}

func TestPlaceLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")
	bob := s.signup(t, "Bob", "b@x.com")
	assert.NotEmpty(t, alice.Token)

	place := s.createPlace(t, alice.Token, "Tower")
	assert.Equal(t, alice.UserID, place.CreatorID)
	assert.Equal(t, []string{place.ID}, s.userPlaces(t, alice.UserID))

	rec := s.do(t, http.MethodDelete, "/api/places/"+place.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/places/"+place.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{place.ID}, s.userPlaces(t, alice.UserID))

	rec = s.do(t, http.MethodDelete, "/api/places/"+place.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tower deleted!", decodeMessage(t, rec))

	rec = s.do(t, http.MethodGet, "/api/places/"+place.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.userPlaces(t, alice.UserID))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "Alice", "a@x.com")

	rec := s.do(t, http.MethodPost, "/api/users/signup", "", map[string]string{
		"name": "Alice", "email": "a@x.com", "password": "secret",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp usermodel.ListUsersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Users, 1)
}

func TestListUsers_HidesPasswordHash(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "Alice", "a@x.com")

	rec := s.do(t, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")

	rec := s.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@x.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp usermodel.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, alice.UserID, resp.UserID)

	rec = s.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@x.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "z@x.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePlace_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/places", "", map[string]string{
		"title": "Tower", "description": "A very tall building", "address": "20 W 34th St",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/places", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePlace_InvalidInput(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")

	rec := s.do(t, http.MethodPost, "/api/places", alice.Token, map[string]string{"title": "", "description": "x", "address": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/places", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreatePlace_GeocodeFailure(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")
	s.geo.err = geocode.ErrNoMatch

	rec := s.do(t, http.MethodPost, "/api/places", alice.Token, map[string]string{
		"title": "Nowhere", "description": "Does not exist", "address": "zzzz",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, s.userPlaces(t, alice.UserID))
}

func TestCreatePlace_StorageFailureIsGeneric(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")
	s.store.InjectFault(storage.StepAppendToOwner, errors.New("pq: connection refused on 10.0.0.7"))

	rec := s.do(t, http.MethodPost, "/api/places", alice.Token, map[string]string{
		"title": "Tower", "description": "A very tall building", "address": "20 W 34th St",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
	assert.Empty(t, s.userPlaces(t, alice.UserID))
}

func TestPatchPlace(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")
	bob := s.signup(t, "Bob", "b@x.com")
	place := s.createPlace(t, alice.Token, "Tower")

	patch := map[string]string{"title": "Empire", "description": "Art deco skyscraper"}

	rec := s.do(t, http.MethodPatch, "/api/places/"+place.ID, bob.Token, patch)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/places/"+place.ID, alice.Token, patch)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.PlaceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Empire", resp.Place.Title)
}

func TestListUserPlaces(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")

	rec := s.do(t, http.MethodGet, "/api/places/user/"+alice.UserID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.createPlace(t, alice.Token, "One")
	s.createPlace(t, alice.Token, "Two")

	rec = s.do(t, http.MethodGet, "/api/places/user/"+alice.UserID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ListPlacesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Places, 2)
	assert.Equal(t, "One", resp.Places[0].Title)
}

func TestPlaceQRCode(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")
	place := s.createPlace(t, alice.Token, "Tower")

	rec := s.do(t, http.MethodGet, "/api/places/qr/"+place.ID+"?size=128", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodGet, "/api/places/qr/"+place.ID+"?size=big", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlaceQRCode_Text(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")
	place := s.createPlace(t, alice.Token, "Tower")

	rec := s.do(t, http.MethodGet, "/api/places/qr/"+place.ID+"?format=text", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "██")

	rec = s.do(t, http.MethodGet, "/api/places/qr/missing?format=text", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find this route.", decodeMessage(t, rec))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("down") }), nil)
	rec = httptest.NewRecorder()
	down.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func multipartBody(t *testing.T, fields map[string]string, fileContentType string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="pic.png"`)
		header.Set("Content-Type", fileContentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func countImages(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestSignup_MultipartWithImage(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{
		"name": "Alice", "email": "a@x.com", "password": "secret",
	}, "image/png", []byte("\x89PNG fake"))

	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp usermodel.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	u, err := s.store.GetUserByID(context.Background(), resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, s.imageDir, filepath.Dir(u.Image))
	assert.Equal(t, 1, countImages(t, s.imageDir))
}

func TestSignup_FailureDiscardsImage(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "Alice", "a@x.com")

	body, contentType := multipartBody(t, map[string]string{
		"name": "Alice", "email": "a@x.com", "password": "secret",
	}, "image/png", []byte("\x89PNG fake"))

	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, countImages(t, s.imageDir))
}

func TestCreatePlace_RejectsUnsupportedImage(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")

	body, contentType := multipartBody(t, map[string]string{
		"title": "Tower", "description": "A very tall building", "address": "20 W 34th St",
	}, "application/pdf", []byte("%PDF"))

	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, countImages(t, s.imageDir))
}

func TestDeletePlace_RemovesImage(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "Alice", "a@x.com")

	body, contentType := multipartBody(t, map[string]string{
		"title": "Tower", "description": "A very tall building", "address": "20 W 34th St",
	}, "image/jpeg", []byte("jpeg bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.PlaceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, countImages(t, s.imageDir))

	rec = s.do(t, http.MethodDelete, "/api/places/"+resp.Place.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, countImages(t, s.imageDir))
}

type ctxImages struct {
	removed []string
}

func (c *ctxImages) Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	return filename, ctx.Err()
}

func (c *ctxImages) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.removed = append(c.removed, ref)
	return nil
}

func TestUploadsDiscard_IgnoresCancellation(t *testing.T) {
	store := &ctxImages{}
	u := &uploads{store: store, maxBytes: 1 << 20, log: logger.Discard()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u.discard(ctx, "uploads/orphan.png")
	u.discard(ctx, "")
	assert.Equal(t, []string{"uploads/orphan.png"}, store.removed)
}
