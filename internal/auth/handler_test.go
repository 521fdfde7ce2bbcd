package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherup/backend/internal/models"
	"github.com/gatherup/backend/pkg/utils"
)

type fakeStore struct {
	users    map[string]*models.User
	lastUser *models.User
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.User{}, nextID: 1}
}

func (s *fakeStore) Create(ctx context.Context, email, passwordHash string, birthday time.Time, school, bio string) (*models.User, error) {
	if _, ok := s.users[email]; ok {
		return nil, ErrEmailTaken
	}
	u := &models.User{
		ID:        s.nextID,
		Email:     email,
		Password:  passwordHash,
		Birthday:  birthday,
		School:    school,
		Bio:       bio,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.users[email] = u
	s.lastUser = u
	return u, nil
}

func (s *fakeStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, context.Canceled // any error, handler treats it as unauthorized
	}
	return u, nil
}

func newAuthRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, NewJWTService("test-secret", 1), zap.NewNop())
	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterPersistsProfileFields(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	router := newAuthRouter(store)

	rr := postJSON(router, "/auth/register",
		`{"email":"u@example.com","password":"secret1","birthday":"2000-05-01","school":"State U","bio":"hi there"}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, store.lastUser)
	require.Equal(t, "State U", store.lastUser.School)
	require.Equal(t, "hi there", store.lastUser.Bio)
	require.Contains(t, rr.Body.String(), `"school":"State U"`)
	require.Contains(t, rr.Body.String(), `"bio":"hi there"`)
	require.Contains(t, rr.Body.String(), `"token"`)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	router := newAuthRouter(store)
	body := `{"email":"u@example.com","password":"secret1","birthday":"2000-05-01"}`

	require.Equal(t, http.StatusCreated, postJSON(router, "/auth/register", body).Code)
	require.Equal(t, http.StatusConflict, postJSON(router, "/auth/register", body).Code)
}

func TestRegisterBadBirthday(t *testing.T) {
	t.Parallel()

	rr := postJSON(newAuthRouter(newFakeStore()), "/auth/register",
		`{"email":"u@example.com","password":"secret1","birthday":"May 1"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginRoundTrip(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "u@example.com", hash, time.Now(), "", "")
	require.NoError(t, err)
	router := newAuthRouter(store)

	rr := postJSON(router, "/auth/login", `{"email":"u@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"token"`)
	require.Contains(t, rr.Header().Get("Set-Cookie"), CookieName+"=")

	rr = postJSON(router, "/auth/login", `{"email":"u@example.com","password":"wrong12"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
