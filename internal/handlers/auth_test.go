package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/auth"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	return r
}

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("test-secret", time.Hour)
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testIssuer(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "alice@example.com", mock.AnythingOfType("string"), "Alice").
		Return(models.User{ID: "u1", Email: "alice@example.com", DisplayName: "Alice"}, nil).Once()

	body := bytes.NewBufferString(`{"email":"Alice@Example.com","password":"hunter2secret","display_name":"Alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "u1", resp.User.ID)

	userID, err := testIssuer().Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)

	userRepo.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testIssuer(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "alice@example.com", mock.AnythingOfType("string"), "Alice").
		Return(models.User{}, repositories.ErrEmailTaken).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"hunter2secret","display_name":"Alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRegisterInvalidBody(t *testing.T) {
	handler := NewAuthHandler(new(mocks.UserRepositoryMock), testIssuer(), nil)
	router := setupAuthRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	hash, err := auth.HashPassword("hunter2secret")
	require.NoError(t, err)

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testIssuer(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByEmail", mock.Anything, "alice@example.com").
		Return(models.User{ID: "u1", Email: "alice@example.com", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"hunter2secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter2secret")
	require.NoError(t, err)

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testIssuer(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByEmail", mock.Anything, "alice@example.com").
		Return(models.User{ID: "u1", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginUnknownEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, testIssuer(), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"email":"ghost@example.com","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}
