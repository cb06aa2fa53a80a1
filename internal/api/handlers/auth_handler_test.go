package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/misaops/misacard-server/internal/service"
)

// MockAuthService is a mock implementation of service.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(password string) (string, time.Time, error) {
	args := m.Called(password)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func setupAuthRouter() (*gin.Engine, *MockAuthService) {
	gin.SetMode(gin.TestMode)
	mockAuth := new(MockAuthService)
	handler := NewAuthHandler(mockAuth)

	router := gin.New()
	router.POST("/api/auth/login", handler.Login)
	return router, mockAuth
}

func TestAuthHandler_Login_Success(t *testing.T) {
	router, mockAuth := setupAuthRouter()

	expiresAt := time.Now().Add(24 * time.Hour)
	mockAuth.On("Login", "correct-password").Return("token-value", expiresAt, nil)

	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(`{"password":"correct-password"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token-value")
	mockAuth.AssertExpectations(t)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	router, mockAuth := setupAuthRouter()

	mockAuth.On("Login", "wrong").Return("", time.Time{}, service.ErrInvalidPassword)

	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(`{"password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid password")
}

func TestAuthHandler_Login_MissingPassword(t *testing.T) {
	router, mockAuth := setupAuthRouter()

	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockAuth.AssertNotCalled(t, "Login", mock.Anything)
}
