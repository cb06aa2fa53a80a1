package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/service"
)

// MockImportService is a mock implementation of service.ImportService
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ImportText(content string) (*card.ImportResult, []string, error) {
	args := m.Called(content)
	var result *card.ImportResult
	if args.Get(0) != nil {
		result = args.Get(0).(*card.ImportResult)
	}
	var failedLines []string
	if args.Get(1) != nil {
		failedLines = args.Get(1).([]string)
	}
	return result, failedLines, args.Error(2)
}

func (m *MockImportService) ImportJSON(items []card.CardImportItem) (*card.ImportResult, error) {
	args := m.Called(items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.ImportResult), args.Error(1)
}

func setupImportRouter() (*gin.Engine, *MockImportService) {
	gin.SetMode(gin.TestMode)
	mockImport := new(MockImportService)
	handler := NewImportHandler(mockImport)

	router := gin.New()
	router.POST("/api/import/text", handler.ImportText)
	router.POST("/api/import/json", handler.ImportJSON)
	return router, mockImport
}

func TestImportHandler_Text_Success(t *testing.T) {
	router, mockImport := setupImportRouter()

	mockImport.On("ImportText", "mio-11111111-1111-1111-1111-111111111111").
		Return(&card.ImportResult{
			SuccessCount: 1,
			FailedItems:  []card.ImportFailedItem{},
			Message:      "imported 1 cards, 0 failed",
		}, nil, nil)

	body := `{"content":"mio-11111111-1111-1111-1111-111111111111"}`
	req, _ := http.NewRequest("POST", "/api/import/text", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "imported 1 cards")
	mockImport.AssertExpectations(t)
}

func TestImportHandler_Text_NothingParsedReportsLines(t *testing.T) {
	router, mockImport := setupImportRouter()

	mockImport.On("ImportText", "garbage").
		Return(nil, []string{"line 1: garbage"}, service.ErrNothingParsed)

	req, _ := http.NewRequest("POST", "/api/import/text", bytes.NewBufferString(`{"content":"garbage"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "failed_lines")
	assert.Contains(t, w.Body.String(), "line 1: garbage")
}

func TestImportHandler_Text_MissingContent(t *testing.T) {
	router, mockImport := setupImportRouter()

	req, _ := http.NewRequest("POST", "/api/import/text", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockImport.AssertNotCalled(t, "ImportText", mock.Anything)
}

func TestImportHandler_JSON_Success(t *testing.T) {
	router, mockImport := setupImportRouter()

	mockImport.On("ImportJSON", mock.AnythingOfType("[]card.CardImportItem")).
		Return(&card.ImportResult{
			SuccessCount: 2,
			FailedItems:  []card.ImportFailedItem{},
			Message:      "imported 2 cards, 0 failed",
		}, nil)

	body := `{"cards":[
		{"card_id":"mio-11111111-1111-1111-1111-111111111111","card_limit":10,"validity_hours":1},
		{"card_id":"mio-22222222-2222-2222-2222-222222222222","card_limit":20,"validity_hours":2}
	]}`
	req, _ := http.NewRequest("POST", "/api/import/json", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "imported 2 cards")
	mockImport.AssertExpectations(t)
}

func TestImportHandler_JSON_MissingCards(t *testing.T) {
	router, mockImport := setupImportRouter()

	req, _ := http.NewRequest("POST", "/api/import/json", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockImport.AssertNotCalled(t, "ImportJSON", mock.Anything)
}
