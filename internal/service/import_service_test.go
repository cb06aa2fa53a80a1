package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/misaops/misacard-server/internal/domain/card"
)

func setupImportServiceTest(t *testing.T) (ImportService, *MockCardRepository) {
	cardRepo := new(MockCardRepository)
	return NewImportService(cardRepo), cardRepo
}

func TestImportText_ParsesFullLine(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	var created *card.Card
	cardRepo.On("Create", mock.AnythingOfType("*card.Card")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*card.Card)
		}).
		Return(nil)

	content := "卡密: mio-11111111-1111-1111-1111-111111111111 额度: 5 有效期: 2小时"
	result, failedLines, err := svc.ImportText(content)
	assert.NoError(t, err)
	assert.Empty(t, failedLines)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)

	assert.NotNil(t, created)
	assert.Equal(t, "mio-11111111-1111-1111-1111-111111111111", created.CardID)
	assert.Equal(t, 5.0, created.CardLimit)
	assert.NotNil(t, created.ValidityHours)
	assert.Equal(t, 2, *created.ValidityHours)
	assert.Equal(t, card.StatusInactive, created.Status)
}

func TestImportText_BareIDUsesDefaults(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	var created *card.Card
	cardRepo.On("Create", mock.AnythingOfType("*card.Card")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*card.Card)
		}).
		Return(nil)

	result, failedLines, err := svc.ImportText("mio-22222222-2222-2222-2222-222222222222")
	assert.NoError(t, err)
	assert.Empty(t, failedLines)
	assert.Equal(t, 1, result.SuccessCount)

	assert.Equal(t, 0.0, created.CardLimit)
	assert.Equal(t, 1, *created.ValidityHours)
}

func TestImportText_MixedLines(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	cardRepo.On("Create", mock.AnythingOfType("*card.Card")).Return(nil)

	content := "卡密: mio-11111111-1111-1111-1111-111111111111 额度: 5 有效期: 2小时\n" +
		"this line is garbage\n" +
		"mio-22222222-2222-2222-2222-222222222222\n"
	result, failedLines, err := svc.ImportText(content)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Len(t, failedLines, 1)
	assert.Contains(t, failedLines[0], "line 2")
}

func TestImportText_Empty(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	for _, content := range []string{"", "   \n\t  "} {
		result, failedLines, err := svc.ImportText(content)
		assert.ErrorIs(t, err, ErrEmptyImport)
		assert.Nil(t, result)
		assert.Nil(t, failedLines)
	}
	cardRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestImportText_NothingParsed(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	result, failedLines, err := svc.ImportText("garbage\nmore garbage")
	assert.ErrorIs(t, err, ErrNothingParsed)
	assert.Nil(t, result)
	assert.Len(t, failedLines, 2)
	cardRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestImportJSON_DuplicatesReported(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	cardRepo.On("Create", mock.MatchedBy(func(c *card.Card) bool {
		return c.CardID == "mio-11111111-1111-1111-1111-111111111111"
	})).Return(nil).Once()
	cardRepo.On("Create", mock.MatchedBy(func(c *card.Card) bool {
		return c.CardID == "mio-22222222-2222-2222-2222-222222222222"
	})).Return(card.ErrAlreadyExists)

	result, err := svc.ImportJSON([]card.CardImportItem{
		{CardID: "mio-11111111-1111-1111-1111-111111111111", CardLimit: 10, ValidityHours: 1},
		{CardID: "mio-22222222-2222-2222-2222-222222222222", CardLimit: 20, ValidityHours: 2},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, result.FailedItems, 1)
	assert.Equal(t, "mio-22222222-2222-2222-2222-222222222222", result.FailedItems[0].CardID)
	assert.Equal(t, "card already exists", result.FailedItems[0].Reason)
	assert.Equal(t, "imported 1 cards, 1 failed", result.Message)
}

func TestImportJSON_InvalidIDRejectedBeforeCreate(t *testing.T) {
	svc, cardRepo := setupImportServiceTest(t)

	result, err := svc.ImportJSON([]card.CardImportItem{
		{CardID: "not-a-card-id"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, "invalid card id format", result.FailedItems[0].Reason)
	cardRepo.AssertNotCalled(t, "Create", mock.Anything)
}
