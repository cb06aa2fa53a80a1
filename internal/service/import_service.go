package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/pkg/cardparse"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
	"github.com/misaops/misacard-server/internal/repository"
)

var (
	// ErrEmptyImport is returned when the submitted text contains nothing.
	ErrEmptyImport = errors.New("import content is empty")

	// ErrNothingParsed is returned when no line yielded a card.
	ErrNothingParsed = errors.New("no card data could be parsed")
)

// ImportService batch-creates cards from pasted text exports or JSON.
type ImportService interface {
	ImportText(content string) (*card.ImportResult, []string, error)
	ImportJSON(items []card.CardImportItem) (*card.ImportResult, error)
}

type importService struct {
	cardRepo repository.CardRepository
}

func NewImportService(cardRepo repository.CardRepository) ImportService {
	return &importService{cardRepo: cardRepo}
}

// ImportText parses and imports a pasted export. The second return value
// lists lines that failed to parse, with line numbers.
func (s *importService) ImportText(content string) (*card.ImportResult, []string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, ErrEmptyImport
	}

	parsed, failedLines := cardparse.ParseText(content)
	if len(parsed) == 0 {
		return nil, failedLines, ErrNothingParsed
	}

	items := make([]card.CardImportItem, len(parsed))
	for i, p := range parsed {
		items[i] = card.CardImportItem{
			CardID:        p.CardID,
			CardLimit:     p.CardLimit,
			ValidityHours: p.ValidityHours,
		}
	}

	result := s.importItems(items, "text")
	return result, failedLines, nil
}

func (s *importService) ImportJSON(items []card.CardImportItem) (*card.ImportResult, error) {
	return s.importItems(items, "json"), nil
}

func (s *importService) importItems(items []card.CardImportItem, format string) *card.ImportResult {
	result := &card.ImportResult{FailedItems: []card.ImportFailedItem{}}

	for _, item := range items {
		if err := s.importOne(item); err != nil {
			result.FailedCount++
			result.FailedItems = append(result.FailedItems, card.ImportFailedItem{
				CardID: item.CardID,
				Reason: importFailureReason(err),
			})
			metrics.RecordImport(format, false)
			continue
		}
		result.SuccessCount++
		metrics.RecordImport(format, true)
	}

	result.Message = fmt.Sprintf("imported %d cards, %d failed", result.SuccessCount, result.FailedCount)
	return result
}

func (s *importService) importOne(item card.CardImportItem) error {
	if !cardparse.ValidateCardID(item.CardID) {
		return card.ErrInvalidCardID
	}

	hours := item.ValidityHours
	newCard := &card.Card{
		CardID:        item.CardID,
		CardLimit:     item.CardLimit,
		ValidityHours: &hours,
		Status:        card.StatusInactive,
	}

	return s.cardRepo.Create(newCard)
}

func importFailureReason(err error) string {
	switch {
	case errors.Is(err, card.ErrInvalidCardID):
		return "invalid card id format"
	case errors.Is(err, card.ErrAlreadyExists):
		return "card already exists"
	default:
		return err.Error()
	}
}
