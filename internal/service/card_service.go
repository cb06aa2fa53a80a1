package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/misaops/misacard-server/internal/domain/activation"
	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/issuer"
	"github.com/misaops/misacard-server/internal/pkg/cardparse"
	"github.com/misaops/misacard-server/internal/pkg/crypto"
	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
	"github.com/misaops/misacard-server/internal/repository"
)

// CardService covers card bookkeeping: CRUD, refund flagging, activation
// history, the unreturned-numbers batch and the transactions proxy. Expiry
// is applied lazily at read time; there is no background sweep, so a card
// whose deadline passed keeps its stale status until the next read.
type CardService interface {
	CreateCard(req *card.CreateCardRequest) (*card.Card, error)
	GetCard(cardID string) (*card.Card, error)
	ListCards(filter card.ListFilter) ([]*card.Card, error)
	UpdateCard(cardID string, req *card.UpdateCardRequest) (*card.Card, error)
	DeleteCard(cardID string) error
	ToggleRefund(cardID string) (*card.Card, error)
	ActivationLogs(cardID string) ([]*activation.Log, error)
	Transactions(ctx context.Context, cardID string) (json.RawMessage, error)
	UnreturnedCardNumbers() ([]string, error)
}

type cardService struct {
	cardRepo  repository.CardRepository
	logRepo   repository.ActivationLogRepository
	issuer    issuer.Client
	encryptor *crypto.Encryptor
	now       func() time.Time
}

func NewCardService(
	cardRepo repository.CardRepository,
	logRepo repository.ActivationLogRepository,
	issuerClient issuer.Client,
	encryptor *crypto.Encryptor,
) CardService {
	return &cardService{
		cardRepo:  cardRepo,
		logRepo:   logRepo,
		issuer:    issuerClient,
		encryptor: encryptor,
		now:       time.Now,
	}
}

func (s *cardService) CreateCard(req *card.CreateCardRequest) (*card.Card, error) {
	if !cardparse.ValidateCardID(req.CardID) {
		return nil, card.ErrInvalidCardID
	}

	// The expiry instant is issuer-owned: created cards carry none until a
	// query or activation reports one.
	newCard := &card.Card{
		CardID:        req.CardID,
		CardNickname:  req.CardNickname,
		CardLimit:     req.CardLimit,
		ValidityHours: req.ValidityHours,
		Status:        card.StatusInactive,
	}

	if err := s.cardRepo.Create(newCard); err != nil {
		return nil, err
	}

	return newCard, nil
}

// GetCard fetches one card, transitioning it to expired first when its
// deadline has passed.
func (s *cardService) GetCard(cardID string) (*card.Card, error) {
	c, err := s.cardRepo.GetByCardID(cardID)
	if err != nil {
		return nil, err
	}

	if c.ExpiredAt(s.now()) {
		if err := s.cardRepo.MarkExpired(cardID); err != nil {
			return nil, err
		}
		c.Status = card.StatusExpired
		metrics.RecordExpiredCards(1)
	}

	s.revealCVC(c)
	return c, nil
}

// revealCVC decrypts the stored CVC into the response-only field. The admin
// detail view is the single place the plaintext leaves the server; list
// responses never carry it.
func (s *cardService) revealCVC(c *card.Card) {
	if c.CVCEncrypted == nil {
		return
	}
	cvc, err := s.encryptor.Decrypt(*c.CVCEncrypted)
	if err != nil {
		// Stale key or corrupt ciphertext. The card itself is still served.
		logger.Error("Failed to decrypt stored cvc",
			zap.String("card_id", c.CardID),
			zap.Error(err),
		)
		return
	}
	c.CardCVC = &cvc
}

func (s *cardService) ListCards(filter card.ListFilter) ([]*card.Card, error) {
	s.sweep()
	return s.cardRepo.List(filter)
}

func (s *cardService) UpdateCard(cardID string, req *card.UpdateCardRequest) (*card.Card, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.CardNickname != nil {
		updates["card_nickname"] = *req.CardNickname
	}
	if req.CardLimit != nil {
		updates["card_limit"] = *req.CardLimit
	}
	if req.ValidityHours != nil {
		updates["validity_hours"] = *req.ValidityHours
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) > 0 {
		if err := s.cardRepo.Update(cardID, updates); err != nil {
			return nil, err
		}
	}

	return s.cardRepo.GetByCardID(cardID)
}

func (s *cardService) DeleteCard(cardID string) error {
	return s.cardRepo.Delete(cardID)
}

func (s *cardService) ToggleRefund(cardID string) (*card.Card, error) {
	c, err := s.GetCard(cardID)
	if err != nil {
		return nil, err
	}

	requested := !c.RefundRequested
	var at *time.Time
	if requested {
		now := s.now().UTC()
		at = &now
	}

	if err := s.cardRepo.SetRefundRequested(cardID, requested, at); err != nil {
		return nil, err
	}

	c.RefundRequested = requested
	c.RefundRequestedTime = at
	return c, nil
}

func (s *cardService) ActivationLogs(cardID string) ([]*activation.Log, error) {
	if _, err := s.cardRepo.GetByCardID(cardID); err != nil {
		return nil, err
	}
	return s.logRepo.ListByCardID(cardID)
}

func (s *cardService) Transactions(ctx context.Context, cardID string) (json.RawMessage, error) {
	c, err := s.GetCard(cardID)
	if err != nil {
		return nil, err
	}

	if c.CardNumber == nil {
		return nil, card.ErrNotActivated
	}

	return s.issuer.Transactions(ctx, *c.CardNumber)
}

// UnreturnedCardNumbers returns the numbers of every expired, activated,
// not-yet-refunded card, for offline refund processing.
func (s *cardService) UnreturnedCardNumbers() ([]string, error) {
	s.sweep()
	return s.cardRepo.UnreturnedCardNumbers()
}

func (s *cardService) sweep() {
	count, err := s.cardRepo.SweepExpired(s.now())
	if err != nil {
		// Listing still proceeds on stale statuses; the next read retries.
		logger.Error("Expiry sweep failed", zap.Error(err))
		return
	}
	metrics.RecordExpiredCards(count)
}
