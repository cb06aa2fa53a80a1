package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/misaops/misacard-server/internal/domain/activation"
	"github.com/misaops/misacard-server/internal/domain/card"
	"github.com/misaops/misacard-server/internal/issuer"
	"github.com/misaops/misacard-server/internal/pkg/crypto"
	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
	"github.com/misaops/misacard-server/internal/repository"
)

// ReconcileResult reports the outcome of a reconciliation call. Success can
// be true even when the issuer refused activation: the query itself worked,
// and the refusal is folded into the message.
type ReconcileResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Card    *card.Card `json:"card_data"`
}

// ReconcileService keeps a local card record consistent with the issuer's
// reported state. Activate is query-then-activate-if-needed; Query refreshes
// without attempting activation.
type ReconcileService interface {
	Activate(ctx context.Context, cardID string) (*ReconcileResult, error)
	Query(ctx context.Context, cardID string) (*ReconcileResult, error)
}

type reconcileService struct {
	cardRepo  repository.CardRepository
	logRepo   repository.ActivationLogRepository
	issuer    issuer.Client
	encryptor *crypto.Encryptor
	locks     *cardLocks
	now       func() time.Time
}

func NewReconcileService(
	cardRepo repository.CardRepository,
	logRepo repository.ActivationLogRepository,
	issuerClient issuer.Client,
	encryptor *crypto.Encryptor,
) ReconcileService {
	return &reconcileService{
		cardRepo:  cardRepo,
		logRepo:   logRepo,
		issuer:    issuerClient,
		encryptor: encryptor,
		locks:     newCardLocks(),
		now:       time.Now,
	}
}

func (s *reconcileService) Activate(ctx context.Context, cardID string) (*ReconcileResult, error) {
	lock := s.locks.acquire(cardID)
	defer lock.Unlock()

	local, err := s.cardRepo.GetByCardID(cardID)
	if err != nil {
		return nil, err
	}

	info, err := s.issuer.Query(ctx, cardID)
	if err != nil {
		s.appendLog(cardID, activation.LogStatusFailed, err.Error(), nil)
		return nil, err
	}

	payload := info
	message := "card is already activated"

	if info.Unactivated() {
		activated, actErr := s.issuer.Activate(ctx, cardID)
		if actErr != nil {
			// Activation is best-effort: the query succeeded, so the
			// operation still reports success with the refusal folded in.
			message = fmt.Sprintf("activation failed: %v, returning unactivated state", actErr)
			logger.Warn("Issuer refused activation",
				zap.String("card_id", cardID),
				zap.Error(actErr),
			)
		} else {
			payload = activated
			message = "card activated automatically"
		}
	}

	// An activation that is already on record locally is not re-applied:
	// re-writing would re-stamp the activation time and append a duplicate
	// success log for a state change that never happened.
	if payload.CardNumber != nil && !activationCurrent(local, payload) {
		written, err := s.applyActivation(cardID, payload)
		if err != nil {
			return nil, err
		}
		if written {
			s.appendLog(cardID, activation.LogStatusSuccess, "", payload)
			metrics.RecordActivation("admin", true)
		} else {
			message = "card can no longer be activated"
		}
	}

	c, err := s.cardRepo.GetByCardID(cardID)
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{Success: true, Message: message, Card: c}, nil
}

func (s *reconcileService) Query(ctx context.Context, cardID string) (*ReconcileResult, error) {
	lock := s.locks.acquire(cardID)
	defer lock.Unlock()

	local, err := s.cardRepo.GetByCardID(cardID)
	if err != nil {
		return nil, err
	}

	info, err := s.issuer.Query(ctx, cardID)
	if err != nil {
		// Query refreshes only; no log entry on this path.
		return nil, err
	}

	message := "query successful"

	if info.CardNumber != nil && !activationCurrent(local, info) {
		written, err := s.applyActivation(cardID, info)
		if err != nil {
			return nil, err
		}
		if !written {
			message = "card can no longer be activated"
		}
	} else {
		updates := map[string]interface{}{}
		if hours := info.ValidityHoursInt(); hours != nil {
			updates["validity_hours"] = *hours
		}
		if expDate := parseIssuerTime(info.DeleteDate); expDate != nil {
			updates["exp_date"] = *expDate
		}
		if info.CardLimit != nil {
			updates["card_limit"] = *info.CardLimit
		}
		if err := s.cardRepo.Update(cardID, updates); err != nil {
			return nil, err
		}
	}

	c, err := s.cardRepo.GetByCardID(cardID)
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{Success: true, Message: message, Card: c}, nil
}

// activationCurrent reports whether the local record already reflects the
// issuer payload: activated, with an unchanged card number. A changed number
// still flows through the activate write so the local copy catches up.
func activationCurrent(local *card.Card, info *issuer.CardInfo) bool {
	if local == nil || !local.IsActivated || local.CardNumber == nil {
		return false
	}
	return info.CardNumber != nil && *local.CardNumber == info.CardNumber.String()
}

// applyActivation normalizes an issuer payload that carries a card number and
// persists it through the atomic activate write. It reports false when the
// status guard refused the write (expired or deleted card).
func (s *reconcileService) applyActivation(cardID string, info *issuer.CardInfo) (bool, error) {
	cvcEncrypted, err := s.encryptor.Encrypt(info.CardCVC.String())
	if err != nil {
		return false, fmt.Errorf("failed to encrypt cvc: %w", err)
	}

	expDateStr := ""
	if info.CardExpDate != nil {
		expDateStr = *info.CardExpDate
	}

	data := &card.ActivationData{
		CardNumber:     info.CardNumber.String(),
		CVCEncrypted:   cvcEncrypted,
		CardExpDate:    expDateStr,
		BillingAddress: info.BillingAddress,
		ValidityHours:  info.ValidityHoursInt(),
		ExpDate:        parseIssuerTime(info.DeleteDate),
	}

	err = s.cardRepo.Activate(cardID, data, s.now().UTC())
	if errors.Is(err, card.ErrNotActivatable) {
		metrics.RecordActivation("admin", false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *reconcileService) appendLog(cardID string, status activation.LogStatus, errMsg string, payload *issuer.CardInfo) {
	log := &activation.Log{
		CardID: cardID,
		Status: status,
	}
	if errMsg != "" {
		log.ErrorMessage = &errMsg
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			data := string(raw)
			log.ResponseData = &data
		}
	}

	if err := s.logRepo.Append(log); err != nil {
		// The log is bookkeeping; a failed append must not fail reconciliation.
		logger.Error("Failed to append activation log",
			zap.String("card_id", cardID),
			zap.Error(err),
		)
	}
}
