package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
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

// MaxSyncSkew bounds how far a sync submission's timestamp may drift from
// server time in either direction.
const MaxSyncSkew = 5 * time.Minute

// Sync outcome reason codes. Rejections and no-ops are structured results,
// never errors: the public endpoint leaks nothing to anonymous callers.
const (
	SyncReasonExpired          = "expired"
	SyncReasonInvalidSignature = "invalid_signature"
	SyncReasonUnknownCard      = "unknown_card"
	SyncReasonAlreadyActivated = "already_activated"
	SyncReasonNoCardNumber     = "no_card_number"
	SyncReasonCardExpired      = "card_expired"
)

// SyncCardData is the card state claimed by a public sync submission. Field
// names follow the issuer's convention: exp_date is the validity-hours hint,
// delete_date the authoritative expiry instant.
type SyncCardData struct {
	CardNumber     *issuer.FlexString `json:"card_number"`
	CardCVC        *issuer.FlexString `json:"card_cvc"`
	CardExpDate    *string            `json:"card_exp_date"`
	BillingAddress *string            `json:"billing_address"`
	ValidityHours  *issuer.FlexString `json:"exp_date"`
	DeleteDate     *string            `json:"delete_date"`
}

type SyncRequest struct {
	CardData    SyncCardData `json:"card_data"`
	TimestampMS int64        `json:"timestamp_ms" binding:"required"`
	Signature   string       `json:"signature" binding:"required"`
}

// SyncOutcome is always returned with HTTP 200; Synced is true only when an
// activation write actually landed.
type SyncOutcome struct {
	Synced bool   `json:"synced"`
	Reason string `json:"reason,omitempty"`
}

// SyncService guards the public card-query channel: state submitted there is
// accepted only when fresh, correctly signed, and genuinely new.
type SyncService interface {
	Sync(cardID string, req *SyncRequest) *SyncOutcome
}

type syncService struct {
	cardRepo  repository.CardRepository
	logRepo   repository.ActivationLogRepository
	encryptor *crypto.Encryptor
	secret    []byte
	now       func() time.Time
}

func NewSyncService(
	cardRepo repository.CardRepository,
	logRepo repository.ActivationLogRepository,
	encryptor *crypto.Encryptor,
	secret string,
) SyncService {
	return &syncService{
		cardRepo:  cardRepo,
		logRepo:   logRepo,
		encryptor: encryptor,
		secret:    []byte(secret),
		now:       time.Now,
	}
}

// ComputeSyncSignature returns the hex HMAC-SHA256 over card_id, timestamp
// and the claimed card number, in that order. Exported for the frontend
// bridge that signs submissions server-side.
func ComputeSyncSignature(secret []byte, cardID string, timestampMS int64, cardNumber string) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s%d%s", cardID, timestampMS, cardNumber)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *syncService) Sync(cardID string, req *SyncRequest) *SyncOutcome {
	outcome := s.sync(cardID, req)
	metrics.RecordSyncOutcome(reasonOrAccepted(outcome))
	return outcome
}

func reasonOrAccepted(o *SyncOutcome) string {
	if o.Synced {
		return "accepted"
	}
	return o.Reason
}

func (s *syncService) sync(cardID string, req *SyncRequest) *SyncOutcome {
	now := s.now()

	// Freshness first: a stale request is rejected before any signature
	// work, regardless of signature validity.
	skew := now.UnixMilli() - req.TimestampMS
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxSyncSkew.Milliseconds() {
		return &SyncOutcome{Synced: false, Reason: SyncReasonExpired}
	}

	expected := ComputeSyncSignature(s.secret, cardID, req.TimestampMS, req.CardData.CardNumber.String())
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		logger.Warn("Sync submission with invalid signature",
			zap.String("card_id", cardID),
		)
		return &SyncOutcome{Synced: false, Reason: SyncReasonInvalidSignature}
	}

	c, err := s.cardRepo.GetByCardID(cardID)
	if err != nil {
		// Unknown cards are a valid nothing-to-do outcome, not an error.
		return &SyncOutcome{Synced: false, Reason: SyncReasonUnknownCard}
	}

	if c.ExpiredAt(now) {
		if err := s.cardRepo.MarkExpired(cardID); err != nil {
			logger.Error("Failed to mark card expired", zap.String("card_id", cardID), zap.Error(err))
		}
		return &SyncOutcome{Synced: false, Reason: SyncReasonCardExpired}
	}

	if c.IsActivated {
		return &SyncOutcome{Synced: false, Reason: SyncReasonAlreadyActivated}
	}

	if req.CardData.CardNumber == nil {
		return &SyncOutcome{Synced: false, Reason: SyncReasonNoCardNumber}
	}

	cvcEncrypted, err := s.encryptor.Encrypt(req.CardData.CardCVC.String())
	if err != nil {
		logger.Error("Failed to encrypt synced cvc", zap.String("card_id", cardID), zap.Error(err))
		return &SyncOutcome{Synced: false, Reason: SyncReasonNoCardNumber}
	}

	expDateStr := ""
	if req.CardData.CardExpDate != nil {
		expDateStr = *req.CardData.CardExpDate
	}

	var validityHours *int
	if req.CardData.ValidityHours != nil {
		if hours, err := strconv.Atoi(req.CardData.ValidityHours.String()); err == nil {
			validityHours = &hours
		}
	}

	data := &card.ActivationData{
		CardNumber:     req.CardData.CardNumber.String(),
		CVCEncrypted:   cvcEncrypted,
		CardExpDate:    expDateStr,
		BillingAddress: req.CardData.BillingAddress,
		ValidityHours:  validityHours,
		ExpDate:        parseIssuerTime(req.CardData.DeleteDate),
	}

	err = s.cardRepo.Activate(cardID, data, now.UTC())
	if errors.Is(err, card.ErrNotActivatable) {
		return &SyncOutcome{Synced: false, Reason: SyncReasonCardExpired}
	}
	if err != nil {
		logger.Error("Sync activation write failed", zap.String("card_id", cardID), zap.Error(err))
		metrics.RecordActivation("sync", false)
		return &SyncOutcome{Synced: false, Reason: "write_failed"}
	}

	s.appendSyncLog(cardID, &req.CardData)
	metrics.RecordActivation("sync", true)

	return &SyncOutcome{Synced: true}
}

func (s *syncService) appendSyncLog(cardID string, data *SyncCardData) {
	annotated := struct {
		Source   string        `json:"source"`
		CardData *SyncCardData `json:"card_data"`
	}{Source: "sync", CardData: data}

	log := &activation.Log{
		CardID: cardID,
		Status: activation.LogStatusSuccess,
	}
	if raw, err := json.Marshal(annotated); err == nil {
		blob := string(raw)
		log.ResponseData = &blob
	}

	if err := s.logRepo.Append(log); err != nil {
		logger.Error("Failed to append sync activation log",
			zap.String("card_id", cardID),
			zap.Error(err),
		)
	}
}
