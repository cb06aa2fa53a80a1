package card

import "time"

type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusDeleted  Status = "deleted"
)

// Card mirrors a vendor-issued prepaid virtual card. The local record owns
// the card secret and bookkeeping fields; the issuer is the sole authority
// for the card number, CVC and the true expiry instant.
type Card struct {
	ID           int64   `json:"id"`
	CardID       string  `json:"card_id"`
	CardNickname *string `json:"card_nickname"`

	// Populated together on activation, absent before it.
	CardNumber   *string `json:"card_number"`
	CVCEncrypted *string `json:"-"` // AES-256-GCM at rest, never stored or listed raw

	// CardCVC is response-only: decrypted into the admin detail view, never
	// persisted in plaintext.
	CardCVC *string `json:"card_cvc,omitempty"`

	CardExpDate    *string `json:"card_exp_date"` // network display format, MM/YY
	BillingAddress *string `json:"billing_address"`

	CardLimit     float64 `json:"card_limit"`
	ValidityHours *int    `json:"validity_hours"`

	Status      Status `json:"status"`
	IsActivated bool   `json:"is_activated"`

	CreateTime     time.Time  `json:"create_time"`
	ActivationTime *time.Time `json:"card_activation_time"`

	// ExpDate is the authoritative expiry instant, accepted only verbatim
	// from issuer responses. Never derived from ValidityHours locally.
	ExpDate *time.Time `json:"exp_date"`

	RefundRequested     bool       `json:"refund_requested"`
	RefundRequestedTime *time.Time `json:"refund_requested_time"`
}

// Expirable reports whether the card can still transition to expired.
func (c *Card) Expirable() bool {
	return c.Status != StatusDeleted && c.Status != StatusExpired && c.ExpDate != nil
}

// ExpiredAt reports whether the card's deadline has passed at the given time.
// The card must be Expirable; both instants are compared in UTC.
func (c *Card) ExpiredAt(now time.Time) bool {
	return c.Expirable() && now.UTC().After(c.ExpDate.UTC())
}

type CreateCardRequest struct {
	CardID        string  `json:"card_id" binding:"required"`
	CardNickname  *string `json:"card_nickname,omitempty"`
	CardLimit     float64 `json:"card_limit"`
	ValidityHours *int    `json:"validity_hours,omitempty"`
}

type UpdateCardRequest struct {
	CardNickname  *string  `json:"card_nickname,omitempty"`
	CardLimit     *float64 `json:"card_limit,omitempty"`
	ValidityHours *int     `json:"validity_hours,omitempty"`
	Status        *string  `json:"status,omitempty" binding:"omitempty,oneof=inactive active expired deleted"`
}

// ListFilter narrows List queries. StatusNotExpired selects activated cards
// that have not passed their deadline.
type ListFilter struct {
	Status Status
	// NotExpired is the pseudo-filter "activated and not expired".
	NotExpired bool
	Search     string
	Offset     int
	Limit      int
}

// ActivationData is the normalized issuer payload applied by the atomic
// activate write. Optional fields never overwrite existing values when nil.
type ActivationData struct {
	CardNumber     string
	CVCEncrypted   string
	CardExpDate    string
	BillingAddress *string
	ValidityHours  *int
	ExpDate        *time.Time
}

type CardImportItem struct {
	CardID        string  `json:"card_id" binding:"required"`
	CardLimit     float64 `json:"card_limit"`
	ValidityHours int     `json:"validity_hours"`
}

type ImportJSONRequest struct {
	Cards []CardImportItem `json:"cards" binding:"required"`
}

type ImportTextRequest struct {
	Content string `json:"content" binding:"required"`
}

type ImportFailedItem struct {
	CardID string `json:"card_id"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	SuccessCount int                `json:"success_count"`
	FailedCount  int                `json:"failed_count"`
	FailedItems  []ImportFailedItem `json:"failed_items"`
	Message      string             `json:"message"`
}
