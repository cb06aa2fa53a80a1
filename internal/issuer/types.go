package issuer

import (
	"encoding/json"
	"errors"
	"strconv"
)

var (
	// ErrUnavailable covers transport failures, timeouts and non-200 replies.
	ErrUnavailable = errors.New("issuer unavailable")

	// ErrRejected covers structured failure messages in the issuer envelope.
	ErrRejected = errors.New("issuer rejected request")
)

// FlexString decodes a JSON value that the issuer sometimes sends as a
// string and sometimes as a bare number (card numbers and CVCs in
// particular).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f *FlexString) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// CardInfo is the issuer's reported card state. Every field is optional; an
// absent field is distinguishable from a present zero value. Note the field
// swap the issuer performs: its exp_date is the validity-hours hint, and its
// delete_date is the authoritative expiry instant.
type CardInfo struct {
	CardNumber     *FlexString `json:"card_number"`
	CardCVC        *FlexString `json:"card_cvc"`
	CardExpDate    *string     `json:"card_exp_date"`
	BillingAddress *string     `json:"billing_address"`
	CardNickname   *string     `json:"card_nickname"`
	CardLimit      *float64    `json:"card_limit"`
	Status         *string     `json:"status"`
	ValidityHours  *FlexString `json:"exp_date"`
	DeleteDate     *string     `json:"delete_date"`
}

// Unactivated reports whether the issuer shows the card as not yet
// activated: card number, CVC and network expiry all absent.
func (c *CardInfo) Unactivated() bool {
	return c.CardNumber == nil && c.CardCVC == nil && c.CardExpDate == nil
}

// ValidityHoursInt parses the validity-hours hint, when present and numeric.
func (c *CardInfo) ValidityHoursInt() *int {
	if c.ValidityHours == nil {
		return nil
	}
	n, err := strconv.Atoi(c.ValidityHours.String())
	if err != nil {
		return nil
	}
	return &n
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Msg    string          `json:"msg"`
}
