package cardparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCardID(t *testing.T) {
	tests := []struct {
		name   string
		cardID string
		valid  bool
	}{
		{"valid", "mio-11111111-1111-1111-1111-111111111111", true},
		{"valid hex", "mio-f3dc27e4-e853-429a-9e4b-3294af7c25ca", true},
		{"missing prefix", "11111111-1111-1111-1111-111111111111", false},
		{"wrong prefix", "mia-11111111-1111-1111-1111-111111111111", false},
		{"truncated uuid", "mio-11111111-1111-1111-1111", false},
		{"not a uuid", "mio-hello-world", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateCardID(tt.cardID))
		})
	}
}

func TestParseLine_FullFormat(t *testing.T) {
	parsed := ParseLine("卡密: mio-11111111-1111-1111-1111-111111111111 额度: 5 有效期: 2小时")

	assert.NotNil(t, parsed)
	assert.Equal(t, "mio-11111111-1111-1111-1111-111111111111", parsed.CardID)
	assert.Equal(t, 5.0, parsed.CardLimit)
	assert.Equal(t, 2, parsed.ValidityHours)
}

func TestParseLine_FullFormat_DecimalLimit(t *testing.T) {
	parsed := ParseLine("卡密: mio-22222222-2222-2222-2222-222222222222 额度: 1.5 有效期: 1小时")

	assert.NotNil(t, parsed)
	assert.Equal(t, 1.5, parsed.CardLimit)
	assert.Equal(t, 1, parsed.ValidityHours)
}

func TestParseLine_BareCardID(t *testing.T) {
	parsed := ParseLine("mio-f3dc27e4-e853-429a-9e4b-3294af7c25ca")

	assert.NotNil(t, parsed)
	assert.Equal(t, "mio-f3dc27e4-e853-429a-9e4b-3294af7c25ca", parsed.CardID)
	assert.Equal(t, DefaultCardLimit, parsed.CardLimit)
	assert.Equal(t, DefaultValidityHours, parsed.ValidityHours)
}

func TestParseLine_BareCardID_WithPrefixLabel(t *testing.T) {
	parsed := ParseLine("卡密: mio-f3dc27e4-e853-429a-9e4b-3294af7c25ca")

	assert.NotNil(t, parsed)
	assert.Equal(t, "mio-f3dc27e4-e853-429a-9e4b-3294af7c25ca", parsed.CardID)
}

func TestParseLine_Garbage(t *testing.T) {
	assert.Nil(t, ParseLine("not a card line"))
	assert.Nil(t, ParseLine(""))
	assert.Nil(t, ParseLine("   "))
}

func TestParseText(t *testing.T) {
	content := `卡密: mio-11111111-1111-1111-1111-111111111111 额度: 5 有效期: 2小时

mio-22222222-2222-2222-2222-222222222222
garbage line
`

	cards, failed := ParseText(content)

	assert.Len(t, cards, 2)
	assert.Equal(t, "mio-11111111-1111-1111-1111-111111111111", cards[0].CardID)
	assert.Equal(t, "mio-22222222-2222-2222-2222-222222222222", cards[1].CardID)

	assert.Len(t, failed, 1)
	assert.Contains(t, failed[0], "line 4")
	assert.Contains(t, failed[0], "garbage line")
}
