// Package cardparse parses vendor card-secret export lines. The supported
// formats are the full form
//
//	卡密: mio-xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx 额度: 1 有效期: 1小时
//
// and a bare card secret, which falls back to default limit and validity.
package cardparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const cardIDPrefix = "mio-"

// Defaults applied when a line carries only the card secret.
const (
	DefaultCardLimit     = 0.0
	DefaultValidityHours = 1
)

var (
	fullLineRe = regexp.MustCompile(`卡密:\s*(\S+)\s+额度:\s*(\d+(?:\.\d+)?)\s+有效期:\s*(\d+)\s*小时`)
	bareIDRe   = regexp.MustCompile(`(?i)(?:卡密:\s*)?(mio-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)
)

// ParsedCard is one successfully parsed import line.
type ParsedCard struct {
	CardID        string
	CardLimit     float64
	ValidityHours int
}

// ValidateCardID reports whether the card secret has the expected
// mio-<uuid> shape.
func ValidateCardID(cardID string) bool {
	if !strings.HasPrefix(cardID, cardIDPrefix) {
		return false
	}
	suffix := strings.TrimPrefix(cardID, cardIDPrefix)
	if _, err := uuid.Parse(suffix); err != nil {
		return false
	}
	// uuid.Parse also accepts urn: and braced forms; only the plain
	// hyphenated form is a valid card secret.
	return len(suffix) == 36
}

// ParseLine parses a single import line. It returns nil when the line is
// empty or carries no recognizable card secret.
func ParseLine(line string) *ParsedCard {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if m := fullLineRe.FindStringSubmatch(line); m != nil {
		cardID := strings.TrimSpace(m[1])
		limit, _ := strconv.ParseFloat(m[2], 64)
		hours, _ := strconv.Atoi(m[3])
		if ValidateCardID(cardID) {
			return &ParsedCard{
				CardID:        cardID,
				CardLimit:     limit,
				ValidityHours: hours,
			}
		}
	}

	if m := bareIDRe.FindStringSubmatch(line); m != nil {
		cardID := strings.ToLower(strings.TrimSpace(m[1]))
		if ValidateCardID(cardID) {
			return &ParsedCard{
				CardID:        cardID,
				CardLimit:     DefaultCardLimit,
				ValidityHours: DefaultValidityHours,
			}
		}
	}

	return nil
}

// ParseText parses a whole pasted export. It returns the parsed cards and a
// description of every non-empty line that failed to parse, with 1-based
// line numbers.
func ParseText(content string) ([]ParsedCard, []string) {
	var (
		cards       []ParsedCard
		failedLines []string
	)

	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parsed := ParseLine(line)
		if parsed == nil {
			failedLines = append(failedLines, fmt.Sprintf("line %d: %s", i+1, strings.TrimSpace(line)))
			continue
		}
		cards = append(cards, *parsed)
	}

	return cards, failedLines
}
