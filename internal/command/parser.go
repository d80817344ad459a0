package command

import (
	"strings"

	"smmbridge/internal/models"
)

// MaxOrderIDs bounds how many distinct order ids one message may carry.
const MaxOrderIDs = 100

// ParseResult is the outcome of parsing one inbound message. Reason is a
// routing signal; the pipeline maps it to user-facing text.
type ParseResult struct {
	Valid    bool
	Command  models.CommandKind
	OrderIDs []string
	Reason   string // "no_command", "no_order_ids", "too_many_orders"
}

var commandAliases = map[string]models.CommandKind{
	"refill": models.CommandRefill,
	"refil":  models.CommandRefill,
	"rf":     models.CommandRefill,
	"isi":    models.CommandRefill,
	"garansi": models.CommandRefill,

	"cancel":   models.CommandCancel,
	"cncl":     models.CommandCancel,
	"batal":    models.CommandCancel,
	"batalkan": models.CommandCancel,

	"speedup":  models.CommandSpeedUp,
	"speed":    models.CommandSpeedUp,
	"spd":      models.CommandSpeedUp,
	"percepat": models.CommandSpeedUp,

	"status": models.CommandStatus,
	"stat":   models.CommandStatus,
	"sts":    models.CommandStatus,
	"cek":    models.CommandStatus,
	"check":  models.CommandStatus,
}

// Filler tokens skipped by the loose third grammar ("status order 123").
var fillerTokens = map[string]bool{
	"order":  true,
	"orders": true,
	"id":     true,
	"no":     true,
	"nomor":  true,
	"#":      true,
	".":      true,
	"-":      true,
}

// Parse extracts a command kind and order ids from loosely structured text.
// Three grammars are tried in order, accepting the first that yields at
// least one order id and a recognized command token:
//
//	(a) order-ids-then-command: "123,124 refill"
//	(b) command-then-order-ids: "refill 123 124"
//	(c) command + filler words:  "status order 123"
//
// Parse is pure: the same input always yields the same result.
func Parse(text string) *ParseResult {
	tokens := tokenize(text)
	if len(tokens) < 2 {
		return &ParseResult{Valid: false, Reason: "no_command"}
	}

	// (a) ids first, command last
	if cmd, ok := lookupCommand(tokens[len(tokens)-1]); ok {
		if res := collectOrderIDs(tokens[:len(tokens)-1], false); res != nil {
			return finish(cmd, res)
		}
	}

	// (b) command first, ids after
	if cmd, ok := lookupCommand(tokens[0]); ok {
		if res := collectOrderIDs(tokens[1:], false); res != nil {
			return finish(cmd, res)
		}
		// (c) same, skipping filler tokens
		if res := collectOrderIDs(tokens[1:], true); res != nil {
			return finish(cmd, res)
		}
		return &ParseResult{Valid: false, Command: cmd, Reason: "no_order_ids"}
	}

	return &ParseResult{Valid: false, Reason: "no_command"}
}

func finish(cmd models.CommandKind, ids []string) *ParseResult {
	if len(ids) > MaxOrderIDs {
		return &ParseResult{Valid: false, Command: cmd, Reason: "too_many_orders"}
	}
	return &ParseResult{Valid: true, Command: cmd, OrderIDs: ids}
}

// LooksLikeCommand is a cheap gate callers use before invoking the full
// parser: a known keyword plus a run of at least three digits.
func LooksLikeCommand(text string) bool {
	lower := strings.ToLower(text)

	hasKeyword := false
	for _, tok := range tokenize(lower) {
		if _, ok := commandAliases[stripPunct(tok)]; ok {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}

	run := 0
	for _, r := range lower {
		if r >= '0' && r <= '9' {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

func lookupCommand(token string) (models.CommandKind, bool) {
	cmd, ok := commandAliases[stripPunct(strings.ToLower(token))]
	return cmd, ok
}

func stripPunct(token string) string {
	return strings.Trim(token, ".,:;!?")
}

// collectOrderIDs splits tokens on commas, validates each candidate id and
// deduplicates preserving first-seen order. Returns nil when any token is
// not a valid id (so the caller can try the next grammar), unless
// skipFiller is set, in which case unusable tokens are skipped.
func collectOrderIDs(tokens []string, skipFiller bool) []string {
	var ids []string
	seen := map[string]bool{}

	for _, tok := range tokens {
		for _, part := range strings.Split(tok, ",") {
			part = strings.TrimSpace(strings.TrimPrefix(part, "#"))
			if part == "" {
				continue
			}
			if !validOrderID(part) {
				if skipFiller && fillerTokens[strings.ToLower(part)] {
					continue
				}
				if skipFiller {
					continue
				}
				return nil
			}
			key := strings.ToLower(part)
			if seen[key] {
				continue
			}
			seen[key] = true
			ids = append(ids, part)
		}
	}

	if len(ids) == 0 {
		return nil
	}
	return ids
}

// validOrderID accepts alphanumeric tokens of 3-50 characters containing
// at least one digit.
func validOrderID(s string) bool {
	if len(s) < 3 || len(s) > 50 {
		return false
	}
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return hasDigit
}
