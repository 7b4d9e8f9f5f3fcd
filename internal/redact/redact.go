// Package redact implements the per-channel PII redaction policy
// (spec component C5 step 2): pattern-based detection of phone
// numbers, emails, national ID numbers, credit cards and IBANs, with
// a configurable redact/replace/hash action per entity.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Entity is a PII category this package can detect.
type Entity string

const (
	EntityPhoneNumber Entity = "PHONE_NUMBER"
	EntityEmail       Entity = "EMAIL_ADDRESS"
	EntityILIDNumber  Entity = "IL_ID_NUMBER"
	EntityCreditCard  Entity = "CREDIT_CARD"
	EntityIBAN        Entity = "IBAN_CODE"
)

// Action is what happens to a detected span.
type Action string

const (
	ActionRedact  Action = "redact"
	ActionReplace Action = "replace"
	ActionHash    Action = "hash"
)

// Policy is a channel's PII handling configuration.
type Policy struct {
	Entities       []Entity
	Action         Action
	ScoreThreshold float64
}

// DefaultPolicies mirrors the channel defaults every plugin gets
// unless C1 settings override them.
var DefaultPolicies = map[string]Policy{
	"whatsapp": {
		Entities:       []Entity{EntityPhoneNumber, EntityEmail, EntityCreditCard, EntityIBAN, EntityILIDNumber},
		Action:         ActionHash,
		ScoreThreshold: 0.6,
	},
	"gmail": {
		Entities:       []Entity{EntityPhoneNumber, EntityCreditCard, EntityIBAN, EntityILIDNumber},
		Action:         ActionReplace,
		ScoreThreshold: 0.6,
	},
	"paperless": {
		Entities:       []Entity{EntityCreditCard, EntityIBAN},
		Action:         ActionRedact,
		ScoreThreshold: 0.7,
	},
	"call_recording": {
		Entities:       []Entity{EntityPhoneNumber, EntityCreditCard},
		Action:         ActionReplace,
		ScoreThreshold: 0.6,
	},
}

// span is one detected PII occurrence.
type span struct {
	entity     Entity
	start, end int
	score      float64
	text       string
}

var (
	reEmail      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	reCreditCard = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
	reIBAN       = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`)
	reILIDRaw    = regexp.MustCompile(`(?:^|\D)(\d{9})(?:\D|$)`)
	reILPhoneIntl = regexp.MustCompile(`(?:\+972|972)[\s\-]?[2-9]\d[\s\-]?\d{3}[\s\-]?\d{4}`)
	reILPhoneLocal = regexp.MustCompile(`0[2-9]\d[\s\-]?\d{3}[\s\-]?\d{4}`)
	reILPhoneMobile = regexp.MustCompile(`05\d[\s\-]?\d{3}[\s\-]?\d{4}`)
)

// isValidILID validates a 9-digit Israeli ID using its Luhn-like
// check digit: each digit at an even 1-indexed position (an odd
// 0-indexed i, walking left to right) is doubled, digits over 9 are
// reduced by 9, and the total must be divisible by 10.
func isValidILID(digits string) bool {
	if len(digits) != 9 {
		return false
	}
	total := 0
	for i, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 2
		}
		if d > 9 {
			d -= 9
		}
		total += d
	}
	return total%10 == 0
}

func detectSpans(text string, entities []Entity, threshold float64) []span {
	wanted := map[Entity]bool{}
	for _, e := range entities {
		wanted[e] = true
	}

	var spans []span

	if wanted[EntityEmail] {
		for _, loc := range reEmail.FindAllStringIndex(text, -1) {
			spans = append(spans, span{EntityEmail, loc[0], loc[1], 0.9, text[loc[0]:loc[1]]})
		}
	}
	if wanted[EntityPhoneNumber] {
		for _, re := range []*regexp.Regexp{reILPhoneIntl, reILPhoneMobile, reILPhoneLocal} {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				spans = append(spans, span{EntityPhoneNumber, loc[0], loc[1], 0.75, text[loc[0]:loc[1]]})
			}
		}
	}
	if wanted[EntityILIDNumber] {
		for _, loc := range reILIDRaw.FindAllStringSubmatchIndex(text, -1) {
			digits := text[loc[2]:loc[3]]
			if isValidILID(digits) {
				spans = append(spans, span{EntityILIDNumber, loc[2], loc[3], 0.85, digits})
			}
		}
	}
	if wanted[EntityCreditCard] {
		for _, loc := range reCreditCard.FindAllStringIndex(text, -1) {
			spans = append(spans, span{EntityCreditCard, loc[0], loc[1], 0.7, text[loc[0]:loc[1]]})
		}
	}
	if wanted[EntityIBAN] {
		for _, loc := range reIBAN.FindAllStringIndex(text, -1) {
			spans = append(spans, span{EntityIBAN, loc[0], loc[1], 0.8, text[loc[0]:loc[1]]})
		}
	}

	filtered := spans[:0]
	for _, s := range spans {
		if s.score >= threshold {
			filtered = append(filtered, s)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].start < filtered[j].start })
	return dropOverlapping(filtered)
}

// dropOverlapping keeps the first (leftmost-starting) span in any
// group of overlapping spans, so e.g. a credit-card-shaped substring
// inside a longer IBAN match isn't redacted twice.
func dropOverlapping(spans []span) []span {
	var out []span
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		out = append(out, s)
		lastEnd = s.end
	}
	return out
}

func applySpan(s span, action Action) string {
	switch action {
	case ActionRedact:
		return ""
	case ActionHash:
		sum := sha256.Sum256([]byte(s.text))
		return fmt.Sprintf("<%s_%s>", s.entity, hex.EncodeToString(sum[:])[:8])
	default: // ActionReplace
		return fmt.Sprintf("<%s>", s.entity)
	}
}

// Redact applies policy to text, replacing/redacting/hashing every
// detected span at or above the policy's score threshold. Detection
// failures never happen here (pure regex, no network/model call), so
// unlike the ingestion pipeline's other steps this has no fallback
// path — it is inherently safe to run inline.
func Redact(text string, policy Policy) string {
	spans := detectSpans(text, policy.Entities, policy.ScoreThreshold)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.start])
		b.WriteString(applySpan(s, policy.Action))
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// RedactForEmbedding redacts text for embedding/search-index storage.
// It always uses the "replace" action, overriding the channel's
// configured action, so the embedded text keeps the fixed token
// structure ("<EMAIL_ADDRESS>" etc.) a hash or full removal would
// disturb — embedding models are sensitive to that kind of shift.
func RedactForEmbedding(text string, policy Policy) string {
	embeddingPolicy := policy
	embeddingPolicy.Action = ActionReplace
	return Redact(text, embeddingPolicy)
}

// PolicyFor returns the configured policy for a channel, falling back
// to the whatsapp policy (the most conservative default) if the
// channel has none registered.
func PolicyFor(policies map[string]Policy, channel string) Policy {
	if p, ok := policies[channel]; ok {
		return p
	}
	if p, ok := DefaultPolicies[channel]; ok {
		return p
	}
	return DefaultPolicies["whatsapp"]
}
