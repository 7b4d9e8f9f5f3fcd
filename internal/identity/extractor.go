package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pickeld/lucy/internal/costmeter"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/models/chat"
)

// factPatterns are fast pre-filters run before ever calling the LLM:
// if none of these match and the message is short, extraction is
// skipped entirely. Mirrors the age/date/contact-detail cues real
// messages carry identity facts in.
var factPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}`),
	regexp.MustCompile(`\b\d{5,}\b`),
	regexp.MustCompile(`@\w+\.\w+`),
	regexp.MustCompile(`(?i)בן\s*\d|בת\s*\d|גיל\s*\d`),
	regexp.MustCompile(`(?i)נולד|birthday|born|birth`),
	regexp.MustCompile(`(?i)גר\s+ב|living in|lives in|from\s+\w+`),
	regexp.MustCompile(`(?i)עובד|עובדת|works at|working at|job`),
	regexp.MustCompile(`(?i)נשוי|נשואה|married|divorced|גרוש|single`),
	regexp.MustCompile(`(?i)אבא|אמא|אח\b|אחות|בן\b|בת\b|ילד|father|mother|brother|sister|son|daughter|child`),
}

// blockedFactKeys are never stored even if the LLM emits them — "age"
// is the canonical example, since it changes every year and the spec
// requires only time-invariant facts. birth_date is the permanent
// substitute the extraction prompt steers the model toward.
var blockedFactKeys = map[string]bool{
	"age": true,
}

func shouldExtract(content string, isDocument bool, minLength int) bool {
	if isDocument {
		return len(strings.TrimSpace(content)) >= 20
	}
	if len(content) < minLength {
		return false
	}
	for _, p := range factPatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return len(content) > 100
}

const extractionSystemPrompt = `You are a structured identity extraction system. Given a message or document, extract factual information about PEOPLE mentioned or implied.

RULES:
- Extract ONLY permanent, time-invariant facts — NOT temporary states or opinions
- Do NOT extract "age" — it changes over time. Instead extract "birth_date". The system computes age from birth_date at query time.
- Focus on: birth dates, locations, jobs, phone numbers, email, ID numbers, family relationships, gender
- Do NOT extract: age, mood, recent_topic, temporary states, opinions, emotions
- If a person's name is mentioned with a fact, extract it
- If the sender is talking about themselves, the sender IS the entity
- Return valid JSON only — no markdown, no explanation
- If nothing extractable, return {"entities": []}
- For dates, use ISO format (YYYY-MM-DD) when possible
- For each fact, include a "quote" field with the exact short snippet from the source text that supports this fact

RESPONSE FORMAT:
{"entities": [{"name": "Full Name", "facts": {"city": {"value": "Tel Aviv", "quote": "I live in Tel Aviv"}}, "relationships": [{"related_to": "Other Name", "type": "spouse"}]}]}`

// ExtractedFactValue supports both a bare string and a {value,quote} object.
type ExtractedFactValue struct {
	Value string
	Quote string
}

func (v *ExtractedFactValue) UnmarshalJSON(b []byte) error {
	var obj struct {
		Value string `json:"value"`
		Quote string `json:"quote"`
	}
	if err := json.Unmarshal(b, &obj); err == nil && obj.Value != "" {
		v.Value, v.Quote = obj.Value, obj.Quote
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v.Value = s
	return nil
}

type extractedRelationship struct {
	RelatedTo string `json:"related_to"`
	Type      string `json:"type"`
}

type extractedEntity struct {
	Name          string                          `json:"name"`
	Facts         map[string]ExtractedFactValue   `json:"facts"`
	Relationships []extractedRelationship         `json:"relationships"`
}

type extractionResponse struct {
	Entities []extractedEntity `json:"entities"`
}

// Extractor runs LLM-based identity extraction (the task handler
// dispatched by C5's extraction step, never called inline from
// ingestion — this is what breaks the would-be ingestion-extraction
// cycle).
type Extractor struct {
	Store      *Store
	Chat       chat.Chat
	Meter      *costmeter.Meter
	ModelName  string
	MinMessageLength int
}

// AlwaysExtractSources bypass the length/pattern pre-filter.
var AlwaysExtractSources = map[string]bool{
	"paperless":      true,
	"gmail":          true,
	"call_recording": true,
}

// Extract runs the full extraction flow for one piece of content:
// dedup against the extraction log, pre-filter, LLM call, fact and
// relationship storage, mentioned-person asset links. Returns the
// number of facts stored (0 if skipped, deduped, or nothing found).
func (e *Extractor) Extract(ctx context.Context, content, sourceType, sourceRef, sender string) (int, error) {
	if sourceRef != "" {
		already, err := e.Store.RecordExtraction(ctx, sourceRef, sourceType, 0)
		if err != nil {
			return 0, err
		}
		if already {
			return 0, nil
		}
	}

	isDoc := AlwaysExtractSources[sourceType]
	minLen := e.MinMessageLength
	if minLen <= 0 {
		minLen = 15
	}
	if !shouldExtract(content, isDoc, minLen) {
		return 0, nil
	}

	prompt := fmt.Sprintf("Source: %s\nSender/Author: %s\n---\n%s\n---\nExtract person facts from the above.", sourceType, sender, content)

	resp, err := e.Chat.Chat(ctx, []chat.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: prompt},
	}, &chat.ChatOptions{Temperature: 0.1, MaxTokens: 1000})
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "identity", "step": "extraction_llm"})
		return 0, nil
	}

	if e.Meter != nil {
		e.Meter.OnCallComplete(ctx, costmeter.CallResult{
			Provider: "openai", Model: e.Chat.GetModelName(), Kind: costmeter.KindChat,
			InTokens: resp.Usage.PromptTokens, OutTokens: resp.Usage.CompletionTokens,
			RequestContext: "identity_extraction",
		})
	}

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "identity", "step": "parse_extraction"})
		return 0, nil
	}

	factsStored := e.storeExtraction(ctx, parsed, sourceType, sourceRef)
	return factsStored, nil
}

func (e *Extractor) storeExtraction(ctx context.Context, resp extractionResponse, sourceType, sourceRef string) int {
	stored := 0
	for _, ent := range resp.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			continue
		}
		personID, err := e.Store.FindOrCreatePerson(ctx, name, Identifiers{})
		if err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "identity", "step": "resolve_entity"})
			continue
		}

		for key, fv := range ent.Facts {
			if blockedFactKeys[strings.ToLower(key)] {
				continue
			}
			if fv.Value == "" {
				continue
			}
			if err := e.Store.SetFact(ctx, personID, key, fv.Value, 0.6, sourceType, sourceRef, fv.Quote); err != nil {
				logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "identity", "step": "set_fact"})
				continue
			}
			stored++
		}

		for _, rel := range ent.Relationships {
			if rel.RelatedTo == "" || rel.Type == "" {
				continue
			}
			relatedID, err := e.Store.FindOrCreatePerson(ctx, rel.RelatedTo, Identifiers{})
			if err != nil {
				continue
			}
			_ = e.Store.LinkRelationship(ctx, personID, relatedID, rel.Type, 0.6, sourceRef)
		}

		if sourceRef != "" {
			if err := e.Store.LinkPersonAsset(ctx, personID, sourceType, sourceRef, RoleMentioned, 0.6); err != nil {
				logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "identity", "step": "link_mentioned"})
			}
		}
	}
	return stored
}
