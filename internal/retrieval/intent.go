// Package retrieval implements the grounded question-answering pipeline
// (spec component C8): condense -> entity-link -> intent-classify ->
// graph-expand -> retrieve -> rerank -> synthesize -> post-process.
package retrieval

import "regexp"

// Intent is a rule-based classification of a user query, used to gate
// which graph expansions and retrieval scopes Engine.Answer applies.
// Classification never calls an LLM — it runs on every query at
// near-zero latency via the pattern sets below.
type Intent string

const (
	IntentPersonFacts    Intent = "person_facts"
	IntentPersonHistory  Intent = "person_history"
	IntentFamilyContext  Intent = "family_context"
	IntentAssetThread    Intent = "asset_thread"
	IntentAssetAttachment Intent = "asset_attachment"
	IntentCrossChannel   Intent = "cross_channel"
	IntentGeneral        Intent = "general"
)

// Pattern sets mirror the Hebrew+English keyword catalog the archive's
// original retriever used to gate expansion before a hybrid search.
var (
	familyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:family|families|spouse|wife|husband|child|children|son|daughter|parent|mother|father|brother|sister|kid|kids)`),
		regexp.MustCompile(`(?:משפחה|בן זוג|אישה|בעל|ילד|ילדים|בן|בת|הורה|אמא|אבא|אח|אחות)`),
		regexp.MustCompile(`(?i)(?:'s\s+family|של\s+(?:ה)?משפחה)`),
	}

	factPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:how old|age|birthday|birth date|born|where.*live|city|job|work|employer|id number|phone|email)`),
		regexp.MustCompile(`(?:בן כמה|בת כמה|גיל|יום הולדת|תאריך לידה|נולד|גר ב|עיר|עבודה|מספר תעודת|טלפון|מייל)`),
	}

	threadPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:thread|conversation|context|surrounding|before and after|full (?:chat|discussion|exchange))`),
		regexp.MustCompile(`(?:שרשור|שיחה|הקשר|מסביב|לפני ואחרי|כל ה(?:שיחה|דיון))`),
	}

	attachmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:attachment|attached|file|document|pdf|contract|invoice|receipt)`),
		regexp.MustCompile(`(?:קובץ|מצורף|מסמך|חוזה|חשבונית|קבלה)`),
	}

	crossChannelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:also.*(?:call|email|whatsapp|message)|(?:call|email|whatsapp|message).*too|across|both.*and)`),
		regexp.MustCompile(`(?:גם.*(?:שיחה|מייל|הודעה)|(?:שיחה|מייל|הודעה).*גם|בכל ה)`),
	}

	personQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:what did \w+ (?:say|tell|ask|write|send|mention))`),
		regexp.MustCompile(`(?:מה \w+ (?:אמר|שאל|כתב|שלח|ציין|סיפר))`),
		regexp.MustCompile(`(?i)(?:tell me about|show me.*from|everything about|summarize.*about)`),
		regexp.MustCompile(`(?:ספר לי על|תראה לי.*מ|הכל על|סכם.*על)`),
	}
)

// ClassifyIntent classifies query into one or more intents. hasResolvedPersons
// and hasResolvedAssets report whether the entity-linking step (Resolve)
// matched anything, which gates PERSON_HISTORY. The result is never empty:
// it falls back to IntentGeneral when nothing matches.
func ClassifyIntent(query string, hasResolvedPersons, hasResolvedAssets bool) []Intent {
	_ = hasResolvedAssets // reserved for future asset-directed pattern sets

	set := map[Intent]bool{}

	if matchesAny(query, familyPatterns) {
		set[IntentFamilyContext] = true
	}
	if matchesAny(query, factPatterns) {
		set[IntentPersonFacts] = true
	}
	if matchesAny(query, threadPatterns) {
		set[IntentAssetThread] = true
	}
	if matchesAny(query, attachmentPatterns) {
		set[IntentAssetAttachment] = true
	}
	if matchesAny(query, crossChannelPatterns) {
		set[IntentCrossChannel] = true
	}

	if hasResolvedPersons && matchesAny(query, personQueryPatterns) {
		set[IntentPersonHistory] = true
	}
	if hasResolvedPersons && len(set) == 0 {
		set[IntentPersonHistory] = true
	}
	if len(set) == 0 {
		set[IntentGeneral] = true
	}

	out := make([]Intent, 0, len(set))
	for intent := range set {
		out = append(out, intent)
	}
	return out
}

// ShouldExpandRelationships reports whether the identity graph's
// relationship edges (spouse/parent/child) should be expanded before
// retrieval — gated strictly on FAMILY_CONTEXT so unrelated queries
// never pay for a graph walk.
func ShouldExpandRelationships(intents []Intent) bool {
	for _, i := range intents {
		if i == IntentFamilyContext {
			return true
		}
	}
	return false
}

// ShouldExpandAssetNeighborhood reports whether an asset's neighborhood
// (thread siblings, attachments, cross-channel edges) should be expanded.
func ShouldExpandAssetNeighborhood(intents []Intent) bool {
	for _, i := range intents {
		if i == IntentAssetThread || i == IntentAssetAttachment || i == IntentCrossChannel {
			return true
		}
	}
	return false
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
