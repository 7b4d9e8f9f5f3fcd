// Package richcontent implements the post-processing step of C8's
// retrieval pipeline: pulling structured rich content (inline images,
// calendar events, disambiguation buttons) out of the synthesized
// answer and the chunks it was grounded on.
package richcontent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pickeld/lucy/internal/vectorstore"
)

// Kind enumerates the rich content block types the UI renders.
type Kind string

const (
	KindImage    Kind = "image"
	KindICSEvent Kind = "ics_event"
	KindButtons  Kind = "buttons"
)

// Block is one structured rich content entry alongside the synthesized
// answer. Fields not applicable to Kind are left zero.
type Block struct {
	Type Kind `json:"type"`

	// image
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`

	// ics_event
	Title       string `json:"title,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`

	// buttons
	Prompt  string   `json:"prompt,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// Option is one clickable disambiguation choice.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Processor extracts rich content from a synthesized answer and the
// chunks it cites. MediaRoot is the directory inline image paths are
// resolved relative to when they are not already absolute; EventsDir
// is where generated .ics files are written.
type Processor struct {
	MediaRoot string
	EventsDir string
	Timezone  *time.Location
}

// NewProcessor constructs a Processor, defaulting tz to UTC and
// creating EventsDir if it doesn't exist.
func NewProcessor(mediaRoot, eventsDir string, tz *time.Location) (*Processor, error) {
	if tz == nil {
		tz = time.UTC
	}
	if eventsDir != "" {
		if err := os.MkdirAll(eventsDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating events dir: %w", err)
		}
	}
	return &Processor{MediaRoot: mediaRoot, EventsDir: eventsDir, Timezone: tz}, nil
}

// Process post-processes answer against the chunks it was synthesized
// from, returning the cleaned visible text and every rich content
// block extracted, in image/event/button order — mirroring the fixed
// three-pass pipeline C8's synthesis step hands its output through.
func (p *Processor) Process(answer string, chunks []vectorstore.ScoredPoint) (string, []Block) {
	var blocks []Block

	blocks = append(blocks, p.extractImages(chunks)...)

	answer, events := p.extractICSEvents(answer)
	blocks = append(blocks, events...)

	answer, buttons := p.extractButtons(answer)
	blocks = append(blocks, buttons...)

	return answer, blocks
}

// --------------------------------------------------------------------
// Inline images
// --------------------------------------------------------------------

func (p *Processor) extractImages(chunks []vectorstore.ScoredPoint) []Block {
	var images []Block
	seen := map[string]bool{}

	for _, c := range chunks {
		pl := c.Payload
		if !pl.HasMedia || pl.MediaPath == "" {
			continue
		}
		if seen[pl.MediaPath] {
			continue
		}
		seen[pl.MediaPath] = true

		fullPath := pl.MediaPath
		if !filepath.IsAbs(fullPath) && p.MediaRoot != "" {
			fullPath = filepath.Join(p.MediaRoot, pl.MediaPath)
		}
		if _, err := os.Stat(fullPath); err != nil {
			continue
		}

		filename := filepath.Base(pl.MediaPath)
		caption := captionFor(pl, p.Timezone)

		images = append(images, Block{
			Type:    KindImage,
			URL:     "/media/images/" + filename,
			Alt:     caption,
			Caption: caption,
		})
	}
	return images
}

func captionFor(pl vectorstore.ChunkPayload, tz *time.Location) string {
	sender := pl.Sender
	if sender == "" {
		sender = "Unknown"
	}
	caption := "Image from " + sender
	if pl.ChatName != "" {
		caption += " in " + pl.ChatName
	}
	if !pl.Timestamp.IsZero() {
		caption += " on " + pl.Timestamp.In(tz).Format("02/01/2006 15:04")
	}
	return caption
}

// --------------------------------------------------------------------
// ICS calendar events
// --------------------------------------------------------------------

var eventBlockPattern = regexp.MustCompile(`(?is)\[CREATE_EVENT\]\s*\n(.*?)\n\s*\[/CREATE_EVENT\]`)

var multiBlankLines = regexp.MustCompile(`\n{3,}`)

func (p *Processor) extractICSEvents(answer string) (string, []Block) {
	var events []Block

	matches := eventBlockPattern.FindAllStringSubmatchIndex(answer, -1)
	if len(matches) == 0 {
		return answer, events
	}

	for _, m := range matches {
		blockText := answer[m[2]:m[3]]
		data := parseEventBlock(blockText)
		if data["title"] == "" || data["start"] == "" {
			continue
		}

		filename, err := p.generateICSFile(data)
		if err != nil {
			continue
		}

		events = append(events, Block{
			Type:        KindICSEvent,
			Title:       data["title"],
			Start:       data["start"],
			End:         data["end"],
			Location:    data["location"],
			Description: data["description"],
			DownloadURL: "/media/events/" + filename,
		})
	}

	cleaned := eventBlockPattern.ReplaceAllString(answer, "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = multiBlankLines.ReplaceAllString(cleaned, "\n\n")
	return cleaned, events
}

var eventFieldKeys = map[string]bool{
	"title": true, "start": true, "end": true, "location": true, "description": true,
}

func parseEventBlock(blockText string) map[string]string {
	data := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(blockText), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if eventFieldKeys[key] {
			data[key] = value
		}
	}
	return data
}

// dateTimeFormats is the tolerant fallback chain a user-facing
// [CREATE_EVENT] block's start/end value is tried against, in order.
var dateTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

func (p *Processor) parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeFormats {
		if t, err := time.ParseInLocation(layout, s, p.Timezone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse datetime %q", s)
}

const icsTemplate = "BEGIN:VCALENDAR\r\n" +
	"PRODID:-//Lucy AI Assistant//EN\r\n" +
	"VERSION:2.0\r\n" +
	"CALSCALE:GREGORIAN\r\n" +
	"METHOD:PUBLISH\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:%s\r\n" +
	"DTSTART;TZID=%s:%s\r\n" +
	"DTEND;TZID=%s:%s\r\n" +
	"%s%s" +
	"UID:%s@lucy-assistant\r\n" +
	"DTSTAMP:%s\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func (p *Processor) generateICSFile(data map[string]string) (string, error) {
	start, err := p.parseDateTime(data["start"])
	if err != nil {
		return "", err
	}
	var end time.Time
	if data["end"] != "" {
		end, err = p.parseDateTime(data["end"])
		if err != nil {
			return "", err
		}
	} else {
		end = start.Add(time.Hour)
	}

	var location, description string
	if data["location"] != "" {
		location = fmt.Sprintf("LOCATION:%s\r\n", icsEscape(data["location"]))
	}
	if data["description"] != "" {
		description = fmt.Sprintf("DESCRIPTION:%s\r\n", icsEscape(data["description"]))
	}

	uid := uuid.NewString()
	tzName := p.Timezone.String()
	body := fmt.Sprintf(icsTemplate,
		icsEscape(data["title"]),
		tzName, start.Format("20060102T150405"),
		tzName, end.Format("20060102T150405"),
		location, description,
		uid,
		time.Now().UTC().Format("20060102T150405Z"),
	)

	filename := icsFilename(data["title"])
	if p.EventsDir != "" {
		if err := os.WriteFile(filepath.Join(p.EventsDir, filename), []byte(body), 0o644); err != nil {
			return "", err
		}
	}
	return filename, nil
}

var icsUnsafeChars = regexp.MustCompile(`[^\w\s-]`)
var icsWhitespace = regexp.MustCompile(`\s+`)

func icsFilename(title string) string {
	safe := icsUnsafeChars.ReplaceAllString(strings.ToLower(title), "")
	safe = icsWhitespace.ReplaceAllString(strings.TrimSpace(safe), "-")
	if len(safe) > 50 {
		safe = safe[:50]
	}
	return safe + "-" + uuid.NewString()[:8] + ".ics"
}

func icsEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}

// --------------------------------------------------------------------
// Disambiguation buttons
// --------------------------------------------------------------------

var optionPattern = regexp.MustCompile(`(?m)^\s*(\d+)\s*[).]\s*(.+?)$`)

var questionIndicators = []string{
	"which one", "who did you mean", "did you mean", "please clarify",
	"please specify", "which person",
	"לאיזה", "למי התכוונת", "התכוונת", "איזה", "מי מהם", "תבחר", "תבחרי", "באיזה",
}

func (p *Processor) extractButtons(answer string) (string, []Block) {
	var blocks []Block

	lower := strings.ToLower(answer)
	hasQuestion := false
	for _, indicator := range questionIndicators {
		if strings.Contains(lower, indicator) {
			hasQuestion = true
			break
		}
	}
	if !hasQuestion {
		return answer, blocks
	}

	matches := optionPattern.FindAllStringSubmatchIndex(answer, -1)
	if len(matches) < 2 {
		return answer, blocks
	}

	var options []Option
	optionNumbers := map[string]bool{}
	for _, m := range matches {
		num := answer[m[2]:m[3]]
		optionNumbers[num] = true
		text := strings.TrimSpace(answer[m[4]:m[5]])
		text = strings.TrimRight(text, "?？")
		options = append(options, Option{Label: text, Value: text})
	}
	if len(options) == 0 {
		return answer, blocks
	}

	promptText := strings.TrimSpace(answer[:matches[0][0]])
	afterText := strings.TrimSpace(answer[matches[len(matches)-1][1]:])
	if afterText != "" {
		if promptText != "" {
			promptText = promptText + "\n" + afterText
		} else {
			promptText = afterText
		}
	}
	promptText = strings.TrimSpace(strings.TrimRight(promptText, ":"))

	blocks = append(blocks, Block{Type: KindButtons, Prompt: promptText, Options: options})

	var keptLines []string
	for _, line := range strings.Split(answer, "\n") {
		stripped := strings.TrimSpace(line)
		isOption := false
		for num := range optionNumbers {
			if strings.HasPrefix(stripped, num+")") || strings.HasPrefix(stripped, num+".") {
				isOption = true
				break
			}
		}
		if !isOption {
			keptLines = append(keptLines, line)
		}
	}
	cleaned := strings.TrimSpace(strings.Join(keptLines, "\n"))
	cleaned = multiBlankLines.ReplaceAllString(cleaned, "\n\n")
	return cleaned, blocks
}
