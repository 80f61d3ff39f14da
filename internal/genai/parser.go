// Response parsing for the generative backend.
//
// The backend's output format is not guaranteed: it may honor the "respond in
// JSON" instruction, wrap the JSON in a markdown fence, fall back to labeled
// prose (in English or Chinese), or ignore structure entirely. Parse is the
// designated boundary that converts whatever came back into a usable pair.
// It is a total function: it never fails and never returns empty output for
// non-empty input.
//
// Extraction runs through an ordered chain of strategies; the first one that
// succeeds wins:
//  1. a ```json fenced block parsed as an object with short/long keys;
//  2. the first top-level brace-delimited substring, same parse;
//  3. labeled lines ("short:"/"简洁版本:" and "long:"/"详细版本:");
//  4. truncated-prefix short + full-text long.
//
// Within a successful tier, a missing or empty field degrades per-field (the
// tier 4 value for that field) instead of discarding the whole tier.
package genai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PromptPair is the structured result extracted from raw backend text.
type PromptPair struct {
	Short string `json:"short"`
	Long  string `json:"long"`
}

// shortFallbackRunes is how much of the raw text seeds the short variant when
// no structure is recoverable.
const shortFallbackRunes = 100

var (
	// jsonFenceRE captures the body of a ```json fenced block.
	jsonFenceRE = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")

	// shortLabelRE matches a labeled short line (English or Chinese, ASCII or
	// full-width colon) and captures the remainder of the line.
	shortLabelRE = regexp.MustCompile(`(?i)(?:short|简洁版本?)[:：][ \t]*([^\n]+)`)

	// longLabelRE matches the long label itself; the field body is delimited
	// manually because its end ("next label or blank line") needs lookahead
	// that RE2 does not support.
	longLabelRE = regexp.MustCompile(`(?i)(?:long|详细版本?)[:：][ \t]*`)

	// nextLabelRE finds the start of a following labeled line, which
	// terminates the long field.
	nextLabelRE = regexp.MustCompile(`(?i)\n(?:short|long|简洁|详细)`)
)

// Parse extracts a PromptPair from raw backend text. It never fails; see the
// package comment for the tier order.
func Parse(raw string) PromptPair {
	if pair, ok := parseFencedJSON(raw); ok {
		return pair
	}
	if pair, ok := parseBracedJSON(raw); ok {
		return pair
	}
	if pair, ok := parseLabeled(raw); ok {
		return pair
	}
	return PromptPair{
		Short: truncatedShort(raw),
		Long:  raw,
	}
}

// parseFencedJSON handles tier 1: a markdown-fenced JSON object.
func parseFencedJSON(raw string) (PromptPair, bool) {
	m := jsonFenceRE.FindStringSubmatch(raw)
	if m == nil {
		return PromptPair{}, false
	}
	return parseJSONObject(m[1])
}

// parseBracedJSON handles tier 2: the first top-level brace-delimited
// substring. Matching the first '{' against the last '}' mirrors a greedy
// {...} scan and tolerates nested objects.
func parseBracedJSON(raw string) (PromptPair, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return PromptPair{}, false
	}
	return parseJSONObject(raw[start : end+1])
}

// parseJSONObject decodes a candidate JSON object. A present-but-empty key is
// an empty string, not a reason to fall through; only a hard decode failure
// rejects the tier.
func parseJSONObject(s string) (PromptPair, bool) {
	var pair PromptPair
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &pair); err != nil {
		return PromptPair{}, false
	}
	pair.Short = strings.TrimSpace(pair.Short)
	pair.Long = strings.TrimSpace(pair.Long)
	return pair, true
}

// parseLabeled handles tier 3: bilingual labeled lines. The tier succeeds
// when at least one label is found; a missing field takes its tier 4 value.
func parseLabeled(raw string) (PromptPair, bool) {
	var (
		short, long string
		shortOK     bool
		longOK      bool
	)

	if m := shortLabelRE.FindStringSubmatch(raw); m != nil {
		short = strings.TrimSpace(m[1])
		shortOK = true
	}

	if loc := longLabelRE.FindStringIndex(raw); loc != nil {
		body := raw[loc[1]:]
		end := len(body)
		if i := strings.Index(body, "\n\n"); i >= 0 && i < end {
			end = i
		}
		if l := nextLabelRE.FindStringIndex(body); l != nil && l[0] < end {
			end = l[0]
		}
		long = strings.TrimSpace(body[:end])
		longOK = true
	}

	if !shortOK && !longOK {
		return PromptPair{}, false
	}
	if !shortOK {
		short = truncatedShort(raw)
	}
	if !longOK {
		long = raw
	}
	return PromptPair{Short: short, Long: long}, true
}

// truncatedShort returns the first shortFallbackRunes runes of raw with an
// ellipsis marker. The marker is appended even when the input fits the cap,
// flagging the short variant as a mechanical excerpt rather than a real one.
func truncatedShort(raw string) string {
	runes := []rune(raw)
	if len(runes) <= shortFallbackRunes {
		return raw + "..."
	}
	return string(runes[:shortFallbackRunes]) + "..."
}
