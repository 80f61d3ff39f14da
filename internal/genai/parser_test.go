package genai

import (
	"strings"
	"testing"
)

func TestParse_FencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"short\": \"A cat.\", \"long\": \"A long cat story.\"}\n```\nEnjoy!"
	got := Parse(raw)
	if got.Short != "A cat." || got.Long != "A long cat story." {
		t.Fatalf("got %+v", got)
	}
}

func TestParse_FencedJSON_WinsOverBareBraces(t *testing.T) {
	// Both tiers could match; the fence must be preferred because its content
	// is the intended payload.
	raw := "```json\n{\"short\": \"fenced\", \"long\": \"fenced long\"}\n```"
	got := Parse(raw)
	if got.Short != "fenced" {
		t.Fatalf("got %+v", got)
	}
}

func TestParse_BracedJSON(t *testing.T) {
	raw := `The result is {"short": "S", "long": "L"} as requested.`
	got := Parse(raw)
	if got.Short != "S" || got.Long != "L" {
		t.Fatalf("got %+v", got)
	}
}

func TestParse_BracedJSON_EmptyKeysAccepted(t *testing.T) {
	// A decodable object with empty values is still a tier hit; empty fields
	// stay empty rather than falling through to prose extraction.
	got := Parse(`{"short": "", "long": ""}`)
	if got.Short != "" || got.Long != "" {
		t.Fatalf("got %+v", got)
	}
}

func TestParse_LabeledEnglish(t *testing.T) {
	raw := "Short: a quick take\nLong: a much more detailed take with camera notes\n\ntrailing commentary"
	got := Parse(raw)
	if got.Short != "a quick take" {
		t.Fatalf("short = %q", got.Short)
	}
	if got.Long != "a much more detailed take with camera notes" {
		t.Fatalf("long = %q", got.Long)
	}
}

func TestParse_LabeledChinese(t *testing.T) {
	raw := "简洁版本：猫在花园里\n详细版本：一只橘猫在阳光明媚的花园里追逐蝴蝶"
	got := Parse(raw)
	if got.Short != "猫在花园里" {
		t.Fatalf("short = %q", got.Short)
	}
	if got.Long != "一只橘猫在阳光明媚的花园里追逐蝴蝶" {
		t.Fatalf("long = %q", got.Long)
	}
}

func TestParse_LabeledLongTerminatesAtNextLabel(t *testing.T) {
	raw := "Long: the long body here\nShort: after"
	got := Parse(raw)
	if got.Long != "the long body here" {
		t.Fatalf("long = %q", got.Long)
	}
	if got.Short != "after" {
		t.Fatalf("short = %q", got.Short)
	}
}

func TestParse_LabeledOnlyShort_FallbackLong(t *testing.T) {
	raw := "Short: just the short one"
	got := Parse(raw)
	if got.Short != "just the short one" {
		t.Fatalf("short = %q", got.Short)
	}
	// Missing long degrades to the full raw text.
	if got.Long != raw {
		t.Fatalf("long = %q", got.Long)
	}
}

func TestParse_PlainProse_Fallback(t *testing.T) {
	raw := "A completely unstructured response describing the scene in free prose."
	got := Parse(raw)
	// The excerpt marker is appended even when the text fits the cap.
	if got.Short != raw+"..." {
		t.Fatalf("short = %q, want full text plus ellipsis", got.Short)
	}
	if got.Long != raw {
		t.Fatalf("long = %q, want full text", got.Long)
	}
}

func TestParse_PlainProse_LongInputTruncatesShort(t *testing.T) {
	raw := strings.Repeat("a", 150)
	got := Parse(raw)
	if got.Short != strings.Repeat("a", 100)+"..." {
		t.Fatalf("short = %q", got.Short)
	}
	if got.Long != raw {
		t.Fatalf("long must keep the full text")
	}
}

func TestParse_TruncationCountsRunes(t *testing.T) {
	raw := strings.Repeat("猫", 150)
	got := Parse(raw)
	want := strings.Repeat("猫", 100) + "..."
	if got.Short != want {
		t.Fatalf("short = %q, want 100 runes + ellipsis", got.Short)
	}
}

func TestParse_InvalidJSONFallsThrough(t *testing.T) {
	// Braces present but not decodable; the labeled tier picks it up.
	raw := "{not json}\nShort: real short\nLong: real long"
	got := Parse(raw)
	if got.Short != "real short" || got.Long != "real long" {
		t.Fatalf("got %+v", got)
	}
}

func TestBuildInstruction(t *testing.T) {
	base := BuildInstruction("a cat in the rain", false, false)
	if !strings.Contains(base, "Generate based on text description only.") {
		t.Fatalf("missing text-only line")
	}
	if !strings.HasSuffix(base, "User input: a cat in the rain") {
		t.Fatalf("instruction must end with the user input")
	}
	if !strings.Contains(base, `Respond in JSON format with "short" and "long" keys.`) {
		t.Fatalf("missing JSON response directive")
	}

	withImg := BuildInstruction("a cat", true, false)
	if !strings.Contains(withImg, "reference image") {
		t.Fatalf("missing image framing line")
	}

	vary := BuildInstruction("a cat", false, true)
	if !strings.Contains(vary, "materially different") {
		t.Fatalf("missing variation directive")
	}
	if strings.Contains(base, "materially different") {
		t.Fatalf("variation directive must not appear on first generation")
	}

	imageOnly := BuildInstruction("   ", true, false)
	if !strings.HasSuffix(imageOnly, "User input: Analyze the provided image and create a video prompt") {
		t.Fatalf("empty text must use the image-only stand-in, got tail %q", imageOnly[len(imageOnly)-80:])
	}
}
