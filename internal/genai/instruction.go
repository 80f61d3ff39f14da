// Instruction assembly for the generative backend.
//
// One instruction template serves both the first generation and regeneration;
// the only differences are the image framing line and, on regeneration, an
// explicit demand for a materially different result. Keeping a single
// template (instead of per-endpoint copies) is what lets the generate and
// regenerate paths share one client.
package genai

import "strings"

// defaultImageOnlyText stands in for the user's description when a request
// carries an image and no text.
const defaultImageOnlyText = "Analyze the provided image and create a video prompt"

const instructionHeader = `You are an expert at creating optimized prompts for Veo3, Google's advanced video generation AI.

Your task is to transform user input into two versions of Veo3-optimized prompts:
1. SHORT version (50-100 words): Concise, essential elements only
2. LONG version (150-300 words): Detailed, comprehensive description

Key guidelines for Veo3 prompts:
- Use clear, descriptive language
- Include camera movements, lighting, and visual style
- Specify duration and pacing when relevant
- Mention specific visual details and atmosphere
- Use cinematic terminology
- Avoid abstract concepts, focus on visual elements
- Include technical aspects like shot types, angles`

const withImageLine = "The user has provided a reference image along with text description. Analyze the image and incorporate its visual elements into the prompts."

const withoutImageLine = "Generate based on text description only."

const varyLine = "The user has already received a previous result for this exact input and asked for another take. Produce a materially different result: change the framing, mood, and visual approach rather than rephrasing the previous output."

// BuildInstruction composes the full instruction sent to the backend.
// userText may be empty for image-only requests; a fixed stand-in is used so
// the backend always receives a task statement. vary is set on the
// regeneration path.
func BuildInstruction(userText string, hasImage, vary bool) string {
	text := strings.TrimSpace(userText)
	if text == "" {
		text = defaultImageOnlyText
	}

	var sb strings.Builder
	sb.WriteString(instructionHeader)
	sb.WriteString("\n\n")
	if hasImage {
		sb.WriteString(withImageLine)
	} else {
		sb.WriteString(withoutImageLine)
	}
	if vary {
		sb.WriteString("\n\n")
		sb.WriteString(varyLine)
	}
	sb.WriteString("\n\nRespond in JSON format with \"short\" and \"long\" keys.\n\nUser input: ")
	sb.WriteString(text)
	return sb.String()
}
