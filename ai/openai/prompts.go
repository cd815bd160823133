package openai

import (
	"fmt"
	"strings"

	"github.com/fixbase/fixbase/ai"
)

const generationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "atoms": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "kind": {"type": "string"},
          "title": {"type": "string"},
          "summary": {"type": "string"},
          "body": {"type": "string"},
          "manufacturer": {"type": "string"},
          "product_family": {"type": "string"},
          "product_version": {"type": "string"},
          "difficulty": {"type": "string"},
          "safety_level": {"type": "string"},
          "safety_notes": {"type": "string"},
          "keywords": {"type": "array", "items": {"type": "string"}},
          "steps": {"type": "array", "items": {"type": "string"}},
          "fault_code": {"type": "string"}
        },
        "required": ["kind", "title", "summary"],
        "additionalProperties": false
      }
    }
  },
  "required": ["atoms"],
  "additionalProperties": false
}`

const generationPromptTemplate = `Extract self-contained troubleshooting knowledge atoms from the given excerpt of technical documentation and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "kind" must be exactly one of: %s.
- "difficulty", when given, must be one of: %s.
- "safety_level", when given, must be one of: %s.
- Each atom must stand alone: a reader with only the atom must be able to act on it.
- "summary" is one or two teaching-oriented sentences; "body" is the full narrative.
- A "procedure" atom MUST list its ordered steps in "steps".
- A "fault" atom SHOULD carry the vendor fault identifier in "fault_code".
- Tables, register maps and parameter lists do not narrate well: either summarize them as a
  "specification" atom with a summary-only body (empty "body"), or omit them entirely.
- Use lowercase for "manufacturer", "product_family" and "keywords".
- Include only knowledge stated or clearly implied by the excerpt. Do not invent facts.
- If the excerpt contains no extractable knowledge, return "atoms": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "If the SINAMICS G120 trips with F0003 the DC link voltage has fallen below the
undervoltage threshold. Check the mains supply and the input fuses, then acknowledge the fault."
Output:
{
  "atoms": [
    {
      "kind": "fault",
      "title": "F0003 undervoltage trip on SINAMICS G120",
      "summary": "F0003 indicates DC link voltage below the undervoltage threshold; verify supply before resetting.",
      "body": "Check the mains supply and the input fuses, then acknowledge the fault.",
      "manufacturer": "siemens",
      "product_family": "sinamics g120",
      "safety_level": "warning",
      "safety_notes": "Verify supply is isolated before opening the fuse compartment.",
      "keywords": ["f0003", "undervoltage", "dc link", "g120"],
      "fault_code": "F0003"
    }
  ]
}

Example (parameter table, no narrative value):
Input: "P0010: commissioning parameter. P0100: frequency selection 50/60 Hz. P0304: rated motor voltage."
Output:
{
  "atoms": [
    {
      "kind": "specification",
      "title": "G120 basic commissioning parameters",
      "summary": "Commissioning uses P0010 with P0100 for 50/60 Hz selection and P0304 for rated motor voltage; see source documentation for the full table.",
      "body": "",
      "manufacturer": "siemens",
      "keywords": ["commissioning", "parameters", "p0010"]
    }
  ]
}`

// buildSystemPrompt creates the system prompt with the candidate vocabularies embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(generationPromptTemplate,
		generationResponseSchema,
		strings.Join(ai.AtomKinds, ", "),
		strings.Join(ai.Difficulties, ", "),
		strings.Join(ai.SafetyLevels, ", "))
}

// buildChunkPrompt renders the user message: source metadata header plus chunk text.
func buildChunkPrompt(chunk ai.Chunk) string {
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(chunk.SourceURL)
	if chunk.SourceTitle != "" {
		b.WriteString(" (")
		b.WriteString(chunk.SourceTitle)
		b.WriteString(")")
	}
	if chunk.Page > 0 {
		fmt.Fprintf(&b, ", page %d", chunk.Page)
	}
	b.WriteString("\n\n")
	b.WriteString(chunk.Text)
	return b.String()
}
