package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for labelling.
const DefaultModelName = "gemini-2.0-flash"

// Categories the model is asked to choose from. Anything else falls back
// to Other.
var Categories = []string{
	"Revenue", "Payroll", "Rent", "Utilities", "Software", "Travel",
	"Marketing", "Professional Services", "Taxes", "Bank Fees", "Other",
}

// Label is what the model returns for one transaction description.
type Label struct {
	EntityName         string  `json:"entity_name"`
	EntityConfidence   float64 `json:"entity_confidence"`
	Category           string  `json:"category"`
	CategoryConfidence float64 `json:"category_confidence"`
}

// Fallback is the label used whenever the model cannot be reached or
// returns something unusable. Enrichment never blocks or fails the
// pipeline.
func Fallback() Label {
	return Label{EntityName: "Unknown", Category: "Other"}
}

// Client labels transaction descriptions with counterparty entities and
// spending categories.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient builds a labelling client. Credentials come from the standard
// GOOGLE_* environment variables.
func NewClient(ctx context.Context) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{genai: c, model: DefaultModelName}, nil
}

// LabelBatch sends a batch of descriptions and returns one label per
// input, in order. Any failure, from transport to malformed output,
// degrades to the fallback label for the whole batch.
func (c *Client) LabelBatch(ctx context.Context, descriptions []string) []Label {
	labels := make([]Label, len(descriptions))
	for i := range labels {
		labels[i] = Fallback()
	}
	if len(descriptions) == 0 {
		return labels
	}

	prompt := buildPrompt(descriptions)
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return labels
	}
	rawText := resp.Text()
	if rawText == "" {
		return labels
	}

	var parsed []Label
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &parsed); err != nil {
		return labels
	}
	if len(parsed) != len(descriptions) {
		return labels
	}

	for i, l := range parsed {
		labels[i] = sanitize(l)
	}
	return labels
}

// ExtractEntity returns the counterparty name for a single description.
// Failures degrade to ("Unknown", 0).
func (c *Client) ExtractEntity(ctx context.Context, description string) (string, float64) {
	l := c.LabelBatch(ctx, []string{description})[0]
	return l.EntityName, l.EntityConfidence
}

// ClassifyCategory returns the spending category for a single description.
// The signed amount gives the model the inflow/outflow direction.
// Failures degrade to ("Other", 0).
func (c *Client) ClassifyCategory(ctx context.Context, description string, amount float64) (string, float64) {
	l := c.LabelBatch(ctx, []string{fmt.Sprintf("%s (amount %.2f)", description, amount)})[0]
	return l.Category, l.CategoryConfidence
}

func buildPrompt(descriptions []string) string {
	var b strings.Builder
	b.WriteString("You label bank transaction descriptions for a small business.\n")
	b.WriteString("For each description return the counterparty entity name and one category from this list: ")
	b.WriteString(strings.Join(Categories, ", "))
	b.WriteString(".\n")
	b.WriteString("Return STRICT JSON only: an array with one object per input, in input order, shaped as\n")
	b.WriteString(`{"entity_name": "...", "entity_confidence": 0.0, "category": "...", "category_confidence": 0.0}`)
	b.WriteString("\nDo NOT use ```json or any Markdown. Output must begin with \"[\" and end with \"]\".\n\n")
	b.WriteString("Descriptions:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	return b.String()
}

// sanitize clamps confidences and forces unknown categories back to Other.
func sanitize(l Label) Label {
	if strings.TrimSpace(l.EntityName) == "" {
		l.EntityName = "Unknown"
	}
	valid := false
	for _, c := range Categories {
		if l.Category == c {
			valid = true
			break
		}
	}
	if !valid {
		l.Category = "Other"
	}
	if l.EntityConfidence < 0 || l.EntityConfidence > 1 {
		l.EntityConfidence = 0
	}
	if l.CategoryConfidence < 0 || l.CategoryConfidence > 1 {
		l.CategoryConfidence = 0
	}
	return l
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
