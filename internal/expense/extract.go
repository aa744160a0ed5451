package expense

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"spendsheet/internal/llm"
)

// receiptSchema constrains the extraction response to a flat list of line
// items. Constraining the shape up front removes a whole class of parsing
// ambiguity (arrays under varying key names, stray prose); normalization
// below still defends the semantics the schema cannot.
var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"merchant": {Type: genai.TypeString, Description: "Store or merchant name"},
					"date":     {Type: genai.TypeString, Description: "Purchase date, YYYY-MM-DD"},
					"category": {Type: genai.TypeString, Description: "Spending category, e.g. Groceries"},
					"item":     {Type: genai.TypeString, Description: "Description of the purchased item"},
					"cost":     {Type: genai.TypeNumber, Description: "Item cost as a plain number"},
				},
				Required: []string{"merchant", "date", "category", "item", "cost"},
			},
		},
	},
	Required: []string{"items"},
}

// rawItem mirrors one schema item before normalization. Cost stays untyped
// so a stringified number from a loose model is coerced instead of
// rejected.
type rawItem struct {
	Merchant string      `json:"merchant"`
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Item     string      `json:"item"`
	Cost     interface{} `json:"cost"`
}

// Extract turns receipt images and/or a free-text description into
// normalized line items. At least one of text and images must be present.
func (s *Service) Extract(ctx context.Context, text string, images []llm.Image) ([]LineItem, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		return nil, ErrNoInput
	}

	if s.archive != nil {
		for _, img := range images {
			uri, err := s.archive.Save(ctx, img.Data, img.MIMEType)
			if err != nil {
				s.log.Error().Err(err).Msg("Receipt archival failed")
				return nil, fmt.Errorf("Extract: archiving image: %w", ErrImageUpload)
			}
			s.log.Debug().Str("uri", uri).Msg("Receipt image archived")
		}
	}

	userText := text
	if userText == "" {
		userText = "Extract all purchased items from the attached receipt image(s)."
	}

	raw, err := s.llm.Complete(ctx, llm.Request{
		System: extractionSystemPrompt(s.now().Format("2006-01-02")),
		Messages: []llm.Message{
			{Role: "user", Text: userText, Images: images},
		},
		Schema: receiptSchema,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Extraction model call failed")
		return nil, fmt.Errorf("Extract: %w", ErrExtraction)
	}

	var parsed struct {
		Items []rawItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.log.Error().Err(err).Str("raw", string(raw)).Msg("Extraction response is not valid JSON")
		return nil, fmt.Errorf("Extract: parsing model output: %w", ErrExtraction)
	}

	items := normalizeItems(parsed.Items, s.now().Format("2006-01-02"))
	if len(items) == 0 {
		return nil, ErrNoReceipt
	}

	s.log.Info().Int("items", len(items)).Msg("Receipt extracted")
	return items, nil
}

// extractionSystemPrompt builds the system instruction for receipt
// extraction. defaultDate is today's date in the caller's locale, used
// when the source carries no date of its own.
func extractionSystemPrompt(defaultDate string) string {
	return "You are a receipt and purchase extraction assistant for a personal expense tracker.\n\n" +
		"Task:\n" +
		"- Read the attached receipt image(s) and/or the free-text purchase description.\n" +
		"- Extract every purchased item as a separate entry.\n\n" +
		"Field rules:\n" +
		"- \"merchant\": the store or vendor name, as printed.\n" +
		"- \"date\": the purchase date in YYYY-MM-DD. If the source has no date, use " + defaultDate + ".\n" +
		"- \"category\": a short spending category. Reuse common names consistently, e.g. " +
		"\"Groceries\", \"Dining\", \"Transport\", \"Entertainment\", \"Household\", \"Health\", \"Clothing\". " +
		"Prefer an existing common category over inventing a new one.\n" +
		"- \"item\": a concise description of the purchased item.\n" +
		"- \"cost\": the item price as a plain number, no currency symbols.\n\n" +
		"All items from one receipt share the same merchant and date.\n" +
		"If the input contains no purchase at all, return an empty items array."
}

// normalizeItems trims string fields, coerces cost, fills missing dates
// and categories, and drops entries missing merchant, item or cost. A
// schema constrains shape, not semantics; this pass is mandatory.
func normalizeItems(raw []rawItem, defaultDate string) []LineItem {
	items := make([]LineItem, 0, len(raw))
	for _, r := range raw {
		merchant := strings.TrimSpace(r.Merchant)
		item := strings.TrimSpace(r.Item)
		if merchant == "" || item == "" || r.Cost == nil {
			continue
		}

		date := strings.TrimSpace(r.Date)
		if date == "" {
			date = defaultDate
		}
		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = "Other"
		}

		items = append(items, LineItem{
			Merchant: merchant,
			Date:     date,
			Category: category,
			Item:     item,
			Cost:     coerceCost(r.Cost),
		})
	}
	return items
}

// coerceCost accepts a JSON number or a stringified number, defaulting to
// 0 when neither parses.
func coerceCost(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		cleaned := strings.TrimSpace(val)
		cleaned = strings.NewReplacer("$", "", "£", "", "€", "", ",", "").Replace(cleaned)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
