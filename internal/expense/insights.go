package expense

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"spendsheet/internal/llm"
	"spendsheet/internal/sheetstore"
)

const (
	// insightContextRange bounds how many stored rows feed the Q&A prompt.
	insightContextRange = sheetstore.TransactionsSheet + "!A2:E101"

	// insightHistoryLimit bounds how many prior turns are replayed.
	insightHistoryLimit = 10

	// defaultInsightContent replaces an empty model answer.
	defaultInsightContent = "I couldn't come up with an answer to that. Try asking something else about your spending."
)

var insightSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"content": {Type: genai.TypeString, Description: "The answer, in Markdown"},
		"chart": {
			Type:        genai.TypeObject,
			Description: "Optional chart backing the answer",
			Properties: map[string]*genai.Schema{
				"type": {Type: genai.TypeString, Enum: []string{"bar", "line"}},
				"data": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"name":  {Type: genai.TypeString},
							"value": {Type: genai.TypeNumber},
						},
						Required: []string{"name", "value"},
					},
				},
			},
			Required: []string{"type", "data"},
		},
		"suggestedPrompts": {
			Type:        genai.TypeArray,
			Description: "Up to three follow-up questions the user might ask next",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"content"},
}

// Ask answers a natural-language question about the stored transactions.
// Transaction context is best-effort: if the sheet cannot be read the
// question still goes to the model, since generic spending questions can
// be answered without it.
func (s *Service) Ask(ctx context.Context, spreadsheetID, question string, history []ChatEntry) (Insight, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Insight{}, fmt.Errorf("Ask: %w", ErrNoInput)
	}

	messages := make([]llm.Message, 0, insightHistoryLimit+2)

	rows, err := s.store.Read(ctx, spreadsheetID, insightContextRange)
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not read transactions for Q&A context, answering without it")
	} else if block := transactionContext(rows); block != "" {
		messages = append(messages, llm.Message{Role: "user", Text: block})
	}

	if len(history) > insightHistoryLimit {
		history = history[len(history)-insightHistoryLimit:]
	}
	for _, h := range history {
		messages = append(messages, llm.Message{Role: h.Role, Text: h.Message})
	}

	messages = append(messages, llm.Message{Role: "user", Text: question})

	raw, err := s.llm.Complete(ctx, llm.Request{
		System:   insightSystemPrompt(),
		Messages: messages,
		Schema:   insightSchema,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Insight model call failed")
		return Insight{}, fmt.Errorf("Ask: %w", ErrProviderUnavailable)
	}

	var insight Insight
	if err := json.Unmarshal(raw, &insight); err != nil {
		s.log.Error().Err(err).Str("raw", string(raw)).Msg("Insight response is not valid JSON")
		return Insight{}, fmt.Errorf("Ask: parsing model output: %w", ErrProviderUnavailable)
	}

	if strings.TrimSpace(insight.Content) == "" {
		insight.Content = defaultInsightContent
	}
	if insight.Chart != nil && len(insight.Chart.Data) == 0 {
		insight.Chart = nil
	}

	return insight, nil
}

func insightSystemPrompt() string {
	return "You are a personal spending assistant. The user's transaction history, " +
		"when available, is provided as a table of merchant, date, category, item and cost.\n\n" +
		"Answer the user's question about their spending concisely, in Markdown.\n" +
		"When a breakdown or trend would help, include a chart: \"bar\" for comparisons " +
		"across categories or merchants, \"line\" for values over time.\n" +
		"Suggest up to three short follow-up questions when natural ones exist.\n" +
		"If the history does not contain the answer, say so rather than inventing numbers."
}

// transactionContext renders stored rows into a compact table for the
// prompt, resolving merged-cell blanks the same way the reader does.
func transactionContext(rows [][]interface{}) string {
	txs := parseTransactions(rows)
	if len(txs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("My transaction history (merchant | date | category | item | cost):\n")
	for _, tx := range txs {
		for _, it := range tx.Items {
			fmt.Fprintf(&b, "%s | %s | %s | %s | %.2f\n", it.Merchant, normalizeDate(it.Date), it.Category, it.Item, it.Cost)
		}
	}
	return b.String()
}
