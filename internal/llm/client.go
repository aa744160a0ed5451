// Package llm wraps the Gemini API behind a single schema-constrained
// completion call. Everything above this package deals in validated JSON;
// raw model output never escapes it.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Image is one inline image attached to a user turn.
type Image struct {
	MIMEType string
	Data     []byte
}

// Message is one role-tagged conversation turn. Role is "user" or
// "assistant"; images are only meaningful on user turns.
type Message struct {
	Role   string
	Text   string
	Images []Image
}

// Request describes one completion call: an optional system instruction,
// the conversation so far, and the schema the response must conform to.
type Request struct {
	System   string
	Messages []Message
	Schema   *genai.Schema
}

// Completer is the capability the rest of the pipeline depends on.
// Complete returns the raw JSON bytes of a schema-conforming response.
type Completer interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// Client is the Gemini-backed Completer. API credentials come from the
// GEMINI_API_KEY environment variable, read by the genai client itself.
type Client struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// New creates a Gemini client for the given model name.
func New(ctx context.Context, model string, log zerolog.Logger) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("llm.New: create genai client: %w", err)
	}

	return &Client{client: client, model: model, log: log}, nil
}

// Complete sends the request to Gemini with a JSON response constraint and
// returns the response body after stripping any Markdown wrapping the model
// may have added despite instructions.
func (c *Client) Complete(ctx context.Context, req Request) ([]byte, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}

		parts := make([]*genai.Part, 0, len(msg.Images)+1)
		if msg.Text != "" {
			parts = append(parts, &genai.Part{Text: msg.Text})
		}
		for _, img := range msg.Images {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: img.MIMEType,
					Data:     img.Data,
				},
			})
		}
		if len(parts) == 0 {
			continue
		}

		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("llm.Complete: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("llm.Complete: empty response from model")
	}

	c.log.Debug().Int("bytes", len(rawText)).Str("model", c.model).Msg("Model response received")

	return []byte(cleanModelJSON(rawText)), nil
}

// cleanModelJSON strips Markdown code fences and stray prose around a JSON
// object, for models that ignore the response MIME type instruction.
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

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
