package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"lexcorpus/internal/capabilities"
	"lexcorpus/internal/config"
	reviewSvc "lexcorpus/internal/domain/services/review"
)

const (
	blockTypeText = "text"

	extractionMaxTokens = 1024
	answerMaxTokens     = 2048
)

// Generator is the part of llmprovider.Provider the client calls
type Generator interface {
	GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error)
}

// Client runs column extractions and table questions against one model.
// It implements reviewSvc.CellExtractor and reviewSvc.TableAnswerer.
type Client struct {
	generator  Generator
	model      string
	inputChars int
	maxOutput  int
	logger     *slog.Logger
}

// NewClient creates a client for model, sized by its capabilities
func NewClient(generator Generator, model string, caps *capabilities.ModelCapabilities, logger *slog.Logger) *Client {
	inputChars := config.MaxExtractionInputChars
	maxOutput := answerMaxTokens
	if caps != nil {
		if n := caps.InputChars(); n > 0 && n < inputChars {
			inputChars = n
		}
		if caps.MaxOutput > 0 && caps.MaxOutput < maxOutput {
			maxOutput = caps.MaxOutput
		}
	}
	return &Client{
		generator:  generator,
		model:      model,
		inputChars: inputChars,
		maxOutput:  maxOutput,
		logger:     logger,
	}
}

// ExtractCell asks the model for one column of one document
func (c *Client) ExtractCell(ctx context.Context, req *reviewSvc.ExtractionRequest) (*reviewSvc.Extraction, error) {
	text := req.Text
	if runes := []rune(text); len(runes) > c.inputChars {
		text = string(runes[:c.inputChars])
	}

	reply, err := c.complete(ctx, extractionSystemPrompt, buildExtractionPrompt(req.DocumentName, text, req.Column), min(extractionMaxTokens, c.maxOutput))
	if err != nil {
		return nil, err
	}
	extraction, err := ParseExtraction(reply, req.Column.Type)
	if err != nil {
		c.logger.Debug("unparseable extraction reply",
			"document", req.DocumentName,
			"column", req.Column.Name,
			"reply", truncate(reply, 200),
		)
		return nil, err
	}
	return extraction, nil
}

// AnswerQuestion asks the model to answer from the rendered table only
func (c *Client) AnswerQuestion(ctx context.Context, tableContext, question string) (string, error) {
	return c.complete(ctx, querySystemPrompt, buildQuestionPrompt(tableContext, question), c.maxOutput)
}

// complete sends a single user message and returns the concatenated text blocks
func (c *Client) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	temperature := 0.0
	req := &llmprovider.GenerateRequest{
		Model: c.model,
		Messages: []llmprovider.Message{
			{
				Role: "user",
				Blocks: []*llmprovider.Block{
					{BlockType: blockTypeText, TextContent: &prompt},
				},
			},
		},
		Params: &llmprovider.RequestParams{
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			System:      &system,
		},
	}

	start := time.Now()
	resp, err := c.generator.GenerateResponse(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != blockTypeText || block.TextContent == nil {
			continue
		}
		b.WriteString(*block.TextContent)
	}
	c.logger.Debug("llm call",
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"stop_reason", resp.StopReason,
		"duration", time.Since(start),
	)

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("empty response from %s", c.model)
	}
	return text, nil
}

func truncate(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}
