// Package llm turns time reports into short written summaries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("no text content in API response")

// Client wraps the Anthropic API for report summaries.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model. An
// empty key falls back to ANTHROPIC_API_KEY.
func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{api: &client, model: anthropic.Model(model)}
}

const summarySystem = `You summarize a developer's time-tracking report.
The report is JSON. Either:
- a daily report: {"<project>": {"YYYY-MM-DD": [{"branch", "msDuration", "duration"}]}}, days most recent first, or
- a range report: {"<project>": {"msDuration", "duration"}, "startDate", "endDate"}.

Write a short plain-text summary (at most 8 lines) covering:
- total time and where most of it went, by project
- notable branches (long-running feature work, many small switches)
- days with unusually much or little time, if the report is daily

Use the "duration" strings as given, never recompute them. No markdown headings, no preamble.`

// buildSummaryPrompt returns the system and user prompts for a report.
func buildSummaryPrompt(reportJSON []byte, window string) (system, user string) {
	var sb strings.Builder
	if window != "" {
		sb.WriteString("Period: ")
		sb.WriteString(window)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Report:\n")
	sb.Write(reportJSON)
	return summarySystem, sb.String()
}

// Summarize asks the model for a short summary of the given report JSON.
// window describes the covered period for the prompt and may be empty.
func (c *Client) Summarize(ctx context.Context, reportJSON []byte, window string) (string, error) {
	system, user := buildSummaryPrompt(reportJSON, window)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", ErrEmptyResponse
}
