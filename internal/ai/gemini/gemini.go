// Package gemini implements the ai ports against the Google Generative
// Language API.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bakano/internal/ai"

	genai "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

const DefaultModel = "models/gemini-1.5-flash"

type Client struct {
	svc   *genai.Service
	model string
}

// Ensure interface conformance
var (
	_ ai.NameExtractor   = (*Client)(nil)
	_ ai.ReportExtractor = (*Client)(nil)
	_ ai.AbsenceReporter = (*Client)(nil)
)

// New creates a client authenticated with an API key. An empty model
// selects DefaultModel.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing gemini api key")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	svc, err := genai.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("generativelanguage service: %w", err)
	}
	return &Client{svc: svc, model: model}, nil
}

const namesPrompt = `You are an assistant for a pool class attendance tracker.
The attached document contains a list of student names (it may be a photo of a
handwritten roster or a printed list). Extract every student name you can read.
Respond with JSON only, in this exact shape:
{"students": ["Full Name", ...]}
If the document contains no student names, respond with {"students": []}.`

func (c *Client) ExtractNames(ctx context.Context, req ai.ExtractRequest) ([]string, error) {
	raw, err := c.generate(ctx, namesPrompt, &req)
	if err != nil {
		return nil, err
	}
	names, err := parseNames(raw)
	if err != nil {
		slog.Error("gemini names response unparseable", "error", err)
		return nil, ai.ErrExtractionFailed
	}
	if len(names) == 0 {
		return nil, ai.ErrNoStudentsFound
	}
	return names, nil
}

const reportPrompt = `You are an assistant for a pool class attendance tracker.
The attached document is a printed monthly attendance and payment report. It
contains one or more groups; each group has students with per-date attendance
marks (P for present, A for absent, blank for unmarked) and a monthly payment
status (paid or unpaid).
Respond with JSON only, in this exact shape:
{"groups": [{"name": "...", "students": [{"name": "...",
"attendance": {"yyyy-MM-dd": "present" | "absent", ...},
"payments": {"yyyy-MM": "paid" | "unpaid", ...}}]}]}
Omit attendance entries for blank cells. If nothing can be read, respond with
{"groups": []}.`

func (c *Client) ExtractReport(ctx context.Context, req ai.ExtractRequest) (ai.ExtractedReport, error) {
	raw, err := c.generate(ctx, reportPrompt, &req)
	if err != nil {
		return ai.ExtractedReport{}, err
	}
	report, err := parseReport(raw)
	if err != nil {
		slog.Error("gemini report response unparseable", "error", err)
		return ai.ExtractedReport{}, ai.ErrExtractionFailed
	}
	if countStudents(report) == 0 {
		return ai.ExtractedReport{}, ai.ErrNoStudentsFound
	}
	return report, nil
}

const absencePrompt = `You are an assistant for a pool class attendance tracker.
Below is JSON data listing students and the dates they were absent within a
reporting period. Write a short narrative summary of the absence situation for
the class organizer, in the same language as the student names, and a few
practical recommendations.
Respond with JSON only, in this exact shape:
{"reportSummary": "...", "recommendations": ["...", ...]}

Data:
`

func (c *Client) GenerateAbsenceReport(ctx context.Context, req ai.AbsenceReportRequest) (ai.AbsenceReport, error) {
	payload, err := encodeAbsenceRequest(req)
	if err != nil {
		return ai.AbsenceReport{}, fmt.Errorf("encode absence request: %w", err)
	}
	raw, err := c.generate(ctx, absencePrompt+payload, nil)
	if err != nil {
		return ai.AbsenceReport{}, err
	}
	report, err := parseAbsenceReport(raw)
	if err != nil {
		slog.Error("gemini absence response unparseable", "error", err)
		return ai.AbsenceReport{}, ai.ErrExtractionFailed
	}
	return report, nil
}

// generate sends one user turn, optionally with an attached document,
// and returns the text of the first candidate.
func (c *Client) generate(ctx context.Context, prompt string, doc *ai.ExtractRequest) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if doc != nil {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MimeType: doc.MediaType,
			Data:     base64.StdEncoding.EncodeToString(doc.Data),
		}})
	}
	resp, err := c.svc.Models.GenerateContent(c.model, &genai.GenerateContentRequest{
		Contents: []*genai.Content{{Role: "user", Parts: parts}},
		GenerationConfig: &genai.GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}).Context(ctx).Do()
	if err != nil {
		slog.Error("gemini generate failed", "model", c.model, "error", err)
		return "", ai.ErrExtractionFailed
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	slog.Error("gemini returned no candidates", "model", c.model)
	return "", ai.ErrExtractionFailed
}
