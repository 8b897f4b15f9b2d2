// Package analysis is the boundary to the generative-text service that
// enriches the wizard: app analysis before configuration and the build
// report after a run. Both operations fail open to deterministic fallback
// values; nothing here is correctness-bearing for the pipeline itself.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/droidwrap/droidwrap/internal/metrics"
	"github.com/droidwrap/droidwrap/internal/models"
)

// Fallback report texts. The "unavailable" variant is used specifically
// when the call succeeds but returns no text.
const (
	FallbackReportFailed      = "Build completed. See raw logs for details."
	FallbackReportUnavailable = "Build completed successfully (Report unavailable)."
)

// ErrSchemaViolation is returned when a response decodes but is missing
// required fields. Any violation is total failure, never partial recovery.
var ErrSchemaViolation = errors.New("analysis response violates schema")

// FallbackResult returns the fixed analysis fallback. A fresh value is
// returned each call so callers can never share or mutate the slices.
func FallbackResult() models.AnalysisResult {
	return models.AnalysisResult{
		SuggestedPackage: "com.example.webapp",
		DetectedName:     "My Web App",
		IsPWA:            false,
		Permissions:      []string{"INTERNET"},
		SecurityWarnings: []string{},
	}
}

// TextGenerator is the raw generative backend: one prompt in, one text out.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Adapter wraps a TextGenerator with the wizard's fail-open semantics.
type Adapter struct {
	gen    TextGenerator
	logger *slog.Logger
}

// NewAdapter creates an adapter over the given backend.
func NewAdapter(gen TextGenerator, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{gen: gen, logger: logger.With("component", "analysis")}
}

// Analyze inspects the user's input description and returns structured
// suggestions for the build configuration. Any error, malformed response,
// or schema violation yields the fixed fallback result.
func (a *Adapter) Analyze(ctx context.Context, input string, kind models.InputKind) models.AnalysisResult {
	raw, err := a.gen.Generate(ctx, analysisPrompt(input, kind))
	if err != nil {
		a.logger.Warn("analysis call failed, using fallback", "error", err)
		metrics.AnalysisFallbacks.Inc()
		return FallbackResult()
	}

	res, err := parseAnalysis(raw)
	if err != nil {
		a.logger.Warn("analysis response unusable, using fallback", "error", err)
		metrics.AnalysisFallbacks.Inc()
		return FallbackResult()
	}
	return res
}

// Summarize turns the trailing log messages into the build report text.
// Errors resolve to the generic failure fallback; an empty response from a
// successful call resolves to the "unavailable" fallback.
func (a *Adapter) Summarize(ctx context.Context, messages []string) string {
	raw, err := a.gen.Generate(ctx, reportPrompt(messages))
	if err != nil {
		a.logger.Warn("report call failed, using fallback", "error", err)
		metrics.AnalysisFallbacks.Inc()
		return FallbackReportFailed
	}
	if strings.TrimSpace(raw) == "" {
		a.logger.Warn("report call returned no text, using fallback")
		metrics.AnalysisFallbacks.Inc()
		return FallbackReportUnavailable
	}
	return raw
}

const analysisInstruction = "Respond with a single JSON object with exactly these fields: " +
	`"suggestedPackage" (string, reverse-domain Android package id), ` +
	`"detectedName" (string, short app display name), ` +
	`"isPwa" (boolean), ` +
	`"permissions" (array of Android permission name strings), ` +
	`"securityWarnings" (array of strings). No other text.`

func analysisPrompt(input string, kind models.InputKind) string {
	var b strings.Builder
	b.WriteString("You analyze web applications ahead of packaging them as Android apps.\n")
	b.WriteString(analysisInstruction)
	b.WriteString("\n\nInput kind: ")
	b.WriteString(string(kind))
	b.WriteString("\nInput:\n")
	b.WriteString(input)
	return b.String()
}

func reportPrompt(messages []string) string {
	var b strings.Builder
	b.WriteString("Summarize the tail of this simulated Android packaging log as a short, ")
	b.WriteString("friendly build report for the user. Plain text with simple markup only.\n\n")
	b.WriteString(strings.Join(messages, "\n"))
	return b.String()
}

// analysisPayload mirrors the required response schema. Pointer fields let
// a missing key be told apart from a zero value.
type analysisPayload struct {
	SuggestedPackage *string   `json:"suggestedPackage"`
	DetectedName     *string   `json:"detectedName"`
	IsPWA            *bool     `json:"isPwa"`
	Permissions      *[]string `json:"permissions"`
	SecurityWarnings *[]string `json:"securityWarnings"`
}

// parseAnalysis decodes a model response, tolerating markdown code fences
// around the JSON body.
func parseAnalysis(raw string) (models.AnalysisResult, error) {
	body := stripFences(raw)

	var p analysisPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("decoding analysis response: %w", err)
	}
	if p.SuggestedPackage == nil || p.DetectedName == nil || p.IsPWA == nil ||
		p.Permissions == nil || p.SecurityWarnings == nil {
		return models.AnalysisResult{}, ErrSchemaViolation
	}

	return models.AnalysisResult{
		SuggestedPackage: *p.SuggestedPackage,
		DetectedName:     *p.DetectedName,
		IsPWA:            *p.IsPWA,
		Permissions:      *p.Permissions,
		SecurityWarnings: *p.SecurityWarnings,
	}, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
