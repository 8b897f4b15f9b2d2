package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droidwrap/droidwrap/internal/models"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) {
	return s.text, s.err
}

func TestAnalyzeFallsBackOnError(t *testing.T) {
	a := NewAdapter(&stubGenerator{err: errors.New("connection refused")}, nil)

	res := a.Analyze(context.Background(), "https://example.com", models.InputKindURL)

	require.Equal(t, models.AnalysisResult{
		SuggestedPackage: "com.example.webapp",
		DetectedName:     "My Web App",
		IsPWA:            false,
		Permissions:      []string{"INTERNET"},
		SecurityWarnings: []string{},
	}, res)
}

func TestAnalyzeFallsBackOnMalformedJSON(t *testing.T) {
	a := NewAdapter(&stubGenerator{text: "sorry, I cannot help with that"}, nil)

	res := a.Analyze(context.Background(), "input", models.InputKindDescription)
	require.Equal(t, FallbackResult(), res)
}

func TestAnalyzeFallsBackOnSchemaViolation(t *testing.T) {
	// Valid JSON, but isPwa is missing. Partial responses never surface.
	a := NewAdapter(&stubGenerator{text: `{
		"suggestedPackage": "com.shop.app",
		"detectedName": "Shop",
		"permissions": ["INTERNET"],
		"securityWarnings": []
	}`}, nil)

	res := a.Analyze(context.Background(), "input", models.InputKindURL)
	require.Equal(t, FallbackResult(), res)
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	a := NewAdapter(&stubGenerator{text: "```json\n" + `{
		"suggestedPackage": "com.shop.app",
		"detectedName": "Shop",
		"isPwa": true,
		"permissions": ["INTERNET", "CAMERA"],
		"securityWarnings": ["Mixed content detected"]
	}` + "\n```"}, nil)

	res := a.Analyze(context.Background(), "https://shop.app", models.InputKindURL)

	require.Equal(t, "com.shop.app", res.SuggestedPackage)
	require.Equal(t, "Shop", res.DetectedName)
	require.True(t, res.IsPWA)
	require.Equal(t, []string{"INTERNET", "CAMERA"}, res.Permissions)
	require.Equal(t, []string{"Mixed content detected"}, res.SecurityWarnings)
}

func TestFallbackResultIsFresh(t *testing.T) {
	a := FallbackResult()
	a.Permissions[0] = "mutated"

	require.Equal(t, []string{"INTERNET"}, FallbackResult().Permissions)
}

func TestSummarizeFallbacks(t *testing.T) {
	ctx := context.Background()
	messages := []string{"Build Successful!"}

	t.Run("error resolves to the failure text", func(t *testing.T) {
		a := NewAdapter(&stubGenerator{err: errors.New("timeout")}, nil)
		require.Equal(t, FallbackReportFailed, a.Summarize(ctx, messages))
	})

	t.Run("empty success resolves to the unavailable text", func(t *testing.T) {
		a := NewAdapter(&stubGenerator{text: "   \n"}, nil)
		require.Equal(t, FallbackReportUnavailable, a.Summarize(ctx, messages))
	})

	t.Run("non-empty text passes through", func(t *testing.T) {
		a := NewAdapter(&stubGenerator{text: "All good."}, nil)
		require.Equal(t, "All good.", a.Summarize(ctx, messages))
	})
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                    `{"a":1}`,
		"```json\n{\"a\":1}\n```":    `{"a":1}`,
		"```\n{\"a\":1}\n```":        `{"a":1}`,
		"  \n```json\n{\"a\":1}```":  `{"a":1}`,
	}
	for in, want := range cases {
		require.Equal(t, want, stripFences(in))
	}
}
