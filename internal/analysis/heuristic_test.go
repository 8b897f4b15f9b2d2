package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droidwrap/droidwrap/internal/models"
)

func TestHeuristicAnalyzeFromURL(t *testing.T) {
	a := NewAdapter(NewHeuristicGenerator(), nil)

	res := a.Analyze(context.Background(), "https://shop.example.com", models.InputKindURL)

	require.Equal(t, "com.example.shop", res.SuggestedPackage)
	require.Equal(t, "Shop Example Com", res.DetectedName)
	require.False(t, res.IsPWA)
	require.Contains(t, res.Permissions, "INTERNET")
}

func TestHeuristicAnalyzeFromDescription(t *testing.T) {
	a := NewAdapter(NewHeuristicGenerator(), nil)

	res := a.Analyze(context.Background(),
		"a progressive web app for photo sharing with camera and push notification support",
		models.InputKindDescription)

	require.True(t, res.IsPWA)
	require.Contains(t, res.Permissions, "CAMERA")
	require.Contains(t, res.Permissions, "POST_NOTIFICATIONS")
}

func TestHeuristicFlagsPlainHTTP(t *testing.T) {
	a := NewAdapter(NewHeuristicGenerator(), nil)

	res := a.Analyze(context.Background(), "http://example.com", models.InputKindURL)
	require.NotEmpty(t, res.SecurityWarnings)
}

func TestHeuristicReportCountsStagesAndWarnings(t *testing.T) {
	a := NewAdapter(NewHeuristicGenerator(), nil)

	report := a.Summarize(context.Background(), []string{
		"Starting build for https://example.com",
		"Fetching manifest...",
		"Compiling resources...",
		"Deprecated API usage detected in generated shim; continuing.",
		"Signing package...",
		"Build Successful!",
	})

	require.Contains(t, report, "3 stages")
	require.Contains(t, report, "1 warning")
}

func TestHeuristicReportCleanRun(t *testing.T) {
	a := NewAdapter(NewHeuristicGenerator(), nil)

	report := a.Summarize(context.Background(), []string{
		"Fetching manifest...",
		"Build Successful!",
	})

	require.Contains(t, report, "cleanly")
}
