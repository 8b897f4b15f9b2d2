package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// HeuristicGenerator is an offline, deterministic backend used when no API
// key is configured. It keeps the wizard fully functional in development:
// analysis prompts get a best-effort JSON answer derived from the input,
// report prompts get a short composed summary.
type HeuristicGenerator struct{}

// NewHeuristicGenerator returns the offline backend.
func NewHeuristicGenerator() *HeuristicGenerator {
	return &HeuristicGenerator{}
}

// Generate answers the two prompt shapes the adapter produces.
func (g *HeuristicGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, analysisInstruction) {
		return g.analyze(prompt), nil
	}
	return g.report(prompt), nil
}

func (g *HeuristicGenerator) analyze(prompt string) string {
	input := promptInput(prompt)
	lower := strings.ToLower(input)

	pkg := "com.example.webapp"
	name := "My Web App"
	if host := hostOf(input); host != "" {
		pkg = reverseDomain(host)
		name = properName(strings.TrimPrefix(host, "www."))
	} else if fields := strings.Fields(input); len(fields) > 0 {
		n := fields
		if len(n) > 3 {
			n = n[:3]
		}
		name = properName(strings.Join(n, " "))
	}

	isPwa := strings.Contains(lower, "pwa") ||
		strings.Contains(lower, "service worker") ||
		strings.Contains(lower, "progressive web")

	permissions := []string{"INTERNET"}
	if strings.Contains(lower, "camera") {
		permissions = append(permissions, "CAMERA")
	}
	if strings.Contains(lower, "location") || strings.Contains(lower, "map") {
		permissions = append(permissions, "ACCESS_FINE_LOCATION")
	}
	if strings.Contains(lower, "notification") || strings.Contains(lower, "push") {
		permissions = append(permissions, "POST_NOTIFICATIONS")
	}

	warnings := []string{}
	if strings.HasPrefix(lower, "http://") {
		warnings = append(warnings, "Start URL is not served over HTTPS")
	}

	out, _ := json.Marshal(map[string]any{
		"suggestedPackage": pkg,
		"detectedName":     name,
		"isPwa":            isPwa,
		"permissions":      permissions,
		"securityWarnings": warnings,
	})
	return string(out)
}

func (g *HeuristicGenerator) report(prompt string) string {
	lines := strings.Split(prompt, "\n")
	var steps, warns int
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasSuffix(l, "...") {
			steps++
		}
		if strings.Contains(l, "continuing.") {
			warns++
		}
	}
	if warns > 0 {
		return fmt.Sprintf("Build finished across %d stages with %d warning(s). "+
			"Review the console output before distributing the package.", steps, warns)
	}
	return fmt.Sprintf("Build finished cleanly across %d stages. "+
		"The generated package is ready for testing on a device.", steps)
}

// promptInput extracts the user input section from an analysis prompt.
func promptInput(prompt string) string {
	_, after, ok := strings.Cut(prompt, "Input:\n")
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}

func hostOf(input string) string {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// reverseDomain turns app.example.com into com.example.app.
func reverseDomain(host string) string {
	parts := strings.Split(strings.TrimPrefix(host, "www."), ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	for i, p := range parts {
		parts[i] = strings.Map(keepPackageChar, strings.ToLower(p))
	}
	return strings.Join(parts, ".")
}

func keepPackageChar(r rune) rune {
	if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
		return r
	}
	return -1
}

func properName(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_' || r == ' '
	})
	for i, f := range fields {
		if f == "" {
			continue
		}
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
