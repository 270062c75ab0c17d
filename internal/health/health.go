// Package health probes the collaborator endpoint and the palace database.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeanpaul/loci/internal/config"
)

const (
	anthropicURL = "https://api.anthropic.com"
	googleURL    = "https://generativelanguage.googleapis.com"
)

// Status is the outcome of one probe.
type Status struct {
	Component string
	Target    string
	OK        bool
	Models    []string
	Error     string
	Latency   time.Duration
}

// Pinger is anything that can confirm its backing store is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Provider checks that the named provider answers. OpenAI-compatible
// endpoints (Ollama, vLLM, OpenAI) are asked for their model list.
func Provider(ctx context.Context, name string, p config.ProviderConfig) Status {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	start := time.Now()

	var s Status
	switch p.Type {
	case "openai":
		s = checkOpenAICompat(ctx, p.BaseURL, p.APIKey)
	case "anthropic":
		s = checkAnthropic(ctx, orDefault(p.BaseURL, anthropicURL), p.APIKey)
	case "google":
		s = checkGoogle(ctx, orDefault(p.BaseURL, googleURL), p.APIKey)
	default:
		s.Error = fmt.Sprintf("unknown provider type: %s", p.Type)
	}
	s.Component = "provider " + name
	s.Latency = time.Since(start)
	return s
}

// Store pings the database.
func Store(ctx context.Context, db Pinger, path string) Status {
	start := time.Now()
	s := Status{Component: "database", Target: path, OK: true}
	if err := db.Ping(ctx); err != nil {
		s.OK = false
		s.Error = err.Error()
	}
	s.Latency = time.Since(start)
	return s
}

// Model verifies that model is listed by an OpenAI-compatible provider.
// Other provider types, and endpoints that list nothing, pass.
func Model(ctx context.Context, p config.ProviderConfig, model string) error {
	if p.Type != "openai" || model == "" {
		return nil
	}
	status := checkOpenAICompat(ctx, p.BaseURL, p.APIKey)
	if !status.OK {
		return fmt.Errorf("provider not reachable: %s", status.Error)
	}
	if len(status.Models) == 0 {
		return nil
	}
	for _, m := range status.Models {
		if m == model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found, available: %s", model, strings.Join(status.Models, ", "))
}

// Print writes one line per status and reports whether all passed.
func Print(w io.Writer, statuses []Status) bool {
	ok := true
	for _, s := range statuses {
		mark := "✓"
		detail := s.Target
		if !s.OK {
			mark, ok = "✗", false
			detail = s.Error
		} else if len(s.Models) > 0 {
			detail = fmt.Sprintf("%s (%d models)", s.Target, len(s.Models))
		}
		fmt.Fprintf(w, "%s %-20s %s [%s]\n", mark, s.Component, detail, s.Latency.Round(time.Millisecond))
	}
	return ok
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}

func checkOpenAICompat(ctx context.Context, baseURL, apiKey string) Status {
	s := Status{Target: baseURL}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/models", nil)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach %s: %s", baseURL, friendlyError(err))
		return s
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.Error = "authentication failed, check the API key"
		return s
	case resp.StatusCode != http.StatusOK:
		s.Error = fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode)
		return s
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	s.OK = true
	// Some servers answer with non-standard JSON but still work.
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return s
	}
	for _, m := range result.Data {
		s.Models = append(s.Models, m.ID)
	}
	return s
}

func checkAnthropic(ctx context.Context, baseURL, apiKey string) Status {
	s := Status{Target: baseURL}
	if apiKey == "" {
		s.Error = "no API key configured (set ANTHROPIC_API_KEY)"
		return s
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	return finish(s, req, "Anthropic API")
}

func checkGoogle(ctx context.Context, baseURL, apiKey string) Status {
	s := Status{Target: baseURL}
	if apiKey == "" {
		s.Error = "no API key configured (set GEMINI_API_KEY)"
		return s
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1beta/models?pageSize=1", nil)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	req.Header.Set("x-goog-api-key", apiKey)
	return finish(s, req, "Google API")
}

func finish(s Status, req *http.Request, label string) Status {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach %s: %s", label, friendlyError(err))
		return s
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.Error = "invalid API key"
		return s
	}
	s.OK = true
	return s
}

func friendlyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the service running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check the URL)"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "connection timed out (service may be starting up)"
	}
	return msg
}
