// Package llm implements a coordination participant backed by an
// OpenAI-compatible chat completion endpoint, such as a LiteLLM proxy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/port/participant"
	"github.com/Ramsi-K/EdgeMind/internal/resilience"
)

func init() {
	participant.Register("llm", func(name string, options map[string]string) (participant.Participant, error) {
		url := options["url"]
		if url == "" {
			return nil, fmt.Errorf("llm participant %q: missing url option", name)
		}
		model := options["model"]
		if model == "" {
			model = "gpt-4o-mini"
		}
		return New(name, url, options["api_key"], model), nil
	})
}

const systemPrompt = `You are a site selection advisor for an edge computing swarm.
Given a threshold breach and a list of candidate sites with load scores
(0 = idle, 1 = saturated), pick the best site to take over traffic.
Respond with JSON only: {"site": "<id>", "confidence": <0..1>, "reasoning": "<short>"}`

// Participant asks a chat model which candidate site should take over.
type Participant struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// New creates an LLM-backed participant.
func New(name, baseURL, apiKey, model string) *Participant {
	return &Participant{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (p *Participant) SetBreaker(b *resilience.Breaker) {
	p.breaker = b
}

func (p *Participant) Name() string { return p.name }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type voteReply struct {
	Site       string  `json:"site"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Vote prompts the model with the breach context and candidate load
// scores and parses its JSON answer. A reply naming an unknown site or
// malformed JSON is an error; the coordinator discards the vote.
func (p *Participant) Vote(ctx context.Context, req participant.Request) (participant.Vote, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return participant.Vote{}, fmt.Errorf("marshal chat request: %w", err)
	}

	data, err := p.doRequest(ctx, "/v1/chat/completions", body)
	if err != nil {
		return participant.Vote{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return participant.Vote{}, fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return participant.Vote{}, fmt.Errorf("chat response had no choices")
	}

	reply, err := parseVote(resp.Choices[0].Message.Content)
	if err != nil {
		return participant.Vote{}, err
	}
	return participant.Vote{
		Site:       reply.Site,
		Confidence: reply.Confidence,
		Reasoning:  reply.Reasoning,
	}, nil
}

func buildPrompt(req participant.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Breach at site %s: %s = %.2f (threshold %.2f, severity %s).\n",
		req.Site, req.Metric, req.Value, req.Threshold, req.Severity)
	b.WriteString("Candidate sites:\n")

	candidates := make([]string, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		candidates = append(candidates, fmt.Sprintf("- %s: load %.2f", c.SiteID, c.LoadScore))
	}
	sort.Strings(candidates)
	b.WriteString(strings.Join(candidates, "\n"))
	return b.String()
}

// parseVote extracts the JSON object from the model's reply, tolerating
// surrounding prose or markdown fences.
func parseVote(content string) (voteReply, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return voteReply{}, fmt.Errorf("no JSON object in model reply")
	}

	var reply voteReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return voteReply{}, fmt.Errorf("unmarshal vote reply: %w", err)
	}
	if reply.Site == "" {
		return voteReply{}, fmt.Errorf("model reply named no site")
	}
	return reply, nil
}

func (p *Participant) doRequest(ctx context.Context, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("llm API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if p.breaker != nil {
		if err := p.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
