package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TextGenerator turns a prompt into free text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: client.GenerativeModel(model)}, nil
}

func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

type Topic struct {
	Title    string
	Category string
}

var topicPool = []struct {
	category string
	ideas    []string
}{
	{"no-shows", []string{
		"How to reduce patient no-shows in your PT clinic",
		"The real cost of no-shows for physical therapy practices",
		"Why patients skip their PT appointments and how to prevent it",
	}},
	{"retention", []string{
		"Getting patients to complete their full plan of care",
		"Patient retention strategies for sports PT clinics",
		"Why patients quit physical therapy early",
	}},
	{"reactivation", []string{
		"How to reactivate lapsed PT patients",
		"The hidden revenue in your dormant patient list",
	}},
	{"revenue", []string{
		"Maximizing revenue per patient in sports PT",
		"The math behind completed plans of care",
	}},
	{"operations", []string{
		"Automating patient communication in your PT practice",
		"Building systems that scale your PT clinic",
	}},
}

// Pipeline runs the research, write, validate and proofread passes. Only the
// write pass is required; the others fall back to their input.
type Pipeline struct {
	LLM  TextGenerator
	Log  *zap.Logger
	Intn func(n int) int
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func (p *Pipeline) intn(n int) int {
	if p.Intn != nil {
		return p.Intn(n)
	}
	return rand.Intn(n)
}

// PickTopic titles idea, or a random idea from the pool when idea is empty.
func (p *Pipeline) PickTopic(ctx context.Context, idea string) Topic {
	category := "custom"
	if idea == "" {
		group := topicPool[p.intn(len(topicPool))]
		category = group.category
		idea = group.ideas[p.intn(len(group.ideas))]
	}

	title, err := p.LLM.GenerateText(ctx, fmt.Sprintf(titlePrompt, idea))
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if err != nil || title == "" {
		p.logger().Warn("topic titling failed, using idea as title", zap.Error(err))
		title = idea
	}
	return Topic{Title: title, Category: category}
}

type draftJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
}

func (d draftJSON) valid() bool {
	return d.Title != "" && d.Content != ""
}

func (p *Pipeline) Draft(ctx context.Context, topic Topic) (*Post, error) {
	research := p.research(ctx, topic)

	text, err := p.LLM.GenerateText(ctx, fmt.Sprintf(writePrompt, topic.Title, research))
	if err != nil {
		return nil, fmt.Errorf("write pass: %w", err)
	}
	var draft draftJSON
	if err := decodeJSON(text, &draft); err != nil {
		return nil, fmt.Errorf("decode write pass: %w", err)
	}
	if !draft.valid() {
		return nil, errors.New("write pass returned a post without title or content")
	}

	draft = p.refine(ctx, "validate", fmt.Sprintf(validatePrompt, draft.Title, draft.Description, strings.Join(draft.Tags, ", "), draft.Content), draft)
	draft = p.refine(ctx, "proofread", fmt.Sprintf(proofreadPrompt, draft.Title, draft.Description, draft.Content), draft)

	return &Post{
		Slug:        Slugify(draft.Title),
		Title:       draft.Title,
		Description: draft.Description,
		Tags:        draft.Tags,
		Category:    topic.Category,
		Markdown:    draft.Content,
		Status:      StatusDraft,
	}, nil
}

func (p *Pipeline) research(ctx context.Context, topic Topic) string {
	text, err := p.LLM.GenerateText(ctx, fmt.Sprintf(researchPrompt, topic.Title, topic.Category))
	if err != nil {
		p.logger().Warn("research pass failed, using conservative defaults", zap.Error(err))
		return defaultResearch
	}
	var research map[string]any
	if err := decodeJSON(text, &research); err != nil {
		p.logger().Warn("research pass returned non-JSON, using conservative defaults")
		return defaultResearch
	}
	b, _ := json.MarshalIndent(research, "", "  ")
	return string(b)
}

// refine runs one optional editing pass and keeps fields the model left empty.
func (p *Pipeline) refine(ctx context.Context, pass, prompt string, in draftJSON) draftJSON {
	text, err := p.LLM.GenerateText(ctx, prompt)
	if err != nil {
		p.logger().Warn("editing pass failed, keeping previous draft", zap.String("pass", pass), zap.Error(err))
		return in
	}
	var out draftJSON
	if err := decodeJSON(text, &out); err != nil || !out.valid() {
		p.logger().Warn("editing pass returned no usable post, keeping previous draft", zap.String("pass", pass))
		return in
	}
	if out.Description == "" {
		out.Description = in.Description
	}
	if len(out.Tags) == 0 {
		out.Tags = in.Tags
	}
	return out
}

// decodeJSON reads the outermost JSON object embedded in model output.
func decodeJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}

const defaultResearch = `{
  "verified_statistics": [],
  "industry_benchmarks": {
    "typical_no_show_rate": "10-20%",
    "realistic_improvement": "15-25% over 3-6 months",
    "average_session_value": "$100-150"
  },
  "safe_claims": [
    "No-show rates vary by practice but commonly range from 10-20%",
    "Consistent reminder systems can help reduce missed appointments"
  ],
  "claims_to_avoid": [
    "Specific percentage guarantees",
    "Timeframes shorter than 60 days"
  ],
  "recommended_framing": "Use conservative language such as 'can help reduce'"
}`

const titlePrompt = `You write for a consultancy that helps sports and orthopedic physical therapy clinics grow through patient retention systems.

Turn this idea into one specific, SEO-friendly blog title of 60-70 characters that a clinic owner would click: "%s"

Reply with the title only.`

const researchPrompt = `You are a healthcare research analyst. Gather statistics a physical therapy clinic blog post can cite safely.

Topic: "%s"
Category: %s

Only include figures that trace back to a named organization (APTA, MGMA, CMS, peer-reviewed journals). Use ranges when exact figures are unknown and never invent numbers.

Reply with JSON only:
{"verified_statistics": [{"stat": "", "source": "", "confidence": "high|medium|low"}], "industry_benchmarks": {}, "safe_claims": [], "claims_to_avoid": [], "recommended_framing": ""}`

const writePrompt = `You write for Wiebe Consulting, which builds done-for-you patient retention systems for sports and orthopedic PT clinics.

Write a 1,000-1,500 word blog post titled "%s".

Use only these research notes for numbers and claims:
%s

Structure it with ## and ### headings, practical advice, realistic clinic scenarios and a clear takeaway. Keep the tone professional and approachable and mention the consultancy only in passing.

Reply with JSON only:
{"title": "", "description": "150-160 character meta description", "content": "markdown body", "tags": []}`

const validatePrompt = `You are a senior editor and SEO specialist. Improve this post for PT clinic owners: 50-60 character title with the main keyword, 150-160 character meta description, keyword-bearing headings, conservative and defensible statistics, clean grammar and a strong closing takeaway.

Title: "%s"
Description: "%s"
Tags: %s

%s

Reply with JSON only:
{"title": "", "description": "", "content": "", "tags": []}`

const proofreadPrompt = `You are a proofreader. Fix any remaining grammar, spelling, punctuation, spacing and formatting problems in this post without changing its meaning.

Title: "%s"
Description: "%s"

%s

Reply with JSON only:
{"title": "", "description": "", "content": ""}`
