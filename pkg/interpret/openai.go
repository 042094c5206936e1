package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/porter/pkg/extract"
	"github.com/entrhq/porter/pkg/logging"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxPromptTokens bounds the fragment handed to the model.
	// An oversized fragment fails closed rather than being truncated
	// silently into a half-read page.
	DefaultMaxPromptTokens = 60000

	tokenEncoding = "cl100k_base"

	systemPrompt = `You are given an HTML fragment from a booking account page.
Extract every booking it contains and respond with a JSON array of objects,
one per booking, using lower_snake_case keys for whatever fields the fragment
provides (e.g. date, start_time, end_time, location, status). Respond with the
JSON array only, no prose. Respond with [] if the fragment contains no
bookings.`
)

// OpenAI is the production Interpreter: one blocking chat completion against
// an OpenAI-compatible API, with bounded HTTP retries underneath.
type OpenAI struct {
	client          openai.Client
	model           string
	maxPromptTokens int
	countTokens     func(string) (int, error)
	log             *logging.Logger
}

// Option configures the OpenAI interpreter.
type Option func(*OpenAI)

// WithModel sets the model used for interpretation.
func WithModel(model string) Option {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxPromptTokens sets the fragment token budget.
func WithMaxPromptTokens(n int) Option {
	return func(o *OpenAI) {
		if n > 0 {
			o.maxPromptTokens = n
		}
	}
}

// WithLogger attaches a component logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *OpenAI) {
		o.log = log
	}
}

// withTokenCounter overrides the token counter. Used by tests to avoid the
// encoding download.
func withTokenCounter(fn func(string) (int, error)) Option {
	return func(o *OpenAI) {
		o.countTokens = fn
	}
}

// NewOpenAI creates the interpreter. If apiKey is empty, OPENAI_API_KEY is
// used; OPENAI_BASE_URL, when set, points the client at a compatible API.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("interpreter API key is required (OPENAI_API_KEY)")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.Logger = nil

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(retryClient.StandardClient()),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	o := &OpenAI{
		client:          openai.NewClient(clientOpts...),
		model:           DefaultModel,
		maxPromptTokens: DefaultMaxPromptTokens,
		countTokens:     tiktokenCount,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Interpret sends the cleaned fragment to the model and parses the response
// as a JSON array of records. Every failure path returns an error; no
// records are synthesized.
func (o *OpenAI) Interpret(ctx context.Context, result *extract.Result) ([]Record, error) {
	tokens, err := o.countTokens(result.Content)
	if err != nil {
		return nil, fmt.Errorf("token count failed: %w", err)
	}
	if tokens > o.maxPromptTokens {
		return nil, fmt.Errorf("fragment too large for interpretation: %d tokens (budget %d, method %s)",
			tokens, o.maxPromptTokens, result.Method)
	}
	o.debugf("interpreting %d-token fragment from %s", tokens, result.Method)

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(result.Content),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("interpretation request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("interpretation returned no choices")
	}

	records, err := parseRecords(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	o.debugf("interpreted %d records", len(records))
	return records, nil
}

// parseRecords decodes the model response as a JSON array of objects.
// Responses wrapped in markdown code fences are unfenced first.
func parseRecords(response string) ([]Record, error) {
	payload := unfence(response)

	var records []Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("interpretation response is not a JSON array: %w", err)
	}
	return records, nil
}

// unfence strips a surrounding markdown code fence, with or without a
// language tag.
func unfence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func tiktokenCount(s string) (int, error) {
	encoding, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return 0, err
	}
	return len(encoding.Encode(s, nil, nil)), nil
}

func (o *OpenAI) debugf(format string, v ...interface{}) {
	if o.log != nil {
		o.log.Debugf(format, v...)
	}
}
