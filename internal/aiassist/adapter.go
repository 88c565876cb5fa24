package aiassist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/pkg/errors"
	"tax-reconciliation-service/pkg/logger"
)

const systemPrompt = `You are a reconciliation assistant for Indonesian tax documents.
You receive candidate pairs of records (invoices, withholding certificates, bank transactions)
with their field values and deterministic similarity scores. For each pair, judge whether the
two records describe the same underlying transaction. Respond with JSON only, in the form
{"hints":[{"left_id":"...","right_id":"...","confidence":0.0,"rationale":"..."}]}.
Confidence is your own probability in [0,1] that the pair is a true match. Keep rationales short.`

// CompletionClient is the slice of the OpenAI client the adapter needs.
// Callers may substitute their own implementation, tests use fakes.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Adapter requests semantic matching hints for ambiguous candidate pairs
// from a chat-completion model. Hints are advisory only: any failure on
// this path leaves the pairs exactly as the deterministic scorer produced
// them.
type Adapter struct {
	config *Config
	client CompletionClient
	log    logger.Logger
}

// NewAdapter creates an adapter backed by the OpenAI API.
func NewAdapter(config *Config) (*Adapter, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client CompletionClient
	if config.Enabled {
		if config.APIKey == "" {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ai.api_key",
				"(empty)", nil).WithSuggestion("set the API key or disable AI assistance")
		}

		clientConfig := openai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			clientConfig.BaseURL = config.BaseURL
		}
		client = openai.NewClientWithConfig(clientConfig)
	}

	return &Adapter{
		config: config,
		client: client,
		log:    logger.WithComponent("aiassist"),
	}, nil
}

// NewAdapterWithClient wires a custom completion client.
func NewAdapterWithClient(config *Config, client CompletionClient) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Adapter{
		config: config,
		client: client,
		log:    logger.WithComponent("aiassist"),
	}, nil
}

// Enabled reports whether the adapter will be consulted at all.
func (a *Adapter) Enabled() bool {
	return a.config.Enabled && a.client != nil
}

// Suggest requests hints for every candidate in the ambiguous band and
// attaches them to the pairs in place. It returns the adapter errors
// encountered as diagnostics; it never fails the run. Batches that error
// out contribute no hints, which is exactly the deterministic fallback.
func (a *Adapter) Suggest(ctx context.Context, candidates []*models.CandidatePair) []*errors.ReconError {
	if !a.Enabled() {
		return nil
	}

	ambiguous := a.selectAmbiguous(candidates)
	if len(ambiguous) == 0 {
		return nil
	}

	byKey := make(map[string]*models.CandidatePair, len(ambiguous))
	for _, c := range ambiguous {
		byKey[pairKey(c.LeftID, c.RightID)] = c
	}

	var diags []*errors.ReconError
	for start := 0; start < len(ambiguous); start += a.config.BatchSize {
		end := start + a.config.BatchSize
		if end > len(ambiguous) {
			end = len(ambiguous)
		}

		hints, err := a.suggestBatch(ctx, ambiguous[start:end])
		if err != nil {
			a.log.WithError(err).Warn("hint batch failed, continuing without hints")
			diags = append(diags, err)
			continue
		}

		for _, h := range hints {
			pair, ok := byKey[pairKey(h.LeftID, h.RightID)]
			if !ok {
				continue
			}
			pair.Hint = &models.AIHint{
				Confidence: clamp01(h.Confidence),
				Rationale:  h.Rationale,
			}
		}
	}

	return diags
}

// selectAmbiguous picks the pairs inside [AmbiguousLow, AmbiguousHigh)
// and sorts them by IDs so batch composition and prompt construction are
// identical across retries.
func (a *Adapter) selectAmbiguous(candidates []*models.CandidatePair) []*models.CandidatePair {
	var out []*models.CandidatePair
	for _, c := range candidates {
		if c.Composite >= a.config.AmbiguousLow && c.Composite < a.config.AmbiguousHigh {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LeftID != out[j].LeftID {
			return out[i].LeftID < out[j].LeftID
		}
		return out[i].RightID < out[j].RightID
	})

	return out
}

// promptRecord is the projection of one record sent to the model.
type promptRecord struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Vendor    string `json:"vendor"`
	Reference string `json:"reference,omitempty"`
}

// promptPair is one candidate as serialized into the user message.
type promptPair struct {
	LeftID    string                 `json:"left_id"`
	RightID   string                 `json:"right_id"`
	Left      promptRecord           `json:"left"`
	Right     promptRecord           `json:"right"`
	Scores    models.ComponentScores `json:"deterministic_scores"`
	Composite float64                `json:"composite"`
}

// hintResponse is one entry in the model's JSON reply.
type hintResponse struct {
	LeftID     string  `json:"left_id"`
	RightID    string  `json:"right_id"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type hintsEnvelope struct {
	Hints []hintResponse `json:"hints"`
}

func (a *Adapter) suggestBatch(ctx context.Context, batch []*models.CandidatePair) ([]hintResponse, *errors.ReconError) {
	prompt, err := buildPrompt(batch)
	if err != nil {
		return nil, errors.AdapterError(errors.CodeMalformedResponse, "prompt construction", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr *errors.ReconError
	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		resp, err := a.client.CreateChatCompletion(callCtx, req)
		cancel()

		if err != nil {
			lastErr = classifyAdapterError(err)
			if lastErr.Code == errors.CodeMalformedResponse {
				break
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = errors.AdapterError(errors.CodeMalformedResponse, "hint completion",
				fmt.Errorf("response contains no choices"))
			break
		}

		var envelope hintsEnvelope
		if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &envelope); err != nil {
			lastErr = errors.AdapterError(errors.CodeMalformedResponse, "hint completion", err)
			break
		}

		return envelope.Hints, nil
	}

	return nil, lastErr
}

// buildPrompt serializes the batch deterministically: the batch arrives
// pre-sorted and json.Marshal preserves struct field order, so a retried
// call produces a byte-identical prompt.
func buildPrompt(batch []*models.CandidatePair) (string, error) {
	pairs := make([]promptPair, 0, len(batch))
	for _, c := range batch {
		pairs = append(pairs, promptPair{
			LeftID:    c.LeftID,
			RightID:   c.RightID,
			Left:      projectRecord(c.Left),
			Right:     projectRecord(c.Right),
			Scores:    c.Scores,
			Composite: c.Composite,
		})
	}

	body, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}

	return "Candidate pairs:\n" + string(body), nil
}

func projectRecord(r *models.NormalizedRecord) promptRecord {
	return promptRecord{
		Date:      r.Date.Format("2006-01-02"),
		Amount:    r.Amount.String(),
		Vendor:    r.CounterpartyName,
		Reference: r.ReferenceNumber,
	}
}

// classifyAdapterError maps transport and API failures onto the adapter
// error codes. Unknown transport failures count as timeouts: from the
// engine's perspective the hint simply never arrived.
func classifyAdapterError(err error) *errors.ReconError {
	var apiErr *openai.APIError
	if asAPIError(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return errors.AdapterError(errors.CodeRateLimited, "hint completion", err)
	}

	return errors.AdapterError(errors.CodeTimeout, "hint completion", err)
}

func asAPIError(err error, target **openai.APIError) bool {
	for err != nil {
		if e, ok := err.(*openai.APIError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func pairKey(leftID, rightID string) string {
	return leftID + "|" + rightID
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
