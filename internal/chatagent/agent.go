package chatagent

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
)

type Config struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	MaxHistory int    `yaml:"max_history"`
}

// MarketContext renders the currently cached market data for the prompt,
// so answers reflect the same snapshots the HTTP endpoints serve.
type MarketContext func() string

const fallbackAnswer = "The assistant is not available right now. " +
	"Live prices and stats are still served on the data endpoints."

const systemPrompt = `You are a market data assistant.
Answer questions about stocks, prices and market performance.
Ground your answers in the cached market data provided below; say so when a ticker is not in it.
Cached market data: `

// Agent answers free-form queries with an LLM, keeping a bounded
// in-memory conversation history. When disabled or misconfigured it
// degrades to a canned answer instead of failing the request.
type Agent struct {
	enabled        bool
	model          *openai.ChatModel
	modelName      string
	disabledReason string
	marketContext  MarketContext
	maxHistory     int

	mu      sync.Mutex
	history []*schema.Message
}

func New(cfg Config, mc MarketContext) *Agent {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if !cfg.Enabled {
		return &Agent{enabled: false, disabledReason: "disabled by config", marketContext: mc, maxHistory: maxHistory}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OPENAI_MODEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.APIKey == "" || cfg.Model == "" {
		log.Printf("chatagent disabled: missing api key or model")
		return &Agent{enabled: false, disabledReason: "api_key or model missing", marketContext: mc, maxHistory: maxHistory}
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	model, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		ByAzure:    cfg.ByAzure,
		APIVersion: cfg.APIVersion,
		Timeout:    timeout,
	})
	if err != nil {
		log.Printf("chatagent init error: %v", err)
		return &Agent{enabled: false, disabledReason: "init failed", marketContext: mc, maxHistory: maxHistory}
	}

	return &Agent{enabled: true, model: model, modelName: cfg.Model, marketContext: mc, maxHistory: maxHistory}
}

// Answer runs one conversational turn. The reply is recorded in the
// session history so follow-up questions keep their context.
func (a *Agent) Answer(ctx context.Context, query string) (string, error) {
	if !a.enabled || a.model == nil {
		return fallbackAnswer, nil
	}

	system := systemPrompt + a.renderContext()
	messages := []*schema.Message{schema.SystemMessage(system)}
	messages = append(messages, a.recentHistory()...)
	messages = append(messages, schema.UserMessage(query))

	resp, err := a.model.Generate(ctx, messages)
	if err != nil {
		logLLMError(err)
		return "", err
	}
	answer := strings.TrimSpace(resp.Content)

	a.remember(schema.UserMessage(query), schema.AssistantMessage(answer, nil))
	return answer, nil
}

func (a *Agent) renderContext() string {
	if a.marketContext == nil {
		return "none"
	}
	if s := a.marketContext(); s != "" {
		return s
	}
	return "none"
}

func (a *Agent) recentHistory() []*schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*schema.Message, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Agent) remember(msgs ...*schema.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msgs...)
	if len(a.history) > a.maxHistory {
		a.history = a.history[len(a.history)-a.maxHistory:]
	}
}

func logLLMError(err error) {
	apiErr := &openai.APIError{}
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if len(msg) > 300 {
			msg = msg[:300] + "..."
		}
		log.Printf("chatagent api error: status=%d message=%s", apiErr.HTTPStatusCode, msg)
		return
	}
	log.Printf("chatagent error: %v", err)
}
