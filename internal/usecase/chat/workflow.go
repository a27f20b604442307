package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/usecase/rag"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Step string

const (
	StepStart            Step = "START"
	StepAnalyzeIntent    Step = "ANALYZE_INTENT"
	StepRetrieveContext  Step = "RETRIEVE_CONTEXT"
	StepGenerateResponse Step = "GENERATE_RESPONSE"
	StepValidateResponse Step = "VALIDATE_RESPONSE"
	StepEnd              Step = "END"
)

// Steps is the fixed order every chat turn runs through
var Steps = []Step{
	StepStart,
	StepAnalyzeIntent,
	StepRetrieveContext,
	StepGenerateResponse,
	StepValidateResponse,
	StepEnd,
}

type Intent string

const (
	IntentSearchNeeded Intent = "SEARCH_NEEDED"
	IntentGeneralChat  Intent = "GENERAL_CHAT"
)

// Scratch keys kept between turns of a session
const (
	ScratchLastIntent  = "last_intent"
	ScratchLastSources = "last_sources"
)

const (
	defaultRetrievalTopK = 5

	fallbackAnswer = "I'm sorry, I couldn't produce an answer to that. Could you rephrase the question?"

	systemPrompt = "You are a helpful AI assistant. Use the conversation so far and, when provided, " +
		"the retrieved context to answer the user's latest message accurately and concisely."

	intentPromptTemplate = `Classify the user's message. Answer with exactly one tag:
[SEARCH_NEEDED] if answering requires looking up information in the document knowledge base,
[GENERAL_CHAT] if it is small talk or can be answered from the conversation alone.

Message: %s

Tag:`

	validationPromptTemplate = `Check whether the answer below adequately responds to the question.
Reply with exactly one word: VALID or INVALID.

Question: %s

Answer: %s

Verdict:`
)

type WorkflowConfig struct {
	RetrievalTopK int
	WindowSize    int
	Validate      bool
}

// turn is the state threaded through the steps of one Process call
type turn struct {
	sessionID string
	message   string
	useRAG    bool
	intent    Intent
	retrieved *entity.RetrievedContext
	answer    string
}

// Workflow runs one chat turn through the ordered steps, keeping history in the SessionStore
type Workflow struct {
	store     SessionStore
	retriever Retriever
	generator Generator
	cfg       WorkflowConfig
}

func NewWorkflow(store SessionStore, retriever Retriever, generator Generator, cfg WorkflowConfig) *Workflow {
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = defaultRetrievalTopK
	}
	return &Workflow{
		store:     store,
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
	}
}

// Process runs the steps in order. Only generation failures abort the turn; intent,
// retrieval and validation problems degrade.
func (w *Workflow) Process(ctx context.Context, sessionID, message string, useRAG bool) (*entity.ChatResponse, error) {
	started := time.Now()
	t := &turn{sessionID: sessionID, message: message, useRAG: useRAG}

	for _, step := range Steps {
		if err := w.run(ctx, step, t); err != nil {
			return nil, fmt.Errorf("step %s: %w", step, err)
		}
	}

	resp := &entity.ChatResponse{
		SessionID:      sessionID,
		Response:       t.answer,
		Intent:         string(t.intent),
		ResponseTimeMs: time.Since(started).Milliseconds(),
	}
	if t.retrieved != nil {
		resp.Sources = t.retrieved.Sources
	}
	return resp, nil
}

func (w *Workflow) run(ctx context.Context, step Step, t *turn) error {
	ctxzap.Debug(ctx, "chat step", zap.String("step", string(step)))

	switch step {
	case StepStart:
		w.store.AddMessage(t.sessionID, entity.RoleUser, t.message, nil)
	case StepAnalyzeIntent:
		t.intent = w.analyzeIntent(ctx, t.message)
		w.store.SetScratch(t.sessionID, ScratchLastIntent, string(t.intent))
	case StepRetrieveContext:
		if t.useRAG && t.intent == IntentSearchNeeded {
			t.retrieved = w.retrieve(ctx, t.message)
		}
	case StepGenerateResponse:
		answer, err := w.generate(ctx, t)
		if err != nil {
			return err
		}
		t.answer = answer
	case StepValidateResponse:
		if w.cfg.Validate && !w.validate(ctx, t.message, t.answer) {
			ctxzap.Info(ctx, "answer rejected by validation, regenerating")
			answer, err := w.generate(ctx, t)
			if err != nil {
				return err
			}
			t.answer = answer
		}
		if strings.TrimSpace(t.answer) == "" {
			t.answer = fallbackAnswer
		}
	case StepEnd:
		metadata := map[string]any{entity.MetaIntent: string(t.intent)}
		sources := []string{}
		retrievedChunks := 0
		if t.retrieved != nil {
			sources = t.retrieved.Sources
			retrievedChunks = len(t.retrieved.Chunks)
		}
		metadata[entity.MetaSources] = sources
		metadata[entity.MetaRetrievedChunks] = retrievedChunks
		w.store.SetScratch(t.sessionID, ScratchLastSources, sources)
		w.store.AddMessage(t.sessionID, entity.RoleAssistant, t.answer, metadata)
	}
	return nil
}

// analyzeIntent asks the model for a tag; an error or an unrecognized reply means search
func (w *Workflow) analyzeIntent(ctx context.Context, message string) Intent {
	reply, err := w.generator.Generate(ctx, fmt.Sprintf(intentPromptTemplate, message))
	if err != nil {
		ctxzap.Warn(ctx, "intent analysis failed, assuming search is needed", zap.Error(err))
		return IntentSearchNeeded
	}
	if strings.Contains(strings.ToUpper(reply), "[GENERAL_CHAT]") {
		return IntentGeneralChat
	}
	return IntentSearchNeeded
}

func (w *Workflow) retrieve(ctx context.Context, message string) *entity.RetrievedContext {
	retrieved, err := w.retriever.RetrieveContext(ctx, message, w.cfg.RetrievalTopK)
	if err != nil {
		ctxzap.Warn(ctx, "context retrieval failed, continuing without context", zap.Error(err))
		return nil
	}
	return retrieved
}

func (w *Workflow) generate(ctx context.Context, t *turn) (string, error) {
	prompt := rag.DirectPrompt(t.message)
	if t.retrieved != nil && len(t.retrieved.Chunks) > 0 {
		prompt = rag.ContextPrompt(t.retrieved.Context, t.message)
	}

	history := w.store.GetContext(t.sessionID, w.cfg.WindowSize)
	turns := BuildTurns(systemPrompt, history, prompt)

	answer, err := w.generator.Chat(ctx, turns)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// validate reports false only on an explicit INVALID verdict
func (w *Workflow) validate(ctx context.Context, question, answer string) bool {
	verdict, err := w.generator.Generate(ctx, fmt.Sprintf(validationPromptTemplate, question, answer))
	if err != nil {
		ctxzap.Warn(ctx, "answer validation failed, keeping answer", zap.Error(err))
		return true
	}
	return !strings.Contains(strings.ToUpper(verdict), "INVALID")
}

// BuildTurns converts windowed history into chat turns, replacing the trailing user message
// with finalPrompt
func BuildTurns(system string, history []entity.ConversationMessage, finalPrompt string) []entity.ChatTurn {
	if n := len(history); n > 0 && history[n-1].Role == entity.RoleUser {
		history = history[:n-1]
	}

	turns := make([]entity.ChatTurn, 0, len(history)+2)
	if system != "" {
		turns = append(turns, entity.ChatTurn{Role: entity.RoleSystem, Content: system})
	}
	for _, m := range history {
		if m.Role == entity.RoleSystem {
			continue
		}
		turns = append(turns, entity.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return append(turns, entity.ChatTurn{Role: entity.RoleUser, Content: finalPrompt})
}
