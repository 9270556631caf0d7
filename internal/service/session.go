package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"navassist/internal/conversation"
	"navassist/internal/domain"
	"navassist/internal/prompt"
	"navassist/internal/retriever"
)

// RetryMessage is shown to the user when no answer could be generated.
const RetryMessage = "Não foi possível gerar uma resposta agora. Tente novamente."

// ErrEmptyQuery is returned for a blank question. Nothing is appended.
var ErrEmptyQuery = errors.New("empty query")

// GenerationError wraps a language model failure. Its message is the one
// shown to the user; the cause stays reachable through errors.Unwrap.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return RetryMessage }

func (e *GenerationError) Unwrap() error { return e.Err }

// State is a step of the per-query pipeline.
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateFallbackSearching
	StateAssembling
	StateGenerating
	StateAppended
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateFallbackSearching:
		return "fallback-searching"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	case StateAppended:
		return "appended"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TurnResult describes how one question was handled.
type TurnResult struct {
	Question string
	Answer   string
	Source   prompt.Source
	// Context holds the items placed under the context label, in order.
	Context []string
	// Matches are the ranked local results; empty when the web was used.
	Matches  []domain.SearchResult
	Warnings []string
	State    State
	// Trace lists every state the turn passed through.
	Trace []State
}

func (r *TurnResult) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Session is one user's conversation. Questions on a session are handled
// one at a time, in arrival order.
type Session struct {
	assistant *Assistant
	mu        sync.Mutex
	log       *conversation.Log
}

// ID identifies the current conversation. It changes on Reset.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.SessionID()
}

// Transcript returns the turns so far in order.
func (s *Session) Transcript() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Render()
}

// Reset clears the conversation and starts a new one.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Reset()
	s.assistant.log.Info("session reset", "session", s.log.SessionID())
}

// Ask answers query from the local corpus, or from web search links when no
// local document has content, and records both turns.
//
// The user turn is appended before retrieval. When generation fails the
// returned error is a *GenerationError and no assistant turn is appended.
// A failed web search does not fail the turn: it is reported in Warnings and
// the prompt carries an empty web block.
func (s *Session) Ask(ctx context.Context, query string) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.assistant
	log := a.log.With("session", s.log.SessionID())
	res := TurnResult{Question: query}
	res.enter(StateIdle)
	if strings.TrimSpace(query) == "" {
		return res, ErrEmptyQuery
	}
	s.log.Append(domain.Turn{Role: domain.RoleUser, Content: query})

	res.enter(StateRetrieving)
	results, err := s.retrieve(ctx, query)
	if err != nil {
		res.enter(StateErrored)
		log.Error("retrieval failed", "error", err)
		return res, fmt.Errorf("retrieve: %w", err)
	}

	if retriever.NeedsFallback(results) {
		res.enter(StateFallbackSearching)
		res.Source = prompt.SourceWeb
		links, err := s.searchWeb(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				res.enter(StateErrored)
				return res, ctx.Err()
			}
			log.Warn("web search failed; continuing without results", "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("Erro ao buscar na web: %v", err))
			links = nil
		}
		res.Context = links
	} else {
		res.Source = prompt.SourceLocal
		res.Matches = results
		res.Context = retriever.Contents(results)
	}

	res.enter(StateAssembling)
	full := prompt.Assemble(a.opts.Template, res.Source.Label(), res.Context, query)
	log.Debug("prompt assembled", "source", res.Source, "items", len(res.Context), "chars", len(full))

	res.enter(StateGenerating)
	answer, err := s.generate(ctx, full)
	if err != nil {
		res.enter(StateErrored)
		log.Error("generation failed", "error", err)
		return res, &GenerationError{Err: err}
	}
	s.log.Append(domain.Turn{Role: domain.RoleAssistant, Content: answer})
	res.Answer = answer
	res.enter(StateAppended)
	log.Info("turn answered", "source", res.Source, "context_items", len(res.Context))
	return res, nil
}

func (s *Session) retrieve(ctx context.Context, query string) ([]domain.SearchResult, error) {
	a := s.assistant
	ctx, cancel := withTimeout(ctx, a.opts.RetrievalTimeout)
	defer cancel()
	ix, err := a.index(ctx)
	if err != nil {
		return nil, err
	}
	return retriever.Retrieve(ctx, ix, query, a.opts.TopK)
}

func (s *Session) searchWeb(ctx context.Context, query string) ([]string, error) {
	a := s.assistant
	ctx, cancel := withTimeout(ctx, a.opts.FallbackTimeout)
	defer cancel()
	return a.searcher.Search(ctx, query)
}

func (s *Session) generate(ctx context.Context, full string) (string, error) {
	a := s.assistant
	ctx, cancel := withTimeout(ctx, a.opts.GenerationTimeout)
	defer cancel()
	return a.generator.Generate(ctx, full)
}
