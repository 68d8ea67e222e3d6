// Package mcpserver exposes the pictogram engine as Model Context Protocol
// tools, so assistants can map text to pictograms and hold a pictogram
// conversation on behalf of a user.
//
// Tools:
//   - "resolve_symbol"    maps one word to its pictogram.
//   - "suggest_symbols"   ranks pictograms related to a text.
//   - "process_utterance" runs one dialogue turn for a user.
//   - "list_categories"   lists the catalogue categories.
//   - "get_progress"      returns a user's progress analytics.
//
// All handlers are safe for concurrent use.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/internal/symbolindex"
	"github.com/MrWong99/pictalk/pkg/memory"
)

// Service is what the tools call into. [app.App] implements it.
type Service interface {
	Turn(ctx context.Context, req dialogue.Request) dialogue.Response
	Resolve(word string) (app.Resolution, bool)
	Suggest(ctx context.Context, text string, k int) []symbolindex.Suggestion
	Categories() []string
	Progress(ctx context.Context, user string) (memory.Analytics, error)
}

var _ Service = (*app.App)(nil)

const (
	defaultSuggestK = 5
	maxSuggestK     = 50
)

// Server is an MCP server over a [Service].
type Server struct {
	svc     Service
	server  *mcp.Server
	metrics *observe.Metrics
	log     *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics records one tool call counter per invocation.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger. It must not write to stdout when the server
// runs over stdio.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server with every tool registered.
func New(svc Service, version string, opts ...Option) *Server {
	s := &Server{svc: svc, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	if version == "" {
		version = "dev"
	}
	s.server = mcp.NewServer(&mcp.Implementation{Name: "pictalk", Version: version}, nil)
	s.register()
	return s
}

// Run serves MCP over stdin/stdout until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves MCP over t until ctx ends or the peer disconnects.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	s.log.Info("mcpserver: serving")
	err := s.server.Run(ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// ── Tool inputs and outputs ─────────────────────────────────────────────────

type resolveInput struct {
	Word string `json:"word" jsonschema:"the word to look up, in any inflection"`
}

type suggestInput struct {
	Text string `json:"text" jsonschema:"free text to find related pictograms for"`
	K    int    `json:"k,omitempty" jsonschema:"maximum number of suggestions, 5 when omitted"`
}

type suggestOutput struct {
	Suggestions []symbolindex.Suggestion `json:"suggestions"`
}

type utteranceInput struct {
	User string `json:"user" jsonschema:"name of the user speaking"`
	Text string `json:"text" jsonschema:"what the user said"`
	Role string `json:"role,omitempty" jsonschema:"student, child, therapist or teacher"`
}

type categoriesInput struct{}

type categoriesOutput struct {
	Categories []string `json:"categories"`
}

type progressInput struct {
	User string `json:"user" jsonschema:"name of the user"`
}

// ── Registration ────────────────────────────────────────────────────────────

func (s *Server) register() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_symbol",
		Description: "Map a single word to the pictogram that represents it.",
	}, s.resolveSymbol)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest_symbols",
		Description: "Rank the pictograms most related to a text.",
	}, s.suggestSymbols)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_utterance",
		Description: "Run one conversation turn for a user and return the reply with its pictograms.",
	}, s.processUtterance)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the pictogram catalogue categories.",
	}, s.listCategories)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_progress",
		Description: "Summarise a user's conversation history.",
	}, s.getProgress)
}

// done counts the call and passes err through.
func (s *Server) done(ctx context.Context, tool string, err error) error {
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordToolCall(ctx, tool, status)
	}
	if err != nil {
		s.log.Debug("mcpserver: tool failed", "tool", tool, "err", err)
	}
	return err
}

// ── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) resolveSymbol(ctx context.Context, _ *mcp.CallToolRequest, in resolveInput) (*mcp.CallToolResult, app.Resolution, error) {
	word := strings.TrimSpace(in.Word)
	if word == "" {
		return nil, app.Resolution{}, s.done(ctx, "resolve_symbol", errors.New("word must not be empty"))
	}
	res, ok := s.svc.Resolve(word)
	if !ok {
		return nil, app.Resolution{}, s.done(ctx, "resolve_symbol", fmt.Errorf("no pictogram for %q", word))
	}
	return nil, res, s.done(ctx, "resolve_symbol", nil)
}

func (s *Server) suggestSymbols(ctx context.Context, _ *mcp.CallToolRequest, in suggestInput) (*mcp.CallToolResult, suggestOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, suggestOutput{}, s.done(ctx, "suggest_symbols", errors.New("text must not be empty"))
	}
	k := in.K
	switch {
	case k <= 0:
		k = defaultSuggestK
	case k > maxSuggestK:
		k = maxSuggestK
	}
	out := suggestOutput{Suggestions: s.svc.Suggest(ctx, in.Text, k)}
	if out.Suggestions == nil {
		out.Suggestions = []symbolindex.Suggestion{}
	}
	return nil, out, s.done(ctx, "suggest_symbols", nil)
}

func (s *Server) processUtterance(ctx context.Context, _ *mcp.CallToolRequest, in utteranceInput) (*mcp.CallToolResult, dialogue.Response, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return nil, dialogue.Response{}, s.done(ctx, "process_utterance", errors.New("user must not be empty"))
	}
	role := dialogue.Role(in.Role)
	switch role {
	case "", dialogue.RoleStudent, dialogue.RoleChild, dialogue.RoleTherapist, dialogue.RoleTeacher:
	default:
		return nil, dialogue.Response{}, s.done(ctx, "process_utterance", fmt.Errorf("unknown role %q", in.Role))
	}
	resp := s.svc.Turn(ctx, dialogue.Request{User: user, Role: role, Text: in.Text})
	return nil, resp, s.done(ctx, "process_utterance", nil)
}

func (s *Server) listCategories(ctx context.Context, _ *mcp.CallToolRequest, _ categoriesInput) (*mcp.CallToolResult, categoriesOutput, error) {
	out := categoriesOutput{Categories: s.svc.Categories()}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	return nil, out, s.done(ctx, "list_categories", nil)
}

func (s *Server) getProgress(ctx context.Context, _ *mcp.CallToolRequest, in progressInput) (*mcp.CallToolResult, memory.Analytics, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return nil, memory.Analytics{}, s.done(ctx, "get_progress", errors.New("user must not be empty"))
	}
	stats, err := s.svc.Progress(ctx, user)
	if err != nil {
		return nil, memory.Analytics{}, s.done(ctx, "get_progress", fmt.Errorf("history unavailable: %w", err))
	}
	return nil, stats, s.done(ctx, "get_progress", nil)
}
