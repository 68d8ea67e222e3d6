package mcpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/mcpserver"
	"github.com/MrWong99/pictalk/internal/symbolindex"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

type fakeService struct {
	mu       sync.Mutex
	requests []dialogue.Request
	suggestK []int

	progressErr error
}

func (f *fakeService) Turn(_ context.Context, req dialogue.Request) dialogue.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return dialogue.Response{
		Reply:    "¡Hola!",
		Words:    []symbol.WordSymbol{{Word: "hola", Path: "H/hola.png"}},
		Strategy: dialogue.StrategyScripted,
	}
}

func (f *fakeService) Resolve(word string) (app.Resolution, bool) {
	if word == "gatos" {
		return app.Resolution{Word: word, Keyword: "gato", Path: "G/gato.png", Stage: "stem"}, true
	}
	return app.Resolution{}, false
}

func (f *fakeService) Suggest(_ context.Context, text string, k int) []symbolindex.Suggestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestK = append(f.suggestK, k)
	if text == "nada" {
		return nil
	}
	return []symbolindex.Suggestion{{Path: "G/gato.png", Keyword: "gato", Score: 0.9}}
}

func (f *fakeService) Categories() []string { return []string{"animales", "lugares"} }

func (f *fakeService) Progress(_ context.Context, user string) (memory.Analytics, error) {
	if f.progressErr != nil {
		return memory.Analytics{}, f.progressErr
	}
	return memory.Analytics{Interactions: 4, UniqueWords: 6}, nil
}

// connect starts srv over an in-memory transport and returns a client
// session to it.
func connect(t *testing.T, srv *mcpserver.Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	serverT, clientT := mcp.NewInMemoryTransports()
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-errc
	})
	return session
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func text(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// decode unmarshals the JSON text content of a successful result.
func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", text(res))
	}
	var out T
	if err := json.Unmarshal([]byte(text(res)), &out); err != nil {
		t.Fatalf("decode %q: %v", text(res), err)
	}
	return out
}

func TestListTools(t *testing.T) {
	t.Parallel()

	session := connect(t, mcpserver.New(&fakeService{}, "test"))
	var names []string
	for tool, err := range session.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{"get_progress", "list_categories", "process_utterance", "resolve_symbol", "suggest_symbols"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSymbol(t *testing.T) {
	t.Parallel()

	session := connect(t, mcpserver.New(&fakeService{}, "test"))

	got := decode[app.Resolution](t, call(t, session, "resolve_symbol", map[string]any{"word": " gatos "}))
	want := app.Resolution{Word: "gatos", Keyword: "gato", Path: "G/gato.png", Stage: "stem"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolution mismatch (-want +got):\n%s", diff)
	}

	res := call(t, session, "resolve_symbol", map[string]any{"word": "xyz"})
	if !res.IsError || !strings.Contains(text(res), `no pictogram for "xyz"`) {
		t.Errorf("unknown word result = %+v (%s)", res, text(res))
	}
}

func TestSuggestSymbols(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	session := connect(t, mcpserver.New(svc, "test"))

	type out struct {
		Suggestions []symbolindex.Suggestion `json:"suggestions"`
	}
	got := decode[out](t, call(t, session, "suggest_symbols", map[string]any{"text": "un gato"}))
	if len(got.Suggestions) != 1 || got.Suggestions[0].Keyword != "gato" {
		t.Errorf("suggestions = %+v", got.Suggestions)
	}

	empty := decode[out](t, call(t, session, "suggest_symbols", map[string]any{"text": "nada", "k": 500}))
	if empty.Suggestions == nil || len(empty.Suggestions) != 0 {
		t.Errorf("expected an empty list, got %#v", empty.Suggestions)
	}
	if diff := cmp.Diff([]int{5, 50}, svc.suggestK); diff != "" {
		t.Errorf("k mismatch (-want +got):\n%s", diff)
	}

	if res := call(t, session, "suggest_symbols", map[string]any{"text": "  "}); !res.IsError {
		t.Error("blank text accepted")
	}
}

func TestProcessUtterance(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	session := connect(t, mcpserver.New(svc, "test"))

	got := decode[dialogue.Response](t, call(t, session, "process_utterance", map[string]any{
		"user": "ana", "text": "hola", "role": "child",
	}))
	if got.Reply != "¡Hola!" || got.Strategy != dialogue.StrategyScripted || len(got.Words) != 1 {
		t.Errorf("response = %+v", got)
	}
	want := []dialogue.Request{{User: "ana", Role: dialogue.RoleChild, Text: "hola"}}
	if diff := cmp.Diff(want, svc.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}

	if res := call(t, session, "process_utterance", map[string]any{"user": "", "text": "hola"}); !res.IsError {
		t.Error("empty user accepted")
	}
	if res := call(t, session, "process_utterance", map[string]any{"user": "ana", "text": "hola", "role": "pirate"}); !res.IsError {
		t.Error("unknown role accepted")
	}
}

func TestListCategories(t *testing.T) {
	t.Parallel()

	session := connect(t, mcpserver.New(&fakeService{}, "test"))
	got := decode[struct {
		Categories []string `json:"categories"`
	}](t, call(t, session, "list_categories", nil))
	if diff := cmp.Diff([]string{"animales", "lugares"}, got.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProgress(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	session := connect(t, mcpserver.New(svc, "test"))

	got := decode[memory.Analytics](t, call(t, session, "get_progress", map[string]any{"user": "ana"}))
	if got.Interactions != 4 || got.UniqueWords != 6 {
		t.Errorf("analytics = %+v", got)
	}

	failing := connect(t, mcpserver.New(&fakeService{progressErr: errors.New("db down")}, "test"))
	res := call(t, failing, "get_progress", map[string]any{"user": "ana"})
	if !res.IsError || !strings.Contains(text(res), "history unavailable") {
		t.Errorf("result = %s", text(res))
	}
}
