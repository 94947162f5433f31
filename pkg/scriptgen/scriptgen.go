// Package scriptgen is the holder-facing script generation collaborator:
// an LLM call that turns a natural-language requirement plus the
// holder's credential schemas into a predicate script. The LLM call
// itself is an external collaborator, so this package specifies only
// the interface boundary and a deterministic test double. The prompt
// shape (system message + a worked example + the actual request)
// mirrors a typical few-shot completion prompt.
package scriptgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// Client is the minimal chat-completion surface scriptgen needs, modeled
// on Mindburn-Labs-helm's pkg/llm.Client so a real provider can be wired in
// without this package knowing which one.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Request is the holder-supplied input to script generation.
type Request struct {
	Lang         zkvmtypes.ScriptLang
	CredSchemes  []string // schema text for each credential the script may reference
	Requirements string   // natural-language predicate description
}

// Generator produces a predicate script from a natural-language
// requirement by delegating to an LLM Client behind a fixed three-turn
// prompt: a system message describing the scripting contract, one worked
// example, then the actual request.
type Generator struct {
	client Client
}

// New builds a Generator over client.
func New(client Client) *Generator {
	return &Generator{client: client}
}

// Generate returns a predicate script satisfying req.Requirements over
// req.CredSchemes, in req.Lang.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("scriptgen: no client configured")
	}
	if req.Lang != zkvmtypes.ScriptLangRhai {
		return "", fmt.Errorf("scriptgen: script generation is only supported for %s", zkvmtypes.ScriptLangRhai)
	}

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: workedExamplePrompt},
		{Role: "assistant", Content: workedExampleScript},
		{Role: "user", Content: requestPrompt(req)},
	}

	script, err := g.client.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("scriptgen: generate script: %w", err)
	}
	return strings.TrimSpace(script), nil
}

const systemPrompt = `You write predicate scripts that decide whether a holder's credentials
satisfy a requirement. The script sees a single read-only variable named
"credentials": an ordered list, one entry per credential, each entry
containing only that credential's parsed "details" object (never the raw
credential, nonce, or schema id). The script must evaluate to a single
boolean. Reference fields as credentials[i].field_name. Do not reference
anything other than the credentials variable.`

const workedExamplePrompt = `Credential schemas (in order): [{"type":"object","properties":{"age":{"type":"integer"}}}]
Requirement: the holder is at least 18 years old.`

const workedExampleScript = `credentials[0].age >= 18`

func requestPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Credential schemas (in order): [")
	for i, scheme := range req.CredSchemes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(scheme)
	}
	b.WriteString("]\nRequirement: ")
	b.WriteString(req.Requirements)
	return b.String()
}

// StaticClient is a test double that always returns a fixed script,
// regardless of the conversation supplied. It makes no network call; real
// provider wiring (OpenAI, Anthropic, ...) is out of scope for this repo.
type StaticClient struct {
	Script string
	Err    error
}

// Chat implements Client by returning c.Script (or c.Err) unconditionally.
func (c *StaticClient) Chat(_ context.Context, _ []Message) (string, error) {
	if c.Err != nil {
		return "", c.Err
	}
	return c.Script, nil
}
