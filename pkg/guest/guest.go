// Package guest implements the predicate evaluator that runs inside the
// proof: given the holder's credential instances and a script, it decides
// whether the holder's data satisfies the script's predicate, without ever
// revealing the credential contents outside the commit.
package guest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/verza/zkcreds/pkg/guest/celscript"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

// Run evaluates a ZkvmInput and returns the journal committed to the
// receipt. Run never returns an error: malformed input or a failing script
// is reported through ZkCommit.HasError/ErrMsg so the commit is always
// produced and can always be verified.
func Run(input zkvmtypes.ZkvmInput) zkvmtypes.ZkCommit {
	credHashes := make([]string, len(input.Credentials))
	credSchemas := make([]zkvmtypes.SchemaID, len(input.Credentials))
	details := make([]map[string]any, len(input.Credentials))

	for i, credStr := range input.Credentials {
		var parsed struct {
			Details  string             `json:"details"`
			SchemaID zkvmtypes.SchemaID `json:"schema_id"`
			Nonce    string             `json:"nonce"`
		}
		if err := json.Unmarshal([]byte(credStr), &parsed); err != nil {
			return failCommit(input, "failed to parse credentials")
		}

		var detailsMap map[string]any
		if err := json.Unmarshal([]byte(parsed.Details), &detailsMap); err != nil {
			return failCommit(input, "failed to parse credentials")
		}

		// credStr is hashed exactly as received, not re-canonicalized: it
		// was already put through zkvmtypes.Canonicalize at materialisation
		// time, and re-running it through JCS here would risk diverging
		// from the hash the registry committed if the two ever disagreed.
		credHashes[i] = zkvmtypes.HashCanonical([]byte(credStr))
		credSchemas[i] = parsed.SchemaID
		details[i] = detailsMap
	}

	result, err := evaluate(input.Lang, input.Script, details)
	if err != nil {
		return zkvmtypes.ZkCommit{
			HasError:    true,
			ErrMsg:      err.Error(),
			CredHashes:  credHashes,
			CredSchemas: credSchemas,
			Lang:        input.Lang,
			Script:      input.Script,
			Result:      false,
		}
	}

	return zkvmtypes.ZkCommit{
		HasError:    false,
		ErrMsg:      "",
		CredHashes:  credHashes,
		CredSchemas: credSchemas,
		Lang:        input.Lang,
		Script:      input.Script,
		Result:      result,
	}
}

var (
	engineOnce sync.Once
	engine     *celscript.Engine
	engineErr  error
)

func rhaiEngine() (*celscript.Engine, error) {
	engineOnce.Do(func() {
		engine, engineErr = celscript.NewEngine()
	})
	return engine, engineErr
}

// evaluate dispatches the predicate script to the engine backing its
// declared language. JavaScript is accepted on the wire but has no backing
// engine; it is rejected explicitly rather than silently treated as a no-op.
func evaluate(lang zkvmtypes.ScriptLang, script string, details []map[string]any) (bool, error) {
	switch lang {
	case zkvmtypes.ScriptLangRhai:
		e, err := rhaiEngine()
		if err != nil {
			return false, fmt.Errorf("script engine unavailable: %w", err)
		}
		return e.Eval(script, details)
	case zkvmtypes.ScriptLangJavaScript:
		return false, fmt.Errorf("script language JavaScript is not supported")
	default:
		return false, fmt.Errorf("unknown script language: %q", lang)
	}
}

func failCommit(input zkvmtypes.ZkvmInput, msg string) zkvmtypes.ZkCommit {
	return zkvmtypes.ZkCommit{
		HasError:    true,
		ErrMsg:      msg,
		CredHashes:  []string{},
		CredSchemas: []zkvmtypes.SchemaID{},
		Lang:        input.Lang,
		Script:      input.Script,
		Result:      false,
	}
}
