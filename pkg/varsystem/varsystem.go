package varsystem

import (
	"log/slog"
	"strings"

	"apiclient-backend/pkg/model/mvar"
)

// MaxResolveDepth bounds nested variable resolution. Variables referencing
// variables are supported without a dependency graph; anything deeper than
// this is left as literal text.
const MaxResolveDepth = 10

// VarContext layers the four variable scopes. Resolution order is fixed:
// system pseudo-variables, collection, environment, secrets, globals. The
// first scope containing a key wins. A zero VarContext is usable.
type VarContext struct {
	Collection  map[string]string
	Environment map[string]string
	Secrets     map[string]string
	Globals     map[string]string

	logger *slog.Logger
}

func NewVarContext(collection, environment, secrets, globals map[string]string) VarContext {
	return VarContext{
		Collection:  collection,
		Environment: environment,
		Secrets:     secrets,
		Globals:     globals,
	}
}

// WithLogger returns a copy that logs resolution anomalies (cycles) to l.
func (c VarContext) WithLogger(l *slog.Logger) VarContext {
	c.logger = l
	return c
}

func (c VarContext) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Get looks a key up across scopes in precedence order. System
// pseudo-variables are computed fresh on every call, never cached.
func (c VarContext) Get(key string) (string, bool) {
	if strings.HasPrefix(key, mvar.SystemPrefix) {
		return systemVar(key)
	}
	if val, ok := c.Collection[key]; ok {
		return val, true
	}
	if val, ok := c.Environment[key]; ok {
		return val, true
	}
	if val, ok := c.Secrets[key]; ok {
		return val, true
	}
	if val, ok := c.Globals[key]; ok {
		return val, true
	}
	return "", false
}

// ReplaceVars substitutes every {{key}} occurrence in raw. Keys are trimmed
// before lookup and matched case-sensitively. Unknown keys and cycles are
// left as literal text; this never fails.
func (c VarContext) ReplaceVars(raw string) string {
	if raw == "" || !CheckStringHasAnyVarKey(raw) {
		return raw
	}
	return c.replace(raw, make(map[string]bool), 0)
}

func (c VarContext) replace(raw string, resolving map[string]bool, depth int) string {
	if depth >= MaxResolveDepth {
		return raw
	}

	var result strings.Builder
	for {
		startIndex := strings.Index(raw, mvar.Prefix)
		if startIndex == -1 {
			result.WriteString(raw)
			break
		}

		endIndex := strings.Index(raw[startIndex:], mvar.Suffix)
		if endIndex == -1 {
			result.WriteString(raw)
			break
		}

		rawVar := raw[startIndex : startIndex+endIndex+mvar.SuffixSize]
		result.WriteString(raw[:startIndex])
		raw = raw[startIndex+len(rawVar):]

		key := strings.TrimSpace(GetVarKeyFromRaw(rawVar))
		if resolving[key] {
			c.log().Warn("circular variable reference", "key", key)
			result.WriteString(rawVar)
			continue
		}

		val, ok := c.Get(key)
		if !ok {
			result.WriteString(rawVar)
			continue
		}

		if CheckStringHasAnyVarKey(val) {
			resolving[key] = true
			val = c.replace(val, resolving, depth+1)
			delete(resolving, key)
		}
		result.WriteString(val)
	}

	return result.String()
}

// ReplaceAny applies ReplaceVars to every string leaf of a nested
// map/slice structure, preserving shape. Non-string leaves pass through
// unchanged.
func (c VarContext) ReplaceAny(v any) any {
	switch val := v.(type) {
	case string:
		return c.ReplaceVars(val)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = c.ReplaceVars(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = c.ReplaceAny(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = c.ReplaceAny(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = c.ReplaceVars(item)
		}
		return out
	default:
		return v
	}
}

// Helper functions

func MergeVars(global, current []mvar.Var) []mvar.Var {
	merged := make([]mvar.Var, 0, len(global)+len(current))
	seen := make(map[string]int, len(global))
	for _, v := range global {
		seen[v.Key] = len(merged)
		merged = append(merged, v)
	}
	for _, v := range current {
		if i, ok := seen[v.Key]; ok {
			merged[i] = v
			continue
		}
		seen[v.Key] = len(merged)
		merged = append(merged, v)
	}
	return merged
}

func FilterVars(vars []mvar.Var, filter func(mvar.Var) bool) []mvar.Var {
	filtered := make([]mvar.Var, 0, len(vars))
	for _, v := range vars {
		if filter(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// VarsToMap flattens a Var slice into a plain scope map.
func VarsToMap(vars []mvar.Var) map[string]string {
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		out[v.Key] = v.Value
	}
	return out
}

// {{varKey}}
func GetVarKeyFromRaw(raw string) string {
	return raw[mvar.PrefixSize : len(raw)-mvar.SuffixSize]
}

func CheckIsVar(varKey string) bool {
	return CheckPrefix(varKey) && CheckSuffix(varKey)
}

func CheckPrefix(varKey string) bool {
	return len(varKey) >= mvar.PrefixSize && varKey[:mvar.PrefixSize] == mvar.Prefix
}

func CheckSuffix(varKey string) bool {
	return len(varKey) >= mvar.SuffixSize && varKey[len(varKey)-mvar.SuffixSize:] == mvar.Suffix
}

func CheckStringHasAnyVarKey(raw string) bool {
	return strings.Contains(raw, mvar.Prefix) && strings.Contains(raw, mvar.Suffix)
}
