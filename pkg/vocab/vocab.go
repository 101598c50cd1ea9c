// Package vocab recognizes the stable ALP token set and classifies raw JSON
// lines into typed Node variants. It is the leaf of the kernel: it performs
// no registry lookups and does no I/O beyond the line it is handed.
package vocab

import "strings"

// Token is one of the stable top-level or nested keys of the ALP wire format.
type Token string

const (
	TokDef    Token = "@def"
	TokShape  Token = "@shape"
	TokTool   Token = "@tool"
	TokFn     Token = "@fn"
	TokFlow   Token = "@flow"
	TokOp     Token = "@op"
	TokLLM    Token = "@llm"
	TokIn     Token = "@in"
	TokOut    Token = "@out"
	TokExpect Token = "@expect"
	TokConst  Token = "@const"
	TokRetry  Token = "@retry"
	TokImport Token = "@import"
)

// cidAliases maps stable concept IDs to their textual token. CIDs let a
// model emit a shorter wire form without inventing new vocabulary; both
// spellings mean the same node kind to the parser.
var cidAliases = map[string]Token{
	"cid:shape":  TokShape,
	"cid:def":    TokDef,
	"cid:tool":   TokTool,
	"cid:fn":     TokFn,
	"cid:flow":   TokFlow,
	"cid:op":     TokOp,
	"cid:llm":    TokLLM,
	"cid:in":     TokIn,
	"cid:out":    TokOut,
	"cid:expect": TokExpect,
	"cid:const":  TokConst,
	"cid:retry":  TokRetry,
	"cid:import": TokImport,
}

// topLevelTokens lists the tokens that may appear as a line's discriminating
// key, in the fixed precedence order used when a line (malformedly) carries
// more than one.
var topLevelTokens = []Token{TokDef, TokShape, TokTool, TokFn, TokFlow, TokImport}

// Normalize resolves a raw JSON object key to its canonical Token, accepting
// the textual spelling, a registered CID alias, or the bare word without the
// leading "@" (e.g. "shape" for "@shape"). Returns ok=false for unrecognized
// keys, which the caller should generally ignore rather than reject, since
// nodes may carry unrelated keys (ids, descriptions, etc.)
func Normalize(key string) (Token, bool) {
	if tok, ok := cidAliases[strings.ToLower(key)]; ok {
		return tok, true
	}
	candidate := key
	if !strings.HasPrefix(candidate, "@") {
		candidate = "@" + candidate
	}
	switch Token(candidate) {
	case TokDef, TokShape, TokTool, TokFn, TokFlow, TokOp, TokLLM, TokIn, TokOut, TokExpect, TokConst, TokRetry, TokImport:
		return Token(candidate), true
	}
	return "", false
}

// TopLevelToken scans a decoded JSON object's keys and returns the first
// recognized top-level node token present, in fixed precedence order. This
// is what makes node classification order-independent of field declaration
// order inside a single JSON object.
func TopLevelToken(obj map[string]any) (Token, bool) {
	found := make(map[Token]bool, 4)
	for k := range obj {
		if tok, ok := Normalize(k); ok {
			found[tok] = true
		}
	}
	for _, tok := range topLevelTokens {
		if found[tok] {
			return tok, true
		}
	}
	return "", false
}

// NormalizeInOut rewrites the "@in"/"@out" spellings of a fn's input/output
// type references into the plain "in"/"out" field names the rest of the
// kernel operates on, per spec.md 4.1.
func NormalizeInOut(obj map[string]any) {
	if v, ok := takeAlias(obj, TokIn); ok {
		obj["in"] = v
	}
	if v, ok := takeAlias(obj, TokOut); ok {
		obj["out"] = v
	}
}

func takeAlias(obj map[string]any, tok Token) (any, bool) {
	for k, v := range obj {
		if t, ok := Normalize(k); ok && t == tok {
			delete(obj, k)
			return v, true
		}
	}
	return nil, false
}
