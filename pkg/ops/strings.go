package ops

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/alp-run/alp/pkg/alperr"
)

func registerStrings(r *Registry) {
	r.Register("concat", HandlerFunc(opConcat))
	r.Register("join", HandlerFunc(opJoin))
	r.Register("split", HandlerFunc(opSplit))
	r.Register("replace", HandlerFunc(opReplace))
	r.Register("regex_match", HandlerFunc(opRegexMatch))
	r.Register("regex_replace", HandlerFunc(opRegexReplace))
	r.Register("format", HandlerFunc(opFormat))
	r.Register("trim", HandlerFunc(opTrim))
	r.Register("case", HandlerFunc(opCase))
	r.Register("substring", HandlerFunc(opSubstring))
	r.Register("encode_decode", HandlerFunc(opEncodeDecode))
	r.Register("hash", HandlerFunc(opHash))
}

func strArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", alperr.New(alperr.KindType, "missing string argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", alperr.New(alperr.KindType, "argument %q is not a string: %v", name, v)
	}
	return s, nil
}

func opConcat(args map[string]any, ctx *Context) (any, error) {
	if rawItems, ok := args["items"].([]any); ok {
		var b strings.Builder
		for _, it := range rawItems {
			s, ok := it.(string)
			if !ok {
				return nil, alperr.New(alperr.KindType, "concat: items must all be strings")
			}
			b.WriteString(s)
		}
		return b.String(), nil
	}
	a, err := strArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := strArg(args, "b")
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

func opJoin(args map[string]any, ctx *Context) (any, error) {
	rawItems, ok := args["items"].([]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "join requires a list argument \"items\"")
	}
	sep, _ := args["sep"].(string)
	parts := make([]string, len(rawItems))
	for i, it := range rawItems {
		parts[i] = fmt.Sprint(it)
	}
	return strings.Join(parts, sep), nil
}

func opSplit(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	sep, err := strArg(args, "sep")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func opReplace(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	old, err := strArg(args, "old")
	if err != nil {
		return nil, err
	}
	newS, err := strArg(args, "new")
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(s, old, newS), nil
}

func opRegexMatch(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	pattern, err := strArg(args, "pattern")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindSyntax, err, "regex_match: invalid pattern %q", pattern)
	}
	return re.MatchString(s), nil
}

func opRegexReplace(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	pattern, err := strArg(args, "pattern")
	if err != nil {
		return nil, err
	}
	repl, err := strArg(args, "repl")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindSyntax, err, "regex_replace: invalid pattern %q", pattern)
	}
	return re.ReplaceAllString(s, repl), nil
}

func opFormat(args map[string]any, ctx *Context) (any, error) {
	tmpl, err := strArg(args, "template")
	if err != nil {
		return nil, err
	}
	values, _ := args["values"].(map[string]any)
	out := tmpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", fmt.Sprint(v))
	}
	return out, nil
}

func opTrim(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	if cutset, ok := args["cutset"].(string); ok {
		return strings.Trim(s, cutset), nil
	}
	return strings.TrimSpace(s), nil
}

func opCase(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	mode, err := strArg(args, "mode")
	if err != nil {
		return nil, err
	}
	switch mode {
	case "upper":
		return strings.ToUpper(s), nil
	case "lower":
		return strings.ToLower(s), nil
	case "title":
		return toTitleCase(s), nil
	case "capitalize":
		if s == "" {
			return s, nil
		}
		r := []rune(s)
		r[0] = unicode.ToUpper(r[0])
		return string(r), nil
	case "snake":
		return toSnakeCase(s), nil
	case "camel":
		return toCamelCase(s), nil
	default:
		return nil, alperr.New(alperr.KindType, "case: unknown mode %q", mode)
	}
}

func toTitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else if r == ' ' || r == '-' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toCamelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(strings.ToLower(p[:1]) + p[1:])
		} else {
			b.WriteString(strings.ToUpper(p[:1]) + strings.ToLower(p[1:]))
		}
	}
	return b.String()
}

func opSubstring(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	start := intArgOr(args, "start", 0)
	end := intArgOr(args, "end", len(s))
	if start < 0 || end > len(s) || start > end {
		return nil, alperr.New(alperr.KindOp, "substring: bounds [%d:%d] out of range for length %d", start, end, len(s))
	}
	return s[start:end], nil
}

func intArgOr(args map[string]any, name string, fallback int) int {
	if raw, ok := args[name]; ok {
		if f, ok := toFloat(raw); ok {
			return int(f)
		}
	}
	return fallback
}

func opEncodeDecode(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	mode, err := strArg(args, "mode")
	if err != nil {
		return nil, err
	}
	form, err := strArg(args, "form")
	if err != nil {
		return nil, err
	}
	switch mode {
	case "encode":
		switch form {
		case "base64":
			return base64.StdEncoding.EncodeToString([]byte(s)), nil
		case "url":
			return url.QueryEscape(s), nil
		case "hex":
			return hex.EncodeToString([]byte(s)), nil
		case "html":
			return html.EscapeString(s), nil
		default:
			return nil, alperr.New(alperr.KindType, "encode_decode: unknown form %q", form)
		}
	case "decode":
		switch form {
		case "base64":
			out, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, alperr.Wrap(alperr.KindOp, err, "encode_decode: invalid base64")
			}
			return string(out), nil
		case "url":
			out, err := url.QueryUnescape(s)
			if err != nil {
				return nil, alperr.Wrap(alperr.KindOp, err, "encode_decode: invalid url encoding")
			}
			return out, nil
		case "hex":
			out, err := hex.DecodeString(s)
			if err != nil {
				return nil, alperr.Wrap(alperr.KindOp, err, "encode_decode: invalid hex")
			}
			return string(out), nil
		case "html":
			return html.UnescapeString(s), nil
		default:
			return nil, alperr.New(alperr.KindType, "encode_decode: unknown form %q", form)
		}
	default:
		return nil, alperr.New(alperr.KindType, "encode_decode: unknown mode %q", mode)
	}
}

func opHash(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	algo, err := strArg(args, "algo")
	if err != nil {
		return nil, err
	}
	data := []byte(s)
	switch algo {
	case "md5":
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha1":
		sum := sha1.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha256":
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha512":
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return nil, alperr.New(alperr.KindType, "hash: unknown algorithm %q", algo)
	}
}
