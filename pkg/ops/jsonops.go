package ops

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/value"
)

func registerJSON(r *Registry) {
	r.Register("json_parse", HandlerFunc(opJSONParse))
	r.Register("json_get", HandlerFunc(opJSONGet))
	r.Register("json_set", HandlerFunc(opJSONSet))
	r.Register("json_merge", HandlerFunc(opJSONMerge))
	r.Register("json_filter", HandlerFunc(opJSONFilter))
	r.Register("json_map", HandlerFunc(opJSONMap))
	r.Register("json_delete", HandlerFunc(opJSONDelete))
}

func opJSONParse(args map[string]any, ctx *Context) (any, error) {
	s, err := strArg(args, "s")
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, alperr.Wrap(alperr.KindOp, err, "json_parse: invalid JSON")
	}
	return out, nil
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// opJSONGet walks a dotted path through an object, indexing arrays by
// integer path segment. A non-integer segment encountered while the
// current value is a sequence is an ErrType.
func opJSONGet(args map[string]any, ctx *Context) (any, error) {
	obj, ok := args["obj"]
	if !ok {
		return nil, alperr.New(alperr.KindType, "json_get requires argument \"obj\"")
	}
	path, err := strArg(args, "path")
	if err != nil {
		return nil, err
	}
	cur := obj
	for _, seg := range splitPath(path) {
		switch t := cur.(type) {
		case map[string]any:
			next, ok := t[seg]
			if !ok {
				return nil, alperr.New(alperr.KindUnresolved, "json_get: missing key %q", seg)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, alperr.New(alperr.KindType, "json_get: non-integer path segment %q indexing a sequence", seg)
			}
			if idx < 0 || idx >= len(t) {
				return nil, alperr.New(alperr.KindUnresolved, "json_get: index %d out of range", idx)
			}
			cur = t[idx]
		default:
			return nil, alperr.New(alperr.KindType, "json_get: cannot descend into %T at segment %q", cur, seg)
		}
	}
	return cur, nil
}

// opJSONSet sets a dotted path within obj, creating intermediate mappings
// when create_paths is true (default true).
func opJSONSet(args map[string]any, ctx *Context) (any, error) {
	obj, _ := args["obj"].(map[string]any)
	if obj == nil {
		obj = map[string]any{}
	}
	root := deepCopyMap(obj)
	path, err := strArg(args, "path")
	if err != nil {
		return nil, err
	}
	val := args["value"]
	createPaths := true
	if cp, ok := args["create_paths"].(bool); ok {
		createPaths = cp
	}

	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, alperr.New(alperr.KindType, "json_set: empty path")
	}
	cur := root
	for i, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			if !createPaths {
				return nil, alperr.New(alperr.KindUnresolved, "json_set: missing intermediate key %q", seg)
			}
			m := map[string]any{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, alperr.New(alperr.KindType, "json_set: segment %q (index %d) is not a mapping", seg, i)
		}
		cur = m
	}
	cur[segs[len(segs)-1]] = val
	return root, nil
}

func deepCopyMap(m map[string]any) map[string]any {
	return value.DeepCopy(m).(map[string]any)
}

// opJSONMerge merges objects in order: shallow by default (later keys
// overwrite earlier), or recursive when deep is true (mapping-into-mapping
// recurses, any other type pair overwrites).
func opJSONMerge(args map[string]any, ctx *Context) (any, error) {
	rawObjs, ok := args["objects"].([]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "json_merge requires a list argument \"objects\"")
	}
	deep, _ := args["deep"].(bool)

	result := map[string]any{}
	for _, raw := range rawObjs {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, alperr.New(alperr.KindType, "json_merge: every element of \"objects\" must be a mapping")
		}
		if deep {
			result = deepMerge(result, m)
		} else {
			for k, v := range m {
				result[k] = v
			}
		}
	}
	return result, nil
}

func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if existing, ok := out[k]; ok {
			em, eok := existing.(map[string]any)
			vm, vok := v.(map[string]any)
			if eok && vok {
				out[k] = deepMerge(em, vm)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// opJSONFilter keeps only the sequence elements for which the given
// condition evaluates truthy, binding each element to $value for the
// condition check.
func opJSONFilter(args map[string]any, ctx *Context) (any, error) {
	items, ok := args["items"].([]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "json_filter requires a list argument \"items\"")
	}
	cond, ok := args["condition"].(map[string]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "json_filter requires a mapping argument \"condition\"")
	}
	var out []any
	for _, item := range items {
		ok, err := EvalCondition(cond, item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// opJSONMap calls the registered fn named by "fn" against each item (see
// map_each in iteration.go); json_map is an alias of map_each and dispatches
// each item through the named Fn exactly as map_each does.
func opJSONMap(args map[string]any, ctx *Context) (any, error) {
	return opMapEach(args, ctx)
}

// opJSONDelete removes a dotted path from obj, returning the mutated copy.
func opJSONDelete(args map[string]any, ctx *Context) (any, error) {
	obj, ok := args["obj"].(map[string]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "json_delete requires a mapping argument \"obj\"")
	}
	root := deepCopyMap(obj)
	path, err := strArg(args, "path")
	if err != nil {
		return nil, err
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, alperr.New(alperr.KindType, "json_delete: empty path")
	}
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			return root, nil
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, alperr.New(alperr.KindType, "json_delete: segment %q is not a mapping", seg)
		}
		cur = m
	}
	delete(cur, segs[len(segs)-1])
	return root, nil
}
