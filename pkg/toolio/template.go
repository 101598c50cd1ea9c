package toolio

import (
	"fmt"
	"strings"
)

// substitute replaces every "{name}" placeholder in tmpl with the string
// form of args[name]. Unknown placeholders are left untouched.
func substitute(tmpl string, args map[string]any) string {
	out := tmpl
	for k, v := range args {
		out = strings.ReplaceAll(out, "{"+k+"}", fmt.Sprint(v))
	}
	return out
}

func substituteAll(templates []string, args map[string]any) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = substitute(t, args)
	}
	return out
}
