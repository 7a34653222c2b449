// Package sanitize strips script-injection patterns from values
// crossing the trust boundary. It is a pattern filter, not a full HTML
// sanitizer: anything it does not recognize passes through unchanged.
package sanitize

import "regexp"

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	scriptTag   = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
	jsURI       = regexp.MustCompile(`(?i)javascript:`)
	eventAttr   = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// maxPasses bounds the fixpoint loop; each pass strictly shrinks the
// string, so this is never reached in practice.
const maxPasses = 16

// String removes script blocks, javascript: URI prefixes and inline
// event-handler attributes. Stripping repeats until the output is
// stable, so patterns reassembled by a removal do not survive.
func String(s string) string {
	for i := 0; i < maxPasses; i++ {
		next := scriptBlock.ReplaceAllString(s, "")
		next = scriptTag.ReplaceAllString(next, "")
		next = jsURI.ReplaceAllString(next, "")
		next = eventAttr.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
	return s
}

// Value recursively sanitizes strings, slices and maps. Slice order
// and map keys are preserved; other values are returned unchanged.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Value(e)
		}
		return out
	default:
		return v
	}
}

// Values sanitizes each element of args in place order.
func Values(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = Value(a)
	}
	return out
}
