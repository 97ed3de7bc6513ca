package rendering

import "strings"

// sessionTokenKeys lists where a session token may appear in a session
// response, in lookup order. The upstream shape is not stable, so keep every
// entry.
var sessionTokenKeys = []string{
	"session_token",
	"sessionToken",
	"data.session_token",
	"data.sessionToken",
	"token",
	"jwt",
}

// uploadTokenKeys lists where an upload response may carry a session token.
var uploadTokenKeys = []string{
	"data.session_token",
	"sessionToken",
}

// firstString returns the first non-empty string found under keys.
func firstString(doc map[string]any, keys []string) string {
	for _, key := range keys {
		if v := lookupString(doc, key); v != "" {
			return v
		}
	}
	return ""
}

func lookupString(doc map[string]any, dotted string) string {
	var cur any = doc
	for _, part := range strings.Split(dotted, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[part]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}
