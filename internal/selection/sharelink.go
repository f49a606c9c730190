package selection

import (
	"net/url"
	"strings"
)

// ShareParam is the query parameter carrying a shared selection.
const ShareParam = "cards"

// EncodeShareValue percent-encodes each identifier and joins them with
// commas. Commas inside identifiers are encoded, so they survive decoding.
func EncodeShareValue(ids []string) string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = strings.ReplaceAll(url.QueryEscape(id), "+", "%20")
	}
	return strings.Join(tokens, ",")
}

// DecodeShareValue splits a raw parameter value on commas and percent-decodes
// each token. Tokens that are not valid escapes are kept as they are.
func DecodeShareValue(raw string) []string {
	if raw == "" {
		return nil
	}

	var ids []string
	for _, token := range strings.Split(raw, ",") {
		if token == "" {
			continue
		}
		if decoded, err := url.PathUnescape(token); err == nil {
			token = decoded
		}
		ids = append(ids, token)
	}
	return ids
}

// EncodeShareQuery returns the query string for ids, e.g. "cards=a,b".
func EncodeShareQuery(ids []string) string {
	return ShareParam + "=" + EncodeShareValue(ids)
}

// ParseShareQuery extracts the shared identifiers from a raw, still-escaped
// query string. The value is decoded exactly once.
func ParseShareQuery(rawQuery string) []string {
	for _, part := range strings.Split(rawQuery, "&") {
		key, value, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if key == ShareParam {
			return DecodeShareValue(value)
		}
	}
	return nil
}

// ShareURL builds a link to basePath carrying ids. An empty selection yields
// basePath unchanged.
func ShareURL(basePath string, ids []string) string {
	if len(ids) == 0 {
		return basePath
	}
	return basePath + "?" + EncodeShareQuery(ids)
}
