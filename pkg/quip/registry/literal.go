package registry

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sambeau/quip/pkg/quip/object"
)

// isoDate matches the start of an ISO-8601 date. Only such words are handed to
// dateparse, which would otherwise accept bare numbers.
var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

// ParseLiteral converts a word to a value. Quoted text is always a String;
// anything that is not a recognised literal form is a String too.
func ParseLiteral(text string, quoted bool) object.Object {
	if quoted {
		return &object.String{Value: text}
	}

	switch text {
	case "true", "True":
		return object.TRUE
	case "false", "False":
		return object.FALSE
	case "null", "nil", "None":
		return object.NULL
	}

	if strings.Contains(text, ",") {
		if tup, ok := parseTuple(text); ok {
			return tup
		}
		return &object.String{Value: text}
	}

	if i, ok := parseInt(text); ok {
		return &object.Integer{Value: i}
	}
	if f, ok := parseFloat(text); ok {
		return &object.Float{Value: f}
	}
	if isoDate.MatchString(text) {
		if t, err := dateparse.ParseIn(text, time.UTC); err == nil {
			return &object.DateTime{Value: t}
		}
	}
	return &object.String{Value: text}
}

func parseInt(text string) (int64, bool) {
	if text == "" || strings.HasPrefix(text, "_") || strings.HasSuffix(text, "_") {
		return 0, false
	}
	// Base 0 accepts 0x, 0o, 0b prefixes and '_' separators.
	i, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func parseFloat(text string) (float64, bool) {
	if text == "" || !strings.ContainsAny(text, "0123456789") ||
		strings.HasPrefix(text, "_") || strings.HasSuffix(text, "_") {
		return 0, false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.HasPrefix(lower, "0x") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseTuple splits "1,2,3". Every element must be non-empty.
func parseTuple(text string) (*object.Tuple, bool) {
	parts := strings.Split(text, ",")
	elems := make([]object.Object, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, false
		}
		elems[i] = ParseLiteral(p, false)
	}
	return &object.Tuple{Elements: elems}, true
}
