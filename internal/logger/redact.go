package logger

import "regexp"

// redactors run, in order, over a record's formatted message and
// serialized metadata before it reaches any sink. This must operate on
// the serialized form, not structured fields, since some
// secrets reach the record as substrings of arbitrary text.
var redactors = []*regexp.Regexp{
	// n8n_api_<token>
	regexp.MustCompile(`n8n_api_[A-Za-z0-9_-]+`),
	// Bearer <token> — only the token half is replaced, handled specially below.
	regexp.MustCompile(`(?i)Bearer\s+([A-Za-z0-9._-]+)`),
	// key=value / "key": "value" forms of well-known secret keys.
	regexp.MustCompile(`(?i)("?(?:password|pwd|apikey|api_key|token|secret)"?\s*[:=]\s*"?)([^"&\s,}]+)`),
	// any long opaque run, last so it doesn't re-mask what's already starred.
	regexp.MustCompile(`[A-Za-z0-9_-]{32,}`),
}

// mask replaces s with "*...xyz": every character but the trailing three
// becomes '*'.
func mask(s string) string {
	if len(s) <= 3 {
		return s
	}
	stars := make([]byte, len(s)-3)
	for i := range stars {
		stars[i] = '*'
	}
	return string(stars) + s[len(s)-3:]
}

// Redact applies the substitution pass to s and returns the sanitized
// string. It is idempotent: re-redacting an already
// redacted string is a no-op because masked runs are all '*' followed by
// 3 trailing chars, which no longer match the 32-char alnum/underscore/
// hyphen pattern once most of the run is asterisks... in practice callers
// redact once, at format time, so idempotence is a safety property rather
// than a hot path.
func Redact(s string) string {
	out := s

	// n8n_api_... tokens.
	out = redactors[0].ReplaceAllStringFunc(out, mask)

	// Bearer <token>: mask only the token, keep "Bearer " intact.
	out = redactors[1].ReplaceAllStringFunc(out, func(m string) string {
		sub := redactors[1].FindStringSubmatch(m)
		if len(sub) != 2 {
			return m
		}
		return "Bearer " + mask(sub[1])
	})

	// key=value / "key": "value" secret fields: mask only the value half.
	out = redactors[2].ReplaceAllStringFunc(out, func(m string) string {
		sub := redactors[2].FindStringSubmatch(m)
		if len(sub) != 3 {
			return m
		}
		return sub[1] + mask(sub[2])
	})

	// Any remaining run of >= 32 alnum/underscore/hyphen characters.
	out = redactors[3].ReplaceAllStringFunc(out, func(m string) string {
		// Already-masked runs are mostly '*'; re-masking them is harmless
		// but wasteful, so skip runs that are already majority-starred.
		stars := 0
		for _, r := range m {
			if r == '*' {
				stars++
			}
		}
		if stars*2 > len(m) {
			return m
		}
		return mask(m)
	})

	return out
}
