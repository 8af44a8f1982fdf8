package services

import "regexp"

// secretPatterns are checked in order; the first match wins. The final long
// alphanumeric run is intentionally broad: skipping a translation is cheap,
// sending a pasted credential to a third-party API is not.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`),                // OpenAI / Anthropic style keys
	regexp.MustCompile(`\bAIza[A-Za-z0-9_-]{30,}`),               // Google API keys
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{30,}`),           // GitHub tokens
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{16,}`), // bearer token shape
	regexp.MustCompile(`(?i)api[-_]?key\s*[:=]`),                 // explicit "api_key=" mentions
	regexp.MustCompile(`[A-Za-z0-9]{32,}`),                       // long opaque alphanumeric run
}

// IsLikelySecret reports whether text contains a credential-shaped substring.
// False positives are tolerated: the caller skips translation and the original
// text still reaches the operator untouched.
func IsLikelySecret(text string) bool {
	for _, p := range secretPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
