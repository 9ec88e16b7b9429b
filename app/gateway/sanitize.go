package gateway

import "regexp"

var (
	merchantRefAllowed = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	scanCodeWhitespace = regexp.MustCompile(`\s+`)
	scanCodeQuotes     = regexp.MustCompile("['`\"‘’“”]")
	scanCodeAllowed    = regexp.MustCompile(`[^a-zA-Z0-9:/.\-?=&_~%]`)
)

// SanitizeMerchantRef strips every character the provider rejects in a
// merchant order reference. The same rule is applied when the reference is
// generated and when the provider echoes it back, so lookups always agree.
// Pure and idempotent.
func SanitizeMerchantRef(ref string) string {
	return merchantRefAllowed.ReplaceAllString(ref, "")
}

// SanitizeScanCode cleans the QR payload returned by the provider, which has
// been observed to arrive wrapped in whitespace and stray quote characters
// (ASCII and typographic) around an otherwise valid URI.
func SanitizeScanCode(code string) string {
	code = scanCodeWhitespace.ReplaceAllString(code, "")
	code = scanCodeQuotes.ReplaceAllString(code, "")
	return scanCodeAllowed.ReplaceAllString(code, "")
}
