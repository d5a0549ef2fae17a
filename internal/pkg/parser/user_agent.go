package parser

import "strings"

// Bot buckets attached to click events. "suspect" clicks are counted as
// invalid; "declared_bot" and "headless" likewise.
const (
	BucketHuman       = "human"
	BucketDeclaredBot = "declared_bot"
	BucketHeadless    = "headless"
	BucketSuspect     = "suspect"
)

var declaredBotTokens = []string{
	"bot", "crawler", "spider", "slurp", "facebookexternalhit",
	"curl", "wget", "python-requests", "go-http-client",
}

var headlessTokens = []string{
	"headlesschrome", "phantomjs", "electron", "playwright", "puppeteer",
}

func ClassifyBot(ua string) string {
	uaLower := strings.ToLower(strings.TrimSpace(ua))

	if uaLower == "" {
		return BucketSuspect
	}

	for _, token := range headlessTokens {
		if strings.Contains(uaLower, token) {
			return BucketHeadless
		}
	}

	for _, token := range declaredBotTokens {
		if strings.Contains(uaLower, token) {
			return BucketDeclaredBot
		}
	}

	// A real browser UA carries a Mozilla product token; anything else that
	// got this far is unclassifiable traffic.
	if !strings.Contains(uaLower, "mozilla") {
		return BucketSuspect
	}

	return BucketHuman
}

// IsInvalidBucket reports whether a bucket counts against click validity.
func IsInvalidBucket(bucket string) bool {
	return bucket != BucketHuman
}
