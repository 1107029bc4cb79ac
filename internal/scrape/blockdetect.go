package scrape

import (
	"bytes"
	"net/http"
)

// BlockType labels a response that looks like an anti-bot interstitial
// rather than the site's real homepage.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellMaxBytes bounds the body size considered for the JS-shell check.
const jsShellMaxBytes = 2000

var (
	cloudflareMarkers = [][]byte{[]byte("checking your browser"), []byte("cf-browser-verification")}
	captchaMarkers    = [][]byte{[]byte("captcha")} // also matches recaptcha and hcaptcha
)

// detectBlock classifies a fetched page. Only the head of body is inspected.
func detectBlock(status int, header http.Header, body []byte) BlockType {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("Cf-Ray") != "" || header.Get("Cf-Cache-Status") != "" ||
			header.Get("Server") == "cloudflare" {
			return BlockCloudflare
		}
	}

	head := body
	if len(head) > 64<<10 {
		head = head[:64<<10]
	}
	lower := bytes.ToLower(head)

	if containsAny(lower, cloudflareMarkers) ||
		(bytes.Contains(lower, []byte("cloudflare")) && bytes.Contains(lower, []byte("challenge"))) {
		return BlockCloudflare
	}
	if containsAny(lower, captchaMarkers) {
		return BlockCaptcha
	}
	if len(body) < jsShellMaxBytes {
		if bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("javascript")) {
			return BlockJSShell
		}
		if bytes.Contains(lower, []byte(`http-equiv="refresh"`)) {
			return BlockJSShell
		}
	}
	return BlockNone
}

func containsAny(b []byte, markers [][]byte) bool {
	for _, m := range markers {
		if bytes.Contains(b, m) {
			return true
		}
	}
	return false
}
