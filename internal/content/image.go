package content

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	driveFileRe = regexp.MustCompile(`(?i)drive\.google\.com/file/d/([^/]+)/`)
	driveOpenRe = regexp.MustCompile(`(?i)drive\.google\.com/open\?id=([^&]+)`)
	driveUcRe   = regexp.MustCompile(`(?i)drive\.google\.com/uc\?.*id=([^&]+)`)
)

// ImageProxyPath is the reader-facing image proxy route.
const ImageProxyPath = "/v1/image"

// NormalizeImageURL trims the URL and rewrites Google Drive share links to
// their direct-view form. data: and blob: URLs pass through.
func NormalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "data:") || strings.HasPrefix(raw, "blob:") {
		return raw
	}

	for _, re := range []*regexp.Regexp{driveFileRe, driveOpenRe, driveUcRe} {
		if m := re.FindStringSubmatch(raw); m != nil && m[1] != "" {
			return "https://drive.google.com/uc?export=view&id=" + url.QueryEscape(m[1])
		}
	}
	return raw
}

// ProxiedImageSrc returns the proxy URL readers should load the image
// through. Same-origin paths and inline data are returned unchanged.
func ProxiedImageSrc(raw string) string {
	normalized := NormalizeImageURL(raw)
	if normalized == "" || strings.HasPrefix(normalized, "/") || IsInlineImage(normalized) {
		return normalized
	}
	return ImageProxyPath + "?url=" + url.QueryEscape(normalized)
}

// IsInlineImage reports whether the URL carries its own bytes.
func IsInlineImage(u string) bool {
	return strings.HasPrefix(u, "data:") || strings.HasPrefix(u, "blob:")
}
