// Package privacy removes credentials and host details from text that leaves
// the process: log lines, error reports and API responses.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// urlPattern finds scheme://... URLs, including shoutrrr service URLs
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]{1,20}://\S+`)

	// apiKeyPattern finds Google style API keys
	apiKeyPattern = regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)

	// keyParamPattern finds key=..., token=... style query or form values
	keyParamPattern = regexp.MustCompile(`(?i)\b(key|api_key|apikey|token|password|secret)=([^&\s]+)`)

	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage replaces URLs with anonymized identifiers and masks API keys.
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = apiKeyPattern.ReplaceAllString(message, "[API_KEY]")
	return keyParamPattern.ReplaceAllString(message, "$1=[REDACTED]")
}

// AnonymizeURL converts a URL to a stable hash that keeps the scheme,
// the kind of host and the port, so equal endpoints still correlate.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if parsedURL.Scheme != "" {
		parts = append(parts, parsedURL.Scheme)
	}
	if host := parsedURL.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if parsedURL.Port() != "" {
		parts = append(parts, "port-"+parsedURL.Port())
	}
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		parts = append(parts, anonymizePath(parsedURL.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s-url-%x", schemeOrUnknown(parsedURL.Scheme), hash[:8])
}

// RedactURL keeps scheme, host and port of a URL for display and drops
// credentials, path and query, which is where service tokens live.
func RedactURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" {
		return "[invalid-url]"
	}
	redacted := parsedURL.Scheme + "://"
	if parsedURL.User != nil {
		redacted += "***@"
	}
	redacted += parsedURL.Host
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		redacted += "/***"
	}
	return redacted
}

func schemeOrUnknown(scheme string) string {
	if scheme == "" {
		return "unknown"
	}
	return strings.ToLower(scheme)
}

// categorizeHost anonymizes a hostname while keeping its category.
func categorizeHost(host string) string {
	switch {
	case host == "localhost" || host == "127.0.0.1" || host == "::1":
		return "localhost"
	case isPrivateIP(host):
		return "private-ip"
	case isIPAddress(host):
		return "public-ip"
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}
	return "unknown-host"
}

// anonymizePath hashes each path segment, keeping numeric ones recognisable.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if isNumeric(segment) {
			segments = append(segments, "numeric")
			continue
		}
		hash := sha256.Sum256([]byte(segment))
		segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
	}
	return strings.Join(segments, "/")
}

// isPrivateIP checks if the host is a private IPv4 or IPv6 address.
func isPrivateIP(host string) bool {
	privateRanges := []string{
		"10.", "172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.", "169.254.",
		"fc00:", "fd00:", "fe80:",
	}

	host = strings.ToLower(host)
	for _, prefix := range privateRanges {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

func isIPAddress(host string) bool {
	return ipv4Pattern.MatchString(host) || strings.Contains(host, ":")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
