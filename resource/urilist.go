package resource

import (
	"bufio"
	"bytes"
	"net/url"
	"strings"
)

// EncodeURIList renders uris as a text/uri-list body, one URI per CRLF
// separated line.
func EncodeURIList(uris []string) []byte {
	return []byte(strings.Join(uris, "\r\n"))
}

// DecodeURIList parses a text/uri-list body, skipping blank and comment
// lines.
func DecodeURIList(body []byte) []string {
	var uris []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris
}

// ResolveReference resolves href against base. Absolute hrefs and unparsable
// input are returned unchanged.
func ResolveReference(base string, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.TrimSpace(base) == "" {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
