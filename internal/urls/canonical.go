// Package urls provides URL canonicalization and dedup-key derivation.
// Candidates are canonicalized before any caching or dedup check so that the
// same page expressed through different URLs produces the same key.
package urls

import (
	"crypto/sha1" //nolint:gosec // dedup fingerprint, not a security boundary
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxTitleKeyLen caps the normalized title key used for fuzzy title dedup.
const maxTitleKeyLen = 100

// maxHashedTextLen bounds how much extracted text feeds the content hash.
// Hashing a prefix keeps the fingerprint stable when pages differ only in
// trailing boilerplate (related links, comment sections).
const maxHashedTextLen = 5000

// nonWordRe strips everything that is not a letter, digit, or underscore.
// Unicode-aware so non-English titles keep their letters and stay distinct
// as dedup keys.
var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Canonical reduces a raw URL to scheme://host/path with the query and
// fragment stripped and any trailing slash trimmed. Scheme and host are
// lowercased. This is the cache key and the dedup key everywhere downstream.
// Unparsable input is returned trimmed rather than rejected; callers treat an
// empty result as "no URL".
func Canonical(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSpace(raw)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)

	return strings.TrimRight(scheme+"://"+host+parsed.Path, "/")
}

// Host returns the lowercased hostname (without port) of a URL, or an empty
// string when the URL cannot be parsed.
func Host(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return strings.ToLower(parsed.Hostname())
}

// SameDomain reports whether the URL's host is the given domain or one of its
// subdomains.
func SameDomain(raw, domain string) bool {
	host := Host(raw)
	if host == "" {
		return false
	}

	domain = strings.ToLower(domain)

	return host == domain || strings.HasSuffix(host, "."+domain)
}

// TitleKey normalizes a title for fuzzy duplicate detection: lowercased,
// all non-word characters removed, capped in length.
func TitleKey(title string) string {
	key := nonWordRe.ReplaceAllString(strings.ToLower(title), "")
	if len(key) > maxTitleKeyLen {
		cut := maxTitleKeyLen
		for cut > 0 && !utf8.RuneStart(key[cut]) {
			cut--
		}
		key = key[:cut]
	}

	return key
}

// ContentHash returns the SHA-1 hex digest of a bounded prefix of the
// extracted page text, used as the third dedup layer.
func ContentHash(text string) string {
	if len(text) > maxHashedTextLen {
		text = text[:maxHashedTextLen]
	}

	sum := sha1.Sum([]byte(text)) //nolint:gosec // dedup fingerprint

	return hex.EncodeToString(sum[:])
}
