package config

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "***"

// keywordPassword matches password=... in a libpq keyword/value DSN.
var keywordPassword = regexp.MustCompile(`(^|\s)password\s*=\s*('(?:[^'\\]|\\.)*'|\S*)`)

// RedactURL masks the password in a connection string before it is printed
// or logged. Both URL form (postgres://user:pw@host/db) and keyword form
// (host=h password=pw) are handled. SQLite paths and strings without a
// password come back unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		return keywordPassword.ReplaceAllString(raw, "${1}password="+redacted)
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	// Splice on the raw string so the rest of the URL keeps its encoding.
	afterScheme := strings.Index(raw, "://") + len("://")

	at := strings.LastIndex(raw[afterScheme:], "@")
	if at < 0 {
		return raw
	}

	userinfo := raw[afterScheme : afterScheme+at]

	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return raw
	}

	return raw[:afterScheme] + userinfo[:colon+1] + redacted + raw[afterScheme+at:]
}
