package ldap

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

var sidRegex = regexp.MustCompile(`^S-1-[0-9]+(-[0-9]+)+$`)

func isSID(s string) bool {
	return sidRegex.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// entrySID returns the objectSid of entry in S-1-... form. Directories that
// return the binary encoding are decoded, string values are used as is.
func entrySID(entry *ldap.Entry) string {
	if entry == nil {
		return ""
	}

	if raw := entry.GetRawAttributeValue("objectSid"); len(raw) > 0 {
		if raw[0] == 1 {
			return objectsid.Decode(raw).String()
		}
		// Already textual
		if s := string(raw); isSID(s) {
			return s
		}
	}

	return ""
}
