package ldap

import (
	"strings"
)

// dnSpecials must be backslash-escaped anywhere in an attribute value.
const dnSpecials = `,+"\<>;`

// EscapeDNValue escapes an attribute value for use in a DN string (RFC 4514
// section 2.4). A leading '#', leading or trailing spaces and NUL are escaped
// as well.
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 4)

	last := len(value) - 1
	for i, r := range value {
		switch {
		case r == 0:
			b.WriteString(`\00`)
			continue
		case strings.ContainsRune(dnSpecials, r),
			r == '#' && i == 0,
			r == ' ' && (i == 0 || i == last):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}

	return b.String()
}
