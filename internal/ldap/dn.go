package ldap

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/cases"
)

// attributeDescriptorRegex matches an attribute type as a keystring or a numeric OID (RFC 4512).
var attributeDescriptorRegex = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9-]*|[0-9]+(?:\.[0-9]+)*)$`)

// IsAttributeDescriptor reports whether s is a usable attribute type name.
func IsAttributeDescriptor(s string) bool {
	return attributeDescriptorRegex.MatchString(s)
}

// attributeValue is a single attribute type/value pair of a relative name.
type attributeValue struct {
	attrType string
	value    string
}

// relativeName is one component of a DistinguishedName. Multi-valued RDNs
// ("cn=a+uid=b") hold more than one pair.
type relativeName []attributeValue

// DistinguishedName is an immutable, parsed directory name.
//
// The leading component is the entry's relative name; every following
// component forms the suffix shared with the entry's siblings. All methods
// return new values and never modify the receiver, so a name resolved once can
// be reused across calls without aliasing.
type DistinguishedName struct {
	rdns []relativeName
}

// ParseDistinguishedName parses an RFC 4514 string representation.
// Empty and malformed input fails with an InvalidName error.
func ParseDistinguishedName(dn string) (DistinguishedName, error) {
	if strings.TrimSpace(dn) == "" {
		return DistinguishedName{}, NewInvalidNameError(dn, fmt.Errorf("DN cannot be empty"))
	}

	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return DistinguishedName{}, NewInvalidNameError(dn, fmt.Errorf("invalid DN syntax: %w", err))
	}

	return fromLDAPDN(parsed), nil
}

// MustParseDistinguishedName is like ParseDistinguishedName but panics on error.
// Intended for constants and tests.
func MustParseDistinguishedName(dn string) DistinguishedName {
	parsed, err := ParseDistinguishedName(dn)
	if err != nil {
		panic(err)
	}
	return parsed
}

// NewDistinguishedName builds a single-component name from a naming attribute
// type and a raw (unescaped) value, e.g. ("cn", "Doe, John") → "cn=Doe\, John".
func NewDistinguishedName(attrType, value string) (DistinguishedName, error) {
	attrType = strings.TrimSpace(attrType)
	raw := attrType + "=" + EscapeDNValue(value)

	if !attributeDescriptorRegex.MatchString(attrType) {
		return DistinguishedName{}, NewInvalidNameError(raw, fmt.Errorf("invalid attribute type %q", attrType))
	}
	if !utf8.ValidString(value) {
		return DistinguishedName{}, NewInvalidNameError(attrType+"=", fmt.Errorf("attribute value %q is not valid UTF-8", value))
	}

	// Round-trip through the parser so the result is exactly what the
	// directory would accept.
	parsed, err := ldap.ParseDN(raw)
	if err != nil {
		return DistinguishedName{}, NewInvalidNameError(raw, fmt.Errorf("invalid attribute value: %w", err))
	}
	if len(parsed.RDNs) != 1 || len(parsed.RDNs[0].Attributes) != 1 {
		return DistinguishedName{}, NewInvalidNameError(raw, fmt.Errorf("value does not form a single relative name"))
	}

	return fromLDAPDN(parsed), nil
}

func fromLDAPDN(parsed *ldap.DN) DistinguishedName {
	rdns := make([]relativeName, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		rn := make(relativeName, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			rn = append(rn, attributeValue{attrType: attr.Type, value: attr.Value})
		}
		rdns = append(rdns, rn)
	}
	return DistinguishedName{rdns: rdns}
}

// IsZero reports whether the name has no components.
func (d DistinguishedName) IsZero() bool {
	return len(d.rdns) == 0
}

// Len returns the number of relative name components.
func (d DistinguishedName) Len() int {
	return len(d.rdns)
}

// RDN returns the leading relative name as a single-component name.
func (d DistinguishedName) RDN() DistinguishedName {
	if d.IsZero() {
		return DistinguishedName{}
	}
	return DistinguishedName{rdns: cloneRDNs(d.rdns[:1])}
}

// Suffix returns every component after the leading relative name.
// A single-component name has an empty suffix.
func (d DistinguishedName) Suffix() DistinguishedName {
	if len(d.rdns) <= 1 {
		return DistinguishedName{}
	}
	return DistinguishedName{rdns: cloneRDNs(d.rdns[1:])}
}

// WithSuffix returns a new name made of d's components followed by suffix's.
func (d DistinguishedName) WithSuffix(suffix DistinguishedName) DistinguishedName {
	rdns := make([]relativeName, 0, len(d.rdns)+len(suffix.rdns))
	rdns = append(rdns, cloneRDNs(d.rdns)...)
	rdns = append(rdns, cloneRDNs(suffix.rdns)...)
	return DistinguishedName{rdns: rdns}
}

// HasSuffix reports whether suffix matches the trailing components of d.
// Every name has the empty suffix.
func (d DistinguishedName) HasSuffix(suffix DistinguishedName) bool {
	if len(suffix.rdns) > len(d.rdns) {
		return false
	}
	offset := len(d.rdns) - len(suffix.rdns)
	for i, rdn := range suffix.rdns {
		if canonicalRDN(d.rdns[offset+i]) != canonicalRDN(rdn) {
			return false
		}
	}
	return true
}

// RDNValue returns the value of attrType in the leading relative name.
func (d DistinguishedName) RDNValue(attrType string) (string, bool) {
	if d.IsZero() {
		return "", false
	}
	for _, av := range d.rdns[0] {
		if strings.EqualFold(av.attrType, attrType) {
			return av.value, true
		}
	}
	return "", false
}

// Equal reports whether both names have the same canonical form.
func (d DistinguishedName) Equal(other DistinguishedName) bool {
	if len(d.rdns) != len(other.rdns) {
		return false
	}
	return d.Canonical() == other.Canonical()
}

// Canonical returns the normalized form used for comparison: attribute types
// lower-cased, values case-folded with insignificant whitespace removed,
// multi-valued RDN pairs sorted.
func (d DistinguishedName) Canonical() string {
	parts := make([]string, len(d.rdns))
	for i, rdn := range d.rdns {
		parts[i] = canonicalRDN(rdn)
	}
	return strings.Join(parts, ",")
}

// String renders the name with attribute types as given and RFC 4514 escaped values.
func (d DistinguishedName) String() string {
	parts := make([]string, len(d.rdns))
	for i, rdn := range d.rdns {
		pairs := make([]string, len(rdn))
		for j, av := range rdn {
			pairs[j] = av.attrType + "=" + EscapeDNValue(av.value)
		}
		parts[i] = strings.Join(pairs, "+")
	}
	return strings.Join(parts, ",")
}

func canonicalRDN(rdn relativeName) string {
	pairs := make([]string, len(rdn))
	for i, av := range rdn {
		pairs[i] = strings.ToLower(av.attrType) + "=" + EscapeDNValue(normalizeValue(av.value))
	}
	slices.Sort(pairs)
	return strings.Join(pairs, "+")
}

// normalizeValue applies caseIgnoreMatch semantics: Unicode case folding and
// insignificant space handling (RFC 4518 §2.6.1).
func normalizeValue(value string) string {
	folded := cases.Fold().String(value)
	return strings.Join(strings.Fields(folded), " ")
}

func cloneRDNs(rdns []relativeName) []relativeName {
	out := make([]relativeName, len(rdns))
	for i, rdn := range rdns {
		out[i] = slices.Clone(rdn)
	}
	return out
}
