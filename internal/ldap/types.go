package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Session is an open, authenticated channel to a directory server.
type Session interface {
	// Rename moves the entry at origin so it becomes addressable at target.
	// Protocol failures are returned as reported by the server.
	Rename(ctx context.Context, origin, target DistinguishedName) error

	// Search runs a single search on the session.
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
}

// Endpoint hands out a live Session, establishing or re-validating the
// underlying connection as needed.
type Endpoint interface {
	Connect(ctx context.Context) (Session, error)
}

// DirectoryLookup resolves an opaque identifier to an entry's current name.
type DirectoryLookup interface {
	ResolveName(ctx context.Context, session Session, objectType ObjectType, id UniqueID) (DistinguishedName, error)
}

// Tracer receives diagnostic events from directory operations.
// *TFLogger satisfies it.
type Tracer interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Trace(msg string, fields map[string]any)
}

// UniqueID identifies an entry independently of its name: a DN, GUID, SID or
// the value of the object type's identifier attribute.
type UniqueID string

// NamedValue is an attribute type together with its values.
type NamedValue struct {
	Name   string
	Values []string
}

// ObjectType describes the logical class of entries an operation works on.
type ObjectType struct {
	Name          string // logical name used in diagnostics
	ObjectClass   string // structural objectClass used to scope lookups
	SearchBase    string // subtree searched by identifier lookups
	IDAttribute   string // attribute holding plain identifiers (default "uid")
	GUIDAttribute string // attribute holding GUID identifiers (default "entryUUID")
}

const (
	DefaultIDAttribute   = "uid"
	DefaultGUIDAttribute = "entryUUID"
)

// Validate checks that the object type can scope a directory operation.
func (t ObjectType) Validate() error {
	if strings.TrimSpace(t.ObjectClass) == "" {
		return fmt.Errorf("object class cannot be empty")
	}
	if !attributeDescriptorRegex.MatchString(t.ObjectClass) {
		return fmt.Errorf("invalid object class %q", t.ObjectClass)
	}
	for name, attr := range map[string]string{
		"ID attribute":   t.IDAttribute,
		"GUID attribute": t.GUIDAttribute,
	} {
		if attr != "" && !attributeDescriptorRegex.MatchString(attr) {
			return fmt.Errorf("invalid %s %q", name, attr)
		}
	}
	if t.SearchBase != "" {
		if _, err := ldap.ParseDN(t.SearchBase); err != nil {
			return fmt.Errorf("invalid search base %q: %w", t.SearchBase, err)
		}
	}
	return nil
}

// idAttribute returns the configured identifier attribute or the default.
func (t ObjectType) idAttribute() string {
	if t.IDAttribute == "" {
		return DefaultIDAttribute
	}
	return t.IDAttribute
}

func (t ObjectType) guidAttribute() string {
	if t.GUIDAttribute == "" {
		return DefaultGUIDAttribute
	}
	return t.GUIDAttribute
}

func (t ObjectType) displayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ObjectClass
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN       string
	Scope        SearchScope
	Filter       string
	Attributes   []string
	SizeLimit    int
	TimeLimit    time.Duration
	DerefAliases DerefAliases
}

// SearchResult contains search results and metadata.
type SearchResult struct {
	Entries []*ldap.Entry
	Total   int
	HasMore bool
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// DerefAliases defines alias dereferencing behavior.
type DerefAliases int

const (
	NeverDerefAliases DerefAliases = iota
	DerefInSearching
	DerefFindingBaseObj
	DerefAlways
)

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // External/certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host   string
	Port   int
	UseTLS bool
}
