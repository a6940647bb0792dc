package ldap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// IdentifierKind is the detected format of a UniqueID.
type IdentifierKind string

const (
	IdentifierDN        IdentifierKind = "dn"
	IdentifierGUID      IdentifierKind = "guid"
	IdentifierSID       IdentifierKind = "sid"
	IdentifierAttribute IdentifierKind = "attribute"
)

// DetectIdentifierKind classifies id. GUIDs and SIDs win over attribute
// values; anything that parses as a multi-part or typed name is a DN.
func DetectIdentifierKind(id UniqueID) IdentifierKind {
	s := strings.TrimSpace(string(id))

	switch {
	case isSID(s):
		return IdentifierSID
	case strings.Contains(s, "="):
		if _, err := ParseDistinguishedName(s); err == nil {
			return IdentifierDN
		}
	}

	if _, ok := parseGUID(s); ok {
		return IdentifierGUID
	}

	return IdentifierAttribute
}

// LookupReason describes why an identifier could not be resolved.
type LookupReason string

const (
	LookupReasonInvalidIdentifier LookupReason = "invalid_identifier"
	LookupReasonNotFound          LookupReason = "not_found"
	LookupReasonAmbiguous         LookupReason = "ambiguous"
	LookupReasonSearchFailed      LookupReason = "search_failed"
)

// LookupError is returned by IdentifierLookup. It matches ErrLookupFailed.
type LookupError struct {
	Reason     LookupReason
	ID         UniqueID
	ObjectType string
	Filter     string
	Cause      error
}

func (e *LookupError) Error() string {
	var msg string
	switch e.Reason {
	case LookupReasonNotFound:
		msg = fmt.Sprintf("no %s found for identifier %q", e.ObjectType, e.ID)
	case LookupReasonAmbiguous:
		msg = fmt.Sprintf("identifier %q matches more than one %s", e.ID, e.ObjectType)
	case LookupReasonInvalidIdentifier:
		msg = fmt.Sprintf("invalid %s identifier %q", e.ObjectType, e.ID)
	default:
		msg = fmt.Sprintf("failed to look up %s %q", e.ObjectType, e.ID)
	}

	if e.Filter != "" {
		msg += " (filter " + e.Filter + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return fmt.Sprintf("%s: %s", ErrLookupFailed, msg)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailed
}

// IdentifierLookup is the built-in DirectoryLookup. It searches for a single
// entry of the object type by DN, GUID, SID or identifier attribute.
type IdentifierLookup struct {
	baseDN string
}

var _ DirectoryLookup = (*IdentifierLookup)(nil)

// NewIdentifierLookup returns a lookup searching under baseDN unless the
// object type names its own search base.
func NewIdentifierLookup(baseDN string) *IdentifierLookup {
	return &IdentifierLookup{baseDN: baseDN}
}

// ResolveName returns the current DN of the entry identified by id.
func (l *IdentifierLookup) ResolveName(ctx context.Context, session Session, objectType ObjectType, id UniqueID) (DistinguishedName, error) {
	lookupErr := func(reason LookupReason, filter string, cause error) error {
		return &LookupError{Reason: reason, ID: id, ObjectType: objectType.displayName(), Filter: filter, Cause: cause}
	}

	if session == nil {
		return DistinguishedName{}, lookupErr(LookupReasonSearchFailed, "", errors.New("session cannot be nil"))
	}

	raw := strings.TrimSpace(string(id))
	if raw == "" {
		return DistinguishedName{}, lookupErr(LookupReasonInvalidIdentifier, "", errors.New("identifier cannot be empty"))
	}

	kind := DetectIdentifierKind(id)
	classFilter := fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(objectType.ObjectClass))

	req := &SearchRequest{
		BaseDN:     objectType.SearchBase,
		Scope:      ScopeWholeSubtree,
		Attributes: []string{"1.1"},
		SizeLimit:  2,
	}
	if req.BaseDN == "" {
		req.BaseDN = l.baseDN
	}

	switch kind {
	case IdentifierDN:
		req.BaseDN = raw
		req.Scope = ScopeBaseObject
		req.Filter = classFilter
	case IdentifierGUID:
		guid, _ := parseGUID(raw)
		req.Filter = fmt.Sprintf("(&%s%s)", classFilter, guidFilter(objectType.guidAttribute(), guid))
	case IdentifierSID:
		req.Filter = fmt.Sprintf("(&%s(objectSid=%s))", classFilter, ldap.EscapeFilter(strings.ToUpper(raw)))
		req.Attributes = []string{"objectSid"}
	default:
		req.Filter = fmt.Sprintf("(&%s(%s=%s))", classFilter, objectType.idAttribute(), ldap.EscapeFilter(raw))
	}

	if req.BaseDN == "" {
		return DistinguishedName{}, lookupErr(LookupReasonInvalidIdentifier, req.Filter, errors.New("no search base configured"))
	}

	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Resolving identifier", map[string]any{
		"identifier":      raw,
		"identifier_kind": string(kind),
		"object_type":     objectType.displayName(),
		"base_dn":         req.BaseDN,
		"filter":          req.Filter,
	})

	result, err := session.Search(ctx, req)
	if err != nil {
		if kind == IdentifierDN && IsNotFoundError(err) {
			return DistinguishedName{}, lookupErr(LookupReasonNotFound, req.Filter, nil)
		}
		return DistinguishedName{}, lookupErr(LookupReasonSearchFailed, req.Filter, err)
	}

	entries := result.Entries
	if kind == IdentifierSID {
		entries = matchingSID(entries, raw)
	}

	switch {
	case len(entries) == 0:
		return DistinguishedName{}, lookupErr(LookupReasonNotFound, req.Filter, nil)
	case len(entries) > 1:
		return DistinguishedName{}, lookupErr(LookupReasonAmbiguous, req.Filter, nil)
	}

	dn, err := ParseDistinguishedName(entries[0].DN)
	if err != nil {
		return DistinguishedName{}, lookupErr(LookupReasonSearchFailed, req.Filter, err)
	}

	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Identifier resolved", map[string]any{
		"identifier": raw,
		"dn":         dn.String(),
	})

	return dn, nil
}

// matchingSID drops entries whose decoded objectSid differs from sid.
// Entries that did not return the attribute are kept.
func matchingSID(entries []*ldap.Entry, sid string) []*ldap.Entry {
	var out []*ldap.Entry
	for _, entry := range entries {
		if got := entrySID(entry); got != "" && !strings.EqualFold(got, sid) {
			continue
		}
		out = append(out, entry)
	}
	return out
}
