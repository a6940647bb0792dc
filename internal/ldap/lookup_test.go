package ldap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDetectIdentifierKind(t *testing.T) {
	tests := []struct {
		id   UniqueID
		want IdentifierKind
	}{
		{id: "cn=george,ou=people,dc=example,dc=com", want: IdentifierDN},
		{id: "uid=george", want: IdentifierDN},
		{id: "12345678-1234-1234-1234-123456789012", want: IdentifierGUID},
		{id: "{12345678-1234-1234-1234-123456789012}", want: IdentifierGUID},
		{id: "S-1-5-21-123456789-123456789-123456789-1001", want: IdentifierSID},
		{id: "george", want: IdentifierAttribute},
		{id: "george.smith@example.com", want: IdentifierAttribute},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIdentifierKind(tt.id))
		})
	}
}

func searchResult(dns ...string) *SearchResult {
	result := &SearchResult{}
	for _, dn := range dns {
		result.Entries = append(result.Entries, ldap.NewEntry(dn, nil))
	}
	result.Total = len(result.Entries)
	return result
}

func TestIdentifierLookup_ResolveName(t *testing.T) {
	objectType := ObjectType{
		Name:        "person",
		ObjectClass: "inetOrgPerson",
		SearchBase:  "ou=people,dc=example,dc=com",
	}

	tests := []struct {
		name       string
		objectType ObjectType
		id         UniqueID
		match      func(*SearchRequest) bool
	}{
		{
			name:       "attribute value",
			objectType: objectType,
			id:         "george",
			match: func(req *SearchRequest) bool {
				return req.BaseDN == "ou=people,dc=example,dc=com" &&
					req.Scope == ScopeWholeSubtree &&
					req.Filter == "(&(objectClass=inetOrgPerson)(uid=george))" &&
					req.SizeLimit == 2
			},
		},
		{
			name:       "custom identifier attribute",
			objectType: ObjectType{ObjectClass: "inetOrgPerson", SearchBase: "dc=example,dc=com", IDAttribute: "employeeNumber"},
			id:         "1001",
			match: func(req *SearchRequest) bool {
				return req.Filter == "(&(objectClass=inetOrgPerson)(employeeNumber=1001))"
			},
		},
		{
			name:       "attribute value is escaped",
			objectType: objectType,
			id:         "geo*rge(x)",
			match: func(req *SearchRequest) bool {
				return req.Filter == `(&(objectClass=inetOrgPerson)(uid=geo\2arge\28x\29))`
			},
		},
		{
			name:       "distinguished name",
			objectType: objectType,
			id:         "cn=george,ou=people,dc=example,dc=com",
			match: func(req *SearchRequest) bool {
				return req.BaseDN == "cn=george,ou=people,dc=example,dc=com" &&
					req.Scope == ScopeBaseObject &&
					req.Filter == "(objectClass=inetOrgPerson)"
			},
		},
		{
			name:       "guid",
			objectType: objectType,
			id:         "01234567-89ab-cdef-0123-456789abcdef",
			match: func(req *SearchRequest) bool {
				return req.Filter == "(&(objectClass=inetOrgPerson)(entryUUID=01234567-89ab-cdef-0123-456789abcdef))"
			},
		},
		{
			name:       "active directory guid",
			objectType: ObjectType{ObjectClass: "user", SearchBase: "dc=example,dc=com", GUIDAttribute: "objectGUID"},
			id:         "01234567-89ab-cdef-0123-456789abcdef",
			match: func(req *SearchRequest) bool {
				return strings.HasPrefix(req.Filter, `(&(objectClass=user)(objectGUID=\67\45\23\01`)
			},
		},
		{
			name:       "sid",
			objectType: objectType,
			id:         "s-1-5-21-1-2-3-1001",
			match: func(req *SearchRequest) bool {
				return req.Filter == "(&(objectClass=inetOrgPerson)(objectSid=S-1-5-21-1-2-3-1001))" &&
					len(req.Attributes) == 1 && req.Attributes[0] == "objectSid"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := new(MockSession)
			session.On("Search", mock.Anything, mock.MatchedBy(tt.match)).
				Return(searchResult("cn=george,ou=people,dc=example,dc=com"), nil).Once()

			dn, err := NewIdentifierLookup("dc=example,dc=com").ResolveName(context.Background(), session, tt.objectType, tt.id)

			require.NoError(t, err)
			assert.Equal(t, "cn=george,ou=people,dc=example,dc=com", dn.String())
			session.AssertExpectations(t)
		})
	}
}

func TestIdentifierLookup_DefaultsToProviderBase(t *testing.T) {
	session := new(MockSession)
	session.On("Search", mock.Anything, mock.MatchedBy(func(req *SearchRequest) bool {
		return req.BaseDN == "dc=example,dc=com"
	})).Return(searchResult("cn=george,dc=example,dc=com"), nil)

	_, err := NewIdentifierLookup("dc=example,dc=com").ResolveName(context.Background(), session,
		ObjectType{ObjectClass: "person"}, "george")

	require.NoError(t, err)
	session.AssertExpectations(t)
}

func TestIdentifierLookup_Failures(t *testing.T) {
	objectType := ObjectType{Name: "person", ObjectClass: "inetOrgPerson", SearchBase: "dc=example,dc=com"}

	tests := []struct {
		name       string
		objectType ObjectType
		id         UniqueID
		result     *SearchResult
		searchErr  error
		noSearch   bool
		wantReason LookupReason
	}{
		{
			name:       "no entries",
			objectType: objectType,
			id:         "george",
			result:     searchResult(),
			wantReason: LookupReasonNotFound,
		},
		{
			name:       "more than one entry",
			objectType: objectType,
			id:         "george",
			result:     searchResult("cn=george,ou=a,dc=example,dc=com", "cn=george,ou=b,dc=example,dc=com"),
			wantReason: LookupReasonAmbiguous,
		},
		{
			name:       "search failed",
			objectType: objectType,
			id:         "george",
			searchErr:  WrapError("search", ldap.NewError(ldap.LDAPResultBusy, errors.New("busy"))),
			wantReason: LookupReasonSearchFailed,
		},
		{
			name:       "dn no longer exists",
			objectType: objectType,
			id:         "cn=gone,dc=example,dc=com",
			searchErr:  WrapError("search", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))),
			wantReason: LookupReasonNotFound,
		},
		{
			name:       "unparseable entry name",
			objectType: objectType,
			id:         "george",
			result:     searchResult("not a dn"),
			wantReason: LookupReasonSearchFailed,
		},
		{
			name:       "empty identifier",
			objectType: objectType,
			id:         "  ",
			noSearch:   true,
			wantReason: LookupReasonInvalidIdentifier,
		},
		{
			name:       "no search base",
			objectType: ObjectType{ObjectClass: "person"},
			id:         "george",
			noSearch:   true,
			wantReason: LookupReasonInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := new(MockSession)
			if !tt.noSearch {
				session.On("Search", mock.Anything, mock.Anything).Return(tt.result, tt.searchErr).Once()
			}

			dn, err := NewIdentifierLookup("").ResolveName(context.Background(), session, tt.objectType, tt.id)

			require.Error(t, err)
			assert.True(t, dn.IsZero())
			assert.ErrorIs(t, err, ErrLookupFailed)
			assert.Equal(t, RenameErrorLookupFailed, GetRenameErrorKind(err))

			var lookupErr *LookupError
			require.ErrorAs(t, err, &lookupErr)
			assert.Equal(t, tt.wantReason, lookupErr.Reason)
			assert.Equal(t, tt.id, lookupErr.ID)
			assert.Equal(t, tt.wantReason == LookupReasonNotFound, IsNotFoundError(err))

			session.AssertExpectations(t)
		})
	}
}

func TestIdentifierLookup_NilSession(t *testing.T) {
	_, err := NewIdentifierLookup("dc=com").ResolveName(context.Background(), nil, ObjectType{ObjectClass: "person"}, "george")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestIdentifierLookup_FiltersMismatchedSIDs(t *testing.T) {
	sid := "S-1-5-21-1-2-3-1001"
	objectType := ObjectType{ObjectClass: "user", SearchBase: "dc=example,dc=com"}

	session := new(MockSession)
	session.On("Search", mock.Anything, mock.Anything).Return(&SearchResult{
		Entries: []*ldap.Entry{
			sidEntry("cn=george,dc=example,dc=com", binarySID(21, 1, 2, 3, 1001)),
			sidEntry("cn=other,dc=example,dc=com", binarySID(21, 1, 2, 3, 1002)),
		},
		Total: 2,
	}, nil)

	dn, err := NewIdentifierLookup("").ResolveName(context.Background(), session, objectType, UniqueID(sid))

	require.NoError(t, err)
	assert.Equal(t, "cn=george,dc=example,dc=com", dn.String())
}

func TestLookupError_Error(t *testing.T) {
	err := &LookupError{
		Reason:     LookupReasonAmbiguous,
		ID:         "george",
		ObjectType: "person",
		Filter:     "(uid=george)",
	}

	assert.Equal(t, `lookup failed: identifier "george" matches more than one person (filter (uid=george))`, err.Error())

	cause := errors.New("connection reset")
	err = &LookupError{Reason: LookupReasonSearchFailed, ID: "george", ObjectType: "person", Cause: cause}
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)
}
