package ldap

import (
	"context"
	"errors"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// protocolConn is the subset of *ldap.Conn a session needs.
type protocolConn interface {
	ModifyDN(req *ldap.ModifyDNRequest) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	IsClosing() bool
	Close() error
}

// ldapSession implements Session on top of a bound go-ldap connection.
type ldapSession struct {
	conn     protocolConn
	pageSize uint32
}

func newSession(conn protocolConn, pageSize uint32) *ldapSession {
	return &ldapSession{conn: conn, pageSize: pageSize}
}

// Rename issues a single modify-DN request. The old RDN value is removed
// from the entry, and a new superior is only sent when the entry moves to a
// different parent.
func (s *ldapSession) Rename(ctx context.Context, origin, target DistinguishedName) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if origin.IsZero() || target.IsZero() {
		return errors.New("origin and target DN are required")
	}

	var newSuperior string
	if !target.Suffix().Equal(origin.Suffix()) {
		newSuperior = target.Suffix().String()
	}

	fields := map[string]any{
		"dn":           origin.String(),
		"new_rdn":      target.RDN().String(),
		"new_superior": newSuperior,
	}

	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Issuing modify DN request", fields)

	start := time.Now()
	req := ldap.NewModifyDNRequest(origin.String(), target.RDN().String(), true, newSuperior)
	if err := s.conn.ModifyDN(req); err != nil {
		fields["duration_ms"] = time.Since(start).Milliseconds()
		LogLDAPError(ctx, SubsystemLDAP, "modify_dn", err, fields)
		return err
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()
	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Modify DN completed", fields)

	return nil
}

// Search maps req onto a go-ldap search. Subtree searches without a size
// limit are paged.
func (s *ldapSession) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, errors.New("search request cannot be nil")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"size_limit": req.SizeLimit,
	}

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		int(req.DerefAliases),
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false, // TypesOnly
		req.Filter,
		req.Attributes,
		nil, // Controls
	)

	var (
		result *ldap.SearchResult
		err    error
	)

	start := time.Now()
	if req.Scope == ScopeWholeSubtree && req.SizeLimit == 0 && s.pageSize > 0 {
		result, err = s.conn.SearchWithPaging(ldapReq, s.pageSize)
	} else {
		result, err = s.conn.Search(ldapReq)
	}
	fields["duration_ms"] = time.Since(start).Milliseconds()

	// A size-limited search that overflows still returns the entries read so far.
	truncated := err != nil && result != nil && ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded)
	if err != nil && !truncated {
		LogLDAPError(ctx, SubsystemLDAP, "search", err, fields)
		return nil, WrapError("search", err)
	}

	hasMore := truncated || (req.SizeLimit > 0 && len(result.Entries) >= req.SizeLimit)

	fields["entries_found"] = len(result.Entries)
	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Search completed", fields)

	return &SearchResult{
		Entries: result.Entries,
		Total:   len(result.Entries),
		HasMore: hasMore,
	}, nil
}

func (s *ldapSession) alive() bool {
	return s.conn != nil && !s.conn.IsClosing()
}

func (s *ldapSession) close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
