/*
Package ldap implements directory entry renames for the LDAP connection provider.

# Names

DistinguishedName is an immutable parsed DN. Equality compares a canonical
form: attribute types lower-cased, values case-folded with insignificant
whitespace removed, multi-valued RDN pairs sorted. WithSuffix, RDN and Suffix
always return new values.

# Renames

RenameOperation exposes two entry points:

  - ExecuteByName renames one DN to another with a single modify-DN request.
  - ExecuteByAttribute resolves an entry by identifier, builds the new DN from
    a naming attribute and the current suffix, and skips the request when the
    name is unchanged.

Failures are reported as *RenameError with one RenameErrorKind each; use
errors.Is with the Err* sentinels or GetRenameErrorKind. Lookup failures are
*LookupError and match ErrLookupFailed.

# Collaborators

The operation depends on three interfaces: Endpoint hands out a Session,
Session performs the protocol requests and DirectoryLookup maps identifiers to
DNs. DirectoryEndpoint, the go-ldap backed session and IdentifierLookup are
the production implementations.

# Example Usage

	endpoint, err := ldap.NewDirectoryEndpoint(&ldap.ConnectionConfig{
		LDAPURLs: []string{"ldaps://ldap.example.com"},
		Username: "cn=admin,dc=example,dc=com",
		Password: "secret",
		Timeout:  30 * time.Second,
	})
	if err != nil {
		return err
	}
	defer endpoint.Close()

	op, err := ldap.NewRenameOperation(endpoint, ldap.ObjectType{
		ObjectClass: "inetOrgPerson",
		SearchBase:  "ou=people,dc=example,dc=com",
	}, ldap.NewIdentifierLookup("dc=example,dc=com"))
	if err != nil {
		return err
	}

	err = op.ExecuteByAttribute(ctx, ldap.NamedValue{Name: "cn", Values: []string{"george.smith"}}, "george")
*/
package ldap
