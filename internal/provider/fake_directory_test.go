package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/require"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

// fakeDirectory is an in-memory directory serving as endpoint, session and
// lookup. Entries are addressed by plain identifiers or by their current DN.
type fakeDirectory struct {
	mu        sync.Mutex
	entries   map[ldapclient.UniqueID]ldapclient.DistinguishedName
	renames   [][2]string
	renameErr error
}

func newFakeDirectory(entries map[string]string) *fakeDirectory {
	d := &fakeDirectory{entries: make(map[ldapclient.UniqueID]ldapclient.DistinguishedName)}
	for id, dn := range entries {
		d.entries[ldapclient.UniqueID(id)] = ldapclient.MustParseDistinguishedName(dn)
	}
	return d
}

func (d *fakeDirectory) providerData() *ldapclient.ProviderData {
	return &ldapclient.ProviderData{Endpoint: d, Lookup: d, BaseDN: "dc=example,dc=com"}
}

func (d *fakeDirectory) Connect(context.Context) (ldapclient.Session, error) {
	return d, nil
}

func (d *fakeDirectory) Rename(_ context.Context, origin, target ldapclient.DistinguishedName) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.renameErr != nil {
		return d.renameErr
	}

	for id, dn := range d.entries {
		if dn.Equal(origin) {
			d.entries[id] = target
			d.renames = append(d.renames, [2]string{origin.String(), target.String()})
			return nil
		}
	}
	return ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
}

func (d *fakeDirectory) Search(context.Context, *ldapclient.SearchRequest) (*ldapclient.SearchResult, error) {
	return nil, errors.New("search is not supported by the fake directory")
}

func (d *fakeDirectory) ResolveName(_ context.Context, _ ldapclient.Session, objectType ldapclient.ObjectType, id ldapclient.UniqueID) (ldapclient.DistinguishedName, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	notFound := &ldapclient.LookupError{Reason: ldapclient.LookupReasonNotFound, ID: id, ObjectType: objectType.ObjectClass}

	if ldapclient.DetectIdentifierKind(id) == ldapclient.IdentifierDN {
		wanted, err := ldapclient.ParseDistinguishedName(string(id))
		if err != nil {
			return ldapclient.DistinguishedName{}, err
		}
		for _, dn := range d.entries {
			if dn.Equal(wanted) {
				return dn, nil
			}
		}
		return ldapclient.DistinguishedName{}, notFound
	}

	dn, ok := d.entries[id]
	if !ok {
		return ldapclient.DistinguishedName{}, notFound
	}
	return dn, nil
}

func (d *fakeDirectory) current(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries[ldapclient.UniqueID(id)].String()
}

func resourceSchema(t *testing.T, r resource.Resource) schema.Schema {
	t.Helper()

	resp := &resource.SchemaResponse{}
	r.Schema(t.Context(), resource.SchemaRequest{}, resp)
	require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)
	return resp.Schema
}

// objectValue builds a raw resource value, leaving unset attributes null.
func objectValue(t *testing.T, s schema.Schema, values map[string]tftypes.Value) tftypes.Value {
	t.Helper()

	objectType, ok := s.Type().TerraformType(t.Context()).(tftypes.Object)
	require.True(t, ok)

	attributes := make(map[string]tftypes.Value, len(objectType.AttributeTypes))
	for name, attrType := range objectType.AttributeTypes {
		if v, ok := values[name]; ok {
			attributes[name] = v
		} else {
			attributes[name] = tftypes.NewValue(attrType, nil)
		}
	}
	return tftypes.NewValue(objectType, attributes)
}

func nullState(t *testing.T, s schema.Schema) tfsdk.State {
	t.Helper()
	return tfsdk.State{Schema: s, Raw: tftypes.NewValue(s.Type().TerraformType(t.Context()), nil)}
}

func str(v string) tftypes.Value {
	return tftypes.NewValue(tftypes.String, v)
}

func unknownString() tftypes.Value {
	return tftypes.NewValue(tftypes.String, tftypes.UnknownValue)
}
