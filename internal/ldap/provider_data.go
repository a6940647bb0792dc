package ldap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// ProviderData is handed by the provider to resources and functions.
type ProviderData struct {
	Endpoint Endpoint
	Lookup   DirectoryLookup
	BaseDN   string
}

// NewProviderData wires the built-in identifier lookup to endpoint.
func NewProviderData(endpoint Endpoint, baseDN string) *ProviderData {
	return &ProviderData{
		Endpoint: endpoint,
		Lookup:   NewIdentifierLookup(baseDN),
		BaseDN:   baseDN,
	}
}

// NewRenameOperation builds a rename operation for objectType, defaulting
// its search base to the provider base DN.
func (pd *ProviderData) NewRenameOperation(ctx context.Context, objectType ObjectType) (*RenameOperation, error) {
	if pd == nil {
		return nil, &RenameError{Kind: RenameErrorConfiguration, Cause: errors.New("provider data is not initialized")}
	}

	if objectType.SearchBase == "" {
		objectType.SearchBase = pd.BaseDN
	}

	return NewRenameOperation(pd.Endpoint, objectType, pd.Lookup,
		WithTracer(NewTFLogger(ctx, SubsystemRename)))
}

// ResolveName connects and resolves id for objectType. Resources use it to
// refresh state.
func (pd *ProviderData) ResolveName(ctx context.Context, objectType ObjectType, id UniqueID) (DistinguishedName, error) {
	if pd == nil || pd.Endpoint == nil || pd.Lookup == nil {
		return DistinguishedName{}, &RenameError{Kind: RenameErrorConfiguration, Cause: errors.New("provider data is not initialized")}
	}

	if objectType.SearchBase == "" {
		objectType.SearchBase = pd.BaseDN
	}

	session, err := pd.Endpoint.Connect(ctx)
	if err != nil {
		return DistinguishedName{}, err
	}

	return pd.Lookup.ResolveName(ctx, session, objectType, id)
}

// Close releases the endpoint connection when the endpoint holds one.
func (pd *ProviderData) Close() error {
	if pd == nil {
		return nil
	}

	closer, ok := pd.Endpoint.(io.Closer)
	if !ok {
		return nil
	}

	if err := closer.Close(); err != nil {
		return fmt.Errorf("failed to close directory endpoint: %w", err)
	}

	tflog.SubsystemDebug(context.Background(), SubsystemLDAP, "Directory endpoint closed")
	return nil
}
