package provider

import (
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
	customtypes "github.com/isometry/terraform-provider-ldapconn/internal/provider/types"
	"github.com/isometry/terraform-provider-ldapconn/internal/provider/validators"
)

// entryLocator holds the attributes shared by both entry resources that
// select the object type and locate the entry.
type entryLocator struct {
	ID            types.String
	ObjectClass   types.String
	SearchBase    customtypes.DNStringValue
	IDAttribute   types.String
	GUIDAttribute types.String
}

func (l entryLocator) objectType() ldapclient.ObjectType {
	return ldapclient.ObjectType{
		Name:          l.ObjectClass.ValueString(),
		ObjectClass:   l.ObjectClass.ValueString(),
		SearchBase:    l.SearchBase.ValueString(),
		IDAttribute:   l.IDAttribute.ValueString(),
		GUIDAttribute: l.GUIDAttribute.ValueString(),
	}
}

// lookupID returns the identifier that currently locates the entry. An
// identifier given as a DN stops matching once the entry is renamed, so the
// last known name is used instead.
func (l entryLocator) lookupID(knownDN customtypes.DNStringValue) ldapclient.UniqueID {
	id := ldapclient.UniqueID(l.ID.ValueString())
	if ldapclient.DetectIdentifierKind(id) == ldapclient.IdentifierDN &&
		!knownDN.IsNull() && !knownDN.IsUnknown() && knownDN.ValueString() != "" {
		return ldapclient.UniqueID(knownDN.ValueString())
	}
	return id
}

func entryLocatorAttributes(kind string) map[string]schema.Attribute {
	return map[string]schema.Attribute{
		"id": schema.StringAttribute{
			MarkdownDescription: "Identifier of the " + kind + ": a distinguished name, a GUID, a SID or the value of `id_attribute`. " +
				"Changing it forces a new resource.",
			Required: true,
			Validators: []validator.String{
				stringvalidator.LengthAtLeast(1),
			},
			PlanModifiers: []planmodifier.String{
				stringplanmodifier.RequiresReplace(),
			},
		},
		"object_class": schema.StringAttribute{
			MarkdownDescription: "Structural object class of the entry (e.g. `inetOrgPerson`). Lookups only match entries of this class.",
			Required:            true,
			Validators: []validator.String{
				validators.IsAttributeDescriptor(),
			},
		},
		"search_base": schema.StringAttribute{
			MarkdownDescription: "Subtree searched when resolving `id`. Defaults to the provider `base_dn`.",
			Optional:            true,
			CustomType:          customtypes.DNStringType{},
			Validators: []validator.String{
				validators.IsValidDN(),
			},
		},
		"id_attribute": schema.StringAttribute{
			MarkdownDescription: "Attribute matched by plain identifiers. Defaults to `" + ldapclient.DefaultIDAttribute + "`.",
			Optional:            true,
			Validators: []validator.String{
				validators.IsAttributeDescriptor(),
			},
		},
		"guid_attribute": schema.StringAttribute{
			MarkdownDescription: "Attribute matched by GUID identifiers. Defaults to `" + ldapclient.DefaultGUIDAttribute + "`; " +
				"use `objectGUID` for Active Directory.",
			Optional: true,
			Validators: []validator.String{
				validators.IsAttributeDescriptor(),
			},
		},
	}
}

// providerDataFrom extracts the configured provider data.
func providerDataFrom(data any, diags *diag.Diagnostics) *ldapclient.ProviderData {
	if data == nil {
		return nil
	}

	providerData, ok := data.(*ldapclient.ProviderData)
	if !ok {
		diags.AddError(
			"Unexpected Resource Configure Type",
			fmt.Sprintf("Expected *ldapclient.ProviderData, got: %T. Please report this issue to the provider developers.", data),
		)
		return nil
	}

	return providerData
}

var renameErrorSummaries = map[ldapclient.RenameErrorKind]string{
	ldapclient.RenameErrorInvalidName:            "Invalid Distinguished Name",
	ldapclient.RenameErrorNamingAttributeMissing: "Naming Attribute Missing",
	ldapclient.RenameErrorEntryNotFound:          "Entry Not Found",
	ldapclient.RenameErrorEntryAlreadyExists:     "Entry Already Exists",
	ldapclient.RenameErrorFailed:                 "Rename Failed",
	ldapclient.RenameErrorLookupFailed:           "Entry Lookup Failed",
	ldapclient.RenameErrorConfiguration:          "Invalid Rename Configuration",
}

// addRenameError reports err with a summary matching its failure kind.
func addRenameError(diags *diag.Diagnostics, action string, err error) {
	summary, ok := renameErrorSummaries[ldapclient.GetRenameErrorKind(err)]
	if !ok {
		switch {
		case ldapclient.IsAuthenticationError(err):
			summary = "Authentication Failed"
		case ldapclient.IsPermissionError(err):
			summary = "Permission Denied"
		case ldapclient.IsConflictError(err):
			summary = "Entry Already Exists"
		default:
			summary = "Directory Error"
		}
	}

	diags.AddError(summary, fmt.Sprintf("Could not %s: %s", action, err.Error()))
}

// preferredDN keeps the spelling already in configuration or state when it
// names the same entry as current.
func preferredDN(known customtypes.DNStringValue, current ldapclient.DistinguishedName) customtypes.DNStringValue {
	if !known.IsNull() && !known.IsUnknown() {
		if parsed, err := ldapclient.ParseDistinguishedName(known.ValueString()); err == nil && parsed.Equal(current) {
			return known
		}
	}
	return customtypes.DNString(current.String())
}
