package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
	customtypes "github.com/isometry/terraform-provider-ldapconn/internal/provider/types"
	"github.com/isometry/terraform-provider-ldapconn/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &EntryDNResource{}
var _ resource.ResourceWithConfigure = &EntryDNResource{}
var _ resource.ResourceWithImportState = &EntryDNResource{}

func NewEntryDNResource() resource.Resource {
	return &EntryDNResource{}
}

// EntryDNResource moves or renames an entry to a configured distinguished name.
type EntryDNResource struct {
	providerData *ldapclient.ProviderData
}

// EntryDNResourceModel describes the resource data model.
type EntryDNResourceModel struct {
	ID            types.String              `tfsdk:"id"`
	ObjectClass   types.String              `tfsdk:"object_class"`
	SearchBase    customtypes.DNStringValue `tfsdk:"search_base"`
	IDAttribute   types.String              `tfsdk:"id_attribute"`
	GUIDAttribute types.String              `tfsdk:"guid_attribute"`
	DN            customtypes.DNStringValue `tfsdk:"dn"`
}

func (m EntryDNResourceModel) locator() entryLocator {
	return entryLocator{
		ID:            m.ID,
		ObjectClass:   m.ObjectClass,
		SearchBase:    m.SearchBase,
		IDAttribute:   m.IDAttribute,
		GUIDAttribute: m.GUIDAttribute,
	}
}

func (r *EntryDNResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_entry_dn"
}

func (r *EntryDNResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	attributes := entryLocatorAttributes("entry")

	attributes["dn"] = schema.StringAttribute{
		MarkdownDescription: "Distinguished name the entry should have. A different parent moves the entry. " +
			"Names that differ only in case or spacing are treated as equal.",
		Required:   true,
		CustomType: customtypes.DNStringType{},
		Validators: []validator.String{
			validators.IsValidDN(),
		},
	}

	resp.Schema = schema.Schema{
		MarkdownDescription: "Renames or moves a directory entry to a given distinguished name. The entry is located by `id` " +
			"and a single modify-DN request is sent when its current name differs. Destroying the resource leaves the entry in place.",
		Attributes: attributes,
	}
}

func (r *EntryDNResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	r.providerData = providerDataFrom(req.ProviderData, &resp.Diagnostics)
}

func (r *EntryDNResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data EntryDNResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	r.apply(ctx, &data, customtypes.DNStringNull(), &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *EntryDNResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data EntryDNResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	done := ldapclient.LogResourceOperation(ctx, "ldapconn_entry_dn", "read", map[string]any{
		"id": data.ID.ValueString(),
	})

	current, err := r.providerData.ResolveName(ctx, data.locator().objectType(), data.locator().lookupID(data.DN))
	done(err)
	if err != nil {
		if ldapclient.IsNotFoundError(err) {
			tflog.Warn(ctx, "Entry no longer exists, removing from state", map[string]any{
				"id": data.ID.ValueString(),
			})
			resp.State.RemoveResource(ctx)
			return
		}

		addRenameError(&resp.Diagnostics, fmt.Sprintf("read entry %q", data.ID.ValueString()), err)
		return
	}

	data.DN = preferredDN(data.DN, current)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *EntryDNResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state EntryDNResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	r.apply(ctx, &data, state.DN, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// apply resolves the entry and renames it when its current name differs
// from the planned one.
func (r *EntryDNResource) apply(ctx context.Context, data *EntryDNResourceModel, knownDN customtypes.DNStringValue, diags *diag.Diagnostics) {
	target, err := ldapclient.ParseDistinguishedName(data.DN.ValueString())
	if err != nil {
		addRenameError(diags, "parse planned distinguished name", err)
		return
	}

	locator := data.locator()
	done := ldapclient.LogResourceOperation(ctx, "ldapconn_entry_dn", "rename", map[string]any{
		"id":     data.ID.ValueString(),
		"target": target.String(),
	})

	op, err := r.providerData.NewRenameOperation(ctx, locator.objectType())
	if err != nil {
		done(err)
		addRenameError(diags, fmt.Sprintf("rename entry %q", data.ID.ValueString()), err)
		return
	}

	current, err := r.providerData.ResolveName(ctx, locator.objectType(), locator.lookupID(knownDN))
	if err == nil && !current.Equal(target) {
		err = op.ExecuteByName(ctx, current, target)
	}
	done(err)
	if err != nil {
		addRenameError(diags, fmt.Sprintf("rename entry %q", data.ID.ValueString()), err)
		return
	}

	if current.Equal(target) {
		tflog.Debug(ctx, "Entry already has the planned name", map[string]any{
			"id": data.ID.ValueString(),
			"dn": current.String(),
		})
	}
}

// Delete only forgets the entry. Entries are never removed by this resource.
func (r *EntryDNResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data EntryDNResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Removing entry DN from state, directory entry is left unchanged", map[string]any{
		"id": data.ID.ValueString(),
		"dn": data.DN.ValueString(),
	})
}

// ImportState accepts "<object_class>/<id>". The identifier is resolved
// against the provider base DN.
func (r *EntryDNResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	objectClass, id, ok := strings.Cut(strings.TrimSpace(req.ID), "/")
	if !ok || objectClass == "" || strings.TrimSpace(id) == "" {
		resp.Diagnostics.AddError(
			"Invalid Import ID",
			fmt.Sprintf("Expected an import ID of the form <object_class>/<id>, got: %q", req.ID),
		)
		return
	}

	tflog.Debug(ctx, "Importing entry DN", map[string]any{
		"object_class": objectClass,
		"id":           id,
	})

	current, err := r.providerData.ResolveName(ctx, ldapclient.ObjectType{Name: objectClass, ObjectClass: objectClass}, ldapclient.UniqueID(id))
	if err != nil {
		addRenameError(&resp.Diagnostics, fmt.Sprintf("import entry %q", id), err)
		return
	}

	data := EntryDNResourceModel{
		ID:            types.StringValue(id),
		ObjectClass:   types.StringValue(objectClass),
		SearchBase:    customtypes.DNStringNull(),
		IDAttribute:   types.StringNull(),
		GUIDAttribute: types.StringNull(),
		DN:            customtypes.DNString(current.String()),
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
