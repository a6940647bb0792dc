package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
	"github.com/isometry/terraform-provider-ldapconn/internal/provider/planmodifiers"
	customtypes "github.com/isometry/terraform-provider-ldapconn/internal/provider/types"
	"github.com/isometry/terraform-provider-ldapconn/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &EntryNameResource{}
var _ resource.ResourceWithConfigure = &EntryNameResource{}
var _ resource.ResourceWithImportState = &EntryNameResource{}

func NewEntryNameResource() resource.Resource {
	return &EntryNameResource{}
}

// EntryNameResource keeps an entry's relative name in line with a naming
// attribute value. The entry keeps its parent.
type EntryNameResource struct {
	providerData *ldapclient.ProviderData
}

// EntryNameResourceModel describes the resource data model.
type EntryNameResourceModel struct {
	ID              types.String              `tfsdk:"id"`
	ObjectClass     types.String              `tfsdk:"object_class"`
	SearchBase      customtypes.DNStringValue `tfsdk:"search_base"`
	IDAttribute     types.String              `tfsdk:"id_attribute"`
	GUIDAttribute   types.String              `tfsdk:"guid_attribute"`
	NamingAttribute types.String              `tfsdk:"naming_attribute"`
	Value           types.String              `tfsdk:"value"`
	// Computed attributes
	DN customtypes.DNStringValue `tfsdk:"dn"`
}

func (m EntryNameResourceModel) locator() entryLocator {
	return entryLocator{
		ID:            m.ID,
		ObjectClass:   m.ObjectClass,
		SearchBase:    m.SearchBase,
		IDAttribute:   m.IDAttribute,
		GUIDAttribute: m.GUIDAttribute,
	}
}

func (r *EntryNameResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_entry_name"
}

func (r *EntryNameResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	attributes := entryLocatorAttributes("entry")

	attributes["naming_attribute"] = schema.StringAttribute{
		MarkdownDescription: "Attribute type forming the entry's relative name (e.g. `cn` or `uid`).",
		Required:            true,
		Validators: []validator.String{
			validators.IsAttributeDescriptor(),
		},
	}
	attributes["value"] = schema.StringAttribute{
		MarkdownDescription: "Value of `naming_attribute` the entry is named by. Values are compared the way the directory " +
			"compares names, so a change in case or spacing alone does not rename the entry.",
		Required: true,
	}
	attributes["dn"] = schema.StringAttribute{
		MarkdownDescription: "Current distinguished name of the entry.",
		Computed:            true,
		CustomType:          customtypes.DNStringType{},
		PlanModifiers: []planmodifier.String{
			planmodifiers.PredictRenamedDN(),
		},
	}

	resp.Schema = schema.Schema{
		MarkdownDescription: "Renames a directory entry by setting the value of its naming attribute. The entry is located " +
			"by `id`, keeps its parent container and is only renamed when its current name differs. " +
			"Destroying the resource leaves the entry in place.",
		Attributes: attributes,
	}
}

func (r *EntryNameResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	r.providerData = providerDataFrom(req.ProviderData, &resp.Diagnostics)
}

func (r *EntryNameResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data EntryNameResourceModel

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

func (r *EntryNameResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data EntryNameResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	done := ldapclient.LogResourceOperation(ctx, "ldapconn_entry_name", "read", map[string]any{
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
	data.Value = currentNamingValue(data.NamingAttribute, data.Value, current)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *EntryNameResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state EntryNameResourceModel

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

// apply renames the entry to the planned naming value and records its
// resulting name in data.
func (r *EntryNameResource) apply(ctx context.Context, data *EntryNameResourceModel, knownDN customtypes.DNStringValue, diags *diag.Diagnostics) {
	locator := data.locator()
	id := locator.lookupID(knownDN)
	attr := ldapclient.NamedValue{
		Name:   data.NamingAttribute.ValueString(),
		Values: []string{data.Value.ValueString()},
	}

	done := ldapclient.LogResourceOperation(ctx, "ldapconn_entry_name", "rename", map[string]any{
		"id":               data.ID.ValueString(),
		"naming_attribute": attr.Name,
	})

	op, err := r.providerData.NewRenameOperation(ctx, locator.objectType())
	if err == nil {
		err = op.ExecuteByAttribute(ctx, attr, id)
	}
	done(err)
	if err != nil {
		addRenameError(diags, fmt.Sprintf("rename entry %q", data.ID.ValueString()), err)
		return
	}

	current, err := r.renamedDN(ctx, locator, id, attr)
	if err != nil {
		addRenameError(diags, fmt.Sprintf("read renamed entry %q", data.ID.ValueString()), err)
		return
	}

	tflog.Debug(ctx, "Entry name applied", map[string]any{
		"id": data.ID.ValueString(),
		"dn": current.String(),
	})

	data.DN = preferredDN(data.DN, current)
}

// renamedDN returns the entry's name after a successful rename. A DN
// identifier names the entry before the rename, so its new name is derived
// the same way the rename derived it.
func (r *EntryNameResource) renamedDN(ctx context.Context, locator entryLocator, id ldapclient.UniqueID, attr ldapclient.NamedValue) (ldapclient.DistinguishedName, error) {
	if ldapclient.DetectIdentifierKind(id) != ldapclient.IdentifierDN {
		return r.providerData.ResolveName(ctx, locator.objectType(), id)
	}

	origin, err := ldapclient.ParseDistinguishedName(string(id))
	if err != nil {
		return ldapclient.DistinguishedName{}, err
	}
	rdn, err := ldapclient.NewDistinguishedName(attr.Name, attr.Values[0])
	if err != nil {
		return ldapclient.DistinguishedName{}, err
	}

	candidate := rdn.WithSuffix(origin.Suffix())
	if candidate.Equal(origin) {
		return origin, nil
	}
	return candidate, nil
}

// Delete only forgets the entry. Entries are never removed by this resource.
func (r *EntryNameResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data EntryNameResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Removing entry name from state, directory entry is left unchanged", map[string]any{
		"id": data.ID.ValueString(),
		"dn": data.DN.ValueString(),
	})
}

// ImportState accepts "<object_class>/<naming_attribute>/<id>". The identifier
// is resolved against the provider base DN.
func (r *EntryNameResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	ctx = initializeLogging(ctx)

	parts := strings.SplitN(strings.TrimSpace(req.ID), "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || strings.TrimSpace(parts[2]) == "" {
		resp.Diagnostics.AddError(
			"Invalid Import ID",
			fmt.Sprintf("Expected an import ID of the form <object_class>/<naming_attribute>/<id>, got: %q", req.ID),
		)
		return
	}
	objectClass, namingAttribute, id := parts[0], parts[1], parts[2]

	tflog.Debug(ctx, "Importing entry name", map[string]any{
		"object_class":     objectClass,
		"naming_attribute": namingAttribute,
		"id":               id,
	})

	current, err := r.providerData.ResolveName(ctx, ldapclient.ObjectType{Name: objectClass, ObjectClass: objectClass}, ldapclient.UniqueID(id))
	if err != nil {
		addRenameError(&resp.Diagnostics, fmt.Sprintf("import entry %q", id), err)
		return
	}

	value, ok := current.RDNValue(namingAttribute)
	if !ok {
		resp.Diagnostics.AddError(
			"Naming Attribute Missing",
			fmt.Sprintf("Entry %s is not named by attribute %q", current.String(), namingAttribute),
		)
		return
	}

	data := EntryNameResourceModel{
		ID:              types.StringValue(id),
		ObjectClass:     types.StringValue(objectClass),
		SearchBase:      customtypes.DNStringNull(),
		IDAttribute:     types.StringNull(),
		GUIDAttribute:   types.StringNull(),
		NamingAttribute: types.StringValue(namingAttribute),
		Value:           types.StringValue(value),
		DN:              customtypes.DNString(current.String()),
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// currentNamingValue returns the naming value recorded for current. The
// configured value is kept while it still names the entry.
func currentNamingValue(attr, value types.String, current ldapclient.DistinguishedName) types.String {
	rdn := current.RDN()
	if !value.IsNull() && !value.IsUnknown() {
		if configured, err := ldapclient.NewDistinguishedName(attr.ValueString(), value.ValueString()); err == nil && configured.Equal(rdn) {
			return value
		}
	}

	if v, ok := current.RDNValue(attr.ValueString()); ok {
		return types.StringValue(v)
	}
	return types.StringNull()
}
