package planmodifiers

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

// predictRenamedDN implements the plan modifier.
type predictRenamedDN struct {
	namingAttribute path.Path
	value           path.Path
}

// PredictRenamedDN returns a plan modifier for a computed dn attribute that
// predicts the entry's name after its naming attribute is set. The entry keeps
// its parent, so the planned name is the new relative name under the parent
// recorded in state. When the new relative name already matches the entry the
// prior state is kept, and when it cannot be predicted the value stays unknown.
func PredictRenamedDN() planmodifier.String {
	return predictRenamedDN{
		namingAttribute: path.Root("naming_attribute"),
		value:           path.Root("value"),
	}
}

func (m predictRenamedDN) Description(_ context.Context) string {
	return "predicts the distinguished name after renaming from naming_attribute and value"
}

func (m predictRenamedDN) MarkdownDescription(_ context.Context) string {
	return "predicts the distinguished name after renaming from `naming_attribute` and `value`"
}

func (m predictRenamedDN) PlanModifyString(ctx context.Context, req planmodifier.StringRequest, resp *planmodifier.StringResponse) {
	// Nothing to predict from on create or destroy.
	if req.StateValue.IsNull() || req.StateValue.IsUnknown() || req.Plan.Raw.IsNull() {
		return
	}

	var id, priorID types.String
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, path.Root("id"), &id)...)
	resp.Diagnostics.Append(req.State.GetAttribute(ctx, path.Root("id"), &priorID)...)
	if resp.Diagnostics.HasError() {
		return
	}
	if !id.Equal(priorID) {
		return
	}

	var namingAttribute, value types.String
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.namingAttribute, &namingAttribute)...)
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.value, &value)...)
	if resp.Diagnostics.HasError() {
		return
	}
	if namingAttribute.IsUnknown() || namingAttribute.IsNull() || value.IsUnknown() || value.IsNull() {
		return
	}
	if strings.TrimSpace(value.ValueString()) == "" {
		return
	}

	current, err := ldapclient.ParseDistinguishedName(req.StateValue.ValueString())
	if err != nil {
		return
	}

	rdn, err := ldapclient.NewDistinguishedName(namingAttribute.ValueString(), value.ValueString())
	if err != nil {
		// Reported by apply with the full rename error.
		return
	}

	predicted := rdn.WithSuffix(current.Suffix())
	if predicted.Equal(current) {
		resp.PlanValue = req.StateValue
		return
	}

	resp.PlanValue = types.StringValue(predicted.String())
}
