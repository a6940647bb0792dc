package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

var _ validator.String = attributeDescriptorValidator{}

type attributeDescriptorValidator struct{}

func (v attributeDescriptorValidator) Description(_ context.Context) string {
	return "value must be an LDAP attribute type name or numeric OID"
}

func (v attributeDescriptorValidator) MarkdownDescription(_ context.Context) string {
	return "value must be an LDAP attribute type name (e.g. `cn`) or numeric OID (e.g. `2.5.4.3`)"
}

func (v attributeDescriptorValidator) ValidateString(_ context.Context, req validator.StringRequest, resp *validator.StringResponse) {
	if req.ConfigValue.IsNull() || req.ConfigValue.IsUnknown() {
		return
	}

	value := req.ConfigValue.ValueString()
	if !ldapclient.IsAttributeDescriptor(value) {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid Attribute Type",
			fmt.Sprintf("The value %q is not a valid attribute type. Attribute types start with a letter "+
				"followed by letters, digits or hyphens, or are a dotted numeric OID.", value),
		)
	}
}

// IsAttributeDescriptor returns a validator which ensures that a configured
// value can name an attribute type in a relative distinguished name.
func IsAttributeDescriptor() validator.String {
	return attributeDescriptorValidator{}
}
