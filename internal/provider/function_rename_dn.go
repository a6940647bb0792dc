package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/function"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

var _ function.Function = &RenameDNFunction{}

func NewRenameDNFunction() function.Function {
	return &RenameDNFunction{}
}

// RenameDNFunction implements the rename_dn function.
type RenameDNFunction struct{}

func (f RenameDNFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "rename_dn"
}

func (f RenameDNFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary: "Compute the distinguished name of a renamed entry",
		Description: "Returns the distinguished name an entry gets when its naming attribute is set to value: " +
			"a relative name built from attribute and value followed by the parent of dn. The value is escaped as needed.",
		MarkdownDescription: "Returns the distinguished name an entry gets when its naming attribute is set to `value`: " +
			"a relative name built from `attribute` and `value` followed by the parent of `dn`. " +
			"The value is escaped as needed, e.g. `provider::ldapconn::rename_dn(\"cn=a,dc=example,dc=com\", \"cn\", \"Doe, John\")` " +
			"returns `cn=Doe\\, John,dc=example,dc=com`.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "dn",
				Description: "Current distinguished name of the entry.",
			},
			function.StringParameter{
				Name:        "attribute",
				Description: "Naming attribute type, e.g. cn or uid.",
			},
			function.StringParameter{
				Name:        "value",
				Description: "New, unescaped value of the naming attribute.",
			},
		},
		Return: function.StringReturn{},
	}
}

func (f RenameDNFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var dn, attribute, value string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &dn, &attribute, &value))
	if resp.Error != nil {
		return
	}

	current, err := ldapclient.ParseDistinguishedName(dn)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(0, fmt.Sprintf("Invalid distinguished name: %s", err.Error()))
		return
	}

	if strings.TrimSpace(value) == "" {
		resp.Error = function.NewArgumentFuncError(2, "Naming attribute value cannot be empty")
		return
	}

	rdn, err := ldapclient.NewDistinguishedName(attribute, value)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(1, fmt.Sprintf("Invalid relative name: %s", err.Error()))
		return
	}

	resp.Error = resp.Result.Set(ctx, rdn.WithSuffix(current.Suffix()).String())
}
