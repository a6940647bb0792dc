package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/function"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

var _ function.Function = &DNEqualFunction{}

func NewDNEqualFunction() function.Function {
	return &DNEqualFunction{}
}

// DNEqualFunction implements the dn_equal function.
type DNEqualFunction struct{}

func (f DNEqualFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "dn_equal"
}

func (f DNEqualFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary: "Compare two distinguished names",
		Description: "Returns true when both distinguished names name the same entry. Attribute types and values compare " +
			"case-insensitively, insignificant whitespace is ignored and multi-valued relative names compare regardless of order.",
		MarkdownDescription: "Returns `true` when both distinguished names name the same entry.\n\n" +
			"- Attribute types and values compare case-insensitively\n" +
			"- Insignificant whitespace in values is ignored\n" +
			"- Multi-valued relative names compare regardless of order",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:        "a",
				Description: "First distinguished name.",
			},
			function.StringParameter{
				Name:        "b",
				Description: "Second distinguished name.",
			},
		},
		Return: function.BoolReturn{},
	}
}

func (f DNEqualFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var a, b string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &a, &b))
	if resp.Error != nil {
		return
	}

	dnA, err := ldapclient.ParseDistinguishedName(a)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(0, fmt.Sprintf("Invalid distinguished name: %s", err.Error()))
		return
	}
	dnB, err := ldapclient.ParseDistinguishedName(b)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(1, fmt.Sprintf("Invalid distinguished name: %s", err.Error()))
		return
	}

	resp.Error = resp.Result.Set(ctx, dnA.Equal(dnB))
}
