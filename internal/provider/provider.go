package provider

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
	"github.com/isometry/terraform-provider-ldapconn/internal/provider/validators"
)

// Ensure LDAPConnProvider satisfies various provider interfaces.
var _ provider.Provider = &LDAPConnProvider{}
var _ provider.ProviderWithFunctions = &LDAPConnProvider{}
var _ provider.ProviderWithConfigValidators = &LDAPConnProvider{}

// LDAPConnProvider defines the provider implementation.
type LDAPConnProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
}

// LDAPConnProviderModel describes the provider data model.
type LDAPConnProviderModel struct {
	// Connection settings
	LdapURL        types.String `tfsdk:"ldap_url"`
	BaseDN         types.String `tfsdk:"base_dn"`
	ConnectTimeout types.Int64  `tfsdk:"connect_timeout"`
	PageSize       types.Int64  `tfsdk:"page_size"`

	// Authentication settings
	Username types.String `tfsdk:"username"`
	Password types.String `tfsdk:"password"`

	// Kerberos settings
	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`
	KerberosSPN    types.String `tfsdk:"kerberos_spn"`

	// TLS settings
	UseTLS            types.Bool   `tfsdk:"use_tls"`
	SkipTLSVerify     types.Bool   `tfsdk:"skip_tls_verify"`
	TLSCACertFile     types.String `tfsdk:"tls_ca_cert_file"`
	TLSCACert         types.String `tfsdk:"tls_ca_cert"`
	TLSClientCertFile types.String `tfsdk:"tls_client_cert_file"`
	TLSClientKeyFile  types.String `tfsdk:"tls_client_key_file"`
}

func (p *LDAPConnProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "ldapconn"
	resp.Version = p.version
}

func (p *LDAPConnProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The LDAP connection provider renames directory entries in place over LDAP/LDAPS. " +
			"Entries are located by a stable identifier (DN, GUID, SID or an identifier attribute) and renamed " +
			"with a single modify-DN request, preserving their position in the tree.",
		Attributes: map[string]schema.Attribute{
			// Connection settings
			"ldap_url": schema.StringAttribute{
				MarkdownDescription: "LDAP/LDAPS URL of the directory server (e.g., `ldaps://ldap.example.com:636`). " +
					"Several URLs separated by spaces are tried in order. " +
					"Can be set via the `LDAPCONN_LDAP_URL` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"base_dn": schema.StringAttribute{
				MarkdownDescription: "Base DN for identifier lookups (e.g., `dc=example,dc=com`), used when a resource " +
					"does not set `search_base`. Can be set via the `LDAPCONN_BASE_DN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Dial and request timeout in seconds. Defaults to `30`. " +
					"Can be set via the `LDAPCONN_CONNECT_TIMEOUT` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"page_size": schema.Int64Attribute{
				MarkdownDescription: "Page size for unbounded subtree searches. Defaults to `500`. " +
					"Can be set via the `LDAPCONN_PAGE_SIZE` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.Between(1, 10000),
				},
			},

			// Authentication settings
			"username": schema.StringAttribute{
				MarkdownDescription: "Bind DN for simple authentication, or the principal for Kerberos. " +
					"Can be set via the `LDAPCONN_USERNAME` environment variable.",
				Optional: true,
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "Password for simple or Kerberos password authentication. " +
					"Can be set via the `LDAPCONN_PASSWORD` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Kerberos settings
			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm for GSSAPI authentication (e.g., `EXAMPLE.COM`). " +
					"Can be set via the `LDAPCONN_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos keytab file. " +
					"Can be set via the `LDAPCONN_KERBEROS_KEYTAB` environment variable.",
				Optional: true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to the Kerberos configuration file. Defaults to `/etc/krb5.conf`. " +
					"Can be set via the `LDAPCONN_KERBEROS_CONFIG` environment variable.",
				Optional: true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to a Kerberos credential cache. " +
					"Can be set via the `LDAPCONN_KERBEROS_CCACHE` environment variable.",
				Optional: true,
			},
			"kerberos_spn": schema.StringAttribute{
				MarkdownDescription: "Service principal name override, for servers reached by an address that does not " +
					"match their SPN. Format: `ldap/<hostname>`. " +
					"Can be set via the `LDAPCONN_KERBEROS_SPN` environment variable.",
				Optional: true,
			},

			// TLS settings
			"use_tls": schema.BoolAttribute{
				MarkdownDescription: "Upgrade `ldap://` connections with StartTLS. Defaults to `true`. " +
					"Can be set via the `LDAPCONN_USE_TLS` environment variable.",
				Optional: true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip TLS certificate verification. Not recommended for production. Defaults to `false`. " +
					"Can be set via the `LDAPCONN_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"tls_ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to a CA certificate file for TLS verification. " +
					"Can be set via the `LDAPCONN_TLS_CA_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_ca_cert": schema.StringAttribute{
				MarkdownDescription: "PEM encoded CA certificate for TLS verification. " +
					"Can be set via the `LDAPCONN_TLS_CA_CERT` environment variable.",
				Optional:  true,
				Sensitive: true,
			},
			"tls_client_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to a client certificate for mutual TLS (SASL EXTERNAL) authentication. " +
					"Can be set via the `LDAPCONN_TLS_CLIENT_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_client_key_file": schema.StringAttribute{
				MarkdownDescription: "Path to the client private key for mutual TLS authentication. " +
					"Can be set via the `LDAPCONN_TLS_CLIENT_KEY_FILE` environment variable.",
				Optional:  true,
				Sensitive: true,
			},
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *LDAPConnProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		providervalidator.Conflicting(
			path.MatchRoot("tls_ca_cert_file"),
			path.MatchRoot("tls_ca_cert"),
		),
		providervalidator.RequiredTogether(
			path.MatchRoot("tls_client_cert_file"),
			path.MatchRoot("tls_client_key_file"),
		),
	}
}

func (p *LDAPConnProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data LDAPConnProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring LDAP connection provider", map[string]any{
		"version": p.version,
	})

	config := p.buildConnectionConfig(&data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.SubsystemDebug(ctx, ldapclient.SubsystemProvider, "Connection configuration resolved", ldapclient.SanitizeFields(map[string]any{
		"ldap_urls":       config.LDAPURLs,
		"base_dn":         config.BaseDN,
		"username":        config.Username,
		"password":        config.Password,
		"auth_method":     config.GetAuthMethod().String(),
		"use_tls":         config.UseTLS,
		"skip_tls_verify": config.SkipTLSVerify,
		"timeout_seconds": config.Timeout.Seconds(),
	}))

	endpoint, err := ldapclient.NewDirectoryEndpoint(config)
	if err != nil {
		resp.Diagnostics.AddError(
			"Invalid Provider Configuration",
			"The LDAP connection settings are invalid.\n\n"+
				"Configuration Error: "+err.Error(),
		)
		return
	}

	// Test connection and authentication
	err = ldapclient.LogOperation(ctx, ldapclient.SubsystemProvider, "connection_test", map[string]any{
		"ldap_urls": config.LDAPURLs,
	}, func() error {
		_, err := endpoint.Connect(ctx)
		return err
	})
	if err != nil {
		title := "Unable to Connect to Directory"
		if ldapclient.IsAuthenticationError(err) {
			title = "Authentication Failed"
		}
		resp.Diagnostics.AddError(
			title,
			"The provider could not establish an authenticated connection to the directory. "+
				"Please verify your configuration settings.\n\n"+
				"Connection Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "LDAP connection provider configured successfully")

	providerData := ldapclient.NewProviderData(endpoint, config.BaseDN)

	resp.ResourceData = providerData
	resp.DataSourceData = providerData
}

// configureLogging registers the logging subsystems and sets persistent fields.
func (p *LDAPConnProvider) configureLogging(ctx context.Context) context.Context {
	ctx = initializeLogging(ctx)
	ctx = tflog.SetField(ctx, "provider", "ldapconn")
	ctx = tflog.SetField(ctx, "provider_version", p.version)

	tflog.Debug(ctx, "LDAP connection provider logging configured")

	return ctx
}

// buildConnectionConfig merges provider configuration, environment variables
// and defaults into a connection configuration.
func (p *LDAPConnProvider) buildConnectionConfig(data *LDAPConnProviderModel, diags *diag.Diagnostics) *ldapclient.ConnectionConfig {
	config := ldapclient.DefaultConfig()

	config.LDAPURLs = strings.Fields(p.getStringValue(data.LdapURL, "LDAPCONN_LDAP_URL"))
	if len(config.LDAPURLs) == 0 {
		diags.AddError(
			"Missing LDAP URL",
			"The provider needs the directory server address. "+
				"Set the 'ldap_url' attribute or the LDAPCONN_LDAP_URL environment variable.",
		)
		return config
	}

	config.BaseDN = p.getStringValue(data.BaseDN, "LDAPCONN_BASE_DN")

	// Authentication settings
	config.Username = p.getStringValue(data.Username, "LDAPCONN_USERNAME")
	config.Password = p.getStringValue(data.Password, "LDAPCONN_PASSWORD")
	config.KerberosRealm = p.getStringValue(data.KerberosRealm, "LDAPCONN_KERBEROS_REALM")
	config.KerberosKeytab = p.getStringValue(data.KerberosKeytab, "LDAPCONN_KERBEROS_KEYTAB")
	config.KerberosCCache = p.getStringValue(data.KerberosCCache, "LDAPCONN_KERBEROS_CCACHE")
	config.KerberosSPN = p.getStringValue(data.KerberosSPN, "LDAPCONN_KERBEROS_SPN")
	if krb5conf := p.getStringValue(data.KerberosConfig, "LDAPCONN_KERBEROS_CONFIG"); krb5conf != "" {
		config.KerberosConfig = krb5conf
	}

	// TLS settings
	config.UseTLS = p.getBoolValue(data.UseTLS, "LDAPCONN_USE_TLS", config.UseTLS)
	config.SkipTLSVerify = p.getBoolValue(data.SkipTLSVerify, "LDAPCONN_SKIP_TLS_VERIFY", config.SkipTLSVerify)
	config.TLSCACertFile = p.getStringValue(data.TLSCACertFile, "LDAPCONN_TLS_CA_CERT_FILE")
	config.TLSCACert = p.getStringValue(data.TLSCACert, "LDAPCONN_TLS_CA_CERT")
	config.TLSClientCertFile = p.getStringValue(data.TLSClientCertFile, "LDAPCONN_TLS_CLIENT_CERT_FILE")
	config.TLSClientKeyFile = p.getStringValue(data.TLSClientKeyFile, "LDAPCONN_TLS_CLIENT_KEY_FILE")

	if !config.HasAuthentication() {
		diags.AddError(
			"Missing Authentication Configuration",
			"Renames require an authenticated session. "+
				"For simple bind: provide 'username' and 'password' or set LDAPCONN_USERNAME and LDAPCONN_PASSWORD. "+
				"For Kerberos: provide 'kerberos_realm' together with 'username', 'kerberos_keytab' or 'kerberos_ccache'. "+
				"For certificate authentication: provide 'tls_client_cert_file' and 'tls_client_key_file'.",
		)
		return config
	}

	if timeout := p.getInt64Value(data.ConnectTimeout, "LDAPCONN_CONNECT_TIMEOUT", 0); timeout > 0 {
		config.Timeout = time.Duration(timeout) * time.Second
	}

	if pageSize := p.getInt64Value(data.PageSize, "LDAPCONN_PAGE_SIZE", 0); pageSize > 0 {
		config.PageSize = uint32(pageSize)
	}

	return config
}

// Helper functions for configuration value resolution

func (p *LDAPConnProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *LDAPConnProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *LDAPConnProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *LDAPConnProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewEntryNameResource,
		NewEntryDNResource,
	}
}

func (p *LDAPConnProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{}
}

func (p *LDAPConnProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		NewDNEqualFunction,
		NewRenameDNFunction,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &LDAPConnProvider{
			version: version,
		}
	}
}
