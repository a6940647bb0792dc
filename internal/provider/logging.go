package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

// initializeLogging registers the provider's logging subsystems on ctx.
// Call it at the start of every Configure, CRUD and import method.
//
// Levels follow TF_LOG_PROVIDER_LDAPCONN_<SUBSYSTEM>.
func initializeLogging(ctx context.Context) context.Context {
	ctx = tflog.NewSubsystem(ctx, ldapclient.SubsystemProvider,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAPCONN_PROVIDER"))
	ctx = tflog.NewSubsystem(ctx, ldapclient.SubsystemLDAP,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAPCONN_LDAP"))
	ctx = tflog.NewSubsystem(ctx, ldapclient.SubsystemRename,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAPCONN_RENAME"))
	return ctx
}
