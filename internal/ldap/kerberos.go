package ldap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// gssapiBinder is the part of *ldap.Conn used for Kerberos binds.
type gssapiBinder interface {
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error
}

// kerberosBind performs a GSSAPI bind against server using the configured credentials.
func kerberosBind(ctx context.Context, conn gssapiBinder, cfg *ConnectionConfig, server *ServerInfo) error {
	principal, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	client, source, err := newGSSAPIClient(cfg, principal, realm)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = client.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	LogConnectionEvent(ctx, "authentication_attempt", map[string]any{
		"auth_method":       AuthMethodKerberos.String(),
		"credential_source": source,
		"service_principal": spn,
		"realm":             realm,
	})

	if err := conn.GSSAPIBind(client, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// kerberosPrincipal splits "user@REALM" when no realm is configured.
func kerberosPrincipal(cfg *ConnectionConfig) (string, string, error) {
	principal, realm := cfg.Username, cfg.KerberosRealm

	if user, userRealm, ok := strings.Cut(principal, "@"); ok && realm == "" {
		principal, realm = user, userRealm
	}

	if realm == "" {
		return "", "", errors.New("kerberos realm is required (set kerberos_realm or include realm in username)")
	}

	if principal == "" && cfg.KerberosCCache == "" {
		return "", "", errors.New("username (principal) is required for Kerberos keytab or password authentication")
	}

	return principal, realm, nil
}

// newGSSAPIClient picks credentials in order: credential cache, keytab, password.
func newGSSAPIClient(cfg *ConnectionConfig, principal, realm string) (*gssapi.Client, string, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = "/etc/krb5.conf"
	}

	if !fileExists(krb5conf) {
		return nil, "", fmt.Errorf("kerberos configuration file not found at %s; specify kerberos_config", krb5conf)
	}

	disableFAST := krb5client.DisablePAFXFAST(true)

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		client, err := gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf, disableFAST)
		return client, "ccache", err
	}

	if ccache := defaultCCachePath(); cfg.KerberosKeytab == "" && cfg.Password == "" && fileExists(ccache) {
		client, err := gssapi.NewClientFromCCache(ccache, krb5conf, disableFAST)
		return client, "default_ccache", err
	}

	if cfg.KerberosKeytab != "" {
		if !fileExists(cfg.KerberosKeytab) {
			return nil, "", fmt.Errorf("kerberos keytab not found at %s", cfg.KerberosKeytab)
		}
		client, err := gssapi.NewClientWithKeytab(principal, realm, cfg.KerberosKeytab, krb5conf, disableFAST)
		return client, "keytab", err
	}

	if cfg.Password != "" {
		client, err := gssapi.NewClientWithPassword(principal, realm, cfg.Password, krb5conf, disableFAST)
		return client, "password", err
	}

	return nil, "", errors.New("no suitable credentials found for Kerberos authentication")
}

// buildServicePrincipal returns the explicit SPN or ldap/<host>.
func buildServicePrincipal(cfg *ConnectionConfig, server *ServerInfo) (string, error) {
	if cfg == nil {
		return "", errors.New("configuration is required for service principal")
	}

	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if server == nil || server.Host == "" {
		return "", errors.New("hostname is required for service principal")
	}

	return "ldap/" + server.Host, nil
}

func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
