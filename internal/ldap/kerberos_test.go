package ldap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBinder struct {
	called bool
}

func (b *recordingBinder) GSSAPIBind(ldap.GSSAPIClient, string, string) error {
	b.called = true
	return nil
}

func TestKerberosPrincipal(t *testing.T) {
	tests := []struct {
		name          string
		cfg           *ConnectionConfig
		wantPrincipal string
		wantRealm     string
		wantErr       string
	}{
		{
			name:          "explicit realm",
			cfg:           &ConnectionConfig{Username: "svc-ldap", KerberosRealm: "EXAMPLE.COM"},
			wantPrincipal: "svc-ldap",
			wantRealm:     "EXAMPLE.COM",
		},
		{
			name:          "realm from username",
			cfg:           &ConnectionConfig{Username: "svc-ldap@EXAMPLE.COM"},
			wantPrincipal: "svc-ldap",
			wantRealm:     "EXAMPLE.COM",
		},
		{
			name:          "configured realm wins",
			cfg:           &ConnectionConfig{Username: "svc-ldap@OTHER.COM", KerberosRealm: "EXAMPLE.COM"},
			wantPrincipal: "svc-ldap@OTHER.COM",
			wantRealm:     "EXAMPLE.COM",
		},
		{
			name:      "ccache without principal",
			cfg:       &ConnectionConfig{KerberosRealm: "EXAMPLE.COM", KerberosCCache: "/tmp/krb5cc_test"},
			wantRealm: "EXAMPLE.COM",
		},
		{
			name:    "missing realm",
			cfg:     &ConnectionConfig{Username: "svc-ldap"},
			wantErr: "realm is required",
		},
		{
			name:    "missing principal",
			cfg:     &ConnectionConfig{KerberosRealm: "EXAMPLE.COM"},
			wantErr: "principal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, realm, err := kerberosPrincipal(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrincipal, principal)
			assert.Equal(t, tt.wantRealm, realm)
		})
	}
}

func TestBuildServicePrincipal(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ConnectionConfig
		server  *ServerInfo
		want    string
		wantErr string
	}{
		{
			name:    "nil config",
			server:  &ServerInfo{Host: "dc1.example.com", Port: 636},
			wantErr: "configuration is required",
		},
		{
			name:   "SPN override",
			cfg:    &ConnectionConfig{KerberosSPN: "ldap/custom.spn.com"},
			server: &ServerInfo{Host: "192.168.1.100", Port: 636},
			want:   "ldap/custom.spn.com",
		},
		{
			name:    "nil server",
			cfg:     &ConnectionConfig{},
			wantErr: "hostname is required",
		},
		{
			name:    "empty hostname",
			cfg:     &ConnectionConfig{},
			server:  &ServerInfo{Port: 636},
			wantErr: "hostname is required",
		},
		{
			name:   "derived from hostname",
			cfg:    &ConnectionConfig{},
			server: &ServerInfo{Host: "dc1.example.com", Port: 636},
			want:   "ldap/dc1.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildServicePrincipal(tt.cfg, tt.server)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKerberosBind_MissingConfiguration(t *testing.T) {
	tempDir := t.TempDir()
	server := &ServerInfo{Host: "dc1.example.com", Port: 636, UseTLS: true}

	t.Run("missing krb5.conf", func(t *testing.T) {
		binder := &recordingBinder{}
		err := kerberosBind(context.Background(), binder, &ConnectionConfig{
			Username:       "svc-ldap",
			Password:       "secret",
			KerberosRealm:  "EXAMPLE.COM",
			KerberosConfig: filepath.Join(tempDir, "missing.conf"),
		}, server)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "kerberos configuration file not found")
		assert.False(t, binder.called)
	})

	t.Run("missing keytab", func(t *testing.T) {
		krb5conf := filepath.Join(tempDir, "krb5.conf")
		require.NoError(t, os.WriteFile(krb5conf, []byte("[libdefaults]\n  default_realm = EXAMPLE.COM\n"), 0o600))

		binder := &recordingBinder{}
		err := kerberosBind(context.Background(), binder, &ConnectionConfig{
			Username:       "svc-ldap",
			KerberosRealm:  "EXAMPLE.COM",
			KerberosKeytab: filepath.Join(tempDir, "missing.keytab"),
			KerberosConfig: krb5conf,
		}, server)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "keytab not found")
		assert.False(t, binder.called)
	})

	t.Run("missing realm", func(t *testing.T) {
		binder := &recordingBinder{}
		err := kerberosBind(context.Background(), binder, &ConnectionConfig{Username: "svc-ldap"}, server)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "kerberos configuration error")
		assert.False(t, binder.called)
	})
}

func TestDefaultCCachePath(t *testing.T) {
	t.Setenv("KRB5CCNAME", "")
	assert.Contains(t, defaultCCachePath(), "/tmp/krb5cc_")

	t.Setenv("KRB5CCNAME", "FILE:/tmp/custom_ccache")
	assert.Equal(t, "/tmp/custom_ccache", defaultCCachePath())

	t.Setenv("KRB5CCNAME", "/custom/path/ccache")
	assert.Equal(t, "/custom/path/ccache", defaultCCachePath())
}

func TestFileExists(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "existing.txt")
	require.NoError(t, os.WriteFile(existing, nil, 0o600))

	assert.True(t, fileExists(existing))
	assert.False(t, fileExists(filepath.Join(tempDir, "missing.txt")))
	assert.False(t, fileExists(tempDir), "directories are not files")
	assert.False(t, fileExists(""))
}
