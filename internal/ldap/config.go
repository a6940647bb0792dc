package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// ConnectionConfig holds configuration for the directory endpoint.
type ConnectionConfig struct {
	// Connection settings
	LDAPURLs []string      // LDAP URLs, tried in order
	BaseDN   string        // Base DN for identifier lookups
	Timeout  time.Duration `default:"30s"` // Dial and request timeout
	PageSize uint32        `default:"500"` // Paging size for multi-entry searches

	// Authentication settings
	Username       string // Bind DN for simple bind, principal for Kerberos
	Password       string
	KerberosRealm  string
	KerberosKeytab string
	KerberosConfig string `default:"/etc/krb5.conf"`
	KerberosCCache string
	KerberosSPN    string // Overrides the ldap/<host> service principal

	// TLS settings
	UseTLS            bool `default:"true"` // StartTLS on ldap:// URLs
	SkipTLSVerify     bool
	TLSCACertFile     string
	TLSCACert         string // PEM content
	TLSClientCertFile string
	TLSClientKeyFile  string
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *ConnectionConfig {
	config := &ConnectionConfig{}
	if err := defaults.Set(config); err != nil {
		// Only reachable with a malformed struct tag.
		panic(fmt.Sprintf("invalid connection config defaults: %v", err))
	}
	return config
}

// Validate checks the configuration before any connection is attempted.
func (c *ConnectionConfig) Validate() error {
	if c == nil {
		return errors.New("connection configuration cannot be nil")
	}

	if len(c.LDAPURLs) == 0 {
		return errors.New("at least one LDAP URL is required")
	}

	for _, u := range c.LDAPURLs {
		if _, err := ParseLDAPURL(u); err != nil {
			return fmt.Errorf("invalid LDAP URL %q: %w", u, err)
		}
	}

	if c.BaseDN != "" {
		if _, err := ParseDistinguishedName(c.BaseDN); err != nil {
			return fmt.Errorf("invalid base DN: %w", err)
		}
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if (c.TLSClientCertFile == "") != (c.TLSClientKeyFile == "") {
		return errors.New("client certificate and key must be provided together")
	}

	return nil
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	// Kerberos authentication takes precedence
	if c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "") {
		return AuthMethodKerberos
	}

	if c.Username != "" && c.Password != "" {
		return AuthMethodSimpleBind
	}

	if c.TLSClientCertFile != "" && c.TLSClientKeyFile != "" {
		return AuthMethodExternal
	}

	return AuthMethodSimpleBind
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "")
	hasExternal := c.TLSClientCertFile != "" && c.TLSClientKeyFile != ""

	return hasPassword || hasKerberos || hasExternal
}

// BuildTLSConfig assembles the TLS configuration used for LDAPS and StartTLS.
func (c *ConnectionConfig) BuildTLSConfig(serverName string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		InsecureSkipVerify: c.SkipTLSVerify, //nolint:gosec // opt-in via skip_tls_verify
	}

	if c.TLSCACertFile != "" || c.TLSCACert != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}

		if c.TLSCACertFile != "" {
			pem, err := os.ReadFile(c.TLSCACertFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate file: %w", err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", c.TLSCACertFile)
			}
		}

		if c.TLSCACert != "" && !pool.AppendCertsFromPEM([]byte(c.TLSCACert)) {
			return nil, errors.New("no certificates found in CA certificate content")
		}

		tlsConfig.RootCAs = pool
	}

	if c.TLSClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.TLSClientCertFile, c.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// ServerInfoToURL converts ServerInfo to LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}

	return fmt.Sprintf("%s://%s:%d", scheme, server.Host, server.Port)
}

// ParseLDAPURL parses an ldap:// or ldaps:// URL into ServerInfo.
// Missing ports default to 389 and 636 respectively.
func ParseLDAPURL(url string) (*ServerInfo, error) {
	if url == "" {
		return nil, errors.New("URL cannot be empty")
	}

	server := &ServerInfo{}

	switch {
	case strings.HasPrefix(url, "ldaps://"):
		server.UseTLS = true
		server.Port = 636
		url = strings.TrimPrefix(url, "ldaps://")
	case strings.HasPrefix(url, "ldap://"):
		server.Port = 389
		url = strings.TrimPrefix(url, "ldap://")
	default:
		return nil, errors.New("unsupported scheme, must be ldap:// or ldaps://")
	}

	hostPort, _, _ := strings.Cut(url, "/")
	host, portStr, hasPort := strings.Cut(hostPort, ":")
	server.Host = host

	if hasPort {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", portStr)
		}
		server.Port = port
	}

	if server.Host == "" {
		return nil, errors.New("server host cannot be empty")
	}

	if server.Port <= 0 || server.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", server.Port)
	}

	return server, nil
}
