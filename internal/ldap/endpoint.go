package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// DirectoryEndpoint is an Endpoint holding a single bound connection.
// Connect reuses the connection while it is alive and re-dials the configured
// URLs, in order, once it is gone. It never retries a failed dial or bind.
type DirectoryEndpoint struct {
	config *ConnectionConfig
	dial   func(ctx context.Context, server *ServerInfo) (protocolConn, error)

	mu      sync.Mutex
	session *ldapSession
}

var _ Endpoint = (*DirectoryEndpoint)(nil)

// NewDirectoryEndpoint validates config and returns an endpoint. No
// connection is opened until Connect.
func NewDirectoryEndpoint(config *ConnectionConfig) (*DirectoryEndpoint, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection configuration: %w", err)
	}

	e := &DirectoryEndpoint{config: config}
	e.dial = e.dialServer
	return e, nil
}

// Connect returns a live session, dialing and binding when needed.
func (e *DirectoryEndpoint) Connect(ctx context.Context) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		if e.session.alive() {
			LogConnectionEvent(ctx, "connection_reused", nil)
			return e.session, nil
		}
		LogConnectionEvent(ctx, "connection_lost", nil)
		_ = e.session.close()
		e.session = nil
	}

	var errs []error
	for _, u := range e.config.LDAPURLs {
		server, err := ParseLDAPURL(u)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}

		start := time.Now()
		LogConnectionEvent(ctx, "connection_attempt", map[string]any{
			"server":      ServerInfoToURL(server),
			"auth_method": e.config.GetAuthMethod().String(),
		})

		conn, err := e.dial(ctx, server)
		if err != nil {
			LogConnectionEvent(ctx, "connection_failed", map[string]any{
				"server":      ServerInfoToURL(server),
				"error":       err.Error(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", ServerInfoToURL(server), err))
			continue
		}

		LogConnectionEvent(ctx, "connection_established", map[string]any{
			"server":      ServerInfoToURL(server),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		e.session = newSession(conn, e.config.PageSize)
		return e.session, nil
	}

	return nil, WrapError("connect", errors.Join(errs...))
}

// Close releases the connection, if any.
func (e *DirectoryEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}

	err := e.session.close()
	e.session = nil
	return err
}

// BaseDN returns the configured base DN.
func (e *DirectoryEndpoint) BaseDN() string {
	return e.config.BaseDN
}

// dialServer opens a connection to server, upgrades it to TLS as configured
// and binds it.
func (e *DirectoryEndpoint) dialServer(ctx context.Context, server *ServerInfo) (protocolConn, error) {
	tlsConfig, err := e.config.BuildTLSConfig(server.Host)
	if err != nil {
		return nil, err
	}

	url := ServerInfoToURL(server)
	dialer := ldap.DialWithDialer(&net.Dialer{Timeout: e.config.Timeout})

	var conn *ldap.Conn
	if server.UseTLS {
		conn, err = ldap.DialURL(url, dialer, ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL(url, dialer)
		if err == nil && e.config.UseTLS {
			if err = conn.StartTLS(tlsConfig); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("StartTLS failed: %w", err)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	conn.SetTimeout(e.config.Timeout)

	if err := e.bind(ctx, conn, server); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func (e *DirectoryEndpoint) bind(ctx context.Context, conn *ldap.Conn, server *ServerInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !e.config.HasAuthentication() {
		tflog.SubsystemWarn(ctx, SubsystemLDAP, "No credentials configured, using anonymous session")
		return nil
	}

	method := e.config.GetAuthMethod()
	fields := map[string]any{
		"auth_method": method.String(),
		"username":    e.config.Username,
	}

	var err error
	switch method {
	case AuthMethodSimpleBind:
		err = conn.Bind(e.config.Username, e.config.Password)
	case AuthMethodKerberos:
		err = kerberosBind(ctx, conn, e.config, server)
	case AuthMethodExternal:
		err = conn.ExternalBind()
	default:
		err = fmt.Errorf("unsupported authentication method: %s", method.String())
	}

	if err != nil {
		LogLDAPError(ctx, SubsystemLDAP, "bind", err, fields)
		return WrapError("bind", err)
	}

	LogConnectionEvent(ctx, "authentication_success", fields)
	return nil
}
