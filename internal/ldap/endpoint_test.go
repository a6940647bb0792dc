package ldap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dialFunc func(ctx context.Context, server *ServerInfo) (protocolConn, error)

func newTestEndpoint(t *testing.T, dial dialFunc, urls ...string) *DirectoryEndpoint {
	t.Helper()

	config := DefaultConfig()
	config.LDAPURLs = urls
	config.BaseDN = "dc=example,dc=com"

	endpoint, err := NewDirectoryEndpoint(config)
	require.NoError(t, err)
	endpoint.dial = dial
	return endpoint
}

func TestNewDirectoryEndpoint_InvalidConfig(t *testing.T) {
	_, err := NewDirectoryEndpoint(&ConnectionConfig{})
	assert.ErrorContains(t, err, "invalid connection configuration")

	_, err = NewDirectoryEndpoint(nil)
	assert.Error(t, err)
}

func TestDirectoryEndpoint_ReusesLiveSession(t *testing.T) {
	conn := new(mockConn)
	conn.On("IsClosing").Return(false)

	dials := 0
	endpoint := newTestEndpoint(t, func(context.Context, *ServerInfo) (protocolConn, error) {
		dials++
		return conn, nil
	}, "ldap://ldap.example.com")

	first, err := endpoint.Connect(context.Background())
	require.NoError(t, err)
	second, err := endpoint.Connect(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dials)
	assert.Equal(t, "dc=example,dc=com", endpoint.BaseDN())
}

func TestDirectoryEndpoint_RedialsClosedConnection(t *testing.T) {
	stale := new(mockConn)
	stale.On("IsClosing").Return(true)
	stale.On("Close").Return(nil).Once()

	fresh := new(mockConn)
	fresh.On("IsClosing").Return(false)

	conns := []protocolConn{stale, fresh}
	endpoint := newTestEndpoint(t, func(context.Context, *ServerInfo) (protocolConn, error) {
		conn := conns[0]
		conns = conns[1:]
		return conn, nil
	}, "ldap://ldap.example.com")

	_, err := endpoint.Connect(context.Background())
	require.NoError(t, err)

	session, err := endpoint.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, fresh, session.(*ldapSession).conn)
	stale.AssertExpectations(t)
}

func TestDirectoryEndpoint_FallsBackToNextURL(t *testing.T) {
	conn := new(mockConn)
	var tried []string

	endpoint := newTestEndpoint(t, func(_ context.Context, server *ServerInfo) (protocolConn, error) {
		tried = append(tried, ServerInfoToURL(server))
		if server.Host == "ldap1.example.com" {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}, "ldap://ldap1.example.com", "ldaps://ldap2.example.com")

	_, err := endpoint.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ldap://ldap1.example.com:389", "ldaps://ldap2.example.com:636"}, tried)
}

func TestDirectoryEndpoint_AllURLsFail(t *testing.T) {
	endpoint := newTestEndpoint(t, func(_ context.Context, server *ServerInfo) (protocolConn, error) {
		return nil, errors.New("connection refused by " + server.Host)
	}, "ldap://ldap1.example.com", "ldap://ldap2.example.com")

	session, err := endpoint.Connect(context.Background())

	assert.Nil(t, session)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused by ldap1.example.com")
	assert.Contains(t, err.Error(), "connection refused by ldap2.example.com")

	var ldapErr *LDAPError
	require.ErrorAs(t, err, &ldapErr)
	assert.Equal(t, "connect", ldapErr.Operation)
	assert.Equal(t, ErrorCategoryConnection, ldapErr.Category)
}

func TestDirectoryEndpoint_Close(t *testing.T) {
	conn := new(mockConn)
	conn.On("Close").Return(nil).Once()

	endpoint := newTestEndpoint(t, func(context.Context, *ServerInfo) (protocolConn, error) {
		return conn, nil
	}, "ldap://ldap.example.com")

	assert.NoError(t, endpoint.Close(), "closing before connecting is a no-op")

	_, err := endpoint.Connect(context.Background())
	require.NoError(t, err)

	assert.NoError(t, endpoint.Close())
	assert.NoError(t, endpoint.Close())
	conn.AssertExpectations(t)
}
