package ldap

import (
	"context"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"
)

// MockSession implements Session for testing.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Rename(ctx context.Context, origin, target DistinguishedName) error {
	args := m.Called(ctx, origin, target)
	return args.Error(0)
}

func (m *MockSession) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	args := m.Called(ctx, req)
	if result, ok := args.Get(0).(*SearchResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEndpoint implements Endpoint for testing.
type MockEndpoint struct {
	mock.Mock
}

func (m *MockEndpoint) Connect(ctx context.Context) (Session, error) {
	args := m.Called(ctx)
	if session, ok := args.Get(0).(Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockLookup implements DirectoryLookup for testing.
type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) ResolveName(ctx context.Context, session Session, objectType ObjectType, id UniqueID) (DistinguishedName, error) {
	args := m.Called(ctx, session, objectType, id)
	dn, _ := args.Get(0).(DistinguishedName)
	return dn, args.Error(1)
}

// MockTracer records trace events.
type MockTracer struct {
	mock.Mock
}

func (m *MockTracer) Debug(msg string, fields map[string]any) { m.Called(msg, fields) }
func (m *MockTracer) Info(msg string, fields map[string]any)  { m.Called(msg, fields) }
func (m *MockTracer) Warn(msg string, fields map[string]any)  { m.Called(msg, fields) }
func (m *MockTracer) Error(msg string, fields map[string]any) { m.Called(msg, fields) }
func (m *MockTracer) Trace(msg string, fields map[string]any) { m.Called(msg, fields) }

// mockConn implements protocolConn for testing.
type mockConn struct {
	mock.Mock
}

func (m *mockConn) ModifyDN(req *ldap.ModifyDNRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *mockConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	args := m.Called(req)
	result, _ := args.Get(0).(*ldap.SearchResult)
	return result, args.Error(1)
}

func (m *mockConn) SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error) {
	args := m.Called(req, pagingSize)
	result, _ := args.Get(0).(*ldap.SearchResult)
	return result, args.Error(1)
}

func (m *mockConn) IsClosing() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

// dnMatching matches a DistinguishedName argument equal to dn and rendered identically.
func dnMatching(dn string) any {
	want := MustParseDistinguishedName(dn)
	return mock.MatchedBy(func(got DistinguishedName) bool {
		return got.Equal(want) && got.String() == want.String()
	})
}
