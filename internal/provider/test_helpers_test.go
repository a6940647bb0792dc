package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/hashicorp/terraform-plugin-testing/terraform"

	ldapclient "github.com/isometry/terraform-provider-ldapconn/internal/ldap"
)

// Test environment configuration constants.
const (
	EnvTestLDAPURL   = "LDAPCONN_TEST_LDAP_URL"
	EnvTestUsername  = "LDAPCONN_TEST_USERNAME"
	EnvTestPassword  = "LDAPCONN_TEST_PASSWORD"
	EnvTestBaseDN    = "LDAPCONN_TEST_BASE_DN"
	EnvTestContainer = "LDAPCONN_TEST_CONTAINER"
	EnvTestUseTLS    = "LDAPCONN_TEST_USE_TLS"

	DefaultTestBaseDN    = "dc=example,dc=com"
	DefaultTestContainer = "ou=people"

	TestEntryPrefix = "tf-test-"
)

// TestConfig holds common test configuration.
type TestConfig struct {
	LDAPURL   string
	Username  string
	Password  string
	BaseDN    string
	Container string
	UseTLS    bool
}

// ContainerDN is the parent of every fixture entry.
func (c *TestConfig) ContainerDN() string {
	if c.Container == "" {
		return c.BaseDN
	}
	return c.Container + "," + c.BaseDN
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	return &TestConfig{
		LDAPURL:   os.Getenv(EnvTestLDAPURL),
		Username:  os.Getenv(EnvTestUsername),
		Password:  os.Getenv(EnvTestPassword),
		BaseDN:    getEnvWithDefault(EnvTestBaseDN, DefaultTestBaseDN),
		Container: getEnvWithDefault(EnvTestContainer, DefaultTestContainer),
		UseTLS:    os.Getenv(EnvTestUseTLS) != "false",
	}
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheck validates the acceptance test environment.
func testAccPreCheck(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	for env, value := range map[string]string{
		EnvTestLDAPURL:  config.LDAPURL,
		EnvTestUsername: config.Username,
		EnvTestPassword: config.Password,
	} {
		if value == "" {
			t.Skipf("Skipping test: %s must be set", env)
		}
	}

	return config
}

// testProviderConfig generates provider configuration for tests.
func testProviderConfig() string {
	config := GetTestConfig()

	var b strings.Builder
	b.WriteString("provider \"ldapconn\" {\n")
	fmt.Fprintf(&b, "  ldap_url = %q\n", config.LDAPURL)
	fmt.Fprintf(&b, "  base_dn  = %q\n", config.BaseDN)
	fmt.Fprintf(&b, "  username = %q\n", config.Username)
	fmt.Fprintf(&b, "  password = %q\n", config.Password)
	fmt.Fprintf(&b, "  use_tls  = %t\n", config.UseTLS)
	b.WriteString("}\n")
	return b.String()
}

// GenerateTestName generates a unique test name with timestamp.
func GenerateTestName(prefix string) string {
	timestamp := time.Now().Format("20060102-150405")
	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("%s%s-%s", prefix, timestamp, shortUUID)
}

// TestFixture creates directory entries for a test and removes them afterwards.
type TestFixture struct {
	config *TestConfig
	conn   *ldap.Conn
	uids   []string
	t      *testing.T
}

// NewTestFixture binds to the test directory and registers cleanup.
func NewTestFixture(t *testing.T) *TestFixture {
	config := testAccPreCheck(t)

	conn, err := ldap.DialURL(config.LDAPURL)
	if err != nil {
		t.Fatalf("Failed to connect to test directory: %v", err)
	}
	if config.UseTLS && strings.HasPrefix(config.LDAPURL, "ldap://") {
		if err := conn.StartTLS(&tls.Config{ServerName: serverName(config.LDAPURL)}); err != nil {
			_ = conn.Close()
			t.Fatalf("Failed to start TLS with test directory: %v", err)
		}
	}
	if err := conn.Bind(config.Username, config.Password); err != nil {
		_ = conn.Close()
		t.Fatalf("Failed to bind to test directory: %v", err)
	}

	f := &TestFixture{config: config, conn: conn, t: t}
	t.Cleanup(f.Cleanup)
	return f
}

// CreatePerson adds an inetOrgPerson named cn=<uid> under the test container.
func (f *TestFixture) CreatePerson(uid string) string {
	dn := fmt.Sprintf("cn=%s,%s", ldapclient.EscapeDNValue(uid), f.config.ContainerDN())

	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "person", "organizationalPerson", "inetOrgPerson"})
	req.Attribute("cn", []string{uid})
	req.Attribute("sn", []string{"Test"})
	req.Attribute("uid", []string{uid})

	if err := f.conn.Add(req); err != nil {
		f.t.Fatalf("Failed to create test entry %s: %v", dn, err)
	}

	f.uids = append(f.uids, uid)
	return dn
}

// Cleanup removes every created entry wherever it was renamed to.
func (f *TestFixture) Cleanup() {
	for _, uid := range f.uids {
		dn, err := currentEntryDN(context.Background(), f.config, uid)
		if err != nil {
			log.Printf("Failed to locate test entry %s for cleanup: %v", uid, err)
			continue
		}
		if err := f.conn.Del(ldap.NewDelRequest(dn.String(), nil)); err != nil {
			log.Printf("Failed to cleanup test entry %s: %v", dn, err)
		}
	}

	if err := f.conn.Close(); err != nil {
		log.Printf("Failed to close LDAP connection during cleanup: %v", err)
	}
}

// currentEntryDN resolves a fixture entry by uid through the provider's own
// directory endpoint.
func currentEntryDN(ctx context.Context, config *TestConfig, uid string) (ldapclient.DistinguishedName, error) {
	connConfig := ldapclient.DefaultConfig()
	connConfig.LDAPURLs = []string{config.LDAPURL}
	connConfig.BaseDN = config.BaseDN
	connConfig.Username = config.Username
	connConfig.Password = config.Password
	connConfig.UseTLS = config.UseTLS

	endpoint, err := ldapclient.NewDirectoryEndpoint(connConfig)
	if err != nil {
		return ldapclient.DistinguishedName{}, err
	}

	providerData := ldapclient.NewProviderData(endpoint, config.BaseDN)
	defer providerData.Close()

	return providerData.ResolveName(ctx, ldapclient.ObjectType{ObjectClass: "inetOrgPerson"}, ldapclient.UniqueID(uid))
}

// testAccCheckEntryDN verifies the directory entry with uid is named want.
func testAccCheckEntryDN(uid, want string) resource.TestCheckFunc {
	return func(s *terraform.State) error {
		got, err := currentEntryDN(context.Background(), GetTestConfig(), uid)
		if err != nil {
			return fmt.Errorf("failed to resolve entry %s: %w", uid, err)
		}

		expected, err := ldapclient.ParseDistinguishedName(want)
		if err != nil {
			return err
		}
		if !got.Equal(expected) {
			return fmt.Errorf("entry %s is named %s, expected %s", uid, got, expected)
		}
		return nil
	}
}

func serverName(ldapURL string) string {
	server, err := ldapclient.ParseLDAPURL(ldapURL)
	if err != nil {
		return ""
	}
	return server.Host
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
