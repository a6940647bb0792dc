package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorCategory represents different categories of LDAP errors.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryConflict       ErrorCategory = "conflict"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// LDAPError wraps connection, bind and search failures with operation context.
type LDAPError struct {
	Operation string        // The operation that failed
	Category  ErrorCategory // Error category
	LDAPCode  uint16        // LDAP result code
	Message   string        // Human-readable message
	ServerMsg string        // Server-provided message
	DN        string        // DN involved in the operation (if applicable)
	Cause     error         // Underlying error
}

func (e *LDAPError) Error() string {
	var parts []string

	if e.LDAPCode > 0 {
		parts = append(parts, fmt.Sprintf("LDAP %s failed (code %d)", e.Operation, e.LDAPCode))
	} else {
		parts = append(parts, fmt.Sprintf("LDAP %s failed", e.Operation))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		parts = append(parts, fmt.Sprintf("server: %s", e.ServerMsg))
	}

	if e.DN != "" {
		parts = append(parts, fmt.Sprintf("DN: %s", e.DN))
	}

	return strings.Join(parts, " - ")
}

func (e *LDAPError) Unwrap() error {
	return e.Cause
}

// NewLDAPError creates a new LDAP error.
func NewLDAPError(operation string, err error) *LDAPError {
	if err == nil {
		return nil
	}

	ldapErr := &LDAPError{
		Operation: operation,
		Cause:     err,
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		ldapErr.LDAPCode = resultErr.ResultCode
		if resultErr.Err != nil {
			ldapErr.ServerMsg = resultErr.Err.Error()
		}
		ldapErr.DN = resultErr.MatchedDN
		ldapErr.Category = categorizeError(resultErr.ResultCode)
		ldapErr.Message = getLDAPCodeMessage(resultErr.ResultCode)
	} else {
		ldapErr.Category = categorizeGenericError(err)
		ldapErr.Message = err.Error()
	}

	return ldapErr
}

// categorizeError categorizes an error based on LDAP result code.
func categorizeError(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired:
		return ErrorCategoryAuthentication

	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return ErrorCategoryPermission

	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return ErrorCategoryNotFound

	case ldap.LDAPResultEntryAlreadyExists,
		ldap.LDAPResultAttributeOrValueExists,
		ldap.LDAPResultObjectClassViolation,
		ldap.LDAPResultNotAllowedOnNonLeaf:
		return ErrorCategoryConflict

	case ldap.LDAPResultInvalidAttributeSyntax,
		ldap.LDAPResultConstraintViolation,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNamingViolation,
		ldap.LDAPResultNotAllowedOnRDN:
		return ErrorCategoryValidation

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultAdminLimitExceeded:
		return ErrorCategoryServer

	case ldap.LDAPResultConnectError,
		ldap.LDAPResultProtocolError,
		ldap.ErrorNetwork:
		return ErrorCategoryConnection

	default:
		return ErrorCategoryUnknown
	}
}

// categorizeGenericError categorizes non-LDAP errors by message.
func categorizeGenericError(err error) ErrorCategory {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "broken pipe"):
		return ErrorCategoryConnection
	case strings.Contains(errStr, "authentication"),
		strings.Contains(errStr, "credentials"),
		strings.Contains(errStr, "password"):
		return ErrorCategoryAuthentication
	case strings.Contains(errStr, "permission"),
		strings.Contains(errStr, "denied"):
		return ErrorCategoryPermission
	default:
		return ErrorCategoryUnknown
	}
}

// getLDAPCodeMessage returns a human-readable message for an LDAP result code.
func getLDAPCodeMessage(code uint16) string {
	if msg, ok := ldap.LDAPResultCodeMap[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown LDAP error (code %d)", code)
}

// WrapError wraps an error with operation context.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		if ldapErr.Operation == "" {
			ldapErr.Operation = operation
		}
		return err
	}

	return NewLDAPError(operation, err)
}

// GetErrorCategory returns the category of an error.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.Category
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return categorizeError(resultErr.ResultCode)
	}

	return categorizeGenericError(err)
}

// IsNotFoundError checks if an error indicates a "not found" condition.
func IsNotFoundError(err error) bool {
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Reason == LookupReasonNotFound
	}

	return GetErrorCategory(err) == ErrorCategoryNotFound ||
		GetRenameErrorKind(err) == RenameErrorEntryNotFound
}

// IsConflictError checks if an error indicates a conflict (already exists).
func IsConflictError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryConflict
}

// IsAuthenticationError checks if an error is a failed bind.
func IsAuthenticationError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAuthentication
}

// IsPermissionError checks if the directory refused the operation.
func IsPermissionError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryPermission
}

// RenameErrorKind classifies every failure a rename can surface.
type RenameErrorKind string

const (
	RenameErrorNone                   RenameErrorKind = ""
	RenameErrorInvalidName            RenameErrorKind = "invalid_name"
	RenameErrorNamingAttributeMissing RenameErrorKind = "naming_attribute_missing"
	RenameErrorEntryNotFound          RenameErrorKind = "entry_not_found"
	RenameErrorEntryAlreadyExists     RenameErrorKind = "entry_already_exists"
	RenameErrorFailed                 RenameErrorKind = "rename_failed"
	RenameErrorLookupFailed           RenameErrorKind = "lookup_failed"
	RenameErrorConfiguration          RenameErrorKind = "configuration"
)

// Sentinels for errors.Is matching on RenameError kinds.
var (
	ErrInvalidName            = errors.New("invalid distinguished name")
	ErrNamingAttributeMissing = errors.New("naming attribute required")
	ErrEntryNotFound          = errors.New("entry not found")
	ErrEntryAlreadyExists     = errors.New("entry already exists")
	ErrRenameFailed           = errors.New("rename failed")
	ErrLookupFailed           = errors.New("lookup failed")
	ErrConfiguration          = errors.New("invalid configuration")
)

func (k RenameErrorKind) sentinel() error {
	switch k {
	case RenameErrorInvalidName:
		return ErrInvalidName
	case RenameErrorNamingAttributeMissing:
		return ErrNamingAttributeMissing
	case RenameErrorEntryNotFound:
		return ErrEntryNotFound
	case RenameErrorEntryAlreadyExists:
		return ErrEntryAlreadyExists
	case RenameErrorFailed:
		return ErrRenameFailed
	case RenameErrorLookupFailed:
		return ErrLookupFailed
	case RenameErrorConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}

// RenameError is the typed error surfaced by RenameOperation. It carries the
// DN(s) involved for diagnostic display.
type RenameError struct {
	Kind     RenameErrorKind
	Origin   string // current DN, when known
	Target   string // requested DN, when known
	LDAPCode uint16 // protocol result code for protocol failures
	Cause    error
}

func (e *RenameError) Error() string {
	msg := "rename error"
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		msg = sentinel.Error()
	}
	parts := []string{msg}

	if e.LDAPCode > 0 {
		parts[0] = fmt.Sprintf("%s (code %d)", parts[0], e.LDAPCode)
	}
	if e.Origin != "" {
		parts = append(parts, fmt.Sprintf("origin: %s", e.Origin))
	}
	if e.Target != "" {
		parts = append(parts, fmt.Sprintf("target: %s", e.Target))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, " - ")
}

func (e *RenameError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *RenameError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// NewInvalidNameError reports a malformed name.
func NewInvalidNameError(name string, cause error) *RenameError {
	return &RenameError{Kind: RenameErrorInvalidName, Target: name, Cause: cause}
}

// classifyRenameError maps a protocol failure from Session.Rename to exactly one kind.
func classifyRenameError(origin, target DistinguishedName, err error) *RenameError {
	renameErr := &RenameError{
		Kind:   RenameErrorFailed,
		Origin: origin.String(),
		Target: target.String(),
		Cause:  err,
	}

	var resultErr *ldap.Error
	if !errors.As(err, &resultErr) {
		return renameErr
	}

	renameErr.LDAPCode = resultErr.ResultCode
	switch resultErr.ResultCode {
	case ldap.LDAPResultNoSuchObject:
		renameErr.Kind = RenameErrorEntryNotFound
	case ldap.LDAPResultEntryAlreadyExists:
		renameErr.Kind = RenameErrorEntryAlreadyExists
	}

	return renameErr
}

// GetRenameErrorKind returns the rename kind of the first classified error in err's chain.
func GetRenameErrorKind(err error) RenameErrorKind {
	if err == nil {
		return RenameErrorNone
	}

	var renameErr *RenameError
	if errors.As(err, &renameErr) {
		return renameErr.Kind
	}

	if errors.Is(err, ErrLookupFailed) {
		return RenameErrorLookupFailed
	}

	return RenameErrorNone
}
