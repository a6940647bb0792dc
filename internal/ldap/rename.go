package ldap

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
)

// RenameOperation renames directory entries of a single object type.
//
// It holds no per-call state: one instance may serve any number of
// concurrent calls. It never retries, and the only protocol request it
// issues is the modify-DN itself (plus the identifier lookup on the
// attribute-driven path).
type RenameOperation struct {
	endpoint   Endpoint
	objectType ObjectType
	lookup     DirectoryLookup
	tracer     Tracer
}

// RenameOption configures a RenameOperation.
type RenameOption func(*RenameOperation)

// WithTracer installs the tracer receiving operation events. Without one,
// events go to the tflog "rename" subsystem of the call's context.
func WithTracer(t Tracer) RenameOption {
	return func(op *RenameOperation) {
		op.tracer = t
	}
}

// NewRenameOperation binds an operation to endpoint and objectType. It
// performs no I/O.
func NewRenameOperation(endpoint Endpoint, objectType ObjectType, lookup DirectoryLookup, opts ...RenameOption) (*RenameOperation, error) {
	if endpoint == nil {
		return nil, &RenameError{Kind: RenameErrorConfiguration, Cause: errors.New("endpoint cannot be nil")}
	}

	if err := objectType.Validate(); err != nil {
		return nil, &RenameError{Kind: RenameErrorConfiguration, Cause: fmt.Errorf("invalid object type: %w", err)}
	}

	if lookup == nil {
		return nil, &RenameError{Kind: RenameErrorConfiguration, Cause: errors.New("directory lookup cannot be nil")}
	}

	op := &RenameOperation{
		endpoint:   endpoint,
		objectType: objectType,
		lookup:     lookup,
	}
	for _, opt := range opts {
		opt(op)
	}

	return op, nil
}

// ObjectType returns the object type the operation is bound to.
func (op *RenameOperation) ObjectType() ObjectType {
	return op.objectType
}

func (op *RenameOperation) tracerFor(ctx context.Context) Tracer {
	if op.tracer != nil {
		return op.tracer
	}
	return NewTFLogger(ctx, SubsystemRename)
}

// ExecuteByName renames the entry at origin to target with a single
// modify-DN request. It is not idempotent: repeating a successful call fails
// with EntryNotFound because origin no longer exists.
func (op *RenameOperation) ExecuteByName(ctx context.Context, origin, target DistinguishedName) error {
	if origin.IsZero() {
		return NewInvalidNameError(origin.String(), errors.New("origin DN cannot be empty"))
	}
	if target.IsZero() {
		return NewInvalidNameError(target.String(), errors.New("target DN cannot be empty"))
	}

	tracer := op.tracerFor(ctx)
	fields := map[string]any{
		"object_type": op.objectType.displayName(),
		"origin":      origin.String(),
		"target":      target.String(),
	}

	session, err := op.endpoint.Connect(ctx)
	if err != nil {
		tracer.Error("Failed to obtain directory session", withError(fields, err))
		return err
	}

	tracer.Debug("Renaming entry", fields)

	if err := session.Rename(ctx, origin, target); err != nil {
		renameErr := classifyRenameError(origin, target, err)
		tracer.Error("Rename failed", withError(withKind(fields, renameErr.Kind), err))
		return renameErr
	}

	tracer.Info("Entry renamed", fields)
	return nil
}

// ExecuteByAttribute sets the entry's naming attribute to attr's value. The
// entry is located through the lookup, its new name keeps the current
// suffix, and no request is sent when the name would not change.
func (op *RenameOperation) ExecuteByAttribute(ctx context.Context, attr NamedValue, id UniqueID) error {
	value, err := scalarValue(attr)
	if err != nil {
		return err
	}

	rdn, err := NewDistinguishedName(attr.Name, value)
	if err != nil {
		return err
	}

	tracer := op.tracerFor(ctx)
	fields := map[string]any{
		"object_type": op.objectType.displayName(),
		"identifier":  string(id),
		"attribute":   attr.Name,
	}

	session, err := op.endpoint.Connect(ctx)
	if err != nil {
		tracer.Error("Failed to obtain directory session", withError(fields, err))
		return err
	}

	current, err := op.lookup.ResolveName(ctx, session, op.objectType, id)
	if err != nil {
		tracer.Error("Failed to resolve entry", withError(fields, err))
		return err
	}

	candidate := rdn.WithSuffix(current.Suffix())

	fields["current"] = current.String()
	fields["candidate"] = candidate.String()

	if candidate.Equal(current) {
		tracer.Debug("Entry already has the requested name, skipping rename", fields)
		return nil
	}

	return op.ExecuteByName(ctx, current, candidate)
}

// scalarValue extracts the single non-blank value of attr.
func scalarValue(attr NamedValue) (string, error) {
	switch {
	case len(attr.Values) == 0:
		return "", &RenameError{
			Kind:  RenameErrorNamingAttributeMissing,
			Cause: fmt.Errorf("attribute %q has no value", attr.Name),
		}
	case len(attr.Values) > 1:
		return "", NewInvalidNameError(attr.Name, fmt.Errorf("attribute %q has %d values, a naming attribute takes one", attr.Name, len(attr.Values)))
	case strings.TrimSpace(attr.Values[0]) == "":
		return "", &RenameError{
			Kind:  RenameErrorNamingAttributeMissing,
			Cause: fmt.Errorf("attribute %q has an empty value", attr.Name),
		}
	}
	return attr.Values[0], nil
}

func withError(fields map[string]any, err error) map[string]any {
	out := maps.Clone(fields)
	out["error"] = err.Error()
	return out
}

func withKind(fields map[string]any, kind RenameErrorKind) map[string]any {
	out := maps.Clone(fields)
	out["error_kind"] = string(kind)
	return out
}
