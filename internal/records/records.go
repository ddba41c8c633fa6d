// package records defines the record types moved through a migration run and
// their schema validation.
//
// A [Raw] record is an untyped JSON object straight from the legacy export.
// [ParseUser] and [ParseOrganization] coerce a Raw into a typed [Record] or
// reject it outright: validation is all-or-nothing per record, and a Record is
// never constructed from input that fails its schema.
package records

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"idmigrate/internal/shared"
)

// Kind identifies the entity type of a record.
type Kind string

const (
	KindUser         Kind = "user"
	KindOrganization Kind = "organization"
)

// Plural returns the kind's plural noun for user-facing output.
func (k Kind) Plural() string {
	switch k {
	case KindUser:
		return "users"
	case KindOrganization:
		return "organizations"
	default:
		return string(k) + "s"
	}
}

// Raw is an untyped record as exported from the legacy store.
// Unknown fields are tolerated and ignored.
type Raw map[string]any

// Identifier returns the best available identifier for a raw record, for
// failure-log entries when the record never validated. Falls back through
// external ID, email, then "<unknown>".
func (r Raw) Identifier() string {
	for _, key := range []string{"externalId", "external_id", "email"} {
		if v, ok := r[key].(string); ok && v != "" {
			return v
		}
	}
	return "<unknown>"
}

// Record is a validated, typed record accepted for remote creation.
type Record struct {
	Kind       Kind   `validate:"required"`
	ExternalID string `validate:"required"`
	Email      string `validate:"required,email"`

	// User fields
	Name     string
	Locale   string
	Role     string
	Password string
	Admin    bool
	// OrganizationExternalID links a user to its organization by legacy key.
	OrganizationExternalID string

	// Organization fields
	// OwnerEmail is the legacy creator's email; resolved best-effort to
	// OwnerID at import time. An unresolvable owner degrades to unset.
	OwnerEmail string `validate:"omitempty,email"`
	OwnerID    string
	Notes      string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseUser validates and coerces a raw record into a user Record.
func ParseUser(raw Raw) (*Record, error) {
	rec := &Record{
		Kind:                   KindUser,
		ExternalID:             stringField(raw, "externalId", "external_id"),
		Email:                  stringField(raw, "email"),
		Name:                   displayName(raw),
		Locale:                 stringField(raw, "locale"),
		Role:                   stringField(raw, "role"),
		Password:               stringField(raw, "password"),
		Admin:                  boolField(raw, "admin"),
		OrganizationExternalID: stringField(raw, "organizationId", "organization_id"),
	}

	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidRecord, err)
	}
	return rec, nil
}

// ParseOrganization validates and coerces a raw record into an organization Record.
func ParseOrganization(raw Raw) (*Record, error) {
	rec := &Record{
		Kind:       KindOrganization,
		ExternalID: stringField(raw, "externalId", "external_id"),
		Email:      stringField(raw, "email"),
		Name:       stringField(raw, "name"),
		OwnerEmail: stringField(raw, "ownerEmail", "owner_email"),
		Notes:      stringField(raw, "notes"),
	}

	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidRecord, err)
	}
	return rec, nil
}

// Parse dispatches to the kind-specific parser.
func Parse(kind Kind, raw Raw) (*Record, error) {
	switch kind {
	case KindUser:
		return ParseUser(raw)
	case KindOrganization:
		return ParseOrganization(raw)
	default:
		return nil, fmt.Errorf("%w: unknown record kind %q", shared.ErrInvalidRecord, kind)
	}
}

// displayName prefers an explicit name field, falling back to first and last
// name parts joined with a space.
func displayName(raw Raw) string {
	if name := stringField(raw, "name"); name != "" {
		return name
	}
	parts := []string{}
	if first := stringField(raw, "firstName", "first_name"); first != "" {
		parts = append(parts, first)
	}
	if last := stringField(raw, "lastName", "last_name"); last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, " ")
}

// stringField returns the first present string value among the given keys.
// Non-string values are treated as absent.
func stringField(raw Raw, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok {
			return v
		}
	}
	return ""
}

// boolField returns the boolean value at key, tolerating the string forms
// legacy exports sometimes carry.
func boolField(raw Raw, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
