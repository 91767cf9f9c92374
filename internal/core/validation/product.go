package validation

import (
	"net/url"
	"strings"

	"github.com/artpar/showroom/internal/core/domain"
)

// =============================================================================
// Product Validation Functions
// =============================================================================

// Messages returned for invalid fields.
const (
	MsgNameRequired         = "name is required"
	MsgOrganizationRequired = "organization is required"
	MsgURLRequired          = "url is required"
	MsgURLInvalid           = "url is not a valid URL"
	MsgDescriptionRequired  = "description is required"
)

// ValidateProduct validates the editable fields of a product.
// Returns a map of field name to error message; an empty map means valid.
// Every invalid field is reported, not only the first.
//
// Example:
//
//	errs := ValidateProduct(domain.ProductFields{Name: "", URL: "nope"})
//	// errs["name"] == "name is required"
//	// errs["url"] == "url is not a valid URL"
func ValidateProduct(f domain.ProductFields) map[string]string {
	errs := make(map[string]string)

	if isBlank(f.Name) {
		errs[domain.FieldName] = MsgNameRequired
	}
	if isBlank(f.Organization) {
		errs[domain.FieldOrganization] = MsgOrganizationRequired
	}
	if isBlank(f.URL) {
		errs[domain.FieldURL] = MsgURLRequired
	} else if !IsValidURL(f.URL) {
		errs[domain.FieldURL] = MsgURLInvalid
	}
	if isBlank(f.Description) {
		errs[domain.FieldDescription] = MsgDescriptionRequired
	}

	return errs
}

// ValidateProductMap applies ValidateProduct to a loosely typed field map.
// A missing key is treated as an empty string and yields the "required" error.
func ValidateProductMap(fields map[string]string) map[string]string {
	return ValidateProduct(domain.FieldsFromMap(fields))
}

// IsValidURL reports whether raw is an absolute http or https URL with a host.
func IsValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\n") {
		return false
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
