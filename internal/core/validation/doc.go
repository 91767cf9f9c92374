// Package validation provides pure validation functions for product fields.
//
// This package contains the functional core logic for validating the
// editable fields of a product. All functions are pure (no I/O, no side
// effects) and never panic.
//
// # Functions
//
//   - ValidateProduct: Validate the four editable fields of a product
//   - ValidateProductMap: Same rules for loosely typed input (missing key = empty)
//   - IsValidURL: Check that a string is an absolute http(s) URL with a host
//
// # Usage
//
// Callers treat an empty result as "valid" and otherwise show the message
// next to the offending field:
//
//	if errs := validation.ValidateProduct(fields); len(errs) > 0 {
//	    // errs["url"] == "url is not a valid URL"
//	}
package validation
