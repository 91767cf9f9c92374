package auth

import "github.com/artpar/showroom/internal/core/domain"

// =============================================================================
// Product Authorization
// =============================================================================

// CanEditProduct checks if the user can edit a product.
// Only the owner can edit, and an absent identity never can.
func CanEditProduct(ctx Context, product domain.Product) bool {
	return ctx.Present() && product.IsOwnedBy(ctx.UserID)
}
