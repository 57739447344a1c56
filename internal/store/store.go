// Package store provides the persistence interfaces of the bazaar service
// and their PostgreSQL implementation.
package store

import (
	"context"

	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
)

// UserStore reads the accounts that act in the order flow.
type UserStore interface {
	// FindUser returns ErrUserNotFound if no user exists with the given ID.
	FindUser(ctx context.Context, id uuid.UUID) (*db.User, error)

	// FindUserByUsername returns ErrUserNotFound if no user has the given username.
	FindUserByUsername(ctx context.Context, username string) (*db.User, error)
}

// CartStore persists carts and their line items.
type CartStore interface {
	// FindStoreItem returns ErrStoreItemNotFound if the listing does not exist.
	FindStoreItem(ctx context.Context, id uuid.UUID) (*db.FindStoreItemByIDRow, error)

	// FindActiveCart returns ErrCartNotFound if the user has never touched a cart.
	FindActiveCart(ctx context.Context, userID uuid.UUID) (*db.Cart, error)

	// CreateCart creates the user's cart. It is safe to call concurrently for the same user.
	CreateCart(ctx context.Context, userID uuid.UUID) (*db.Cart, error)

	// FindCartItems returns the cart lines joined with current stock, oldest first.
	FindCartItems(ctx context.Context, cartID uuid.UUID) ([]db.FindCartItemsRow, error)

	// FindCartItemByStoreItem returns ErrCartItemNotFound if the cart has no line for the listing.
	FindCartItemByStoreItem(ctx context.Context, cartID, storeItemID uuid.UUID) (*db.CartItem, error)

	// FindCartItem returns the line together with the owner of its cart.
	FindCartItem(ctx context.Context, id uuid.UUID) (*db.FindCartItemWithOwnerRow, error)

	CreateCartItem(ctx context.Context, params db.CreateCartItemParams) (*db.CartItem, error)
	UpdateCartItem(ctx context.Context, params db.UpdateCartItemQuantityParams) (*db.CartItem, error)

	// DeleteCartItem is a no-op when the line does not exist.
	DeleteCartItem(ctx context.Context, id uuid.UUID) error
}

// PlaceOrderParams identifies the cart to convert and where to ship it.
type PlaceOrderParams struct {
	UserID    uuid.UUID
	AddressID uuid.UUID
	CartID    uuid.UUID
}

// OrderStore persists orders.
type OrderStore interface {
	// FindAddress returns ErrAddressNotFound unless the address exists and belongs to userID.
	FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*db.Address, error)

	// PlaceOrder converts the cart into a PENDING order in one serializable transaction:
	// it creates the order and its items, reserves stock for every line and empties the cart.
	// Nothing is persisted if any step fails.
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*db.Order, []db.OrderItem, error)

	// FindOrder returns ErrOrderNotFound if no order exists with the given ID.
	FindOrder(ctx context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error)

	FindOrdersForBuyer(ctx context.Context, params db.FindOrdersForBuyerParams) ([]db.Order, error)
	FindOrdersForSeller(ctx context.Context, params db.FindOrdersForSellerParams) ([]db.Order, error)

	// SellerOwnsOrder reports whether any item of the order is listed in a store of sellerID.
	SellerOwnsOrder(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error)

	// TransitionOrder moves the order from one status to another.
	// Returns ErrOrderStatusConflict if the order is not in the from status.
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to string) (*db.Order, error)

	// CancelOrder moves a PENDING order to CANCELLED and restores the stock of its items.
	// Returns ErrOrderStatusConflict if the order is not PENDING.
	CancelOrder(ctx context.Context, id uuid.UUID) (*db.Order, error)
}

// SettleResult is the outcome of recording a verified payment.
type SettleResult struct {
	Payment *db.Payment
	// OrderAdvanced is false when the order had already left PENDING.
	OrderAdvanced bool
}

// PaymentStore persists payment attempts.
type PaymentStore interface {
	CreatePayment(ctx context.Context, params db.CreatePaymentParams) (*db.Payment, error)

	// FindPaymentByAuthority returns ErrPaymentNotFound for an unknown gateway authority.
	FindPaymentByAuthority(ctx context.Context, authority string) (*db.Payment, error)

	// SettlePayment marks the payment VERIFIED and advances its order to PROCESSING atomically.
	// Returns ErrPaymentAlreadySettled if the payment is no longer PENDING.
	SettlePayment(ctx context.Context, params db.MarkPaymentVerifiedParams, orderID uuid.UUID) (*SettleResult, error)
}
