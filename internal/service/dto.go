package service

import (
	"time"

	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
)

// CartDto is the caller's cart with its lines, oldest first.
type CartDto struct {
	ID            uuid.UUID     `json:"id"`
	Items         []CartItemDto `json:"items"`
	TotalPrice    int64         `json:"total_price"`
	TotalDiscount int64         `json:"total_discount"`
}

// CartItemDto is one cart line. Prices are snapshots taken when the line was added.
type CartItemDto struct {
	ID             uuid.UUID `json:"id"`
	StoreItemID    uuid.UUID `json:"store_item_id"`
	ProductName    string    `json:"product_name,omitempty"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      int64     `json:"unit_price"`
	TotalItemPrice int64     `json:"total_item_price"`
	TotalDiscount  int64     `json:"total_discount"`
	CreatedAt      string    `json:"created_at"`
}

type AddCartItemDto struct {
	StoreItemID uuid.UUID `json:"store_item_id" validate:"required"`
	Quantity    int32     `json:"quantity"`
}

type UpdateCartItemDto struct {
	Quantity int32 `json:"quantity"`
}

// PlaceOrderDto carries the shipping address. A nil AddressID is reported as a missing field.
type PlaceOrderDto struct {
	AddressID *uuid.UUID `json:"address_id"`
}

type OrderDto struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	AddressID  uuid.UUID      `json:"address_id"`
	Status     string         `json:"status"`
	TotalPrice int64          `json:"total_price"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	Items      []OrderItemDto `json:"items,omitempty"`
}

type OrderItemDto struct {
	ID          uuid.UUID `json:"id"`
	StoreItemID uuid.UUID `json:"store_item_id"`
	Quantity    int32     `json:"quantity"`
	Price       int64     `json:"price"`
	TotalPrice  int64     `json:"total_price"`
}

type UpdateStatusDto struct {
	Status string `json:"status" validate:"required"`
}

type InitiatePaymentDto struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// PaymentSessionDto tells the client where to send the buyer to pay.
type PaymentSessionDto struct {
	Authority string `json:"authority"`
	URL       string `json:"url"`
}

// Verification outcomes.
const (
	VerifySuccess   = "success"
	VerifyCancelled = "cancelled"
	VerifyFailed    = "failed"
)

type VerifyOutcomeDto struct {
	Status  string `json:"status"`
	RefID   *int64 `json:"ref_id,omitempty"`
	Message string `json:"message,omitempty"`
}

type OTPRequestDto struct {
	Username string `json:"username"`
}

type OTPVerifyDto struct {
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

func toCartItemDto(item *db.CartItem, productName string) CartItemDto {
	return CartItemDto{
		ID:             item.ID,
		StoreItemID:    item.StoreItemID,
		ProductName:    productName,
		Quantity:       item.Quantity,
		UnitPrice:      item.UnitPrice,
		TotalItemPrice: item.TotalItemPrice,
		TotalDiscount:  item.TotalDiscount,
		CreatedAt:      item.CreatedAt.Format(time.RFC3339),
	}
}

func toCartDto(cart *db.Cart, lines []db.FindCartItemsRow) *CartDto {
	dto := &CartDto{ID: cart.ID, Items: make([]CartItemDto, 0, len(lines))}
	for _, line := range lines {
		dto.Items = append(dto.Items, CartItemDto{
			ID:             line.ID,
			StoreItemID:    line.StoreItemID,
			ProductName:    line.ProductName,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			TotalItemPrice: line.TotalItemPrice,
			TotalDiscount:  line.TotalDiscount,
			CreatedAt:      line.CreatedAt.Format(time.RFC3339),
		})
		dto.TotalPrice += line.TotalItemPrice
		dto.TotalDiscount += line.TotalDiscount
	}
	return dto
}

func toOrderDto(order *db.Order, items []db.OrderItem) *OrderDto {
	if order == nil {
		return nil
	}
	dto := &OrderDto{
		ID:         order.ID,
		UserID:     order.UserID,
		AddressID:  order.AddressID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  order.UpdatedAt.Format(time.RFC3339),
	}
	if len(items) > 0 {
		dto.Items = make([]OrderItemDto, 0, len(items))
		for _, item := range items {
			dto.Items = append(dto.Items, OrderItemDto{
				ID:          item.ID,
				StoreItemID: item.StoreItemID,
				Quantity:    item.Quantity,
				Price:       item.Price,
				TotalPrice:  item.TotalPrice,
			})
		}
	}
	return dto
}
