// Package models defines the data structures shared by the storefront client and the store API.
// It includes catalog products, users, cart lines, orders, request payloads and the
// response envelope that wraps every backend call.
package models

import (
	"encoding/json"
	"time"
)

// SystemRequirements describes the minimum and recommended machine for a DLC.
type SystemRequirements struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

// Product represents a DLC available in the catalog.
// Products are read-only once fetched from the backend.
type Product struct {
	ID                 int                `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Price              int                `json:"price"`
	OriginalPrice      int                `json:"originalPrice"`
	Discount           int                `json:"discount"`
	Image              string             `json:"image"`
	Category           string             `json:"category"`
	GameID             string             `json:"gameId"`
	Platform           []string           `json:"platform"`
	Rating             float64            `json:"rating"`
	ReviewsCount       int                `json:"reviewsCount"`
	ReleaseDate        string             `json:"releaseDate"`
	Features           []string           `json:"features"`
	SystemRequirements SystemRequirements `json:"systemRequirements"`
	InStock            bool               `json:"inStock"`
	DownloadSize       string             `json:"downloadSize"`
}

// CartItem is a product together with the quantity placed in the cart.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price multiplied by quantity.
func (item CartItem) Subtotal() int {
	return item.Price * item.Quantity
}

// User represents an authenticated storefront customer.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Avatar        string    `json:"avatar,omitempty"`
	PurchasedDLCs []string  `json:"purchasedDLCs"`
	Balance       int       `json:"balance"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OrderStatus is the settlement state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
)

// Order is a submitted purchase. Only Status changes after creation.
// Keys maps a product id (decimal string) to the redemption key issued for it.
type Order struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Items         []CartItem        `json:"items"`
	Total         int               `json:"total"`
	Status        OrderStatus       `json:"status"`
	PaymentMethod string            `json:"paymentMethod"`
	CreatedAt     time.Time         `json:"createdAt"`
	Keys          map[string]string `json:"keys,omitempty"`
}

// LoginRequest is the payload of an authentication call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload of a registration call.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthPayload is returned by successful login and registration.
type AuthPayload struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// OrderRequest is the payload of an order submission.
type OrderRequest struct {
	Items         []CartItem `json:"items"`
	PaymentMethod string     `json:"paymentMethod"`
}

// Response wraps the result of every backend call.
// Message is set only when Success is false, and Data is left at its zero value in that case.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// OK builds a successful envelope.
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// Fail builds a failed envelope carrying a user-facing message.
func Fail[T any](message string) Response[T] {
	return Response[T]{Success: false, Message: message}
}

// MarshalJSON omits data from failed envelopes.
func (r Response[T]) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Success bool   `json:"success"`
		Data    any    `json:"data,omitempty"`
		Message string `json:"message,omitempty"`
	}
	e := envelope{Success: r.Success, Message: r.Message}
	if r.Success {
		e.Data = r.Data
	}
	return json.Marshal(e)
}
