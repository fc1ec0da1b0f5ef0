package service

import "errors"

// ErrInvalidQuantity is returned when a requested quantity is below 1.
// The targeted line is left unchanged.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ErrCartEmpty is returned when checkout is attempted on an empty cart.
var ErrCartEmpty = errors.New("cart is empty")

// ErrInvalidPaymentMethod is returned for an unknown payment method.
var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// ErrInvalidAddress is returned when the shipping address is missing the
// required name or street fields.
var ErrInvalidAddress = errors.New("invalid shipping address")
