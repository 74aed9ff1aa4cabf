package domain

import "errors"

var (
	ErrListingNotFound         = errors.New("listing not found")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrSaleNotFound            = errors.New("sale not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrAccessDenied            = errors.New("access denied")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrValidation              = errors.New("validation failed")
)
