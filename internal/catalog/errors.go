package catalog

import "errors"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("product already exists")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrNetworkFailure   = errors.New("catalog unreachable")
)
