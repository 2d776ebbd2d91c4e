package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
	ErrAuthorizationDenied  = errors.New("operation not permitted")
	ErrValidation           = errors.New("invalid input")
	ErrInternalServer       = errors.New("internal server error")
)
