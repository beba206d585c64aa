package model

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotOwner             = errors.New("notification does not belong to this user")
	ErrInvalidType          = errors.New("unknown notification type")
)
