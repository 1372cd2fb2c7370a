package service

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrForbidden            = errors.New("subscription belongs to another user")
	ErrInvalidTransition    = errors.New("subscription cannot make this transition")
	ErrTransitionFailed     = errors.New("subscription transition failed")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrPaymentNotFound      = errors.New("payment transaction not found")
	ErrGateway              = errors.New("payment gateway error")
	ErrJobRunning           = errors.New("job already running")
	ErrUnknownJob           = errors.New("unknown job")
)
