package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser   UserRole = "user"
	UserRoleSeller UserRole = "seller"
	UserRoleAdmin  UserRole = "admin"
)

// User carries the delivery identity the notifier needs. Accounts are
// managed by the auth service.
type User struct {
	Id                 uuid.UUID
	Email              string
	FullName           string
	Role               UserRole
	PushToken          *string
	EmailNotifications bool
	PushNotifications  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
