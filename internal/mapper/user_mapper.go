package mapper

import (
	"marketplace-be/internal/entity"
	"marketplace-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:                 u.Id,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               entity.UserRole(u.Role),
		PushToken:          u.PushToken,
		EmailNotifications: u.EmailNotifications,
		PushNotifications:  u.PushNotifications,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:                 u.Id,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               string(u.Role),
		PushToken:          u.PushToken,
		EmailNotifications: u.EmailNotifications,
		PushNotifications:  u.PushNotifications,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
