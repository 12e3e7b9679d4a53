package models

import "time"

// AdminUser is an account allowed into the admin area. Only superuser
// accounts that are active may authenticate.
type AdminUser struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
	LastLoginIP  *string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the account is eligible for admin login at all;
// credential verification still happens separately.
func (u *AdminUser) CanLogin() bool {
	return u.IsSuperuser && u.IsActive
}
