package models

import "time"

// User owns exactly one wallet, created together with the user at
// registration. Provider ids link the user to the payment processor's
// customer and connected account objects.
type User struct {
	ID                 uint   `gorm:"primarykey"`
	Email              string `gorm:"uniqueIndex;not null"`
	Password           string `gorm:"not null"`
	Name               string `gorm:"not null"`
	ProviderCustomerID string `gorm:"index"`
	ProviderAccountID  string `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
