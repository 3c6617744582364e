package models

import "time"

// AdAccount is a user's connected advertising account.
type AdAccount struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Platform          Platform  `json:"platform"`
	PlatformAccountID string    `json:"platform_account_id"`
	AccountName       string    `json:"account_name"`
	Currency          string    `json:"currency"`
	Timezone          string    `json:"timezone,omitempty"`
	AccessToken       string    `json:"-"`
	LoginCustomerID   string    `json:"login_customer_id,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// Account statuses.
const (
	AccountActive   = "active"
	AccountDisabled = "disabled"
)
