// Package platforms fetches raw campaign insights from advertising platform APIs.
package platforms

import (
	"context"
	"fmt"

	"github.com/patrickwarner/adreports/internal/models"
)

// AccountRef identifies the platform account to query and the credentials to use.
type AccountRef struct {
	AccountID   string
	AccessToken string
	// LoginCustomerID is the Google Ads manager account, if any.
	LoginCustomerID string
}

// AccountRefFor builds an AccountRef from a stored ad account.
func AccountRefFor(acc *models.AdAccount) AccountRef {
	return AccountRef{
		AccountID:       acc.PlatformAccountID,
		AccessToken:     acc.AccessToken,
		LoginCustomerID: acc.LoginCustomerID,
	}
}

// RawMetrics is one campaign row in the platform's native units. Meta rows
// carry money in account currency and CTR as a percentage. Google rows carry
// money in micros and CTR as a ratio.
type RawMetrics struct {
	CampaignID   string
	CampaignName string
	Impressions  int64
	Clicks       int64
	Conversions  float64

	// Meta
	Spend float64
	CPC   float64
	CPM   float64

	// Google
	CostMicros       int64
	AverageCPCMicros float64
	AverageCPMMicros float64

	CTR float64

	ROAS            *float64
	ConversionValue *float64
	Reach           *int64
	Frequency       *float64
}

// Adapter retrieves campaign-level insights for one platform.
type Adapter interface {
	Platform() models.Platform
	FetchInsights(ctx context.Context, account AccountRef, rng models.DateRange) ([]RawMetrics, error)
}

// FetchError is returned when a platform call fails, either on the wire or
// with a non-success status.
type FetchError struct {
	Platform models.Platform
	// StatusCode is 0 when no response was received.
	StatusCode int
	Message    string
	Err        error
	// transient marks failures worth retrying.
	transient bool
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error (http %d): %s", e.Platform, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Platform, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }
