package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
)

const googleMaxPages = 50

// GoogleAdapter reads campaign metrics from the Google Ads REST search endpoint.
type GoogleAdapter struct {
	baseURL        string
	developerToken string
	httpClient     *http.Client
	logger         *zap.Logger
	metrics        observability.MetricsRegistry
	retry          RetryPolicy
}

// NewGoogleAdapter creates an adapter for the Google Ads API rooted at
// baseURL (e.g. https://googleads.googleapis.com/v22).
func NewGoogleAdapter(baseURL, developerToken string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *GoogleAdapter {
	return &GoogleAdapter{
		baseURL:        strings.TrimRight(baseURL, "/"),
		developerToken: developerToken,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
		metrics:        metrics,
		retry:          DefaultRetryPolicy,
	}
}

// WithRetryPolicy replaces the retry policy for search requests.
func (g *GoogleAdapter) WithRetryPolicy(p RetryPolicy) *GoogleAdapter {
	g.retry = p
	return g
}

func (g *GoogleAdapter) Platform() models.Platform { return models.PlatformGoogle }

type googleSearchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
}

type googleSearchResponse struct {
	Results []struct {
		Campaign struct {
			ID   flexID `json:"id"`
			Name string `json:"name"`
		} `json:"campaign"`
		Metrics struct {
			Impressions      flexNumber `json:"impressions"`
			Clicks           flexNumber `json:"clicks"`
			CostMicros       flexNumber `json:"costMicros"`
			Conversions      flexNumber `json:"conversions"`
			ConversionsValue flexNumber `json:"conversionsValue"`
		} `json:"metrics"`
		Segments struct {
			Date string `json:"date"`
		} `json:"segments"`
	} `json:"results"`
	NextPageToken string `json:"nextPageToken"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		} `json:"details"`
	} `json:"error"`
}

func googleQuery(rng models.DateRange) string {
	return fmt.Sprintf(`SELECT campaign.id, campaign.name, metrics.impressions, metrics.clicks, metrics.cost_micros, metrics.conversions, metrics.conversions_value, metrics.ctr, metrics.average_cpc, metrics.average_cpm, segments.date FROM campaign WHERE segments.date BETWEEN '%s' AND '%s' AND campaign.status != 'REMOVED'`,
		rng.FromString(), rng.ToString())
}

// FetchInsights runs a date-segmented query and merges each campaign's
// daily rows into one row, in order of first appearance.
func (g *GoogleAdapter) FetchInsights(ctx context.Context, account AccountRef, rng models.DateRange) ([]RawMetrics, error) {
	start := time.Now()
	defer func() {
		g.metrics.RecordPlatformFetchLatency(string(models.PlatformGoogle), time.Since(start))
	}()

	customerID := strings.ReplaceAll(account.AccountID, "-", "")
	endpoint := fmt.Sprintf("%s/customers/%s/googleAds:search", g.baseURL, customerID)

	merged := newGoogleMerger()
	pageToken := ""
	for page := 0; ; page++ {
		if page >= googleMaxPages {
			g.logger.Warn("google ads pagination truncated",
				zap.String("customer_id", customerID),
				zap.Int("pages", page))
			break
		}
		body := googleSearchRequest{Query: googleQuery(rng), PageToken: pageToken}
		resp, err := withRetry(ctx, models.PlatformGoogle, g.retry, g.logger, func() (*googleSearchResponse, error) {
			return g.search(ctx, endpoint, account, body)
		})
		if err != nil {
			return nil, err
		}
		for _, res := range resp.Results {
			merged.add(string(res.Campaign.ID), res.Campaign.Name,
				res.Metrics.Impressions.Int64(), res.Metrics.Clicks.Int64(), res.Metrics.CostMicros.Int64(),
				res.Metrics.Conversions.Value, res.Metrics.ConversionsValue.Value)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	rows := merged.rows()
	g.logger.Debug("google ads metrics fetched",
		zap.String("customer_id", customerID),
		zap.Int("campaigns", len(rows)))
	return rows, nil
}

func (g *GoogleAdapter) search(ctx context.Context, endpoint string, account AccountRef, body googleSearchRequest) (*googleSearchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &FetchError{Platform: models.PlatformGoogle, Message: "marshal request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &FetchError{Platform: models.PlatformGoogle, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("developer-token", g.developerToken)
	if account.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", strings.ReplaceAll(account.LoginCustomerID, "-", ""))
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Platform: models.PlatformGoogle, Message: err.Error(), Err: err, transient: true}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && g.logger != nil {
			g.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Platform: models.PlatformGoogle, StatusCode: resp.StatusCode, Message: googleErrorMessage(raw), transient: transientStatus(resp.StatusCode)}
	}

	var out googleSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &FetchError{Platform: models.PlatformGoogle, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return &out, nil
}

// googleErrorMessage prefers the first detailed error over the generic message.
func googleErrorMessage(raw []byte) string {
	var apiErr googleErrorResponse
	if json.Unmarshal(raw, &apiErr) != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, d := range apiErr.Error.Details {
		for _, e := range d.Errors {
			if e.Message != "" {
				return e.Message
			}
		}
	}
	if apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

type googleMerger struct {
	order []string
	byID  map[string]*RawMetrics
}

func newGoogleMerger() *googleMerger {
	return &googleMerger{byID: make(map[string]*RawMetrics)}
}

func (m *googleMerger) add(id, name string, impressions, clicks, costMicros int64, conversions, conversionValue float64) {
	row, ok := m.byID[id]
	if !ok {
		row = &RawMetrics{CampaignID: id, CampaignName: name, ConversionValue: new(float64)}
		m.byID[id] = row
		m.order = append(m.order, id)
	}
	row.Impressions += impressions
	row.Clicks += clicks
	row.CostMicros += costMicros
	row.Conversions += conversions
	*row.ConversionValue += conversionValue
}

// rows recomputes the averages from the merged sums.
func (m *googleMerger) rows() []RawMetrics {
	out := make([]RawMetrics, 0, len(m.order))
	for _, id := range m.order {
		row := *m.byID[id]
		if row.Impressions > 0 {
			row.CTR = float64(row.Clicks) / float64(row.Impressions)
			row.AverageCPMMicros = float64(row.CostMicros) / float64(row.Impressions) * 1000
		}
		if row.Clicks > 0 {
			row.AverageCPCMicros = float64(row.CostMicros) / float64(row.Clicks)
		}
		out = append(out, row)
	}
	return out
}
