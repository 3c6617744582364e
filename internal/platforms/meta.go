package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
)

const (
	metaInsightFields = "campaign_id,campaign_name,impressions,clicks,spend,ctr,cpc,cpm,reach,frequency,conversions,cost_per_conversion,purchase_roas"
	metaPageLimit     = 100
	// upper bound on followed paging.next links
	metaMaxPages = 50
)

// MetaAdapter reads campaign insights from the Meta Graph API.
type MetaAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
	retry      RetryPolicy
}

// NewMetaAdapter creates an adapter for the Graph API rooted at baseURL
// (e.g. https://graph.facebook.com/v18.0).
func NewMetaAdapter(baseURL string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *MetaAdapter {
	return &MetaAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
		retry:      DefaultRetryPolicy,
	}
}

// WithRetryPolicy replaces the retry policy for page requests.
func (m *MetaAdapter) WithRetryPolicy(p RetryPolicy) *MetaAdapter {
	m.retry = p
	return m
}

func (m *MetaAdapter) Platform() models.Platform { return models.PlatformMeta }

type metaInsightsResponse struct {
	Data   []metaInsight `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type metaInsight struct {
	CampaignID   string       `json:"campaign_id"`
	CampaignName string       `json:"campaign_name"`
	Impressions  flexNumber   `json:"impressions"`
	Clicks       flexNumber   `json:"clicks"`
	Spend        flexNumber   `json:"spend"`
	CTR          flexNumber   `json:"ctr"`
	CPC          flexNumber   `json:"cpc"`
	CPM          flexNumber   `json:"cpm"`
	Reach        flexNumber   `json:"reach"`
	Frequency    flexNumber   `json:"frequency"`
	Conversions  metaActions  `json:"conversions"`
	PurchaseROAS []metaAction `json:"purchase_roas"`
}

type metaAction struct {
	ActionType string     `json:"action_type"`
	Value      flexNumber `json:"value"`
}

// metaActions accepts either a scalar count or a list of action values,
// which are summed.
type metaActions struct {
	flexNumber
}

func (a *metaActions) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var actions []metaAction
		if err := json.Unmarshal(b, &actions); err != nil {
			return err
		}
		for _, act := range actions {
			a.Value += act.Value.Value
			a.Set = true
		}
		return nil
	}
	return a.flexNumber.UnmarshalJSON(b)
}

type metaErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// FetchInsights requests campaign-level insights for the whole range in one
// query and follows pagination until exhausted.
func (m *MetaAdapter) FetchInsights(ctx context.Context, account AccountRef, rng models.DateRange) ([]RawMetrics, error) {
	start := time.Now()
	defer func() {
		m.metrics.RecordPlatformFetchLatency(string(models.PlatformMeta), time.Since(start))
	}()

	next, err := m.insightsURL(account, rng)
	if err != nil {
		return nil, err
	}

	var rows []RawMetrics
	for page := 0; next != ""; page++ {
		if page >= metaMaxPages {
			m.logger.Warn("meta insights pagination truncated",
				zap.String("account_id", account.AccountID),
				zap.Int("pages", page))
			break
		}
		pageURL := next
		resp, err := withRetry(ctx, models.PlatformMeta, m.retry, m.logger, func() (*metaInsightsResponse, error) {
			return m.fetchPage(ctx, pageURL)
		})
		if err != nil {
			return nil, err
		}
		for _, in := range resp.Data {
			rows = append(rows, in.toRaw())
		}
		next = resp.Paging.Next
	}

	m.logger.Debug("meta insights fetched",
		zap.String("account_id", account.AccountID),
		zap.Int("campaigns", len(rows)))
	return rows, nil
}

func (m *MetaAdapter) insightsURL(account AccountRef, rng models.DateRange) (string, error) {
	timeRange, err := json.Marshal(map[string]string{
		"since": rng.FromString(),
		"until": rng.ToString(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal time range: %w", err)
	}
	q := url.Values{}
	q.Set("access_token", account.AccessToken)
	q.Set("fields", metaInsightFields)
	q.Set("time_range", string(timeRange))
	q.Set("level", "campaign")
	q.Set("limit", fmt.Sprint(metaPageLimit))
	return fmt.Sprintf("%s/%s/insights?%s", m.baseURL, metaAccountPath(account.AccountID), q.Encode()), nil
}

func (m *MetaAdapter) fetchPage(ctx context.Context, pageURL string) (*metaInsightsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Platform: models.PlatformMeta, Message: "create request", Err: err}
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Platform: models.PlatformMeta, Message: err.Error(), Err: err, transient: true}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && m.logger != nil {
			m.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr metaErrorResponse
		msg := strings.TrimSpace(string(body))
		transient := transientStatus(resp.StatusCode)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
			transient = transient || metaThrottleCodes[apiErr.Error.Code]
		}
		return nil, &FetchError{Platform: models.PlatformMeta, StatusCode: resp.StatusCode, Message: msg, transient: transient}
	}

	var out metaInsightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &FetchError{Platform: models.PlatformMeta, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return &out, nil
}

func (in metaInsight) toRaw() RawMetrics {
	r := RawMetrics{
		CampaignID:   in.CampaignID,
		CampaignName: in.CampaignName,
		Impressions:  in.Impressions.Int64(),
		Clicks:       in.Clicks.Int64(),
		Conversions:  in.Conversions.Value,
		Spend:        in.Spend.Value,
		CTR:          in.CTR.Value,
		CPC:          in.CPC.Value,
		CPM:          in.CPM.Value,
		Reach:        in.Reach.Int64Ptr(),
		Frequency:    in.Frequency.Ptr(),
	}
	if len(in.PurchaseROAS) > 0 && in.PurchaseROAS[0].Value.Set {
		v := in.PurchaseROAS[0].Value.Value
		r.ROAS = &v
	}
	return r
}

// metaAccountPath prefixes numeric account ids with "act_".
func metaAccountPath(id string) string {
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}
