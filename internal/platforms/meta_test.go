package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
)

func testRange(t *testing.T, from, to string) models.DateRange {
	t.Helper()
	r, err := models.ParseDateRange(from, to)
	require.NoError(t, err)
	return r
}

func TestMetaAdapter_FetchInsightsFollowsPaging(t *testing.T) {
	var srv *httptest.Server
	calls := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "" {
			assert.Equal(t, "/act_123/insights", r.URL.Path)
			assert.Equal(t, "campaign", r.URL.Query().Get("level"))
			assert.Equal(t, "tok", r.URL.Query().Get("access_token"))

			var tr map[string]string
			require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("time_range")), &tr))
			assert.Equal(t, "2024-03-01", tr["since"])
			assert.Equal(t, "2024-03-10", tr["until"])

			_, _ = w.Write([]byte(`{"data":[{"campaign_id":"1","campaign_name":"Spring","impressions":"10000","clicks":"450","spend":"120.50","ctr":"4.5","cpc":"0.267","cpm":"12.05","reach":"8000","frequency":"1.25","conversions":[{"action_type":"lead","value":"7"},{"action_type":"purchase","value":"3"}],"purchase_roas":[{"action_type":"omni_purchase","value":"2.4"}]}],"paging":{"next":"` + srv.URL + `/act_123/insights?after=abc"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"campaign_id":"2","campaign_name":"Summer","impressions":"0","clicks":"0","spend":"0"}],"paging":{}}`))
	}))
	defer srv.Close()

	a := NewMetaAdapter(srv.URL, time.Second, zap.NewNop(), observability.NewNoOpRegistry())
	rows, err := a.FetchInsights(context.Background(), AccountRef{AccountID: "123", AccessToken: "tok"}, testRange(t, "2024-03-01", "2024-03-10"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, calls)

	first := rows[0]
	assert.Equal(t, "1", first.CampaignID)
	assert.Equal(t, int64(10000), first.Impressions)
	assert.Equal(t, int64(450), first.Clicks)
	assert.InDelta(t, 120.50, first.Spend, 1e-9)
	assert.InDelta(t, 4.5, first.CTR, 1e-9)
	assert.InDelta(t, 10, first.Conversions, 1e-9)
	require.NotNil(t, first.ROAS)
	assert.InDelta(t, 2.4, *first.ROAS, 1e-9)
	require.NotNil(t, first.Reach)
	assert.Equal(t, int64(8000), *first.Reach)

	second := rows[1]
	assert.Nil(t, second.ROAS)
	assert.Nil(t, second.Reach)
	assert.Nil(t, second.Frequency)
}

func TestMetaAdapter_ErrorSurfacesUpstreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	a := NewMetaAdapter(srv.URL, time.Second, zap.NewNop(), observability.NewNoOpRegistry())
	_, err := a.FetchInsights(context.Background(), AccountRef{AccountID: "act_9", AccessToken: "bad"}, testRange(t, "2024-03-01", "2024-03-02"))
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.PlatformMeta, fe.Platform)
	assert.Equal(t, http.StatusBadRequest, fe.StatusCode)
	assert.Equal(t, "Invalid OAuth access token.", fe.Message)
}

func TestMetaAdapter_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	a := NewMetaAdapter(srv.URL, 5*time.Second, zap.NewNop(), observability.NewNoOpRegistry())
	_, err := a.FetchInsights(ctx, AccountRef{AccountID: "1"}, testRange(t, "2024-03-01", "2024-03-02"))
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
}

func TestMetaAccountPath(t *testing.T) {
	assert.Equal(t, "act_42", metaAccountPath("42"))
	assert.Equal(t, "act_42", metaAccountPath("act_42"))
}
