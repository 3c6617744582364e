package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS ad_accounts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    platform TEXT NOT NULL CHECK (platform IN ('meta', 'google')),
    platform_account_id TEXT NOT NULL,
    account_name TEXT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'USD',
    timezone TEXT,
    access_token TEXT NOT NULL,
    login_customer_id TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, platform, platform_account_id)
);

CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    ad_account_id TEXT NOT NULL REFERENCES ad_accounts(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    template_type TEXT NOT NULL CHECK (template_type IN ('leads', 'sales', 'reach')),
    date_from DATE NOT NULL,
    date_to DATE NOT NULL,
    status TEXT NOT NULL DEFAULT 'generating' CHECK (status IN ('generating', 'completed', 'failed')),
    error_message TEXT,
    ai_description TEXT,
    ai_recommendations TEXT[],
    total_spend DOUBLE PRECISION,
    total_impressions BIGINT,
    total_clicks BIGINT,
    total_conversions DOUBLE PRECISION,
    ctr DOUBLE PRECISION,
    cpc DOUBLE PRECISION,
    cpm DOUBLE PRECISION,
    roas DOUBLE PRECISION,
    previous_date_from DATE,
    previous_date_to DATE,
    previous_spend DOUBLE PRECISION,
    previous_impressions BIGINT,
    previous_clicks BIGINT,
    previous_conversions DOUBLE PRECISION,
    previous_ctr DOUBLE PRECISION,
    previous_cpc DOUBLE PRECISION,
    previous_cpm DOUBLE PRECISION,
    previous_roas DOUBLE PRECISION,
    share_token TEXT UNIQUE,
    share_token_expires_at TIMESTAMPTZ,
    generated_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (date_from <= date_to),
    CHECK ((previous_date_from IS NULL) = (previous_spend IS NULL))
);

CREATE TABLE IF NOT EXISTS campaigns_data (
    id TEXT PRIMARY KEY,
    report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    ad_account_id TEXT NOT NULL REFERENCES ad_accounts(id) ON DELETE CASCADE,
    platform TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    campaign_name TEXT NOT NULL,
    date_from DATE NOT NULL,
    date_to DATE NOT NULL,
    spend DOUBLE PRECISION NOT NULL DEFAULT 0,
    impressions BIGINT NOT NULL DEFAULT 0,
    clicks BIGINT NOT NULL DEFAULT 0,
    conversions DOUBLE PRECISION NOT NULL DEFAULT 0,
    revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
    ctr DOUBLE PRECISION NOT NULL DEFAULT 0,
    cpc DOUBLE PRECISION NOT NULL DEFAULT 0,
    cpm DOUBLE PRECISION NOT NULL DEFAULT 0,
    cost_per_conversion DOUBLE PRECISION NOT NULL DEFAULT 0,
    roas DOUBLE PRECISION,
    reach BIGINT,
    frequency DOUBLE PRECISION,
    fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status) WHERE status = 'generating';
CREATE INDEX IF NOT EXISTS idx_campaigns_data_report ON campaigns_data (report_id);
CREATE INDEX IF NOT EXISTS idx_ad_accounts_user ON ad_accounts (user_id);
ALTER TABLE ad_accounts ADD COLUMN IF NOT EXISTS login_customer_id TEXT;
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertAdAccount stores a connected ad account, assigning an id when empty.
func (p *Postgres) InsertAdAccount(ctx context.Context, a *models.AdAccount) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AccountActive
	}
	err := p.DB.QueryRowContext(ctx, `INSERT INTO ad_accounts (id, user_id, platform, platform_account_id, account_name, currency, timezone, access_token, login_customer_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING created_at`,
		a.ID, a.UserID, string(a.Platform), a.PlatformAccountID, a.AccountName, a.Currency, nullString(a.Timezone), a.AccessToken, nullString(a.LoginCustomerID), a.Status,
	).Scan(&a.CreatedAt)
	if err != nil {
		return persistErr("insert ad account", err)
	}
	return nil
}

// GetAdAccount loads an ad account including its access token.
func (p *Postgres) GetAdAccount(ctx context.Context, id string) (*models.AdAccount, error) {
	var a models.AdAccount
	var platform string
	var tz, loginID sql.NullString
	err := p.DB.QueryRowContext(ctx, `SELECT id, user_id, platform, platform_account_id, account_name, currency, timezone, access_token, login_customer_id, status, created_at
		FROM ad_accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.UserID, &platform, &a.PlatformAccountID, &a.AccountName, &a.Currency, &tz, &a.AccessToken, &loginID, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get ad account", err)
	}
	a.Platform = models.Platform(platform)
	a.Timezone = tz.String
	a.LoginCustomerID = loginID.String
	return &a, nil
}

// CreateReport inserts r in generating state, assigning an id when empty.
func (p *Postgres) CreateReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = models.ReportGenerating
	err := p.DB.QueryRowContext(ctx, `INSERT INTO reports (id, user_id, ad_account_id, name, template_type, date_from, date_to, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING created_at, updated_at`,
		r.ID, r.UserID, r.AdAccountID, r.Name, string(r.TemplateKind), r.DateFrom, r.DateTo, string(r.Status),
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return persistErr("create report", err)
	}
	return nil
}

// CompleteReport moves a generating report to completed with its totals,
// comparison snapshot and insights. The comparison columns are written
// together or left null together.
func (p *Postgres) CompleteReport(ctx context.Context, id string, res models.ReportResult) error {
	t := res.Totals
	prev := make([]any, 10)
	if pt := res.Previous; pt != nil {
		prev = []any{pt.DateFrom, pt.DateTo, pt.Spend, pt.Impressions, pt.Clicks, pt.Conversions, pt.CTR, pt.CPC, pt.CPM, nullFloat(pt.ROAS)}
	}
	args := []any{id, string(models.ReportCompleted), res.Description, pq.Array(res.Recommendations),
		t.Spend, t.Impressions, t.Clicks, t.Conversions, t.CTR, t.CPC, t.CPM, nullFloat(t.ROAS)}
	args = append(args, prev...)

	result, err := p.DB.ExecContext(ctx, `UPDATE reports SET
		status = $2, error_message = NULL, ai_description = $3, ai_recommendations = $4,
		total_spend = $5, total_impressions = $6, total_clicks = $7, total_conversions = $8,
		ctr = $9, cpc = $10, cpm = $11, roas = $12,
		previous_date_from = $13, previous_date_to = $14, previous_spend = $15, previous_impressions = $16,
		previous_clicks = $17, previous_conversions = $18, previous_ctr = $19, previous_cpc = $20,
		previous_cpm = $21, previous_roas = $22,
		generated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'generating'`, args...)
	if err != nil {
		return persistErr("complete report", err)
	}
	return expectOneRow(result, "complete report")
}

// FailReport moves a generating report to failed with msg.
func (p *Postgres) FailReport(ctx context.Context, id, msg string) error {
	result, err := p.DB.ExecContext(ctx, `UPDATE reports SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'generating'`, id, string(models.ReportFailed), msg)
	if err != nil {
		return persistErr("fail report", err)
	}
	return expectOneRow(result, "fail report")
}

// InsertCampaignData bulk inserts campaign rows in one transaction.
func (p *Postgres) InsertCampaignData(ctx context.Context, rows []models.CampaignData) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("insert campaign data", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO campaigns_data (id, report_id, ad_account_id, platform, campaign_id, campaign_name, date_from, date_to,
		spend, impressions, clicks, conversions, revenue, ctr, cpc, cpm, cost_per_conversion, roas, reach, frequency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`)
	if err != nil {
		return persistErr("insert campaign data", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range rows {
		c := &rows[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.ReportID, c.AdAccountID, string(c.Platform), c.CampaignID, c.CampaignName, c.DateFrom, c.DateTo,
			c.Spend, c.Impressions, c.Clicks, c.Conversions, c.Revenue, c.CTR, c.CPC, c.CPM, c.CostPerConversion,
			nullFloat(c.ROAS), nullInt(c.Reach), nullFloat(c.Frequency)); err != nil {
			return persistErr(fmt.Sprintf("insert campaign %s", c.CampaignID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit campaign data", err)
	}
	return nil
}

const reportColumns = `id, user_id, ad_account_id, name, template_type, date_from, date_to, status, error_message,
	ai_description, ai_recommendations, total_spend, total_impressions, total_clicks, total_conversions, ctr, cpc, cpm, roas,
	previous_date_from, previous_date_to, previous_spend, previous_impressions, previous_clicks, previous_conversions,
	previous_ctr, previous_cpc, previous_cpm, previous_roas, share_token, share_token_expires_at, generated_at, created_at, updated_at`

// GetReport loads a report by id.
func (p *Postgres) GetReport(ctx context.Context, id string) (*models.Report, error) {
	r, err := scanReport(p.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get report", err)
	}
	return r, nil
}

// GetReportByShareToken loads the report a share token points to.
func (p *Postgres) GetReportByShareToken(ctx context.Context, token string) (*models.Report, error) {
	r, err := scanReport(p.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE share_token = $1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get shared report", err)
	}
	return r, nil
}

// ListReports returns a user's most recent reports.
func (p *Postgres) ListReports(ctx context.Context, userID string, limit int) ([]models.Report, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, persistErr("list reports", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, persistErr("scan report", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list reports", err)
	}
	return out, nil
}

// CountReportsSince counts reports a user created at or after since.
func (p *Postgres) CountReportsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	if err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE user_id = $1 AND created_at >= $2`, userID, since).Scan(&n); err != nil {
		return 0, persistErr("count reports", err)
	}
	return n, nil
}

// SetShareToken stores a share token and its expiry on a report.
func (p *Postgres) SetShareToken(ctx context.Context, reportID, token string, expiresAt *time.Time) error {
	var exp any
	if expiresAt != nil {
		exp = *expiresAt
	}
	result, err := p.DB.ExecContext(ctx, `UPDATE reports SET share_token = $2, share_token_expires_at = $3, updated_at = NOW() WHERE id = $1`, reportID, token, exp)
	if err != nil {
		return persistErr("set share token", err)
	}
	return expectOneRow(result, "set share token")
}

// ListCampaignData returns the campaign rows of a report ordered by spend.
func (p *Postgres) ListCampaignData(ctx context.Context, reportID string) ([]models.CampaignData, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, report_id, ad_account_id, platform, campaign_id, campaign_name, date_from, date_to,
		spend, impressions, clicks, conversions, revenue, ctr, cpc, cpm, cost_per_conversion, roas, reach, frequency, fetched_at
		FROM campaigns_data WHERE report_id = $1 ORDER BY spend DESC, campaign_name`, reportID)
	if err != nil {
		return nil, persistErr("list campaign data", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.CampaignData
	for rows.Next() {
		var c models.CampaignData
		var platform string
		var roas, freq sql.NullFloat64
		var reach sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ReportID, &c.AdAccountID, &platform, &c.CampaignID, &c.CampaignName, &c.DateFrom, &c.DateTo,
			&c.Spend, &c.Impressions, &c.Clicks, &c.Conversions, &c.Revenue, &c.CTR, &c.CPC, &c.CPM, &c.CostPerConversion,
			&roas, &reach, &freq, &c.FetchedAt); err != nil {
			return nil, persistErr("scan campaign data", err)
		}
		c.Platform = models.Platform(platform)
		c.ROAS = floatPtr(roas)
		c.Frequency = floatPtr(freq)
		if reach.Valid {
			v := reach.Int64
			c.Reach = &v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list campaign data", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r                                      models.Report
		template, status                       string
		errMsg, desc, shareToken               sql.NullString
		recs                                   []string
		spend, conv, ctr, cpc, cpm, roas       sql.NullFloat64
		imps, clicks                           sql.NullInt64
		pFrom, pTo                             sql.NullTime
		pSpend, pConv, pCTR, pCPC, pCPM, pROAS sql.NullFloat64
		pImps, pClicks                         sql.NullInt64
		shareExp, generatedAt                  sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.AdAccountID, &r.Name, &template, &r.DateFrom, &r.DateTo, &status, &errMsg,
		&desc, pq.Array(&recs), &spend, &imps, &clicks, &conv, &ctr, &cpc, &cpm, &roas,
		&pFrom, &pTo, &pSpend, &pImps, &pClicks, &pConv, &pCTR, &pCPC, &pCPM, &pROAS,
		&shareToken, &shareExp, &generatedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	r.TemplateKind = models.TemplateKind(template)
	r.Status = models.ReportStatus(status)
	r.ErrorMessage = errMsg.String
	r.AIDescription = desc.String
	r.AIRecommendations = recs
	r.ShareToken = shareToken.String
	r.ShareTokenExpiresAt = timePtr(shareExp)
	r.GeneratedAt = timePtr(generatedAt)

	if spend.Valid {
		r.Totals = &models.PeriodTotals{
			DateFrom:    r.DateFrom,
			DateTo:      r.DateTo,
			Spend:       spend.Float64,
			Impressions: imps.Int64,
			Clicks:      clicks.Int64,
			Conversions: conv.Float64,
			CTR:         ctr.Float64,
			CPC:         cpc.Float64,
			CPM:         cpm.Float64,
			ROAS:        floatPtr(roas),
		}
	}
	if pFrom.Valid && pSpend.Valid {
		r.Previous = &models.PeriodTotals{
			DateFrom:    pFrom.Time,
			DateTo:      pTo.Time,
			Spend:       pSpend.Float64,
			Impressions: pImps.Int64,
			Clicks:      pClicks.Int64,
			Conversions: pConv.Float64,
			CTR:         pCTR.Float64,
			CPC:         pCPC.Float64,
			CPM:         pCPM.Float64,
			ROAS:        floatPtr(pROAS),
		}
	}
	return &r, nil
}

func expectOneRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return persistErr(op, ErrNotFound)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
