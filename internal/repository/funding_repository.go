package repository

import (
	"database/sql"
	"strconv"
	"time"

	"hldesk/internal/apperr"
	"hldesk/internal/models"
)

const fundingBulkInsertChunkSize = 500

// FundingRepository persists raw funding observations. No deduplication
// happens at this layer; every poll cycle's rates are inserted as-is.
type FundingRepository struct {
	db *sql.DB
}

func NewFundingRepository(db *sql.DB) *FundingRepository {
	return &FundingRepository{db: db}
}

// BulkInsert appends rate observations in chunks of 500 using one
// multi-row INSERT per chunk.
func (r *FundingRepository) BulkInsert(rates []models.FundingRate) error {
	for start := 0; start < len(rates); start += fundingBulkInsertChunkSize {
		end := start + fundingBulkInsertChunkSize
		if end > len(rates) {
			end = len(rates)
		}
		if err := r.insertChunk(rates[start:end]); err != nil {
			return apperr.Store("bulk insert funding_snapshots chunk", err)
		}
	}
	return nil
}

func (r *FundingRepository) insertChunk(chunk []models.FundingRate) error {
	if len(chunk) == 0 {
		return nil
	}

	query := `INSERT INTO funding_snapshots
		(asset, venue, rate_8h, rate_raw, next_funding_time, open_interest, mark_price, change_24h, volume_24h, observed_at)
		VALUES `
	args := make([]any, 0, len(chunk)*10)
	for i, fr := range chunk {
		if i > 0 {
			query += ", "
		}
		base := i * 10
		query += placeholderGroup(base+1, 10)
		args = append(args,
			fr.Asset, string(fr.Venue), fr.Rate8h, fr.RateRaw, fr.NextFundingTime,
			fr.OpenInterest, fr.MarkPrice, fr.Change24h, fr.Volume24h, fr.ObservedAt,
		)
	}

	_, err := r.db.Exec(query, args...)
	return err
}

// History returns up to 1000 raw rows for the given filters ordered by
// observation time descending.
func (r *FundingRepository) History(asset, venue string, from, to time.Time, limit int) ([]models.FundingRate, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	query := `SELECT asset, venue, rate_8h, rate_raw, next_funding_time, open_interest, mark_price, change_24h, volume_24h, observed_at
		FROM funding_snapshots
		WHERE ($1 = '' OR asset = $1)
		  AND ($2 = '' OR venue = $2)
		  AND ($3::timestamptz IS NULL OR observed_at >= $3)
		  AND ($4::timestamptz IS NULL OR observed_at <= $4)
		ORDER BY observed_at DESC
		LIMIT $5`

	rows, err := r.db.Query(query, asset, venue, nullableTime(from), nullableTime(to), limit)
	if err != nil {
		return nil, apperr.Store("query funding_snapshots history", err)
	}
	defer rows.Close()

	var out []models.FundingRate
	for rows.Next() {
		var fr models.FundingRate
		var venueStr string
		if err := rows.Scan(&fr.Asset, &venueStr, &fr.Rate8h, &fr.RateRaw, &fr.NextFundingTime,
			&fr.OpenInterest, &fr.MarkPrice, &fr.Change24h, &fr.Volume24h, &fr.ObservedAt); err != nil {
			return nil, apperr.Store("scan funding_snapshots row", err)
		}
		fr.Venue = models.Venue(venueStr)
		out = append(out, fr)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func placeholderGroup(startIdx, n int) string {
	out := "("
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += "$" + strconv.Itoa(startIdx+i)
	}
	return out + ")"
}
