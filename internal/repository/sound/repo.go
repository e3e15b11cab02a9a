// Package sound reads authoritative sound records from PostgreSQL.
package sound

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain"
	domsound "github.com/kailas-cloud/soundsearch/internal/domain/sound"
	"github.com/kailas-cloud/soundsearch/internal/logger"
)

// querier is the consumer interface for record reads (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Only moderated, processed sounds are visible.
const selectByIDs = `
SELECT s.id, s.user_id, u.username, s.original_filename, s.description,
       COALESCE(l.name, ''), s.type, s.duration, s.samplerate, s.bitrate,
       s.bitdepth, s.channels, s.filesize, s.num_downloads, s.avg_rating,
       s.num_ratings, s.pack_id, p.name, s.created,
       ARRAY(SELECT t.name FROM tags_taggeditem ti
             JOIN tags_tag t ON t.id = ti.tag_id
             WHERE ti.object_id = s.id ORDER BY t.name)
FROM sounds_sound s
JOIN auth_user u ON u.id = s.user_id
LEFT JOIN sounds_license l ON l.id = s.license_id
LEFT JOIN sounds_pack p ON p.id = s.pack_id
WHERE s.id = ANY($1)
  AND s.moderation_state = 'OK'
  AND s.processing_state = 'OK'`

// Repo fetches sound records in batches.
type Repo struct {
	q querier
}

// New creates a sound repository.
func New(q querier) *Repo {
	return &Repo{q: q}
}

// FetchByIDs loads every visible record among ids in one query. Missing ids are
// simply absent from the set; rows whose columns do not convert to a record are
// skipped and logged. A failing query is ErrStoreUnavailable.
func (r *Repo) FetchByIDs(ctx context.Context, ids []int64) (domsound.Set, error) {
	if len(ids) == 0 {
		return domsound.Set{}, nil
	}

	rows, err := r.q.Query(ctx, selectByIDs, ids)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	records := make([]domsound.Record, 0, len(ids))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			break
		}
		rec, err := decodeRecord(values)
		if err != nil {
			logger.FromContext(ctx).Warn("skip undecodable sound row", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return domsound.NewSet(records), nil
}

const recordColumns = 20

func decodeRecord(values []any) (domsound.Record, error) {
	if len(values) != recordColumns {
		return domsound.Record{}, fmt.Errorf("decode sound: %d columns, want %d", len(values), recordColumns)
	}
	d := &decoder{values: values}
	rec := domsound.Record{
		ID:           d.integer(0, true),
		UserID:       d.integer(1, true),
		Username:     d.text(2, true),
		Name:         d.text(3, true),
		Description:  d.text(4, false),
		License:      d.text(5, false),
		Type:         d.text(6, false),
		Duration:     d.number(7),
		Samplerate:   int(d.integer(8, false)),
		Bitrate:      int(d.integer(9, false)),
		Bitdepth:     int(d.integer(10, false)),
		Channels:     int(d.integer(11, false)),
		Filesize:     d.integer(12, false),
		NumDownloads: int(d.integer(13, false)),
		AvgRating:    d.number(14),
		NumRatings:   int(d.integer(15, false)),
		PackID:       d.integer(16, false),
		PackName:     d.text(17, false),
		Created:      d.timestamp(18).UTC(),
		Tags:         d.textArray(19),
	}
	if d.err != nil {
		return domsound.Record{}, fmt.Errorf("decode sound: %w", d.err)
	}
	return rec, nil
}

// decoder converts driver values column by column and keeps the first failure.
// NULL is the zero value unless the column is required.
type decoder struct {
	values []any
	err    error
}

func (d *decoder) fail(col int, v any, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("column %d: cannot convert %T to %s", col, v, want)
	}
}

func (d *decoder) null(col int, required bool, want string) bool {
	if d.values[col] != nil {
		return false
	}
	if required {
		d.fail(col, nil, want)
	}
	return true
}

func (d *decoder) integer(col int, required bool) int64 {
	if d.null(col, required, "int64") {
		return 0
	}
	switch v := d.values[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	default:
		d.fail(col, v, "int64")
		return 0
	}
}

func (d *decoder) number(col int) float64 {
	if d.null(col, false, "float64") {
		return 0
	}
	switch v := d.values[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			d.fail(col, v, "float64")
			return 0
		}
		return f.Float64
	default:
		d.fail(col, v, "float64")
		return 0
	}
}

func (d *decoder) text(col int, required bool) string {
	if d.null(col, required, "string") {
		return ""
	}
	v, ok := d.values[col].(string)
	if !ok {
		d.fail(col, d.values[col], "string")
	}
	return v
}

func (d *decoder) timestamp(col int) time.Time {
	if d.null(col, true, "time") {
		return time.Time{}
	}
	v, ok := d.values[col].(time.Time)
	if !ok {
		d.fail(col, d.values[col], "time")
	}
	return v
}

func (d *decoder) textArray(col int) []string {
	if d.null(col, false, "[]string") {
		return []string{}
	}
	switch v := d.values[col].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		d.fail(col, v, "[]string")
		return nil
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, &db.Error{Op: db.OpQuery, Err: err})
}
