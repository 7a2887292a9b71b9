package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fomo-labs/docproof/constants"
	"github.com/fomo-labs/docproof/internal/common"
	"github.com/fomo-labs/docproof/internal/extract"
)

// CacheStats summarizes the cache table for operators.
type CacheStats struct {
	Entries  int64
	Expired  int64
	ByEngine map[constants.EngineID]int64
}

// CacheRepository stores extraction results keyed by content fingerprint
// and engine. A miss is (nil, nil); errors mean the store itself failed and
// callers degrade to miss behavior.
type CacheRepository interface {
	Get(ctx context.Context, fingerprint string, engine constants.EngineID) (*extract.Result, error)
	Put(ctx context.Context, fingerprint string, engine constants.EngineID, fields extract.Extraction, ttl time.Duration) error
	Clear(ctx context.Context, expiredOnly bool) (int64, error)
	Stats(ctx context.Context) (*CacheStats, error)
}

type cacheRepository struct {
	db  *DB
	now func() time.Time
	log *slog.Logger
}

func NewCacheRepository(db *DB) CacheRepository {
	return &cacheRepository{db: db, now: time.Now, log: db.log}
}

// Get performs lazy expiry: an entry past its TTL is deleted on read and
// reported as a miss, so the table self-cleans under normal traffic.
func (r *cacheRepository) Get(ctx context.Context, fingerprint string, engine constants.EngineID) (*extract.Result, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT result, created_at, ttl_seconds FROM extraction_cache WHERE fingerprint = ? AND engine = ?`),
		fingerprint, string(engine))

	var resultJSON, createdAt string
	var ttlSeconds int64
	if err := row.Scan(&resultJSON, &createdAt, &ttlSeconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, common.NewAppError("CACHE_READ", "read cache entry", common.ErrCacheUnavailable)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, common.NewAppError("CACHE_DECODE", "parse cache timestamp", common.ErrCacheUnavailable)
	}
	if r.now().After(created.Add(time.Duration(ttlSeconds) * time.Second)) {
		if _, err := r.db.ExecContext(ctx, r.db.rebind(
			`DELETE FROM extraction_cache WHERE fingerprint = ? AND engine = ?`),
			fingerprint, string(engine)); err != nil {
			r.log.Warn("cache.expire_delete_failed", "fingerprint", fingerprint, "error", err)
		}
		return nil, nil
	}

	var fields extract.Extraction
	if err := json.Unmarshal([]byte(resultJSON), &fields); err != nil {
		return nil, common.NewAppError("CACHE_DECODE", "decode cached result", common.ErrCacheUnavailable)
	}

	return &extract.Result{
		Fields:    fields,
		Engine:    engine,
		FromCache: true,
		CachedAt:  created,
	}, nil
}

// Put upserts; a refreshed entry restarts its TTL.
func (r *cacheRepository) Put(ctx context.Context, fingerprint string, engine constants.EngineID, fields extract.Extraction, ttl time.Duration) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return common.NewAppError("CACHE_ENCODE", "encode result", common.ErrCacheUnavailable)
	}

	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extraction_cache (fingerprint, engine, result, created_at, ttl_seconds)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (fingerprint, engine) DO UPDATE SET
		   result = excluded.result,
		   created_at = excluded.created_at,
		   ttl_seconds = excluded.ttl_seconds`),
		fingerprint, string(engine), string(payload),
		r.now().UTC().Format(time.RFC3339Nano), int64(ttl.Seconds()))
	if err != nil {
		return common.NewAppError("CACHE_WRITE", "write cache entry", common.ErrCacheUnavailable)
	}
	return nil
}

// Clear removes entries; with expiredOnly it keeps everything still live.
func (r *cacheRepository) Clear(ctx context.Context, expiredOnly bool) (int64, error) {
	var res sql.Result
	var err error
	if expiredOnly {
		// portable seconds arithmetic is awkward across sqlite/postgres, so
		// expiry is computed here and matched per row
		cutoffs, cErr := r.expiredKeys(ctx)
		if cErr != nil {
			return 0, cErr
		}
		var n int64
		for _, k := range cutoffs {
			r2, dErr := r.db.ExecContext(ctx, r.db.rebind(
				`DELETE FROM extraction_cache WHERE fingerprint = ? AND engine = ?`), k.fingerprint, k.engine)
			if dErr != nil {
				return n, common.NewAppError("CACHE_CLEAR", "delete expired entry", common.ErrCacheUnavailable)
			}
			if d, _ := r2.RowsAffected(); d > 0 {
				n += d
			}
		}
		return n, nil
	}

	res, err = r.db.ExecContext(ctx, `DELETE FROM extraction_cache`)
	if err != nil {
		return 0, common.NewAppError("CACHE_CLEAR", "clear cache", common.ErrCacheUnavailable)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type cacheKey struct {
	fingerprint string
	engine      string
}

func (r *cacheRepository) expiredKeys(ctx context.Context) ([]cacheKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fingerprint, engine, created_at, ttl_seconds FROM extraction_cache`)
	if err != nil {
		return nil, common.NewAppError("CACHE_READ", "scan cache", common.ErrCacheUnavailable)
	}
	defer rows.Close()

	now := r.now()
	var keys []cacheKey
	for rows.Next() {
		var k cacheKey
		var createdAt string
		var ttlSeconds int64
		if err := rows.Scan(&k.fingerprint, &k.engine, &createdAt, &ttlSeconds); err != nil {
			return nil, common.NewAppError("CACHE_READ", "scan cache row", common.ErrCacheUnavailable)
		}
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil || now.After(created.Add(time.Duration(ttlSeconds)*time.Second)) {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

func (r *cacheRepository) Stats(ctx context.Context) (*CacheStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT engine, created_at, ttl_seconds FROM extraction_cache`)
	if err != nil {
		return nil, common.NewAppError("CACHE_READ", "scan cache", common.ErrCacheUnavailable)
	}
	defer rows.Close()

	stats := &CacheStats{ByEngine: map[constants.EngineID]int64{}}
	now := r.now()
	for rows.Next() {
		var engine, createdAt string
		var ttlSeconds int64
		if err := rows.Scan(&engine, &createdAt, &ttlSeconds); err != nil {
			return nil, common.NewAppError("CACHE_READ", "scan cache row", common.ErrCacheUnavailable)
		}
		stats.Entries++
		stats.ByEngine[constants.EngineID(engine)]++
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil || now.After(created.Add(time.Duration(ttlSeconds)*time.Second)) {
			stats.Expired++
		}
	}
	return stats, rows.Err()
}
