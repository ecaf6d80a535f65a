package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
)

const digestCacheTableName = "digest_cache_tab"

var DigestCacheDao = newDigestCacheDao(Default)

type digestCacheDao struct {
	dbGetter DatabaseGetter
}

// DigestCacheEntry is one cached row.
type DigestCacheEntry struct {
	Location   string
	Algorithms string
	Size       int64
	ModTime    int64
}

// newDigestCacheDao builds a DAO that resolves its database through getter.
func newDigestCacheDao(getter DatabaseGetter) *digestCacheDao {
	return &digestCacheDao{
		dbGetter: getter,
	}
}

// Lookup returns the cached digests (keyed by algorithm name) for location when
// the algorithm set, size and modification time all match.
func (dao *digestCacheDao) Lookup(ctx context.Context, location, algorithms string, size, modTime int64) (map[string]string, bool, error) {
	db := dao.dbGetter()
	if db == nil {
		return nil, false, nil
	}

	where := map[string]interface{}{
		"location":   location,
		"algorithms": algorithms,
		"_limit":     []uint{1},
	}
	query, args, err := builder.BuildSelect(digestCacheTableName, where, []string{"file_size", "file_modtime", "digests"})
	if err != nil {
		return nil, false, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("query digest cache: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var cachedSize, cachedModTime int64
		var raw string
		if err := rows.Scan(&cachedSize, &cachedModTime, &raw); err != nil {
			return nil, false, fmt.Errorf("scan digest cache: %w", err)
		}
		if cachedSize != size || cachedModTime != modTime {
			return nil, false, nil
		}
		digests := make(map[string]string)
		if err := json.Unmarshal([]byte(raw), &digests); err != nil {
			return nil, false, fmt.Errorf("decode cached digests of %s: %w", location, err)
		}
		return digests, true, nil
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Upsert stores or updates the cached digests for the provided location.
func (dao *digestCacheDao) Upsert(ctx context.Context, location, algorithms string, size, modTime int64, digests map[string]string) error {
	db := dao.dbGetter()
	if db == nil {
		return fmt.Errorf("digest cache dao not initialised")
	}
	raw, err := json.Marshal(digests)
	if err != nil {
		return fmt.Errorf("encode digests: %w", err)
	}

	now := time.Now().Unix()
	payload := []map[string]interface{}{{
		"location":     location,
		"algorithms":   algorithms,
		"file_size":    size,
		"file_modtime": modTime,
		"digests":      string(raw),
		"create_time":  now,
		"update_time":  now,
	}}
	insertSQL, insertArgs, err := builder.BuildInsert(digestCacheTableName, payload)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		if !isUniqueConstraintError(err) {
			return fmt.Errorf("insert digest cache: %w", err)
		}
		updateSQL, updateArgs, err := builder.BuildUpdate(digestCacheTableName,
			map[string]interface{}{"location": location, "algorithms": algorithms},
			map[string]interface{}{
				"file_size":    size,
				"file_modtime": modTime,
				"digests":      string(raw),
				"update_time":  now,
			},
		)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, updateSQL, updateArgs...); err != nil {
			return fmt.Errorf("update digest cache: %w", err)
		}
	}
	return nil
}

func (dao *digestCacheDao) ListAll(ctx context.Context) ([]DigestCacheEntry, error) {
	db := dao.dbGetter()
	if db == nil {
		return nil, fmt.Errorf("digest cache dao not initialised")
	}
	query, args, err := builder.BuildSelect(digestCacheTableName, nil, []string{"location", "algorithms", "file_size", "file_modtime"})
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list digest cache: %w", err)
	}
	defer rows.Close()

	var result []DigestCacheEntry
	for rows.Next() {
		var entry DigestCacheEntry
		if err := rows.Scan(&entry.Location, &entry.Algorithms, &entry.Size, &entry.ModTime); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (dao *digestCacheDao) DeleteByLocations(ctx context.Context, locations []string) error {
	if len(locations) == 0 {
		return nil
	}
	db := dao.dbGetter()
	if db == nil {
		return fmt.Errorf("digest cache dao not initialised")
	}
	where := map[string]interface{}{"location in": locations}
	deleteSQL, args, err := builder.BuildDelete(digestCacheTableName, where)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, deleteSQL, args...)
	if err != nil {
		return fmt.Errorf("delete digest cache entries: %w", err)
	}
	return nil
}
