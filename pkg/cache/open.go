package cache

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open returns the backend named by target:
//
//	""  or "none"                         NullCache
//	"file:///path" or a plain path        FileCache
//	"redis://..." or "rediss://..."       RedisCache
//	"mongodb://host/db?collection=name"   MongoCache (also mongodb+srv)
func Open(ctx context.Context, target string) (Cache, error) {
	switch {
	case target == "" || target == "none":
		return NewNullCache(), nil
	case strings.HasPrefix(target, "redis://"), strings.HasPrefix(target, "rediss://"):
		return asCache(NewRedisCache(ctx, target))
	case strings.HasPrefix(target, "mongodb://"), strings.HasPrefix(target, "mongodb+srv://"):
		db, coll, err := mongoTarget(target)
		if err != nil {
			return nil, err
		}
		return asCache(NewMongoCache(ctx, target, db, coll))
	case strings.HasPrefix(target, "file://"):
		return asCache(NewFileCache(strings.TrimPrefix(target, "file://")))
	case strings.Contains(target, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, target)
	default:
		return asCache(NewFileCache(target))
	}
}

// asCache drops the concrete type so a failed constructor never yields a
// non-nil interface holding a nil pointer.
func asCache[C Cache](c C, err error) (Cache, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

// mongoTarget extracts the database from the URI path and the collection
// from the "collection" query parameter.
func mongoTarget(uri string) (database, collection string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse mongo uri: %w", err)
	}
	database = strings.Trim(u.Path, "/")
	if database == "" {
		return "", "", fmt.Errorf("mongo uri %q: database name required in path", u.Redacted())
	}
	return database, u.Query().Get("collection"), nil
}
