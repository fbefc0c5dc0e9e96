package features

import (
	"fmt"

	"github.com/jaennil/guide_helper/backend/tilerender/pkg/config"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

const (
	KindSQLite     = "sqlite"
	KindRedis      = "redis"
	KindFilesystem = "filesystem"
	KindMemory     = "memory"
)

// Open builds the feature store selected by src.Kind.
func Open(src config.Source, rc config.Redis, l logger.Logger) (Store, error) {
	switch src.Kind {
	case KindSQLite:
		s, err := NewSQLiteSource(src.SQLitePath, l)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindRedis:
		s, err := NewRedisSource(RedisConfig{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Timeout:  rc.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindFilesystem:
		return NewFilesystemSource(src.Dir), nil
	case KindMemory:
		l.Warn("using in-memory feature store, data is lost on exit")
		return NewMapSource(), nil
	}
	return nil, fmt.Errorf("unknown feature source kind %q", src.Kind)
}
