package features

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/tilerender/pkg/config"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		src     config.Source
		wantErr bool
	}{
		{name: "memory", src: config.Source{Kind: KindMemory}},
		{name: "filesystem", src: config.Source{Kind: KindFilesystem, Dir: filepath.Join(dir, "tiles")}},
		{name: "sqlite", src: config.Source{Kind: KindSQLite, SQLitePath: filepath.Join(dir, "features.db")}},
		{name: "redis unreachable", src: config.Source{Kind: KindRedis}, wantErr: true},
		{name: "unknown", src: config.Source{Kind: "postgres"}, wantErr: true},
	}

	rc := config.Redis{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.src, rc, logger.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			exerciseStore(t, s)
		})
	}
}
