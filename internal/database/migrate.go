package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies the embedded schema files for the dialect in lexical order.
// Applied files are recorded in schema_migrations so re-running is a no-op.
func Migrate(ctx context.Context, db *DB) error {
	dir := path.Join("migrations", db.Dialect.Name)
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(255) PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, f := range files {
		var n int
		q := db.Dialect.Rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`)
		if err := db.QueryRowContext(ctx, q, f).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		b, err := migrations.ReadFile(path.Join(dir, f))
		if err != nil {
			return err
		}
		// drivers differ on multi-statement support, so statements run one by one
		for _, stmt := range splitStatements(string(b)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", f, err)
			}
		}
		ins := db.Dialect.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`)
		if _, err := db.ExecContext(ctx, ins, f); err != nil {
			return err
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
