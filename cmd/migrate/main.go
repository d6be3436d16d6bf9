// Command migrate applies the BigQuery schema of the settlement tables.
package main

import (
	"context"
	"crypto/sha256"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/app"
	"github.com/dvloznov/settlement-tracker/internal/config"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var embedded embed.FS

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

type migrator struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
	log       zerolog.Logger
}

func main() {
	envFile := flag.String("env-file", "", "Path to a .env file (defaults to ./.env when present)")
	projectID := flag.String("project", "", "GCP project ID (default SETTLEMENT_PROJECT_ID)")
	datasetID := flag.String("dataset", "", "BigQuery dataset ID (default SETTLEMENT_DATASET)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir := flag.String("migrations", "", "Directory of migrations to use instead of the embedded ones")
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *projectID != "" {
		cfg.ProjectID = *projectID
	}
	if *datasetID != "" {
		cfg.Dataset = *datasetID
	}
	if err := cfg.RequireCloud(); err != nil {
		log.Fatal().Err(err).Msg("Missing BigQuery settings")
	}

	var source fs.FS
	if *migrationsDir != "" {
		source = os.DirFS(*migrationsDir)
	} else {
		source, err = fs.Sub(embedded, "migrations")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open embedded migrations")
		}
	}

	migrations, err := readMigrations(source, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	m := &migrator{
		client:    client,
		projectID: cfg.ProjectID,
		datasetID: cfg.Dataset,
		appliedBy: *appliedBy,
		log:       log.With().Str("project", cfg.ProjectID).Str("dataset", cfg.Dataset).Logger(),
	}

	if err := m.run(ctx, migrations, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func (m *migrator) run(ctx context.Context, migrations []Migration, dryRun bool) error {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}
	m.log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	todo, err := pendingMigrations(migrations, applied)
	if err != nil {
		return err
	}

	for _, migration := range todo {
		log := m.log.With().Int("version", migration.Version).Str("name", migration.Name).Logger()
		if dryRun {
			log.Info().Msg("Pending")
			continue
		}

		log.Info().Msg("Applying migration")
		if err := m.execute(ctx, migration.SQL); err != nil {
			return fmt.Errorf("executing %s: %w", migration.Filename, err)
		}
		if err := m.recordMigration(ctx, migration); err != nil {
			return fmt.Errorf("recording %s: %w", migration.Filename, err)
		}
		log.Info().Msg("Migration applied")
	}

	if len(todo) == 0 {
		m.log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else if !dryRun {
		m.log.Info().Int("count", len(todo)).Msg("Applied migrations")
	}
	return nil
}

// readMigrations reads all migration files of fsys, replacing the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders.
func readMigrations(fsys fs.FS, projectID, datasetID string) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version in %s: %w", file.Name(), err)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, other, file.Name())
		}
		seen[version] = file.Name()

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		// The checksum covers the file before placeholders are replaced, so
		// the same migration matches across projects.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      renderSQL(string(content), projectID, datasetID),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func renderSQL(sql, projectID, datasetID string) string {
	sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", projectID)
	return strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)
}

// pendingMigrations returns the migrations not applied yet. An applied
// migration whose file changed since is an error.
func pendingMigrations(migrations []Migration, applied []AppliedMigration) ([]Migration, error) {
	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	var todo []Migration
	for _, migration := range migrations {
		am, ok := appliedByVersion[migration.Version]
		if !ok {
			todo = append(todo, migration)
			continue
		}
		if am.Checksum != "" && am.Checksum != migration.Checksum {
			return nil, fmt.Errorf("migration %s changed after it was applied", migration.Filename)
		}
	}
	return todo, nil
}

func (m *migrator) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", m.projectID, m.datasetID, name)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func (m *migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	return m.execute(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, m.table("schema_migrations")))
}

// getAppliedMigrations retrieves the list of already applied migrations
func (m *migrator) getAppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	query := m.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, m.table("schema_migrations")))

	it, err := query.Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func (m *migrator) recordMigration(ctx context.Context, migration Migration) error {
	query := m.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, m.table("schema_migrations")))
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	}
	return wait(ctx, query)
}

func (m *migrator) execute(ctx context.Context, sql string) error {
	return wait(ctx, m.client.Query(sql))
}

func wait(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
