package runner

import (
	"bufio"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ridoystarlord/relmap/generator"
	"github.com/ridoystarlord/relmap/motor"
	"github.com/sirupsen/logrus"
)

// MigrationsTable records applied migration files.
const MigrationsTable = "relmap_migrations"

const (
	createMigrationsTable = `CREATE TABLE IF NOT EXISTS "relmap_migrations" (
		"filename" text PRIMARY KEY,
		"checksum" text NOT NULL,
		"applied_at" timestamp NOT NULL DEFAULT now(),
		"executed_by" text
	)`
	selectMigrations = `SELECT "filename", "checksum" FROM "relmap_migrations" ORDER BY "filename"`
	insertMigration  = `INSERT INTO "relmap_migrations" ("filename", "checksum", "executed_by") VALUES ($1, $2, $3)`
	deleteMigration  = `DELETE FROM "relmap_migrations" WHERE "filename" = $1`
)

// Motor is the part of the database boundary the runner needs.
// *motor.Motor implements it.
type Motor interface {
	Query(ctx context.Context, sql string, args ...any) (motor.Rows, error)
	Execute(ctx context.Context, sql string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// MigrationRecord represents an applied migration file.
type MigrationRecord struct {
	MigrationName string
	Checksum      string
}

// Status of a migrations directory against the database.
type Status struct {
	Applied  []string
	Pending  []string
	Modified []string // applied, but changed on disk since
}

// Runner applies statements and migration files. Every unit of work runs
// in its own transaction; on failure the transaction is rolled back.
type Runner struct {
	motor Motor
	dir   string
	log   logrus.FieldLogger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// New creates a runner for the migrations kept in dir.
func New(m Motor, dir string, opts ...Option) *Runner {
	r := &Runner{motor: m, dir: dir, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "runner")
	return r
}

// Apply executes the statements in one transaction.
func (r *Runner) Apply(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if err := r.motor.Execute(ctx, stmt); err != nil {
			return r.abort(ctx, fmt.Errorf("statement %d: %w", i+1, err))
		}
	}
	if err := r.motor.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.WithField("statements", len(stmts)).Info("schema changes applied")
	return nil
}

func (r *Runner) abort(ctx context.Context, err error) error {
	if rbErr := r.motor.Rollback(ctx); rbErr != nil {
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

func getCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return currentUser.Username
}

func calculateChecksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

func (r *Runner) ensureMigrationsTable(ctx context.Context) error {
	if err := r.motor.Execute(ctx, createMigrationsTable); err != nil {
		return r.abort(ctx, fmt.Errorf("ensure migrations table: %w", err))
	}
	return r.motor.Commit(ctx)
}

func (r *Runner) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := r.motor.Query(ctx, selectMigrations)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read applied migration: %w", err)
		}
		if len(values) != 2 {
			return nil, fmt.Errorf("read applied migration: expected 2 values, got %d", len(values))
		}
		name, _ := values[0].(string)
		sum, _ := values[1].(string)
		records = append(records, MigrationRecord{MigrationName: name, Checksum: sum})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applied migrations: %w", err)
	}
	return records, nil
}

// MigrationFiles lists the .sql files of the migrations directory in
// application order.
func (r *Runner) MigrationFiles() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var filenames []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			filenames = append(filenames, e.Name())
		}
	}
	slices.Sort(filenames)
	return filenames, nil
}

// ParseMigration splits a migration file into up and down statements. A
// statement may span lines and ends with a semicolon.
func ParseMigration(content []byte) (up, down []string, err error) {
	text := string(content)
	upAt := strings.Index(text, generator.UpMarker)
	downAt := strings.Index(text, generator.DownMarker)
	if upAt < 0 {
		return nil, nil, errors.New("migration does not contain up migration section")
	}
	if downAt < upAt {
		return nil, nil, errors.New("migration does not contain rollback section")
	}
	return splitStatements(text[upAt:downAt]), splitStatements(text[downAt:]), nil
}

func splitStatements(section string) []string {
	var stmts []string
	var cur []string
	sc := bufio.NewScanner(strings.NewReader(section))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cur = append(cur, line)
		if strings.HasSuffix(line, ";") {
			stmts = append(stmts, strings.Join(cur, " "))
			cur = nil
		}
	}
	if len(cur) > 0 {
		stmts = append(stmts, strings.Join(cur, " "))
	}
	return stmts
}

func (r *Runner) readMigration(filename string) (content []byte, up, down []string, err error) {
	content, err = os.ReadFile(filepath.Join(r.dir, filename))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read file %s: %w", filename, err)
	}
	up, down, err = ParseMigration(content)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse migration file %s: %w", filename, err)
	}
	return content, up, down, nil
}

// Status compares the migrations directory with the applied migrations.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	records, err := r.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	files, err := r.MigrationFiles()
	if err != nil {
		return nil, err
	}

	st := &Status{}
	applied := map[string]string{}
	for _, rec := range records {
		applied[rec.MigrationName] = rec.Checksum
		st.Applied = append(st.Applied, rec.MigrationName)
	}
	for _, f := range files {
		sum, ok := applied[f]
		if !ok {
			st.Pending = append(st.Pending, f)
			continue
		}
		content, err := os.ReadFile(filepath.Join(r.dir, f))
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", f, err)
		}
		if calculateChecksum(content) != sum {
			st.Modified = append(st.Modified, f)
		}
	}
	return st, nil
}

// PendingMigration is a migration file not applied yet.
type PendingMigration struct {
	Name string
	Up   []string
}

// PreviewMigrations returns the pending migrations and their statements
// without running them.
func (r *Runner) PreviewMigrations(ctx context.Context) ([]PendingMigration, error) {
	st, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}
	var res []PendingMigration
	for _, f := range st.Pending {
		_, up, _, err := r.readMigration(f)
		if err != nil {
			return nil, err
		}
		res = append(res, PendingMigration{Name: f, Up: up})
	}
	return res, nil
}

// Migrate applies all pending migration files in order, each in its own
// transaction, and returns the names of the applied ones.
func (r *Runner) Migrate(ctx context.Context) ([]string, error) {
	st, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, f := range st.Pending {
		content, up, _, err := r.readMigration(f)
		if err != nil {
			return done, err
		}
		log := r.log.WithField("migration", f)
		log.Info("applying migration")
		for i, stmt := range up {
			if err := r.motor.Execute(ctx, stmt); err != nil {
				return done, r.abort(ctx, fmt.Errorf("executing migration %s, statement %d: %w", f, i+1, err))
			}
		}
		if err := r.motor.Execute(ctx, insertMigration, f, calculateChecksum(content), getCurrentUser()); err != nil {
			return done, r.abort(ctx, fmt.Errorf("recording migration %s: %w", f, err))
		}
		if err := r.motor.Commit(ctx); err != nil {
			return done, fmt.Errorf("commit migration %s: %w", f, err)
		}
		done = append(done, f)
	}
	return done, nil
}

// RollbackMigrations reverts the last applied migrations, most recent
// first, and returns their names.
func (r *Runner) RollbackMigrations(ctx context.Context, steps int) ([]string, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	records, err := r.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	if steps < len(records) {
		records = records[:steps]
	}

	var done []string
	for _, rec := range records {
		f := rec.MigrationName
		_, _, down, err := r.readMigration(f)
		if err != nil {
			return done, err
		}
		r.log.WithField("migration", f).Info("rolling back migration")
		for i, stmt := range down {
			if err := r.motor.Execute(ctx, stmt); err != nil {
				return done, r.abort(ctx, fmt.Errorf("executing rollback for %s, statement %d: %w", f, i+1, err))
			}
		}
		if err := r.motor.Execute(ctx, deleteMigration, f); err != nil {
			return done, r.abort(ctx, fmt.Errorf("removing migration record for %s: %w", f, err))
		}
		if err := r.motor.Commit(ctx); err != nil {
			return done, fmt.Errorf("commit rollback of %s: %w", f, err)
		}
		done = append(done, f)
	}
	return done, nil
}
