// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package catalog stores model definitions (provider, context window, output
// limit) and named, versioned prompts in SQLite. Built-in model definitions
// live in one table and user-defined ones in another; lookups prefer the
// user's.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davetashner/llmagg/internal/batch"
)

// InMemory opens a private, non-persistent catalog.
const InMemory = ":memory:"

// ErrModelNotFound is returned when no definition matches a lookup.
var ErrModelNotFound = errors.New("catalog: model not found")

// Model is one model definition.
type Model struct {
	Name            string `json:"name" yaml:"name" toml:"name"`
	Provider        string `json:"provider" yaml:"provider" toml:"provider"`
	ModelID         string `json:"model_id,omitempty" yaml:"model_id,omitempty" toml:"model_id"`
	ContextWindow   int    `json:"context_window" yaml:"context_window" toml:"context_window"`
	MaxOutputTokens int    `json:"max_output_tokens" yaml:"max_output_tokens" toml:"max_output_tokens"`
	Builtin         bool   `json:"builtin" yaml:"-" toml:"-"`
}

// Budget returns the model's token allowance.
func (m Model) Budget() batch.Budget {
	return batch.Budget{ContextWindow: m.ContextWindow, MaxOutputTokens: m.MaxOutputTokens}
}

// APIModel returns the identifier sent to the provider.
func (m Model) APIModel() string {
	if m.ModelID != "" {
		return m.ModelID
	}
	return m.Name
}

// Validate checks that the definition is usable.
func (m Model) Validate() error {
	var errs []string
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(m.Provider) == "" {
		errs = append(errs, "provider is required")
	}
	if m.ContextWindow <= 0 {
		errs = append(errs, fmt.Sprintf("context_window must be positive, got %d", m.ContextWindow))
	}
	if m.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Sprintf("max_output_tokens must be positive, got %d", m.MaxOutputTokens))
	}
	if len(errs) > 0 {
		return fmt.Errorf("catalog: invalid model %q: %s", m.Name, strings.Join(errs, "; "))
	}
	return nil
}

// Defaults are the built-in model definitions. The entry named "default" is
// used when no model is configured.
var Defaults = []Model{
	{Name: "default", Provider: "anthropic", ModelID: "claude-sonnet-4-5-20250929", ContextWindow: 200000, MaxOutputTokens: 16384},
	{Name: "claude-sonnet-4-5", Provider: "anthropic", ModelID: "claude-sonnet-4-5-20250929", ContextWindow: 200000, MaxOutputTokens: 16384},
	{Name: "claude-haiku-4-5", Provider: "anthropic", ModelID: "claude-haiku-4-5-20251001", ContextWindow: 200000, MaxOutputTokens: 16384},
	{Name: "gemini-2.5-flash", Provider: "gemini", ModelID: "gemini-2.5-flash", ContextWindow: 1048576, MaxOutputTokens: 65536},
	{Name: "gemini-2.5-pro", Provider: "gemini", ModelID: "gemini-2.5-pro", ContextWindow: 1048576, MaxOutputTokens: 65536},
	// Embedding models produce no text; the output limit is nominal.
	{Name: "gemini-embedding-001", Provider: "gemini", ModelID: "gemini-embedding-001", ContextWindow: 2048, MaxOutputTokens: 1},
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS models_default (
	name TEXT NOT NULL,
	provider TEXT NOT NULL,
	model_id TEXT NOT NULL,
	context_window INTEGER NOT NULL,
	max_output_tokens INTEGER NOT NULL,
	PRIMARY KEY (name, provider)
)`, `
CREATE TABLE IF NOT EXISTS models_user (
	name TEXT NOT NULL,
	provider TEXT NOT NULL,
	model_id TEXT NOT NULL,
	context_window INTEGER NOT NULL,
	max_output_tokens INTEGER NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (name, provider)
)`, `
CREATE TABLE IF NOT EXISTS prompts (
	name TEXT NOT NULL,
	prompt TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (name, version)
)`}

// Catalog is a SQLite-backed model catalog.
type Catalog struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the catalog location under $XDG_DATA_HOME, falling back
// to ~/.local/share.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("catalog: resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "llmagg", "models.db"), nil
}

// Open opens (creating if needed) the catalog at path and refreshes the
// built-in definitions. Use InMemory for a throwaway catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("catalog: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if path == InMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	c := &Catalog{db: db, path: path}
	if err := c.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: create schema: %w", err)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: seed defaults: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range Defaults {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO models_default (name, provider, model_id, context_window, max_output_tokens)
			 VALUES (?, ?, ?, ?, ?)`,
			m.Name, m.Provider, m.APIModel(), m.ContextWindow, m.MaxOutputTokens); err != nil {
			return fmt.Errorf("catalog: seed %s: %w", m.Name, err)
		}
	}
	for _, p := range seedPrompts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO prompts (name, prompt, version, updated_at) VALUES (?, ?, 1, ?)`,
			p.Name, p.Text, time.Now().Unix()); err != nil {
			return fmt.Errorf("catalog: seed prompt %s: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// Path returns the location the catalog was opened from.
func (c *Catalog) Path() string { return c.path }

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Lookup returns the definition named name. A user-defined definition wins
// over a built-in one. If provider is non-empty only that provider's
// definitions match.
func (c *Catalog) Lookup(ctx context.Context, name, provider string) (Model, error) {
	for _, table := range []string{"models_user", "models_default"} {
		m, err := c.lookupIn(ctx, table, name, provider)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Model{}, err
		}
		m.Builtin = table == "models_default"
		return m, nil
	}

	if provider != "" {
		return Model{}, fmt.Errorf("%w: %q for provider %q", ErrModelNotFound, name, provider)
	}
	return Model{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
}

func (c *Catalog) lookupIn(ctx context.Context, table, name, provider string) (Model, error) {
	// table is one of two constants.
	q := `SELECT name, provider, model_id, context_window, max_output_tokens FROM ` + table +
		` WHERE name = ? AND (? = '' OR provider = ?) ORDER BY provider LIMIT 1`

	var m Model
	err := c.db.QueryRowContext(ctx, q, name, provider, provider).
		Scan(&m.Name, &m.Provider, &m.ModelID, &m.ContextWindow, &m.MaxOutputTokens)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Model{}, fmt.Errorf("catalog: lookup %s: %w", name, err)
	}
	return m, err
}

// Upsert stores a user-defined model, replacing any with the same name and
// provider.
func (c *Catalog) Upsert(ctx context.Context, m Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO models_user (name, provider, model_id, context_window, max_output_tokens)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name, provider) DO UPDATE SET
			model_id = excluded.model_id,
			context_window = excluded.context_window,
			max_output_tokens = excluded.max_output_tokens,
			updated_at = CURRENT_TIMESTAMP`,
		m.Name, m.Provider, m.APIModel(), m.ContextWindow, m.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("catalog: upsert %s: %w", m.Name, err)
	}
	return nil
}

// Import upserts models in a single transaction.
func (c *Catalog) Import(ctx context.Context, models []Model) error {
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return err
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range models {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO models_user (name, provider, model_id, context_window, max_output_tokens)
			 VALUES (?, ?, ?, ?, ?)`,
			m.Name, m.Provider, m.APIModel(), m.ContextWindow, m.MaxOutputTokens); err != nil {
			return fmt.Errorf("catalog: import %s: %w", m.Name, err)
		}
	}
	return tx.Commit()
}

// Delete removes a user-defined model. Built-in definitions cannot be
// deleted. An empty provider removes the name for every provider.
func (c *Catalog) Delete(ctx context.Context, name, provider string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM models_user WHERE name = ? AND (? = '' OR provider = ?)`,
		name, provider, provider)
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no user-defined model %q", ErrModelNotFound, name)
	}
	return nil
}

// List returns every effective definition: user-defined models plus the
// built-ins they do not shadow, sorted by name then provider.
func (c *Catalog) List(ctx context.Context) ([]Model, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, provider, model_id, context_window, max_output_tokens, 0 FROM models_user
		UNION ALL
		SELECT d.name, d.provider, d.model_id, d.context_window, d.max_output_tokens, 1 FROM models_default d
		WHERE NOT EXISTS (SELECT 1 FROM models_user u WHERE u.name = d.name AND u.provider = d.provider)`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var models []Model
	for rows.Next() {
		var m Model
		if err := rows.Scan(&m.Name, &m.Provider, &m.ModelID, &m.ContextWindow, &m.MaxOutputTokens, &m.Builtin); err != nil {
			return nil, fmt.Errorf("catalog: list: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}

	sort.Slice(models, func(i, j int) bool {
		if models[i].Name != models[j].Name {
			return models[i].Name < models[j].Name
		}
		return models[i].Provider < models[j].Provider
	})
	return models, nil
}
