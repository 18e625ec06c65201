// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPromptNotFound is returned when no stored prompt matches a lookup.
var ErrPromptNotFound = errors.New("catalog: prompt not found")

// Prompt is one version of a named prompt. Saving a prompt under an
// existing name adds a version; older versions stay addressable.
type Prompt struct {
	Name      string    `json:"name"`
	Text      string    `json:"prompt"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

var seedPrompts = []Prompt{
	{Name: "hello-world", Text: "Tell me hello world"},
}

// SavePrompt stores text as the next version of name and returns it.
func (c *Catalog) SavePrompt(ctx context.Context, name, text string) (Prompt, error) {
	if strings.TrimSpace(name) == "" {
		return Prompt{}, fmt.Errorf("catalog: prompt name is required")
	}
	if strings.TrimSpace(text) == "" {
		return Prompt{}, fmt.Errorf("catalog: prompt %q is empty", name)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Prompt{}, fmt.Errorf("catalog: save prompt %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	p := Prompt{Name: name, Text: text, UpdatedAt: time.Now().Truncate(time.Second)}
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM prompts WHERE name = ?`, name).Scan(&p.Version); err != nil {
		return Prompt{}, fmt.Errorf("catalog: save prompt %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO prompts (name, prompt, version, updated_at) VALUES (?, ?, ?, ?)`,
		p.Name, p.Text, p.Version, p.UpdatedAt.Unix()); err != nil {
		return Prompt{}, fmt.Errorf("catalog: save prompt %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return Prompt{}, fmt.Errorf("catalog: save prompt %s: %w", name, err)
	}
	return p, nil
}

// Prompt returns version of the prompt named name. Version 0 means the
// latest.
func (c *Catalog) Prompt(ctx context.Context, name string, version int) (Prompt, error) {
	if version < 0 {
		return Prompt{}, fmt.Errorf("catalog: prompt version must not be negative, got %d", version)
	}

	var (
		p       Prompt
		updated int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT name, prompt, version, updated_at FROM prompts
		WHERE name = ? AND (? = 0 OR version = ?)
		ORDER BY version DESC LIMIT 1`, name, version, version).
		Scan(&p.Name, &p.Text, &p.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		if version > 0 {
			return Prompt{}, fmt.Errorf("%w: %q version %d", ErrPromptNotFound, name, version)
		}
		return Prompt{}, fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}
	if err != nil {
		return Prompt{}, fmt.Errorf("catalog: prompt %s: %w", name, err)
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return p, nil
}

// ListPrompts returns the latest version of every prompt, sorted by name.
func (c *Catalog) ListPrompts(ctx context.Context) ([]Prompt, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.name, p.prompt, p.version, p.updated_at FROM prompts p
		WHERE p.version = (SELECT MAX(version) FROM prompts q WHERE q.name = p.name)
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var prompts []Prompt
	for rows.Next() {
		var (
			p       Prompt
			updated int64
		)
		if err := rows.Scan(&p.Name, &p.Text, &p.Version, &updated); err != nil {
			return nil, fmt.Errorf("catalog: list prompts: %w", err)
		}
		p.UpdatedAt = time.Unix(updated, 0)
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list prompts: %w", err)
	}
	return prompts, nil
}

// DeletePrompt removes every version of name.
func (c *Catalog) DeletePrompt(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM prompts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("catalog: delete prompt %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: delete prompt %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}
	return nil
}
