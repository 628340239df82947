// database_generations.go - CRUD fuer die generations Tabelle
// Enthaelt: insertGeneration, getGeneration, listGenerations, countGenerations

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const generationColumns = `id, input_name, upload_path, output_name, checkpoint, width, height,
	preprocess_ms, inference_ms, postprocess_ms, created_at`

func (db *database) insertGeneration(ctx context.Context, g Generation) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO generations (`+generationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID, g.InputName, g.UploadPath, g.OutputName, g.Checkpoint, g.Width, g.Height,
		g.Preprocess.Milliseconds(), g.Inference.Milliseconds(), g.Postprocess.Milliseconds(),
		g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

func (db *database) getGeneration(ctx context.Context, outputName string) (*Generation, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM generations WHERE output_name = ?`, outputName)

	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, outputName)
	} else if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return g, nil
}

func (db *database) listGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = -1 // SQLite: kein Limit
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+generationColumns+`
		FROM generations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	generations := []Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		generations = append(generations, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return generations, nil
}

func (db *database) countGenerations(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(s scanner) (*Generation, error) {
	var g Generation
	var pre, inf, post int64
	err := s.Scan(
		&g.ID,
		&g.InputName,
		&g.UploadPath,
		&g.OutputName,
		&g.Checkpoint,
		&g.Width,
		&g.Height,
		&pre,
		&inf,
		&post,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Preprocess = time.Duration(pre) * time.Millisecond
	g.Inference = time.Duration(inf) * time.Millisecond
	g.Postprocess = time.Duration(post) * time.Millisecond
	return &g, nil
}
