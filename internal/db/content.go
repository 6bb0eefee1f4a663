package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/record"
)

const contentColumns = `id, prompt, schema, ai_response, timestamp`

// InsertSubmittedContent stores a prompt/response exchange and returns its id.
// c.ID and c.Timestamp are filled in on success.
func InsertSubmittedContent(ctx context.Context, db *sql.DB, c *record.SubmittedContent) (int64, error) {
	schemaJSON, err := record.EncodeRaw(c.Schema)
	if err != nil {
		return 0, errors.NewInvalidRequest("schema: " + err.Error())
	}

	ts, ms := stamp(c.Timestamp)

	result, err := db.ExecContext(ctx, `
		INSERT INTO submitted_content (prompt, schema, ai_response, timestamp)
		VALUES (?, ?, ?, ?)
	`, c.Prompt, toNullString(schemaJSON), toNullString(c.AIResponse), ms)
	if err != nil {
		return 0, storageErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr(err)
	}

	c.ID = id
	c.Timestamp = ts
	return id, nil
}

// ListSubmittedContent returns every exchange, newest first.
func ListSubmittedContent(ctx context.Context, db *sql.DB) ([]record.SubmittedContent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+contentColumns+`
		FROM submitted_content
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	items := []record.SubmittedContent{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return items, nil
}

// GetSubmittedContent retrieves one exchange by id.
func GetSubmittedContent(ctx context.Context, db *sql.DB, id int64) (*record.SubmittedContent, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM submitted_content
		WHERE id = ?
	`, id)

	c, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("content %d", id))
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return c, nil
}

func scanContent(row rowScanner) (*record.SubmittedContent, error) {
	var (
		c          record.SubmittedContent
		schemaJSON sql.NullString
		aiResponse sql.NullString
		ts         int64
	)
	if err := row.Scan(&c.ID, &c.Prompt, &schemaJSON, &aiResponse, &ts); err != nil {
		return nil, err
	}

	c.Schema = record.DecodeRaw(fromNullString(schemaJSON))
	c.AIResponse = fromNullString(aiResponse)
	c.Timestamp = fromMillis(ts)
	return &c, nil
}
