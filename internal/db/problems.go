package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/record"
)

// InsertProblem appends a problem row and returns its id. Identical
// text/answer pairs are stored as separate rows.
func InsertProblem(ctx context.Context, db *sql.DB, p *record.Problem) (int64, error) {
	formulaKeys, err := record.EncodeList(p.FormulaKeys)
	if err != nil {
		return 0, errors.NewInvalidRequest("formulaKeys: " + err.Error())
	}

	ts, ms := stamp(p.Timestamp)

	result, err := db.ExecContext(ctx, `
		INSERT INTO problems (
			text, answer, formula_keys, difficulty, subject, topic,
			analysis, hint, custom_user, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Text, p.Answer, toNullString(formulaKeys), toNullString(p.Difficulty),
		toNullString(p.Subject), toNullString(p.Topic), toNullString(p.Analysis),
		toNullString(p.Hint), toNullString(p.CustomUser), ms,
	)
	if err != nil {
		return 0, storageErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr(err)
	}

	p.ID = id
	p.Timestamp = ts
	return id, nil
}

// ListProblems returns every problem, newest first.
func ListProblems(ctx context.Context, db *sql.DB) ([]record.Problem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, text, answer, formula_keys, difficulty, subject, topic,
			analysis, hint, custom_user, timestamp
		FROM problems
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	items := []record.Problem{}
	for rows.Next() {
		var (
			p           record.Problem
			formulaKeys sql.NullString
			difficulty  sql.NullString
			subject     sql.NullString
			topic       sql.NullString
			analysis    sql.NullString
			hint        sql.NullString
			customUser  sql.NullString
			ts          int64
		)
		if err := rows.Scan(
			&p.ID, &p.Text, &p.Answer, &formulaKeys, &difficulty, &subject, &topic,
			&analysis, &hint, &customUser, &ts,
		); err != nil {
			return nil, storageErr(err)
		}

		p.FormulaKeys, err = record.DecodeList[string](fromNullString(formulaKeys))
		if err != nil {
			return nil, storageErr(err)
		}
		p.Difficulty = fromNullString(difficulty)
		p.Subject = fromNullString(subject)
		p.Topic = fromNullString(topic)
		p.Analysis = fromNullString(analysis)
		p.Hint = fromNullString(hint)
		p.CustomUser = fromNullString(customUser)
		p.Timestamp = fromMillis(ts)

		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return items, nil
}
