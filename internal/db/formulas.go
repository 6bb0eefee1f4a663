package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/record"
)

// UpsertResult reports which path an upsert took.
type UpsertResult struct {
	ID       int64
	Inserted bool
}

const formulaColumns = `id, "key", category, subject, topic, sub_topic, formula, description,
	variables, connections, examples, verified_by_ai, custom_user, timestamp`

// UpsertFormula inserts f, or replaces every mutable column of the row with
// the same key. It runs as one statement, so concurrent saves of one key
// cannot produce a duplicate. revision starts at 1 and is bumped on each
// update, which tells the caller whether a row was created.
func UpsertFormula(ctx context.Context, db *sql.DB, f *record.Formula) (*UpsertResult, error) {
	variables, err := record.EncodeList(f.Variables)
	if err != nil {
		return nil, errors.NewInvalidRequest("variables: " + err.Error())
	}
	connections, err := record.EncodeList(f.Connections)
	if err != nil {
		return nil, errors.NewInvalidRequest("connections: " + err.Error())
	}
	examples, err := record.EncodeList(f.Examples)
	if err != nil {
		return nil, errors.NewInvalidRequest("examples: " + err.Error())
	}

	ts, ms := stamp(f.Timestamp)

	query := `
		INSERT INTO formulas (
			"key", category, subject, topic, sub_topic, formula, description,
			variables, connections, examples, verified_by_ai, custom_user,
			revision, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT("key") DO UPDATE SET
			category       = excluded.category,
			subject        = excluded.subject,
			topic          = excluded.topic,
			sub_topic      = excluded.sub_topic,
			formula        = excluded.formula,
			description    = excluded.description,
			variables      = excluded.variables,
			connections    = excluded.connections,
			examples       = excluded.examples,
			verified_by_ai = excluded.verified_by_ai,
			custom_user    = excluded.custom_user,
			revision       = formulas.revision + 1,
			timestamp      = excluded.timestamp
		RETURNING id, revision
	`

	var id, revision int64
	err = db.QueryRowContext(ctx, query,
		f.Key, toNullString(f.Category), toNullString(f.Subject), toNullString(f.Topic),
		toNullString(f.SubTopic), f.Formula, toNullString(f.Description),
		toNullString(variables), toNullString(connections), toNullString(examples),
		boolToInt(f.VerifiedByAI), toNullString(f.CustomUser),
		ms,
	).Scan(&id, &revision)
	if err != nil {
		return nil, storageErr(err)
	}

	f.ID = id
	f.Timestamp = ts
	return &UpsertResult{ID: id, Inserted: revision == 1}, nil
}

// GetFormulaByKey retrieves the formula stored under key.
func GetFormulaByKey(ctx context.Context, db *sql.DB, key string) (*record.Formula, error) {
	row := db.QueryRowContext(ctx, `SELECT `+formulaColumns+` FROM formulas WHERE "key" = ?`, key)

	f, err := scanFormula(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("formula " + key)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return f, nil
}

// ListFormulas returns every formula sorted by key ascending.
func ListFormulas(ctx context.Context, db *sql.DB) ([]record.Formula, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+formulaColumns+` FROM formulas ORDER BY "key" ASC`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	items := []record.Formula{}
	for rows.Next() {
		f, err := scanFormula(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return items, nil
}

func scanFormula(row rowScanner) (*record.Formula, error) {
	var (
		f           record.Formula
		category    sql.NullString
		subject     sql.NullString
		topic       sql.NullString
		subTopic    sql.NullString
		description sql.NullString
		variables   sql.NullString
		connections sql.NullString
		examples    sql.NullString
		verified    int64
		customUser  sql.NullString
		ts          int64
	)

	err := row.Scan(
		&f.ID, &f.Key, &category, &subject, &topic, &subTopic, &f.Formula, &description,
		&variables, &connections, &examples, &verified, &customUser, &ts,
	)
	if err != nil {
		return nil, err
	}

	f.Category = fromNullString(category)
	f.Subject = fromNullString(subject)
	f.Topic = fromNullString(topic)
	f.SubTopic = fromNullString(subTopic)
	f.Description = fromNullString(description)
	f.VerifiedByAI = verified != 0
	f.CustomUser = fromNullString(customUser)
	f.Timestamp = fromMillis(ts)

	if f.Variables, err = record.DecodeList[json.RawMessage](fromNullString(variables)); err != nil {
		return nil, err
	}
	if f.Connections, err = record.DecodeList[json.RawMessage](fromNullString(connections)); err != nil {
		return nil, err
	}
	if f.Examples, err = record.DecodeList[json.RawMessage](fromNullString(examples)); err != nil {
		return nil, err
	}

	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
