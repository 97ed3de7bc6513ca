package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docviewer-backend/internal/access"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `d.id, d.owner_id, d.external_document_id, d.session_token, d.title, d.filename, d.file_type, d.file_size, d.author, d.created_at, d.updated_at`

const ownerColumns = `u.id, u.name, u.email`

// sortColumns maps each allowed sort field to its column. Only values from
// this map are ever interpolated into ORDER BY.
var sortColumns = map[SortField]string{
	SortTitle:     "d.title",
	SortFilename:  "d.filename",
	SortFileType:  "d.file_type",
	SortFileSize:  "d.file_size",
	SortAuthor:    "d.author",
	SortCreatedAt: "d.created_at",
	SortUpdatedAt: "d.updated_at",
}

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    external_document_id,
    session_token,
    title,
    filename,
    file_type,
    file_size,
    author,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.ExternalDocumentID,
		nullableString(doc.SessionToken),
		doc.Title,
		doc.Filename,
		doc.FileType,
		doc.FileSize,
		doc.Author,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string, filter access.Filter) (Document, error) {
	query := `
SELECT ` + documentColumns + `, ` + ownerColumns + `
FROM documents d
LEFT JOIN users u ON u.id = d.owner_id
WHERE d.id = $1`
	args := []any{id}
	if !filter.Unrestricted() {
		query += ` AND d.owner_id = $2`
		args = append(args, filter.OwnerID)
	}
	query += ` LIMIT 1`

	doc, err := scanDocumentWithOwner(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) List(ctx context.Context, q ListQuery) ([]Document, error) {
	query, args := buildListQuery(q)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocumentWithOwner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func buildListQuery(q ListQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.Filter.Unrestricted() {
		where = append(where, "d.owner_id = "+arg(q.Filter.OwnerID))
	}
	if q.Search != "" {
		p := arg(likePattern(q.Search))
		where = append(where, "(d.title ILIKE "+p+" OR d.filename ILIKE "+p+" OR d.author ILIKE "+p+")")
	}
	if q.FileType != "" {
		where = append(where, "d.file_type ILIKE "+arg(likePattern(q.FileType)))
	}
	if q.Author != "" {
		where = append(where, "d.author ILIKE "+arg(likePattern(q.Author)))
	}

	var b strings.Builder
	b.WriteString("\nSELECT " + documentColumns + ", " + ownerColumns + "\nFROM documents d\nLEFT JOIN users u ON u.id = d.owner_id")
	if len(where) > 0 {
		b.WriteString("\nWHERE " + strings.Join(where, " AND "))
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	b.WriteString("\nORDER BY " + column + " " + direction)
	return b.String(), args
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (r *PGRepo) UpdateMetadata(ctx context.Context, id, title, author string, updatedAt time.Time) (Document, error) {
	const query = `
UPDATE documents d
SET title = $1, author = $2, updated_at = $3
WHERE d.id = $4
RETURNING ` + documentColumns
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, title, author, updatedAt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) SetSessionToken(ctx context.Context, id, token string, updatedAt time.Time) error {
	const query = `
UPDATE documents
SET session_token = $1, updated_at = $2
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, nullableString(token), updatedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var doc Document
	var sessionToken sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.ExternalDocumentID,
		&sessionToken,
		&doc.Title,
		&doc.Filename,
		&doc.FileType,
		&doc.FileSize,
		&doc.Author,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if sessionToken.Valid {
		doc.SessionToken = sessionToken.String
	}
	return doc, nil
}

func scanDocumentWithOwner(row scanner) (Document, error) {
	var doc Document
	var sessionToken sql.NullString
	var ownerID, ownerName, ownerEmail sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.ExternalDocumentID,
		&sessionToken,
		&doc.Title,
		&doc.Filename,
		&doc.FileType,
		&doc.FileSize,
		&doc.Author,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&ownerID,
		&ownerName,
		&ownerEmail,
	)
	if err != nil {
		return Document{}, err
	}
	if sessionToken.Valid {
		doc.SessionToken = sessionToken.String
	}
	if ownerID.Valid {
		doc.Owner = &Owner{ID: ownerID.String, Name: ownerName.String, Email: ownerEmail.String}
	}
	return doc, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
