package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harborhq/harbor/internal/model"
)

// DocumentRepo persists diagram documents and their version history.
// Every query is owner-scoped; a row belonging to someone else reads as
// ErrNotFound.
type DocumentRepo struct{ DB *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{DB: db} }

const documentColumns = "id,owner_id,name,xml_content,version,created_at,updated_at"

// ListByOwner returns the owner's documents, newest first.
func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE owner_id=? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.XMLContent, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Create inserts a document at version 1 and returns the stored row.
func (r *DocumentRepo) Create(ctx context.Context, ownerID uint64, name, xmlContent string) (model.Document, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO documents (owner_id, name, xml_content, version) VALUES (?,?,?,1)",
		ownerID, name, xmlContent)
	if err != nil {
		return model.Document{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Document{}, err
	}
	return r.Get(ctx, ownerID, uint64(id))
}

// Get fetches a single document owned by ownerID.
func (r *DocumentRepo) Get(ctx context.Context, ownerID, id uint64) (model.Document, error) {
	var d model.Document
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=? AND owner_id=? LIMIT 1",
		id, ownerID).
		Scan(&d.ID, &d.OwnerID, &d.Name, &d.XMLContent, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, ErrNotFound
	}
	return d, err
}

// Update applies the provided fields. A content change archives the current
// body into document_versions and bumps the version counter, all inside one
// transaction so history never skips a step.
func (r *DocumentRepo) Update(ctx context.Context, ownerID, id uint64, name, xmlContent *string) (model.Document, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var d model.Document
	err = tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=? AND owner_id=? FOR UPDATE",
		id, ownerID).
		Scan(&d.ID, &d.OwnerID, &d.Name, &d.XMLContent, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, ErrNotFound
	}
	if err != nil {
		return model.Document{}, err
	}

	if name != nil {
		d.Name = *name
	}
	contentChanged := xmlContent != nil && *xmlContent != d.XMLContent
	if contentChanged {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO document_versions (document_id, version, xml_content) VALUES (?,?,?)",
			d.ID, d.Version, d.XMLContent); err != nil {
			return model.Document{}, err
		}
		d.XMLContent = *xmlContent
		d.Version++
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET name=?, xml_content=?, version=? WHERE id=?",
		d.Name, d.XMLContent, d.Version, d.ID); err != nil {
		return model.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Document{}, err
	}
	return r.Get(ctx, ownerID, id)
}

// Delete removes a document and its history.
func (r *DocumentRepo) Delete(ctx context.Context, ownerID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM documents WHERE id=? AND owner_id=?", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	_, err = r.DB.ExecContext(ctx,
		"DELETE FROM document_versions WHERE document_id=?", id)
	return err
}

// ListVersions returns the archived bodies of a document, newest first.
func (r *DocumentRepo) ListVersions(ctx context.Context, ownerID, id uint64) ([]model.DocumentVersion, error) {
	// Ownership check first so a foreign document id reads as 404.
	if _, err := r.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,document_id,version,xml_content,created_at FROM document_versions WHERE document_id=? ORDER BY version DESC",
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []model.DocumentVersion{}
	for rows.Next() {
		var v model.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Version, &v.XMLContent, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
