package model

import "time"

// Document mirrors the `documents` table. Version counts content revisions;
// the previous body is archived in document_versions on every content
// change.
type Document struct {
	ID         uint64    // documents.id
	OwnerID    uint64    // documents.owner_id
	Name       string    // documents.name
	XMLContent string    // documents.xml_content
	Version    uint32    // documents.version, starts at 1
	CreatedAt  time.Time // documents.created_at
	UpdatedAt  time.Time // documents.updated_at
}

// DocumentVersion mirrors the `document_versions` table: one archived body.
type DocumentVersion struct {
	ID         uint64    // document_versions.id
	DocumentID uint64    // document_versions.document_id
	Version    uint32    // document_versions.version
	XMLContent string    // document_versions.xml_content
	CreatedAt  time.Time // document_versions.created_at
}
