package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harborhq/harbor/internal/model"
)

// ConnectionRepo persists database connection settings. Passwords arrive
// already sealed; this layer never sees plaintext credentials.
type ConnectionRepo struct{ DB *sql.DB }

func NewConnectionRepo(db *sql.DB) *ConnectionRepo { return &ConnectionRepo{DB: db} }

const connectionColumns = "id,owner_id,name,db_type,host,port,username,password_sealed,database_name,created_at,updated_at"

func (r *ConnectionRepo) Create(ctx context.Context, c model.Connection) (model.Connection, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO connections (owner_id, name, db_type, host, port, username, password_sealed, database_name) VALUES (?,?,?,?,?,?,?,?)",
		c.OwnerID, c.Name, c.DBType, c.Host, c.Port, c.Username, c.PasswordSealed, c.DatabaseName)
	if err != nil {
		return model.Connection{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Connection{}, err
	}
	return r.Get(ctx, c.OwnerID, uint64(id))
}

func (r *ConnectionRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Connection, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+connectionColumns+" FROM connections WHERE owner_id=? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conns := []model.Connection{}
	for rows.Next() {
		var c model.Connection
		if err := scanConnection(rows.Scan, &c); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepo) Get(ctx context.Context, ownerID, id uint64) (model.Connection, error) {
	var c model.Connection
	err := scanConnection(r.DB.QueryRowContext(ctx,
		"SELECT "+connectionColumns+" FROM connections WHERE id=? AND owner_id=? LIMIT 1",
		id, ownerID).Scan, &c)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Connection{}, ErrNotFound
	}
	return c, err
}

// Update overwrites the mutable fields of a connection. Callers merge the
// incoming changes into the stored row before calling.
func (r *ConnectionRepo) Update(ctx context.Context, c model.Connection) (model.Connection, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE connections SET name=?, db_type=?, host=?, port=?, username=?, password_sealed=?, database_name=? WHERE id=? AND owner_id=?",
		c.Name, c.DBType, c.Host, c.Port, c.Username, c.PasswordSealed, c.DatabaseName, c.ID, c.OwnerID)
	if err != nil {
		return model.Connection{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Connection{}, err
	}
	if n == 0 {
		// Either missing or unchanged; distinguish via a read.
		if _, getErr := r.Get(ctx, c.OwnerID, c.ID); getErr != nil {
			return model.Connection{}, getErr
		}
	}
	return r.Get(ctx, c.OwnerID, c.ID)
}

func (r *ConnectionRepo) Delete(ctx context.Context, ownerID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM connections WHERE id=? AND owner_id=?", id, ownerID)
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
	return nil
}

func scanConnection(scan func(dest ...any) error, c *model.Connection) error {
	return scan(&c.ID, &c.OwnerID, &c.Name, &c.DBType, &c.Host, &c.Port,
		&c.Username, &c.PasswordSealed, &c.DatabaseName, &c.CreatedAt, &c.UpdatedAt)
}
