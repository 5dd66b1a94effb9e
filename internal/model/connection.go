package model

import "time"

// Supported database engines for stored connections.
const (
	DBTypePostgres  = "postgres"
	DBTypeSQLServer = "sqlserver"
	DBTypeMySQL     = "mysql"
)

// Connection mirrors the `connections` table. PasswordSealed holds the
// AES-GCM ciphertext; plaintext credentials never reach this struct.
type Connection struct {
	ID             uint64    // connections.id
	OwnerID        uint64    // connections.owner_id
	Name           string    // connections.name
	DBType         string    // connections.db_type
	Host           string    // connections.host
	Port           int       // connections.port
	Username       string    // connections.username
	PasswordSealed string    // connections.password_sealed
	DatabaseName   string    // connections.database_name
	CreatedAt      time.Time // connections.created_at
	UpdatedAt      time.Time // connections.updated_at
}
