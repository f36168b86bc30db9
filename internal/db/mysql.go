package db

import (
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/rh-booking/internal/config"
	"github.com/jmoiron/sqlx"
)

// NewMySQLConnection opens the booking store. The DSN should carry
// parseTime=true so created_at scans into time.Time.
func NewMySQLConnection(c config.DatabaseConfig) (*sqlx.DB, error) {
	return open("mysql", c.DSN, PoolOptsFrom(c), 5*time.Second)
}
