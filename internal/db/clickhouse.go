package db

import (
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmehdipour/rh-booking/internal/config"
	"github.com/jmoiron/sqlx"
)

// NewClickHouseConnection opens the reporting read model,
// e.g. clickhouse://default:@localhost:9000/rhbook?dial_timeout=5s&compress=true
func NewClickHouseConnection(c config.DatabaseConfig) (*sqlx.DB, error) {
	return open("clickhouse", c.DSN, PoolOptsFrom(c), 3*time.Second)
}
