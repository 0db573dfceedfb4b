package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"sqlviz/internal/catalog"
	"sqlviz/internal/logger"
	"sqlviz/pkg/config"
)

type Dialect interface {

	// Version returns the server's self-reported version string
	Version(ctx context.Context, db *sql.DB) (string, error)

	// Scan adds the tables, columns and foreign keys of db to b
	Scan(ctx context.Context, db *sql.DB, b *catalog.Builder) error
}

// ServerInfo is the outcome of a successful connection test.
type ServerInfo struct {
	Driver    string `json:"driver"`
	Version   string `json:"version"`
	LatencyMs int64  `json:"latencyMs"`
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// Register makes a Dialect available under name.
func Register(name string, d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(name)] = d
}

// RegisteredDialects returns the registered dialect keys, sorted.
func RegisteredDialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup(driver string) (Dialect, error) {
	dialectsMu.RLock()
	d, ok := dialects[driver]
	dialectsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dialect not registered: %q (available: %v)", driver, RegisteredDialects())
	}
	return d, nil
}

// connect opens and pings driver/dsn, then hands the connection to fn under
// the same timeout.
func connect(driver, dsn string, timeoutSec int, fn func(context.Context, Dialect, *sql.DB) error) error {
	driver = config.NormalizeDriver(driver)
	dialect, err := lookup(driver)
	if err != nil {
		return err
	}
	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", driver, err)
	}
	return fn(ctx, dialect, dbConn)
}

// ConnectAndProbe connects to the database and reports its version and round trip time.
func ConnectAndProbe(driver, dsn string, timeoutSec int) (ServerInfo, error) {
	var info ServerInfo
	start := time.Now()
	err := connect(driver, dsn, timeoutSec, func(ctx context.Context, d Dialect, dbConn *sql.DB) error {
		v, err := d.Version(ctx, dbConn)
		if err != nil {
			return fmt.Errorf("query version: %w", err)
		}
		info = ServerInfo{
			Driver:    config.NormalizeDriver(driver),
			Version:   v,
			LatencyMs: time.Since(start).Milliseconds(),
		}
		return nil
	})
	if err != nil {
		return ServerInfo{}, err
	}
	logger.Debug("probed %s: %s in %dms", info.Driver, info.Version, info.LatencyMs)
	return info, nil
}

// ConnectAndScan connects to the database and reads its structure.
func ConnectAndScan(driver, dsn string, timeoutSec int) (catalog.Catalog, error) {
	var cat catalog.Catalog
	err := connect(driver, dsn, timeoutSec, func(ctx context.Context, d Dialect, dbConn *sql.DB) error {
		var err error
		cat, err = ScanDB(ctx, config.NormalizeDriver(driver), d, dbConn)
		return err
	})
	return cat, err
}

// ScanDB reads the structure of an open connection with dialect d.
// A failed version query is logged and leaves Version empty.
func ScanDB(ctx context.Context, driver string, d Dialect, dbConn *sql.DB) (catalog.Catalog, error) {
	version, err := d.Version(ctx, dbConn)
	if err != nil {
		logger.Error("query version: %v", err)
	}
	b := catalog.NewBuilder(driver)
	if err := d.Scan(ctx, dbConn, b); err != nil {
		return catalog.Catalog{}, err
	}
	return b.Catalog(version, time.Now()), nil
}
