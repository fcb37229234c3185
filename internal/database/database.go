package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"leadfinder/internal/types"

	_ "github.com/sijms/go-ora/v2"
)

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	if walletLocation != "" {
		// Use wallet-based mTLS connection
		return fmt.Sprintf(
			"oracle://%s:%s@%s:%s/%s?ssl=true&wallet_location=%s",
			username, password, host, port, service, url.PathEscape(walletLocation))
	}

	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password), // escapes automatically
		Host:     host + ":" + port,
		Path:     "/" + service, // keep full service name
		RawQuery: "ssl=true",    // ADB requires TCPS on 1522
	}).String()
}

// DBConfig holds database connection configuration
type DBConfig struct {
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	Service        string `yaml:"service"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	WalletLocation string `yaml:"wallet_location"`
}

// Database holds the database connection and configuration
type Database struct {
	db     *sql.DB
	config DBConfig
}

// NewDatabase opens the connection and pings it before returning.
func NewDatabase(ctx context.Context, config DBConfig) (*Database, error) {
	connStr := dsn(config.Username, config.Password, config.Host, config.Port, config.Service, config.WalletLocation)

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		config: config,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

const (
	insertRunSQL = `
		INSERT INTO LEAD_RUNS (Run_ID, Center_Address, Radius_Meters, Keyword, Grid_Divisions, Lead_Count, Created_At)
		VALUES (:1, :2, :3, :4, :5, :6, :7)
	`
	insertLeadSQL = `
		INSERT INTO LEADS (Run_ID, Place_ID, Name, Address, Phone, Website, Has_Website, Latitude, Longitude)
		VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9)
	`
)

// SaveRun records one search and its leads in a single transaction. Nothing is kept on error.
func (d *Database) SaveRun(ctx context.Context, runID string, req types.SearchRequest, leads []types.LeadRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertRunSQL,
		runID, req.CenterAddress, req.RadiusMeters, req.Keyword, req.GridDivisions, len(leads), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertLeadSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare lead insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range leads {
		var website sql.NullString
		if l.HasWebsite() {
			website = sql.NullString{String: l.WebsiteURL(), Valid: true}
		}
		hasWebsite := "N"
		if l.HasWebsite() {
			hasWebsite = "Y"
		}
		_, err := stmt.ExecContext(ctx,
			runID, l.PlaceID, l.Name, l.Address, l.Phone, website, hasWebsite, l.Location.Latitude, l.Location.Longitude)
		if err != nil {
			return fmt.Errorf("failed to insert lead %s: %w", l.PlaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}
	return nil
}

// CountLeads returns how many leads a run stored.
func (d *Database) CountLeads(ctx context.Context, runID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM LEADS WHERE Run_ID = :1`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads for run %s: %w", runID, err)
	}
	return n, nil
}
