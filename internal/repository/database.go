package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrAssetNotFound = errors.New("not found in datasource")
	ErrNoCandles     = errors.New("no candles found in datasource")
	ErrNoPrices      = errors.New("no prices for any ticker")
)

type assetsRepository interface {
	GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error)
}
type candlesRepository interface {
	GetDailyCloses(ctx context.Context, arg getDailyClosesParams) ([]dailyCloseRow, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	assets   assetsRepository
	candles  candlesRepository
	conn     *pgxpool.Pool
	progress io.Writer
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	q := newQueries(conn)
	return &Database{
		assets:  q,
		candles: q,
		conn:    conn}, nil
}

// SetProgressWriter shows a progress bar on w while prices load.
func (db *Database) SetProgressWriter(w io.Writer) {
	db.progress = w
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
