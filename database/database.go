// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/veritrust-io/veritrust/database/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// memDbCounter gives each in-memory metadata store a unique name so that
// concurrent test databases don't share state through sqlite's shared cache
var memDbCounter atomic.Uint64

type Config struct {
	Logger  *slog.Logger
	DataDir string
}

// Database is the storage facade for the node. The blob store holds the
// append-only transition log, the metadata store holds materialized
// registry state. Both are committed together through Txn.
type Database struct {
	logger   *slog.Logger
	blob     *badger.DB
	metadata *gorm.DB
	dataDir  string
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() *badger.DB {
	return d.blob
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		if sqlDb, dbErr := d.metadata.DB(); dbErr == nil {
			err = errors.Join(err, sqlDb.Close())
		}
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

// New creates a new database instance with optional persistence using the
// provided data directory. An empty data directory selects in-memory
// storage for both stores, useful for testing
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.DataDir != "" {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(cfg.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
	}
	blobDb, err := openBlob(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	metadataDb, err := openMetadata(cfg.DataDir)
	if err != nil {
		blobDb.Close()
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.init(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openBlob(dataDir string, logger *slog.Logger) (*badger.DB, error) {
	var badgerOpts badger.Options
	if dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		blobDir := filepath.Join(dataDir, "blob")
		badgerOpts = badger.DefaultOptions(blobDir)
	}
	badgerOpts = badgerOpts.WithLogger(newBadgerLogger(logger))
	return badger.Open(badgerOpts)
}

func openMetadata(dataDir string) (*gorm.DB, error) {
	var dsn string
	if dataDir == "" {
		dsn = fmt.Sprintf(
			"file:memdb%d?mode=memory&cache=shared",
			memDbCounter.Add(1),
		)
	} else {
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode, disable sync on write
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=sync(OFF)",
			metadataDbPath,
		)
	}
	return gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
}

func (d *Database) init() error {
	// Configure tracing for GORM
	if err := d.metadata.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	// Create table schemas
	for _, model := range models.MigrateModels {
		d.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := d.metadata.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}
