// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-crusty.
//
// go-crusty is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-crusty/internal/config"
	"github.com/jeremyhahn/go-crusty/pkg/backend"
	"github.com/jeremyhahn/go-crusty/pkg/credstore"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/aead"
	"github.com/jeremyhahn/go-crusty/pkg/filecodec"
	"github.com/jeremyhahn/go-crusty/pkg/logging"
	"github.com/jeremyhahn/go-crusty/pkg/metrics"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
	"github.com/jeremyhahn/go-crusty/pkg/splitkey"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables verbose logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
	}
}

// Load reads the crusty configuration named by ConfigFile.
func (c *Config) Load() (*config.Config, error) {
	return config.Load(c.ConfigFile)
}

// Session bundles the components one command invocation works with.
type Session struct {
	Config    *config.Config
	Logger    *logging.Logger
	Backend   backend.Backend
	Observer  oplog.Observer
	collector *metrics.Collector
	oplog     *oplog.File
	manager   *splitkey.Manager
}

// OpenSession loads the configuration and builds the backend, operation log
// and metrics collector. Diagnostics are written to logOut.
func (c *Config) OpenSession(logOut io.Writer) (*Session, error) {
	cfg, err := c.Load()
	if err != nil {
		return nil, err
	}
	return NewSession(cfg, logOut, c.Verbose)
}

// NewSession builds a Session from an already loaded configuration.
func NewSession(cfg *config.Config, logOut io.Writer, verbose bool) (*Session, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLoggerWithOptions(logOut, level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	s := &Session{Config: cfg, Logger: logger, Observer: oplog.Noop()}
	if cfg.OperationLog != "" {
		s.oplog, err = oplog.OpenFile(cfg.OperationLog)
		if err != nil {
			return nil, err
		}
		s.Observer = s.oplog
	}

	var recorder metrics.Recorder = metrics.Noop()
	if cfg.Metrics.Enabled {
		s.collector = metrics.NewCollector()
		recorder = s.collector
	}

	backendType, err := backend.ParseType(cfg.Backend.Type)
	if err != nil {
		s.Close()
		return nil, err
	}
	connType, err := backend.ParseConnectionType(cfg.Backend.Embedded.ConnectionType)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Backend, err = backend.New(&backend.Options{
		Type: backendType,
		Embedded: &backend.Config{
			ConnectionType: connType,
			DeviceID:       cfg.Backend.Embedded.DeviceID,
			Parameters:     cfg.Backend.Embedded.Parameters,
		},
		AEAD: aead.NewCodec(aead.WithNonceTracker(aead.NewNonceTracker(cfg.Codec.NonceTracking))),
		FileOptions: []filecodec.Option{
			filecodec.WithObserver(s.Observer),
			filecodec.WithLogger(logger),
			filecodec.WithMetrics(recorder),
			filecodec.WithChunkSize(cfg.Codec.StreamChunkSize),
		},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	logger.Debug("session opened", "backend", backendType, "operation_log", cfg.OperationLog)
	return s, nil
}

// Manager returns the key share manager, opening the configured credential
// store on first use.
func (s *Session) Manager() (*splitkey.Manager, error) {
	if s.manager != nil {
		return s.manager, nil
	}
	storeType, err := credstore.ParseType(s.Config.CredentialStore.Type)
	if err != nil {
		return nil, err
	}
	keyringCfg := s.Config.CredentialStore.Keyring
	vaultCfg := s.Config.CredentialStore.Vault
	store, err := credstore.Open(storeType, &keyringCfg, &vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	s.manager, err = splitkey.NewManager(s.Config.AppName, s.Config.ShareDir, store,
		splitkey.WithManagerScheme(s.Config.Scheme()),
		splitkey.WithLogger(s.Logger))
	if err != nil {
		return nil, err
	}
	return s.manager, nil
}

// Record writes an operation entry to the operation log. Failures are
// logged rather than returned so they never mask the operation's result.
func (s *Session) Record(ctx context.Context, entry *oplog.Entry) {
	if err := s.Observer.Record(ctx, entry); err != nil {
		s.Logger.Warn("failed to record operation", "operation", entry.Operation, "error", err)
	}
}

// Close flushes metrics and closes the operation log.
func (s *Session) Close() {
	if s.collector != nil && s.Config.Metrics.Textfile != "" {
		if err := s.collector.WriteTextfile(s.Config.Metrics.Textfile); err != nil {
			s.Logger.Warn("failed to write metrics", "path", s.Config.Metrics.Textfile, "error", err)
		}
	}
	if s.oplog != nil {
		s.Logger.MaybeError("failed to close operation log", s.oplog.Close())
	}
}
