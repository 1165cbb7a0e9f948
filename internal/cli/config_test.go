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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-crusty/internal/config"
	"github.com/jeremyhahn/go-crusty/pkg/backend"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ShareDir = filepath.Join(dir, "shares")
	cfg.OperationLog = filepath.Join(dir, "ops.log")
	cfg.CredentialStore.Type = "memory"
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics.prom")
	return cfg
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.ConfigFile)
}

func TestSession_LocalBackendWithMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Codec.NonceTracking = true

	sess, err := NewSession(cfg, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.Equal(t, backend.TypeLocal, sess.Backend.Type())

	key, err := symkey.Generate()
	require.NoError(t, err)
	defer key.Destroy()

	src := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("metrics"), 0o600))
	require.NoError(t, sess.Backend.EncryptFile(context.Background(), src, src+".encrypted", key, nil))
	sess.Close()

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "crusty_operations_total")

	entries, err := oplog.ReadFile(cfg.OperationLog)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, oplog.OpEncrypt, entries[0].Operation)
	assert.True(t, entries[0].Success)
}

func TestSession_EmbeddedBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Type = "embedded"
	cfg.Backend.Embedded.ConnectionType = "serial"

	sess, err := NewSession(cfg, &bytes.Buffer{}, false)
	require.NoError(t, err)
	defer sess.Close()
	assert.Equal(t, backend.TypeEmbedded, sess.Backend.Type())

	key, err := symkey.Generate()
	require.NoError(t, err)
	defer key.Destroy()
	_, err = sess.Backend.EncryptData([]byte("x"), key)
	assert.ErrorIs(t, err, crustyerr.ErrNotImplemented)
}

func TestSession_Manager(t *testing.T) {
	sess, err := NewSession(testConfig(t), &bytes.Buffer{}, false)
	require.NoError(t, err)
	defer sess.Close()

	mgr, err := sess.Manager()
	require.NoError(t, err)
	again, err := sess.Manager()
	require.NoError(t, err)
	assert.Same(t, mgr, again)
	assert.Equal(t, sess.Config.ShareDir, mgr.ShareDir())
}

func TestSession_VerboseLogsDebug(t *testing.T) {
	var logs bytes.Buffer
	sess, err := NewSession(testConfig(t), &logs, true)
	require.NoError(t, err)
	sess.Close()
	assert.True(t, strings.Contains(logs.String(), "session opened"))
}

func TestSession_InvalidOperationLog(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	cfg.OperationLog = filepath.Join(blocker, "ops.log")

	_, err := NewSession(cfg, &bytes.Buffer{}, false)
	assert.Error(t, err)
}
