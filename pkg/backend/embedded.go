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

package backend

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/filecodec"
)

// ConnectionType is how an embedded device is attached.
type ConnectionType int

const (
	// ConnectionUSB is a device on a USB port.
	ConnectionUSB ConnectionType = iota
	// ConnectionSerial is a device on a serial line.
	ConnectionSerial
	// ConnectionEthernet is a device reachable over the network.
	ConnectionEthernet
)

// String returns the configuration name of c.
func (c ConnectionType) String() string {
	switch c {
	case ConnectionUSB:
		return "usb"
	case ConnectionSerial:
		return "serial"
	case ConnectionEthernet:
		return "ethernet"
	default:
		return fmt.Sprintf("ConnectionType(%d)", int(c))
	}
}

// ParseConnectionType maps a configuration name to a ConnectionType.
func ParseConnectionType(name string) (ConnectionType, error) {
	switch strings.ToLower(name) {
	case "", "usb":
		return ConnectionUSB, nil
	case "serial":
		return ConnectionSerial, nil
	case "ethernet":
		return ConnectionEthernet, nil
	default:
		return 0, fmt.Errorf("unknown connection type %q", name)
	}
}

// Config describes an embedded device.
type Config struct {
	ConnectionType ConnectionType
	DeviceID       string
	Parameters     map[string]string
}

// Embedded is the embedded device backend. Connection state is tracked but
// no device protocol exists yet, so every cryptographic operation fails.
type Embedded struct {
	config    Config
	connected atomic.Bool
}

var _ Backend = (*Embedded)(nil)

// NewEmbedded creates an embedded backend for config.
func NewEmbedded(config *Config) (*Embedded, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: embedded backend requires a configuration", crustyerr.ErrEncryption)
	}
	cfg := *config
	if cfg.Parameters != nil {
		params := make(map[string]string, len(cfg.Parameters))
		for k, v := range cfg.Parameters {
			params[k] = v
		}
		cfg.Parameters = params
	}
	return &Embedded{config: cfg}, nil
}

// Config returns a copy of the device configuration.
func (e *Embedded) Config() Config {
	return e.config
}

// Connect marks the device connected.
func (e *Embedded) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.connected.Store(true)
	return nil
}

// Disconnect marks the device disconnected.
func (e *Embedded) Disconnect() {
	e.connected.Store(false)
}

// IsConnected reports whether Connect has been called without a later
// Disconnect.
func (e *Embedded) IsConnected() bool {
	return e.connected.Load()
}

// Type implements Backend.
func (e *Embedded) Type() Type {
	return TypeEmbedded
}

func encryptNotImplemented() error {
	return fmt.Errorf("%w: embedded %w", crustyerr.ErrEncryption, crustyerr.ErrNotImplemented)
}

func decryptNotImplemented() error {
	return fmt.Errorf("%w: embedded %w", crustyerr.ErrDecryption, crustyerr.ErrNotImplemented)
}

// EncryptData implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) EncryptData([]byte, *symkey.Key) ([]byte, error) {
	return nil, encryptNotImplemented()
}

// DecryptData implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) DecryptData([]byte, *symkey.Key) ([]byte, error) {
	return nil, decryptNotImplemented()
}

// EncryptDataForRecipient implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) EncryptDataForRecipient([]byte, *symkey.Key, string) ([]byte, error) {
	return nil, encryptNotImplemented()
}

// DecryptDataWithRecipient implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) DecryptDataWithRecipient([]byte, *symkey.Key) (string, []byte, error) {
	return "", nil, decryptNotImplemented()
}

// EncryptFile implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) EncryptFile(context.Context, string, string, *symkey.Key, filecodec.ProgressFunc) error {
	return encryptNotImplemented()
}

// DecryptFile implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) DecryptFile(context.Context, string, string, *symkey.Key, filecodec.ProgressFunc) error {
	return decryptNotImplemented()
}

// EncryptFileForRecipient implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) EncryptFileForRecipient(context.Context, string, string, *symkey.Key, string, filecodec.ProgressFunc) error {
	return encryptNotImplemented()
}

// DecryptFileWithRecipient implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) DecryptFileWithRecipient(context.Context, string, string, *symkey.Key, filecodec.ProgressFunc) (string, error) {
	return "", decryptNotImplemented()
}

// EncryptFiles implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) EncryptFiles(context.Context, []string, string, *symkey.Key, filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return nil, encryptNotImplemented()
}

// DecryptFiles implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) DecryptFiles(context.Context, []string, string, *symkey.Key, filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return nil, decryptNotImplemented()
}

// EncryptFilesForRecipient implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) EncryptFilesForRecipient(context.Context, []string, string, *symkey.Key, string, filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return nil, encryptNotImplemented()
}

// DecryptFilesWithRecipient implements Backend. It fails with ErrNotImplemented.
func (e *Embedded) DecryptFilesWithRecipient(context.Context, []string, string, *symkey.Key, filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	return nil, decryptNotImplemented()
}
