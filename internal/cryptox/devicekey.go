package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DeviceKeySize is the length of the per-device secret.
const DeviceKeySize = 32

// LoadOrCreateDeviceKey reads the device secret at path, creating it with
// fresh random bytes and mode 0600 on first use.
func LoadOrCreateDeviceKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(key) != DeviceKeySize {
			return nil, fmt.Errorf("device key %s: want %d bytes, got %d", path, DeviceKeySize, len(key))
		}
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read device key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	key = make([]byte, DeviceKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			// another process won the race
			return LoadOrCreateDeviceKey(path)
		}
		return nil, fmt.Errorf("create device key: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(key); err != nil {
		return nil, fmt.Errorf("write device key: %w", err)
	}
	return key, nil
}
