// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// LogFileName is the log file created in the data directory.
const LogFileName = "ragclient.log"

// RedirectLog sends the standard logger to <dataDir>/ragclient.log. The
// returned closer restores stderr output and closes the file.
func RedirectLog(dataDir string) (io.Closer, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dataDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return logCloser{f}, nil
}

type logCloser struct{ f *os.File }

func (c logCloser) Close() error {
	log.SetOutput(os.Stderr)
	return c.f.Close()
}
