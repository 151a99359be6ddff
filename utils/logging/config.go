// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import "errors"

var errMissingDirectory = errors.New("log directory must be set when file logging is enabled")

// RotatingWriterConfig configures the lumberjack writer backing the log file.
type RotatingWriterConfig struct {
	MaxSize   int    `json:"maxSize"` // in megabytes
	MaxFiles  int    `json:"maxFiles"`
	MaxAge    int    `json:"maxAge"` // in days
	Directory string `json:"directory"`
	Compress  bool   `json:"compress"`
}

// Config defines the configuration of a logger
type Config struct {
	RotatingWriterConfig
	DisableWriterDisplaying bool   `json:"disableWriterDisplaying"`
	DisableFile             bool   `json:"disableFile"`
	JSONFormat              bool   `json:"jsonFormat"`
	LogLevel                Level  `json:"logLevel"`
	DisplayLevel            Level  `json:"displayLevel"`
	LoggerName              string `json:"loggerName"`
}

func DefaultConfig() Config {
	return Config{
		RotatingWriterConfig: RotatingWriterConfig{
			MaxSize:  8,
			MaxFiles: 7,
			MaxAge:   0,
		},
		DisableFile:  true,
		LogLevel:     Info,
		DisplayLevel: Info,
	}
}

func (c Config) Verify() error {
	if !c.DisableFile && c.Directory == "" {
		return errMissingDirectory
	}
	return nil
}
