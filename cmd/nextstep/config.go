// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// cliConfig holds file-supplied defaults for the global flags. Flags set
// explicitly on the command line always win over the file.
type cliConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`
	Quiet    bool   `mapstructure:"quiet"`
	Graph    string `mapstructure:"graph"`
}

// loadCLIConfig reads a YAML config file into a cliConfig. A missing file
// at an explicitly requested path is an error; pass required=false for
// the default search path where absence is fine.
func loadCLIConfig(path string, required bool) (cliConfig, error) {
	var cfg cliConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if required {
			return cfg, fmt.Errorf("config file not found at %s", path)
		}
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("error checking config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	return cfg, nil
}
