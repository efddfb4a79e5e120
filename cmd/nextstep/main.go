// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command nextstep works with workflow graph definitions from the
// command line: validating definitions, replaying recorded transition
// logs, predicting next actions, and running pattern analysis.
//
// Usage:
//
//	nextstep validate --graph flow.yaml
//	nextstep replay --graph flow.yaml --events events.jsonl --snapshot-out weights.json
//	nextstep predict --graph flow.yaml --from browse --actor user
//	nextstep analyze --graph flow.yaml --events events.jsonl
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
