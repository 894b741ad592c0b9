// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the Cortex CLI application.
// It signs users in to a Cortex server and reports their session and roles.
package main

import (
	"cortex/cli/cmd"
)

func main() {
	cmd.Execute()
}
