// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package mock is used to generate mock files for testing.
package mock

//go:generate mockgen -source ../internal/backend/adapter.go -destination mock_backend/mock_adapter.go
