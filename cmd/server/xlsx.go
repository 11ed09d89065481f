//go:build !noxlsx

package main

// Build with -tags noxlsx for a CSV-only binary.
import _ "github.com/JonMunkholm/leads/internal/core/xlsx"
