//go:build !noxlsx

package main

import _ "github.com/JonMunkholm/leads/internal/core/xlsx"
