//go:build tools
// +build tools

// Package tools pins the code generators run by go generate, such as mockgen.
package chatterm

import (
	_ "go.uber.org/mock/mockgen"
)
