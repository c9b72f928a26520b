//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Test mg.Namespace

// Runs the whole test suite.
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Runs the test suite with the race detector.
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Tidies the module and vets every package.
func (Test) Vet() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return fmt.Errorf("go mod tidy: %w", err)
	}
	if err := sh.Run("go", "generate", "./..."); err != nil {
		return fmt.Errorf("go generate: %w", err)
	}
	return sh.RunV("go", "vet", "./...")
}
