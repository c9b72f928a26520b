//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	return sh.RunV("go", "run", "main.go")
}

// Watches the asset tree with assetctl and prints every reload.
func (Run) Watch() error {
	return sh.RunV("go", "run", "./cmd/assetctl", "watch", "--root", "assets")
}
