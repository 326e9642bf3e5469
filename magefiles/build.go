//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the compute shader to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the luminary binary.
func (Build) Binary() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "luminary", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet and the test suite.
func (Build) Check() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	if _, err := executeCmd("glslc", withArgs("shaders/shader.comp", "-o", "shaders/shader.comp.spv"), withStream()); err != nil {
		return err
	}
	return nil
}
