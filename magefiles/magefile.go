//go:build mage

// Package main provides build targets for arbor using Mage.
//
// Usage:
//
//	mage build            Compile the arbor binary to bin/
//	mage test:all         Run every test
//	mage test:unit        Run tests in -short mode
//	mage test:property    Run the property tests with more rapid checks
//	mage test:postgres    Run the Postgres backend tests (needs ARBOR_TEST_POSTGRES_DSN)
//	mage lint             Run golangci-lint
//	mage clean            Remove build artifacts
//	mage install          Install arbor to GOPATH/bin
//	mage stats            Print Go lines of code per package
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo       = "go"
	binaryName  = "arbor"
	binaryDir   = "bin"
	cmdDir      = "./cmd/arbor"
	postgresEnv = "ARBOR_TEST_POSTGRES_DSN"
)

// propertyPackages hold rapid property tests.
var propertyPackages = []string{"./pkg/tree/...", "./internal/sqlite/..."}

// Build compiles the arbor binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test groups test targets.
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the tests in -short mode.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Property runs the rapid property tests with a larger number of checks.
func (Test) Property() error {
	args := append([]string{"test", "-run", "Propert|Memstore"}, propertyPackages...)
	args = append(args, "-args", "-rapid.checks=2000")
	return sh.RunV(binGo, args...)
}

// Postgres runs the Postgres backend tests against ARBOR_TEST_POSTGRES_DSN.
func (Test) Postgres() error {
	if os.Getenv(postgresEnv) == "" {
		return errors.New(postgresEnv + " is not set")
	}
	return sh.RunWithV(map[string]string{postgresEnv: os.Getenv(postgresEnv)},
		binGo, "test", "-count=1", "./internal/postgres/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

type lineCount struct {
	prod, test int
}

// Stats prints Go lines of code per package directory.
func Stats() error {
	counts := map[string]*lineCount{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch path {
			case "vendor", ".git", binaryDir, "magefiles", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		c, ok := counts[dir]
		if !ok {
			c = &lineCount{}
			counts[dir] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(counts))
	for dir := range counts {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var total lineCount
	fmt.Printf("%-28s %8s %8s\n", "package", "prod", "test")
	for _, dir := range dirs {
		c := counts[dir]
		total.prod += c.prod
		total.test += c.test
		fmt.Printf("%-28s %8d %8d\n", dir, c.prod, c.test)
	}
	fmt.Printf("%-28s %8d %8d\n", "total", total.prod, total.test)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
