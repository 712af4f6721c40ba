package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/tilegrab/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "tilegrab"
	}

	// If the path is already absolute, just check it exists.
	// If relative, the caller should pass an absolute path via the env var,
	// because go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("TILEGRAB_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("tilegrab binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "TILEGRAB_INTEGRATION"
		envBinary     = "TILEGRAB_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// The command helpers below run against the fake engine so no network or
// tile output is involved, only the task database at dbPath.

// RunCreate creates a task covering the whole world at zooms 0 and 1.
func RunCreate(ctx context.Context, config Config, dbPath, name, output string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s --engine fake create --name %s --platform osm --bounds 85,-85,180,-180 --zooms 0-1 --output %s", dbPath, name, output)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}

// RunList lists tasks in JSON format.
func RunList(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s --engine fake list --format json", dbPath)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}

// RunStatus gets a task's detailed status in JSON format.
func RunStatus(ctx context.Context, config Config, dbPath, nameOrID string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s --engine fake status --format json %s", dbPath, nameOrID)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}

// RunStart starts a task and blocks until its download run ends.
func RunStart(ctx context.Context, config Config, dbPath, nameOrID string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s --engine fake start %s", dbPath, nameOrID)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}

// RunRm removes a task.
func RunRm(ctx context.Context, config Config, dbPath, nameOrID string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s --engine fake rm %s", dbPath, nameOrID)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}

// RunEstimate estimates the whole world at zooms 0 and 1 in JSON format.
func RunEstimate(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s estimate --bounds 85,-85,180,-180 --zooms 0-1 --format json", dbPath)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}

// RunPlatforms lists the supported platforms in JSON format.
func RunPlatforms(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	cmd := fmt.Sprintf("--no-log --db-path %s platforms --format json", dbPath)
	return testutils.RunTilegrab(ctx, nil, config.Binary, cmd)
}
