package testing

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// ConfigBuilder provides a fluent interface for creating test configurations.
// It starts from the defaults with every tool and pattern in place.
type ConfigBuilder struct {
	config *config.Config
	t      *testing.T
}

// NewConfigBuilder creates a new configuration builder for tests.
func NewConfigBuilder(t *testing.T) *ConfigBuilder {
	cfg := config.Default()
	cfg.Output.Directory = filepath.Join(t.TempDir(), "out")
	return &ConfigBuilder{config: cfg, t: t}
}

// WithRoot sets the source root.
func (cb *ConfigBuilder) WithRoot(dir string) *ConfigBuilder {
	cb.config.Source.Root = dir
	return cb
}

// WithOutputDir sets the output directory.
func (cb *ConfigBuilder) WithOutputDir(dir string) *ConfigBuilder {
	cb.config.Output.Directory = dir
	return cb
}

// WithTargets sets the requested targets.
func (cb *ConfigBuilder) WithTargets(targets ...string) *ConfigBuilder {
	cb.config.Latex.Targets = targets
	return cb
}

// WithMaxReruns sets the bound of the rerun loop.
func (cb *ConfigBuilder) WithMaxReruns(n int) *ConfigBuilder {
	cb.config.Latex.MaxReruns = n
	return cb
}

// WithPdfViaDvi selects the dvips device.
func (cb *ConfigBuilder) WithPdfViaDvi() *ConfigBuilder {
	cb.config.Latex.PdfViaDvi = true
	return cb
}

// WithBoundingBoxes enables bounding box creation for raster images.
func (cb *ConfigBuilder) WithBoundingBoxes() *ConfigBuilder {
	cb.config.Latex.CreateBoundingBoxes = true
	return cb
}

// Flat disables recursive scanning.
func (cb *ConfigBuilder) Flat() *ConfigBuilder {
	cb.config.Source.Recursive = false
	return cb
}

// WithInclude sets the main documents to build.
func (cb *ConfigBuilder) WithInclude(names ...string) *ConfigBuilder {
	cb.config.Output.Include = names
	return cb
}

// WithExclude sets the main documents never built.
func (cb *ConfigBuilder) WithExclude(names ...string) *ConfigBuilder {
	cb.config.Output.Exclude = names
	return cb
}

// WithSourceExclude sets the exclude globs of the scan.
func (cb *ConfigBuilder) WithSourceExclude(globs ...string) *ConfigBuilder {
	cb.config.Source.Exclude = globs
	return cb
}

// WithoutCleanUp keeps intermediate files after a build.
func (cb *ConfigBuilder) WithoutCleanUp() *ConfigBuilder {
	cb.config.Output.CleanUp = false
	return cb
}

// WithTool replaces the settings of the named tool.
func (cb *ConfigBuilder) WithTool(name string, tool config.Tool) *ConfigBuilder {
	cb.t.Helper()
	for _, nt := range cb.config.Tools.All() {
		if nt.Name == name {
			*nt.Tool = tool
			return cb
		}
	}
	cb.t.Fatalf("unknown tool %q", name)
	return cb
}

// Modify applies fn to the configuration under construction.
func (cb *ConfigBuilder) Modify(fn func(*config.Config)) *ConfigBuilder {
	fn(cb.config)
	return cb
}

// Build normalizes and returns the configuration.
func (cb *ConfigBuilder) Build() *config.Config {
	cb.t.Helper()
	if _, err := config.NormalizeConfig(cb.config); err != nil {
		cb.t.Fatalf("invalid test configuration: %v", err)
	}
	return cb.config
}

// BuildAndSave builds the configuration and saves it to a file.
func (cb *ConfigBuilder) BuildAndSave(filePath string) *config.Config {
	cb.t.Helper()
	cfg := cb.Build()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		cb.t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.WriteFile(filePath, data, testFilePermissions); err != nil {
		cb.t.Fatalf("Failed to save config to %s: %v", filePath, err)
	}
	return cfg
}
