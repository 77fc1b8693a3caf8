package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up by the CLI when --config is not given.
const DefaultFileName = "texbuilder.yaml"

// Config represents the texbuilder configuration. It is read-only once Load returns.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Latex   LatexConfig   `yaml:"latex"`
	Tools   ToolsConfig   `yaml:"tools"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`

	warnings []string
}

// Warnings returns the adjustments made while normalizing the loaded file.
func (c *Config) Warnings() []string { return c.warnings }

// SourceConfig describes where document sources live and how they are scanned.
type SourceConfig struct {
	Root             string   `yaml:"root"`              // Source root; tools run in the directory of each file below it
	Recursive        bool     `yaml:"recursive"`         // Descend into subdirectories
	Exclude          []string `yaml:"exclude,omitempty"` // doublestar globs relative to root
	RespectGitignore bool     `yaml:"respect_gitignore"` // Skip files ignored by .gitignore files below root
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	CleanUp   bool     `yaml:"clean_up"`          // Delete files created during the build that are not outputs
	Include   []string `yaml:"include,omitempty"` // Main document names (without .tex) to build; empty means all
	Exclude   []string `yaml:"exclude,omitempty"` // Main document names never built
}

// LatexConfig holds settings of the rerun engine and the graphic preprocessor.
type LatexConfig struct {
	Targets                []string `yaml:"targets"`
	PdfViaDvi              bool     `yaml:"pdf_via_dvi"`
	MaxReruns              int      `yaml:"max_reruns"` // -1 means unbounded
	DebugBadBoxes          bool     `yaml:"debug_bad_boxes"`
	DebugWarnings          bool     `yaml:"debug_warnings"`
	CreateBoundingBoxes    bool     `yaml:"create_bounding_boxes"`
	MainFilePattern        string   `yaml:"main_file_pattern"`
	CreatedFromMainPattern string   `yaml:"created_from_main_pattern"`
	HTMLStyleOptions       string   `yaml:"html_style_options"`
}

// Tool configures one external program.
type Tool struct {
	Command        string `yaml:"command"`
	Options        string `yaml:"options,omitempty"`
	ErrorPattern   string `yaml:"error_pattern,omitempty"`
	WarningPattern string `yaml:"warning_pattern,omitempty"`
	RerunPattern   string `yaml:"rerun_pattern,omitempty"`
}

// ToolsConfig lists every external program texbuilder may invoke.
type ToolsConfig struct {
	Latex          Tool `yaml:"latex"`
	Bibtex         Tool `yaml:"bibtex"`
	MakeIndex      Tool `yaml:"makeindex"`
	SplitIndex     Tool `yaml:"splitindex"`
	MakeGlossaries Tool `yaml:"makeglossaries"`
	Xindy          Tool `yaml:"xindy"` // patterns applied to the glossary log when makeglossaries delegates to xindy
	Pythontex      Tool `yaml:"pythontex"`
	Fig2Dev        Tool `yaml:"fig2dev"`
	Gnuplot        Tool `yaml:"gnuplot"`
	MetaPost       Tool `yaml:"metapost"`
	Inkscape       Tool `yaml:"inkscape"`
	Ebb            Tool `yaml:"ebb"`
	Dvi2Pdf        Tool `yaml:"dvi2pdf"`
	Tex4ht         Tool `yaml:"tex4ht"`
	Latex2Rtf      Tool `yaml:"latex2rtf"`
	Odt2Doc        Tool `yaml:"odt2doc"`
	Pdf2Txt        Tool `yaml:"pdf2txt"`
	ChkTex         Tool `yaml:"chktex"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

// HistoryConfig configures the SQLite build history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables history
}

// NotifyConfig configures publishing of build reports to NATS.
type NotifyConfig struct {
	URL     string `yaml:"url,omitempty"` // empty disables notification
	Subject string `yaml:"subject,omitempty"`
}

// Load loads configuration from the specified file.
// Unset fields keep the values of Default().
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML content on top of the defaults and normalizes the result.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	res, err := NormalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg.warnings = res.Warnings
	return cfg, nil
}

// envRef matches ${NAME}. Bare $NAME is left alone since patterns use $ as an anchor
// and T$T as the document stem placeholder.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Init creates a new configuration file containing the defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.History.Path = ".texbuilder/history.db"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
