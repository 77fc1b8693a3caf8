package config

// Patterns use Go RE2 syntax. Log patterns are matched line by line with (?m) set;
// a pattern starting with \A is matched against the growing head of the file instead.
const (
	// DefaultMainFilePattern identifies a document entry file by what may precede \documentclass.
	// The named groups docClass, docClassMagic and targetsMagic are read by the preprocessor.
	DefaultMainFilePattern = `\A(%! LMP( docClass=(?P<docClassMagic>[^} ]+))?( targets=(?P<targetsMagic>([a-z]|,)+))?\r?\n)?` +
		`(\\RequirePackage\s*(\[(\s|\w|,)*\])?\s*\{(\w|-)+\}\s*(\[(\d|\.)+\])?|` +
		`%.*$|` +
		`\\PassOptionsToPackage\s*\{\w+\}\s*\{(\w|-)+\}|` +
		`\\input\s*\{[^{}]*\}|` +
		`\s)*` +
		`\\(documentstyle|documentclass)\s*(\[[^\]]*\])?\s*\{(?P<docClass>[^} ]+)\}`

	// DefaultCreatedFromMainPattern matches every file a document run may leave next to
	// its source. T$T stands for the document stem.
	DefaultCreatedFromMainPattern = `^(T$T(\.([^.]*|synctex(\(busy\))?(\.gz)?|out\.ps|run\.xml|\d+\.vrb|depytx(\.tex)?)|` +
		`(-|ch|se|su|ap|li)?\d+\.x?html?|` +
		`\d+x\.x?bb|\d+x?\.png|-\d+\.svg|` +
		`-.+\.(idx|ind|ilg))|` +
		`pythontex-files-T$T|` +
		`zzT$T\.e?ps|` +
		`(cmsy)\d+(-c)?-\d+c?\.png|` +
		`(pdf|xe|lua)?latex\d+\.fls|` +
		`texput\.(fls|log))$`

	DefaultLatexErrorPattern   = `(^! )`
	DefaultLatexWarningPattern = `^(LaTeX Warning: |LaTeX Font Warning: |(Package|Class) .+ Warning: |` +
		`pdfTeX warning( \((\d|\w)+\))?: |\* fontspec warning: |` +
		`Missing character: There is no .* in font .*!$|` +
		`A space is missing\. (No warning)\.)`
	DefaultLatexRerunPattern = `^(LaTeX Warning: Label\(s\) may have changed\. Rerun to get cross-references right\.$|` +
		`Package \w+ Warning: .*Rerun .*$|` +
		`\(\w+\) +Rerun to get .*$|` +
		`LaTeX Warning: Etaremune labels have changed\.$|` +
		`\(rerunfilecheck\) +Rerun to get outlines right$)`

	DefaultMakeIndexRerunPattern      = `^\(rerunfilecheck\) +Rerun LaTeX/makeindex to get index right\.$`
	DefaultMakeGlossariesRerunPattern = `^\(rerunfilecheck\) +Rerun LaTeX/makeindex to get glossary right\.$`
)

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Root:             "src/tex",
			Recursive:        true,
			RespectGitignore: true,
		},
		Output: OutputConfig{
			Directory: "build/texbuilder",
			CleanUp:   true,
		},
		Latex: LatexConfig{
			Targets:                []string{"pdf"},
			MaxReruns:              5,
			DebugBadBoxes:          true,
			DebugWarnings:          true,
			MainFilePattern:        DefaultMainFilePattern,
			CreatedFromMainPattern: DefaultCreatedFromMainPattern,
			HTMLStyleOptions:       "html,2",
		},
		Tools: DefaultTools(),
		Notify: NotifyConfig{
			Subject: "texbuilder.builds",
		},
	}
}

// DefaultTools returns the stock command line of every supported program.
func DefaultTools() ToolsConfig {
	return ToolsConfig{
		Latex: Tool{
			Command:        "lualatex",
			Options:        "-interaction=nonstopmode -synctex=1 -recorder -shell-escape",
			ErrorPattern:   DefaultLatexErrorPattern,
			WarningPattern: DefaultLatexWarningPattern,
			RerunPattern:   DefaultLatexRerunPattern,
		},
		Bibtex: Tool{
			Command:        "bibtex",
			ErrorPattern:   `error message`,
			WarningPattern: `^Warning--`,
		},
		MakeIndex: Tool{
			Command:        "makeindex",
			ErrorPattern:   `(!! Input index error )`,
			WarningPattern: `(## Warning )`,
			RerunPattern:   DefaultMakeIndexRerunPattern,
		},
		SplitIndex: Tool{
			Command: "splitindex",
			Options: "-V",
		},
		MakeGlossaries: Tool{
			Command:      "makeglossaries",
			ErrorPattern: `^\*\*\* unable to execute: `,
			RerunPattern: DefaultMakeGlossariesRerunPattern,
		},
		Xindy: Tool{
			Command:        "xindy",
			ErrorPattern:   `(^ERROR: )`,
			WarningPattern: `(^WARNING: )`,
		},
		Pythontex: Tool{
			Command:        "pythontex",
			Options:        "--rerun=always",
			ErrorPattern:   `\* PythonTeX error|(PythonTeX:  .+ -|    - Current: ) [1-9][0-9]* error\(s\), [0-9]+ warning\(s\)`,
			WarningPattern: `(PythonTeX:  .+ -|    - Current: ) [0-9]+ error\(s\), [1-9][0-9]* warning\(s\)`,
		},
		Fig2Dev: Tool{Command: "fig2dev"},
		Gnuplot: Tool{Command: "gnuplot"},
		MetaPost: Tool{
			Command:        "mpost",
			Options:        `-interaction=nonstopmode -recorder -s prologues=2 -s 'outputtemplate="%j.mps"'`,
			ErrorPattern:   `(^! )`,
			WarningPattern: `^([Ww]arning: )`,
		},
		Inkscape: Tool{
			Command: "inkscape",
			Options: "--export-area-drawing --export-latex",
		},
		Ebb:       Tool{Command: "ebb", Options: "-v"},
		Dvi2Pdf:   Tool{Command: "dvipdfmx", Options: "-V1.7"},
		Tex4ht:    Tool{Command: "htlatex"},
		Latex2Rtf: Tool{Command: "latex2rtf"},
		Odt2Doc:   Tool{Command: "odt2doc", Options: "-fdocx"},
		Pdf2Txt:   Tool{Command: "pdftotext", Options: "-q"},
		ChkTex:    Tool{Command: "chktex", Options: "-q -b0"},
	}
}
