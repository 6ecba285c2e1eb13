package sandbox

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Placeholders substituted into compile and run argument templates.
const (
	PlaceholderSource = "{source}"
	PlaceholderBinary = "{binary}"
	PlaceholderDir    = "{dir}"
	PlaceholderEntry  = "{entry}"
)

// Recipe is the stage/compile/run sequence for one externally run language.
type Recipe struct {
	Language   string
	Extension  string
	FilePrefix string
	// EntryPattern must capture the mandated entry-type name in group 1.
	EntryPattern    *regexp.Regexp
	CompileCmd      []string
	RunCmd          []string
	BinaryExtension string
	Env             []string
}

// RecipeSpec is the declarative form of a Recipe, as found in configuration.
type RecipeSpec struct {
	Extension       string
	FilePrefix      string
	EntryPattern    string
	CompileCmd      []string
	RunCmd          []string
	BinaryExtension string
	Environment     map[string]string
}

// NewRecipe validates spec and builds the recipe for language.
func NewRecipe(language string, spec RecipeSpec) (Recipe, error) {
	if len(spec.RunCmd) == 0 {
		return Recipe{}, fmt.Errorf("language %s: run command is required", language)
	}

	r := Recipe{
		Language:        language,
		Extension:       spec.Extension,
		FilePrefix:      spec.FilePrefix,
		CompileCmd:      append([]string(nil), spec.CompileCmd...),
		RunCmd:          append([]string(nil), spec.RunCmd...),
		BinaryExtension: spec.BinaryExtension,
	}
	if r.FilePrefix == "" {
		r.FilePrefix = language + "_code"
	}

	if spec.EntryPattern != "" {
		re, err := regexp.Compile(spec.EntryPattern)
		if err != nil {
			return Recipe{}, fmt.Errorf("language %s: invalid entry pattern: %w", language, err)
		}
		if re.NumSubexp() < 1 {
			return Recipe{}, fmt.Errorf("language %s: entry pattern needs a capture group", language)
		}
		r.EntryPattern = re
	}

	keys := make([]string, 0, len(spec.Environment))
	for key := range spec.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		r.Env = append(r.Env, fmt.Sprintf("%s=%s", key, spec.Environment[key]))
	}

	return r, nil
}

// Compiled reports whether the recipe has a compile step.
func (r Recipe) Compiled() bool {
	return len(r.CompileCmd) > 0
}

// EntryName extracts the mandated entry-type name. Recipes without a
// pattern always succeed with an empty name.
func (r Recipe) EntryName(code string) (string, bool) {
	if r.EntryPattern == nil {
		return "", true
	}
	m := r.EntryPattern.FindStringSubmatch(code)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

func (r Recipe) stageHint(entry string) StageHint {
	return StageHint{
		Prefix:          r.FilePrefix,
		Extension:       r.Extension,
		EntryName:       entry,
		Compiled:        r.Compiled(),
		BinaryExtension: r.BinaryExtension,
	}
}

// ExpandArgs substitutes placeholders argument by argument.
func ExpandArgs(template []string, artifact TempArtifact, entry string) []string {
	replacer := strings.NewReplacer(
		PlaceholderSource, artifact.SourcePath,
		PlaceholderBinary, artifact.BinaryPath,
		PlaceholderDir, artifact.Dir,
		PlaceholderEntry, entry,
	)

	args := make([]string, len(template))
	for i, arg := range template {
		args[i] = replacer.Replace(arg)
	}
	return args
}
