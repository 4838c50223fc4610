package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const schemaURL = "pipeline.schema.json"

//go:embed schema/pipeline.schema.json
var schemaSource []byte

var messages = message.NewPrinter(language.English)

var pipelineSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaSource))
	if err != nil {
		return nil, fmt.Errorf("decoding pipeline schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("registering pipeline schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling pipeline schema: %w", err)
	}
	return s, nil
})

// ValidationResult is the outcome of validating a pipeline manifest.
// Pipeline is set whenever the document passed the schema, even if a
// pipeline rule failed afterwards.
type ValidationResult struct {
	Valid    bool
	Issues   []ValidationIssue
	Pipeline *Pipeline
}

// ValidationIssue is one problem in a pipeline manifest.
type ValidationIssue struct {
	Path    string // JSON pointer into the document, e.g. "/jobs/0/package/kind"
	Message string
	Keyword string // failing schema keyword, or the pipeline rule name
}

// Pipeline rule names reported in ValidationIssue.Keyword.
const (
	RulePlatform       = "platform"
	RuleUniquePlatform = "uniquePlatform"
	RulePackageKind    = "packageKind"
	RuleUniqueTool     = "uniqueTool"
	RuleRuntimeTool    = "runtimeTool"
)

// Validate checks data against the pipeline schema and, when the schema
// passes, against the pipeline rules. The error return is for YAML syntax
// and schema loading failures only.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := pipelineSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	inst, err := jsonInstance(doc)
	if err != nil {
		return nil, err
	}

	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("validating pipeline: %w", err)
		}
		return &ValidationResult{Issues: schemaIssues(ve)}, nil
	}

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding pipeline: %w", err)
	}
	issues := p.Lint()
	return &ValidationResult{Valid: len(issues) == 0, Issues: issues, Pipeline: &p}, nil
}

// ValidateFile reads and validates the pipeline manifest at path.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(data)
}

var packageExt = map[string]string{
	PackageAppImage: "AppImage",
	PackageZip:      "zip",
	PackageExe:      "exe",
	PackageDMG:      "dmg",
}

// Lint reports the rules the schema cannot express: each platform is
// supported and declared once, the package kind produces the platform's
// artifact extension, tool names are unique per job, and an AppImage runtime
// names a downloaded tool of the same job.
func (p *Pipeline) Lint() []ValidationIssue {
	var issues []ValidationIssue
	report := func(rule, msg string, path ...string) {
		issues = append(issues, ValidationIssue{Path: pointer(path...), Message: msg, Keyword: rule})
	}

	first := make(map[release.Platform]int)
	for i := range p.Jobs {
		job := &p.Jobs[i]
		at := strconv.Itoa(i)

		platform, err := release.ParsePlatform(job.Platform)
		if err != nil {
			report(RulePlatform, err.Error(), "jobs", at, "platform")
			continue
		}
		if j, dup := first[platform]; dup {
			report(RuleUniquePlatform, fmt.Sprintf("platform %s declared more than once (first at /jobs/%d)", platform, j), "jobs", at, "platform")
		} else {
			first[platform] = i
		}

		if ext := packageExt[job.Package.Kind]; ext != platform.Ext() {
			report(RulePackageKind, fmt.Sprintf("package kind %q produces .%s, %s needs .%s", job.Package.Kind, ext, platform, platform.Ext()), "jobs", at, "package", "kind")
		}

		names := make(map[string]bool, len(job.Tools))
		for k, tool := range job.Tools {
			if names[tool.Name] {
				report(RuleUniqueTool, fmt.Sprintf("tool %q declared more than once", tool.Name), "jobs", at, "tools", strconv.Itoa(k), "name")
			}
			names[tool.Name] = true
		}

		if rt := job.Package.Runtime; rt != "" {
			switch tool, ok := job.Tool(rt); {
			case !ok:
				report(RuleRuntimeTool, fmt.Sprintf("package runtime %q is not a declared tool", rt), "jobs", at, "package", "runtime")
			case tool.Kind != ToolDownload:
				report(RuleRuntimeTool, fmt.Sprintf("package runtime %q is a %s tool, want %s", rt, tool.Kind, ToolDownload), "jobs", at, "package", "runtime")
			}
		}
	}
	return issues
}

// schemaIssues flattens the error tree to its leaves. Combinator keywords
// only wrap the property errors beneath them and are dropped.
func schemaIssues(root *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[ValidationIssue]bool)

	var walk func(ve *jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		for _, cause := range ve.Causes {
			walk(cause)
		}
		if len(ve.Causes) > 0 || ve.ErrorKind == nil {
			return
		}
		kw := ve.ErrorKind.KeywordPath()
		if len(kw) == 0 {
			return
		}
		switch kw[len(kw)-1] {
		case "allOf", "anyOf", "then", "$ref":
			return
		}
		issue := ValidationIssue{
			Path:    pointer(ve.InstanceLocation...),
			Message: ve.ErrorKind.LocalizedString(messages),
			Keyword: kw[len(kw)-1],
		}
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	walk(root)

	if len(issues) == 0 {
		issues = append(issues, ValidationIssue{Message: root.Error()})
	}
	return issues
}

// jsonInstance turns a decoded YAML document into the value shape the
// schema validator accepts: string-keyed maps and json.Number scalars.
func jsonInstance(doc any) (any, error) {
	data, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("converting pipeline to JSON: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func stringKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k] = stringKeys(e)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[fmt.Sprint(k)] = stringKeys(e)
		}
		return m
	case []any:
		for i, e := range v {
			v[i] = stringKeys(e)
		}
		return v
	}
	return v
}

func pointer(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}
