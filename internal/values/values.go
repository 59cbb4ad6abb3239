// Package values builds the render context for a package by merging its
// values document with environment override layers and partitioning the
// declared environment variables into plain and secret-backed maps.
package values

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
	"gopkg.in/yaml.v3"

	"github.com/pishro-io/pishro/internal/render"
)

// EnvironmentsKey is the values subtree that declares environment
// variables. It is extracted before the document is used as render context.
const EnvironmentsKey = "environments"

// StackNameKey is injected into every layer's render context and into the
// final merged document.
const StackNameKey = "stack_name"

var (
	// ErrNotMapping indicates a values document whose root is not a mapping.
	ErrNotMapping = errors.New("values document root must be a mapping")

	// ErrOverrideNotFile indicates an override layer path that is missing
	// or not a regular file.
	ErrOverrideNotFile = errors.New("override values file not found or not a regular file")
)

// EnvironmentVariable is one entry of the environments subtree.
type EnvironmentVariable struct {
	// Value is the variable's value, or its source for secret-backed
	// variables.
	Value string `yaml:"value"`

	// Secret marks the variable as secret-backed.
	Secret bool `yaml:"secret,omitempty"`
}

// Result is the outcome of merging a package's values with its overrides.
type Result struct {
	// Values is the merged document with environments removed and
	// stack_name injected.
	Values map[string]any

	// Env holds the plain environment variables declared across layers.
	Env map[string]string

	// Secrets holds the secret-backed environment variables declared
	// across layers.
	Secrets map[string]string
}

// Merger renders and merges layered values documents.
type Merger struct {
	Renderer *render.Renderer
}

// Merge renders the package values file and each override layer, merges
// them cumulatively in ascending file-name order, and partitions the
// declared environment variables. Later layers win on scalar conflicts;
// mappings merge recursively.
func (m *Merger) Merge(ctx context.Context, stackName, valuesFile string, overrideFiles []string) (*Result, error) {
	layers := make([]string, 0, 1+len(overrideFiles))
	layers = append(layers, valuesFile)

	sorted := make([]string, len(overrideFiles))
	copy(sorted, overrideFiles)
	sort.Strings(sorted)
	for _, path := range sorted {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s", ErrOverrideNotFile, path)
		}
		layers = append(layers, path)
	}

	result := &Result{
		Values:  map[string]any{},
		Env:     map[string]string{},
		Secrets: map[string]string{},
	}

	layerCtx := map[string]any{StackNameKey: stackName}
	for _, path := range layers {
		doc, err := m.loadLayer(ctx, path, layerCtx)
		if err != nil {
			return nil, err
		}

		env, secrets, err := ExtractEnvironments(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		result.Values = DeepMerge(result.Values, doc)
		result.Env = mergeStringMaps(result.Env, env)
		result.Secrets = mergeStringMaps(result.Secrets, secrets)
	}

	result.Values[StackNameKey] = stackName
	return result, nil
}

// loadLayer reads one values layer, decrypting sops-encrypted files, and
// renders it as a template before parsing.
func (m *Merger) loadLayer(ctx context.Context, path string, layerCtx map[string]any) (map[string]any, error) {
	var text string
	if isSopsFile(path) {
		plain, err := decrypt.File(path, "yaml")
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", path, err)
		}
		text = string(plain)
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read values file: %w", err)
		}
		text = string(raw)
	}

	rendered, err := m.Renderer.RenderString(ctx, path, text, layerCtx)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(rendered), &node); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		// Empty layers merge as nothing.
		return map[string]any{}, nil
	}
	if node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s", ErrNotMapping, path)
	}

	doc := map[string]any{}
	if err := node.Content[0].Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// ExtractEnvironments pops the environments subtree from the document and
// partitions its entries by the secret flag. The document is modified in
// place.
func ExtractEnvironments(doc map[string]any) (env, secrets map[string]string, err error) {
	env = map[string]string{}
	secrets = map[string]string{}

	raw, ok := doc[EnvironmentsKey]
	if !ok {
		return env, secrets, nil
	}
	delete(doc, EnvironmentsKey)

	tree, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("environments must be a mapping, got %T", raw)
	}

	for name, entry := range tree {
		variable, err := decodeVariable(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("environment variable %q: %w", name, err)
		}
		if variable.Secret {
			secrets[name] = variable.Value
		} else {
			env[name] = variable.Value
		}
	}
	return env, secrets, nil
}

func decodeVariable(entry any) (*EnvironmentVariable, error) {
	switch v := entry.(type) {
	case map[string]any:
		variable := &EnvironmentVariable{}
		if value, ok := v["value"]; ok {
			variable.Value = fmt.Sprintf("%v", value)
		}
		if secret, ok := v["secret"].(bool); ok {
			variable.Secret = secret
		}
		return variable, nil
	case string:
		// Shorthand for a plain variable.
		return &EnvironmentVariable{Value: v}, nil
	default:
		return nil, fmt.Errorf("expected mapping or string, got %T", entry)
	}
}

func isSopsFile(path string) bool {
	return strings.HasSuffix(path, ".sops.yaml") || strings.HasSuffix(path, ".sops.yml")
}
