// Package render renders package templates against a values context with
// {{ }} substitution, sprig functions, and the secret extensions.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/pishro-io/pishro/internal/fileutil"
)

// Extensions is the capability surface exposed to template authors. These
// are the only functions through which rendering may cause side effects.
type Extensions interface {
	// RandomSecret gets or creates a named secret of length bytes of
	// entropy, hex-encoded.
	RandomSecret(ctx context.Context, name string, length int) (string, error)

	// SecretFromEnv gets or creates a named secret whose value is read
	// from a process environment variable.
	SecretFromEnv(ctx context.Context, name, envVar string) (string, error)

	// SecretFromFile gets or creates a named secret whose value is the
	// trimmed contents of a local file.
	SecretFromFile(ctx context.Context, name, path string) (string, error)

	// RandomToken returns a random hex token without touching the store.
	RandomToken(length int) string
}

// Renderer renders single templates or whole template trees.
type Renderer struct {
	// Extensions backs the secret template functions. Nil disables them,
	// which suits contexts that must stay side-effect free.
	Extensions Extensions

	// Strict makes references to undefined context keys a render error.
	// The default resolves them to an empty string.
	Strict bool
}

// noValue is what text/template prints for missing map keys; the permissive
// mode strips it so undefined references render empty.
const noValue = "<no value>"

// RenderString renders template text against the context.
func (r *Renderer) RenderString(ctx context.Context, name, text string, data map[string]any) (string, error) {
	tmpl := template.New(name).Funcs(sprig.TxtFuncMap()).Funcs(r.funcs(ctx))
	if r.Strict {
		tmpl = tmpl.Option("missingkey=error")
	} else {
		tmpl = tmpl.Option("missingkey=zero")
	}

	tmpl, err := tmpl.Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}

	out := buf.String()
	if !r.Strict {
		out = strings.ReplaceAll(out, noValue, "")
	}
	return out, nil
}

// RenderFile renders a single template file against the context.
func (r *Renderer) RenderFile(ctx context.Context, path string, data map[string]any) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return r.RenderString(ctx, filepath.Base(path), string(content), data)
}

// RenderTree renders every file under src into the matching relative
// location under dst, creating parent directories as needed. Hidden files
// and directories are skipped. Each relative output path is itself rendered
// as a template, so file names can be parameterized by the context.
func (r *Renderer) RenderTree(ctx context.Context, src, dst string, data map[string]any) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != src {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}

		outRel, err := r.RenderString(ctx, "path:"+rel, rel, data)
		if err != nil {
			return err
		}

		content, err := r.RenderFile(ctx, path, data)
		if err != nil {
			return err
		}

		return fileutil.WriteFile(filepath.Join(dst, outRel), []byte(content), 0644)
	})
}

// funcs exposes the secret extensions as template functions. The function
// map is rebuilt per render call so the bound context never leaks between
// renders.
func (r *Renderer) funcs(ctx context.Context) template.FuncMap {
	if r.Extensions == nil {
		return template.FuncMap{}
	}
	return template.FuncMap{
		"random_docker_secret": func(name string, length int) (string, error) {
			return r.Extensions.RandomSecret(ctx, name, length)
		},
		"docker_secret_from_env": func(name, envVar string) (string, error) {
			return r.Extensions.SecretFromEnv(ctx, name, envVar)
		},
		"docker_secret_from_file": func(name, path string) (string, error) {
			return r.Extensions.SecretFromFile(ctx, name, path)
		},
		"random_secret": func(length int) string {
			return r.Extensions.RandomToken(length)
		},
	}
}
