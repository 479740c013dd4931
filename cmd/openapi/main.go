// Command main dumps the registered OpenAPI document as YAML and optionally
// checks it for backward-incompatible changes against a previous dump.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "snapgram/docs"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

type operation struct {
	Responses map[string]struct{}
}

type parsedSpec struct {
	Paths map[string]map[string]operation
}

func main() {
	out := flag.String("out", "", "write the YAML document here instead of stdout")
	basePath := flag.String("base", "", "previous swagger.yaml to check compatibility against")
	flag.Parse()

	raw, err := currentYAML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render OpenAPI document: %v\n", err)
		os.Exit(1)
	}

	if strings.TrimSpace(*basePath) != "" {
		baseRaw, err := os.ReadFile(*basePath) // #nosec G304: path comes from CLI flags in a dev tool
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read base spec: %v\n", err)
			os.Exit(1)
		}
		issues, err := checkCompat(baseRaw, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to compare specs: %v\n", err)
			os.Exit(1)
		}
		if len(issues) > 0 {
			fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "- %s\n", issue)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "openapi compatibility check passed")
	}

	if *out == "" {
		_, _ = os.Stdout.Write(raw)
		return
	}
	if err := os.WriteFile(*out, raw, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
}

// currentYAML renders the document registered by the docs package.
func currentYAML() ([]byte, error) {
	doc, err := swag.ReadDoc()
	if err != nil {
		return nil, err
	}
	return toYAML([]byte(doc))
}

// toYAML re-encodes a JSON document as YAML. JSON is valid YAML, so the
// decoder reads it directly.
func toYAML(jsonDoc []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(jsonDoc, &node); err != nil {
		return nil, err
	}
	clearStyle(&node)
	return yaml.Marshal(&node)
}

// clearStyle drops the flow style inherited from JSON so the output uses
// block YAML.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func checkCompat(base, revision []byte) ([]string, error) {
	baseSpec, err := parseSpec(base)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	revisionSpec, err := parseSpec(revision)
	if err != nil {
		return nil, fmt.Errorf("revision: %w", err)
	}
	return compare(baseSpec, revisionSpec), nil
}

func parseSpec(raw []byte) (parsedSpec, error) {
	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return parsedSpec{}, err
	}

	pathsRaw, ok := doc["paths"]
	if !ok {
		return parsedSpec{}, errors.New("missing top-level paths field")
	}
	pathsMap, ok := toMap(pathsRaw)
	if !ok {
		return parsedSpec{}, errors.New("paths is not an object")
	}

	spec := parsedSpec{Paths: make(map[string]map[string]operation)}
	for pathKey, pathEntry := range pathsMap {
		pathOps, ok := toMap(pathEntry)
		if !ok {
			continue
		}

		ops := make(map[string]operation)
		for methodKey, methodEntry := range pathOps {
			method := strings.ToLower(strings.TrimSpace(methodKey))
			if _, supported := supportedMethods[method]; !supported {
				continue
			}
			methodMap, ok := toMap(methodEntry)
			if !ok {
				continue
			}

			responses := make(map[string]struct{})
			if responsesMap, ok := toMap(methodMap["responses"]); ok {
				for code := range responsesMap {
					if c := strings.ToLower(strings.TrimSpace(code)); c != "" {
						responses[c] = struct{}{}
					}
				}
			}
			ops[method] = operation{Responses: responses}
		}

		if len(ops) > 0 {
			spec.Paths[pathKey] = ops
		}
	}
	return spec, nil
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func compare(base, revision parsedSpec) []string {
	var issues []string

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}

		for method, baseOp := range baseOps {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf(
						"removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code),
					))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
