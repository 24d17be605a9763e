package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulesImport = "memestickers/internal/modules/"

// importRule reports why importPath may not be imported from the file at
// path, or "" when the import is allowed.
type importRule func(path, importPath string) string

func TestHexagonalLayerImports(t *testing.T) {
	t.Parallel()
	walkImports(t, filepath.Join("..", "modules"), func(path, importPath string) string {
		module, layer := moduleName(path), detectLayer(path)
		if module == "" || layer == "" {
			return ""
		}
		if violatesLayerRule(module, layer, importPath) {
			return layer + " layer of " + module
		}
		return ""
	})
}

func TestPlatformDoesNotImportModules(t *testing.T) {
	t.Parallel()
	walkImports(t, filepath.Join("..", "platform"), func(_, importPath string) string {
		if strings.Contains(importPath, modulesImport) {
			return "platform packages are shared infrastructure"
		}
		return ""
	})
}

func TestUIOnlySeesDTOs(t *testing.T) {
	t.Parallel()
	walkImports(t, filepath.Join("..", "ui"), func(_, importPath string) string {
		if strings.Contains(importPath, modulesImport) && !isDTO(importPath) {
			return "the console talks to modules through dto types only"
		}
		return ""
	})
}

func walkImports(t *testing.T, root string, rule importRule) {
	t.Helper()
	fset := token.NewFileSet()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if parseErr != nil {
			return parseErr
		}
		slash := filepath.ToSlash(path)
		for _, imp := range node.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			if !strings.HasPrefix(importPath, "memestickers/") {
				continue
			}
			if reason := rule(slash, importPath); reason != "" {
				t.Errorf("forbidden import in %s: %s (%s)", slash, importPath, reason)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
}

func moduleName(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "modules" {
			return parts[i+1]
		}
	}
	return ""
}

func detectLayer(path string) string {
	for _, layer := range []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"} {
		if strings.Contains(path, "/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func isPortIn(path string) bool {
	return strings.Contains(path, "/port/in/") || strings.HasSuffix(path, "/port/in")
}

func isDTO(path string) bool {
	return strings.Contains(path, "/dto/") || strings.HasSuffix(path, "/dto")
}

func violatesLayerRule(module, layer, importPath string) bool {
	if !strings.Contains(importPath, modulesImport) {
		return false
	}
	sameModule := strings.Contains(importPath, modulesImport+module+"/")
	if !sameModule {
		return !isPortIn(importPath) && !isDTO(importPath)
	}

	switch layer {
	case "adapter/in":
		return !isPortIn(importPath) && !isDTO(importPath)
	case "usecase":
		return strings.Contains(importPath, "/adapter/")
	case "service":
		return strings.Contains(importPath, "/adapter/") || strings.Contains(importPath, "/usecase/")
	case "domain", "dto":
		return !strings.Contains(importPath, "/domain")
	case "port/in":
		return !isDTO(importPath) && !strings.Contains(importPath, "/domain")
	default:
		return false
	}
}
