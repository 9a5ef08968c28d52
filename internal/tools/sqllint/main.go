// Command sqllint checks that every inline SQL constant starts with a
// "--sql <uuid>" marker line so statements can be correlated in logs.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	markerRe = regexp.MustCompile(`(?i)^--sql\s+[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\s*$`)
	sqlRe    = regexp.MustCompile(`(?is)\b(select|insert|update|delete|with)\b`)
)

type finding struct {
	pos  token.Position
	name string
	msg  string
}

func main() {
	root := flag.String("root", ".", "directory to scan")
	flag.Parse()

	findings, err := lintTree(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sqllint:", err)
		os.Exit(2)
	}
	for _, f := range findings {
		fmt.Printf("%s: %s: %s\n", f.pos, f.name, f.msg)
	}
	if len(findings) > 0 {
		os.Exit(1)
	}
}

func lintTree(root string) ([]finding, error) {
	var findings []finding
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		fs, lintErr := lintFile(path)
		if lintErr != nil {
			return lintErr
		}
		findings = append(findings, fs...)
		return nil
	})
	return findings, err
}

func lintFile(path string) ([]finding, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var findings []finding
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			text, err := strconv.Unquote(lit.Value)
			if err != nil || !sqlRe.MatchString(text) {
				continue
			}
			name := "_"
			if i < len(spec.Names) {
				name = spec.Names[i].Name
			}
			if msg := checkMarker(text); msg != "" {
				findings = append(findings, finding{
					pos:  fset.Position(lit.Pos()),
					name: name,
					msg:  msg,
				})
			}
		}
		return true
	})
	return findings, nil
}

func checkMarker(text string) string {
	first, _, _ := strings.Cut(strings.TrimLeft(text, "\n"), "\n")
	switch {
	case !strings.HasPrefix(first, "--sql"):
		return "missing --sql marker on first line"
	case !markerRe.MatchString(strings.TrimSpace(first)):
		return "marker is not '--sql <uuid>'"
	default:
		return ""
	}
}
