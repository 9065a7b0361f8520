// If you are AI: This file holds the per-file checks used by the checksrc tool.

package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

const (
	maxLines = 300
	aiHeader = "If you are AI:"
)

// checkFile returns the violations found in one Go source file.
func checkFile(path string, data []byte) []string {
	var failures []string
	content := string(data)

	if lines := strings.Count(content, "\n"); lines > maxLines {
		failures = append(failures, fmt.Sprintf("%s: %d lines (max %d)", path, lines, maxLines))
	}

	// Test files only carry the line limit.
	if strings.HasSuffix(path, "_test.go") {
		return failures
	}
	if !strings.Contains(content, aiHeader) {
		failures = append(failures, fmt.Sprintf("%s: missing %q header", path, aiHeader))
	}
	return append(failures, missingDocs(path, content)...)
}

// missingDocs lists functions declared without a doc comment.
func missingDocs(path, content string) []string {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return []string{fmt.Sprintf("%s: parse: %v", path, err)}
	}

	var failures []string
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fn.Doc == nil || len(fn.Doc.List) == 0 {
			pos := fset.Position(fn.Pos())
			failures = append(failures, fmt.Sprintf("%s:%d: function %s missing comment", path, pos.Line, fn.Name.Name))
		}
	}
	return failures
}
