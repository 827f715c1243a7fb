package langservice

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// GoService is an illustrative LanguageService for Go source, backed only
// by the standard library's go/parser and go/ast — no external analyzer
// process, no tree-sitter grammar. It shows the capability interface's
// shape; it does not attempt full language-server fidelity.
type GoService struct{}

// NewGoService creates the stub Go language service.
func NewGoService() *GoService { return &GoService{} }

func (s *GoService) Language() string { return "go" }

func (s *GoService) Tools() []ToolInfo {
	return []ToolInfo{
		{Name: "list_declarations", Description: "List top-level function, type, and const/var declarations in a Go source file."},
		{Name: "package_name", Description: "Report a Go source file's package clause."},
	}
}

func (s *GoService) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("langservice: go: missing required argument %q", "path")
	}

	switch tool {
	case "list_declarations":
		return s.listDeclarations(path)
	case "package_name":
		return s.packageName(path)
	default:
		return "", fmt.Errorf("langservice: go: unknown tool %q", tool)
	}
}

func (s *GoService) packageName(path string) (string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("langservice: go: parse %s: %w", path, err)
	}
	return f.Name.Name, nil
}

func (s *GoService) listDeclarations(path string) (string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.AllErrors)
	if err != nil {
		return "", fmt.Errorf("langservice: go: parse %s: %w", path, err)
	}

	var lines []string
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			recv := ""
			if d.Recv != nil && len(d.Recv.List) > 0 {
				recv = fmt.Sprintf("(%s) ", exprString(d.Recv.List[0].Type))
			}
			line := fset.Position(d.Pos()).Line
			lines = append(lines, fmt.Sprintf("%d: func %s%s", line, recv, d.Name.Name))
		case *ast.GenDecl:
			line := fset.Position(d.Pos()).Line
			for _, spec := range d.Specs {
				switch sp := spec.(type) {
				case *ast.TypeSpec:
					lines = append(lines, fmt.Sprintf("%d: type %s", line, sp.Name.Name))
				case *ast.ValueSpec:
					for _, name := range sp.Names {
						lines = append(lines, fmt.Sprintf("%d: %s %s", line, d.Tok, name.Name))
					}
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	default:
		return ""
	}
}
