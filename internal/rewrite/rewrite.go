// Package rewrite routes the main function of a Go program through
// interpose.Main:
//
//	func main() { ... }
//
// becomes
//
//	func selfprofileMain() { ... }
//
//	func main() { interpose.Main(interpose.Func(selfprofileMain)) }
//
// Remove undoes the change.
package rewrite

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

const (
	// EntryName is the name the original main function is given.
	EntryName = "selfprofileMain"
	// ImportPath of the interpose package.
	ImportPath = "github.com/napolitain/selfprofile/interpose"

	pkgName = "interpose"
)

// Instrument rewrites f in place. It reports whether f changed: files outside
// package main, without a main function or already instrumented are left alone.
func Instrument(fset *token.FileSet, f *ast.File) bool {
	if f.Name.Name != "main" || IsInstrumented(f) {
		return false
	}
	fn := findFunc(f, "main")
	if fn == nil || fn.Body == nil {
		return false
	}

	fn.Name.Name = EntryName
	astutil.AddImport(fset, f, ImportPath)
	f.Decls = append(f.Decls, wrapperDecl())
	return true
}

// Remove reverses Instrument. It reports whether f changed.
func Remove(fset *token.FileSet, f *ast.File) bool {
	if !IsInstrumented(f) {
		return false
	}

	var kept []ast.Decl
	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && isWrapper(fn) {
			continue
		}
		kept = append(kept, decl)
	}
	f.Decls = kept

	findFunc(f, EntryName).Name.Name = "main"
	astutil.DeleteImport(fset, f, ImportPath)

	// AddImport groups a lone import, ungroup it again.
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if ok && gen.Tok == token.IMPORT && len(gen.Specs) == 1 {
			gen.Lparen = token.NoPos
		}
	}
	return true
}

// IsInstrumented reports whether f holds a renamed main function.
func IsInstrumented(f *ast.File) bool {
	return f.Name.Name == "main" && findFunc(f, EntryName) != nil
}

// Source parses src, instruments it (or removes the instrumentation) and
// returns the formatted result and whether anything changed. Unchanged
// sources are returned as is.
func Source(filename string, src []byte, remove bool) ([]byte, bool, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", filename, err)
	}

	var changed bool
	if remove {
		changed = Remove(fset, f)
	} else {
		changed = Instrument(fset, f)
	}
	if !changed {
		return src, false, nil
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return nil, false, fmt.Errorf("format %s: %w", filename, err)
	}
	return buf.Bytes(), true, nil
}

func findFunc(f *ast.File, name string) *ast.FuncDecl {
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Recv == nil && fn.Name.Name == name {
			return fn
		}
	}
	return nil
}

// wrapperDecl builds: func main() { interpose.Main(interpose.Func(selfprofileMain)) }
func wrapperDecl() *ast.FuncDecl {
	call := &ast.CallExpr{
		Fun: &ast.SelectorExpr{X: ast.NewIdent(pkgName), Sel: ast.NewIdent("Main")},
		Args: []ast.Expr{&ast.CallExpr{
			Fun:  &ast.SelectorExpr{X: ast.NewIdent(pkgName), Sel: ast.NewIdent("Func")},
			Args: []ast.Expr{ast.NewIdent(EntryName)},
		}},
	}
	return &ast.FuncDecl{
		Name: ast.NewIdent("main"),
		Type: &ast.FuncType{Params: &ast.FieldList{}},
		Body: &ast.BlockStmt{List: []ast.Stmt{&ast.ExprStmt{X: call}}},
	}
}

func isWrapper(fn *ast.FuncDecl) bool {
	if fn.Recv != nil || fn.Name.Name != "main" || fn.Body == nil || len(fn.Body.List) != 1 {
		return false
	}
	stmt, ok := fn.Body.List[0].(*ast.ExprStmt)
	if !ok {
		return false
	}
	call, ok := stmt.X.(*ast.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && id.Name == pkgName && sel.Sel.Name == "Main"
}
