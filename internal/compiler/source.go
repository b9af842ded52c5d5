package compiler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ije/esbuild-internal/ast"
	esbuild_config "github.com/ije/esbuild-internal/config"
	"github.com/ije/esbuild-internal/js_ast"
	"github.com/ije/esbuild-internal/js_parser"
	"github.com/ije/esbuild-internal/logger"
)

// Position is a 0-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Diagnostic is a compiler message attached to a file position.
type Diagnostic struct {
	File     string   `json:"file"`
	Position Position `json:"position"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.File != "" {
		sb.WriteString(d.File)
		sb.WriteByte(':')
		sb.WriteString(d.Position.String())
		sb.WriteString(" - ")
	}
	if d.Code != "" {
		sb.WriteString(d.Code)
		sb.WriteString(": ")
	}
	sb.WriteString(d.Message)
	return sb.String()
}

// ParseError is returned when a source file has invalid syntax.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "invalid syntax"
	}
	return e.Diagnostics[0].String()
}

// ImportRecord is a module specifier found in a source file. Range covers
// the string literal including its quotes.
type ImportRecord struct {
	Specifier string
	Start     int
	End       int
	Dynamic   bool
}

// SourceFile is a parsed module.
type SourceFile struct {
	Name     string
	Contents string
	tree     js_ast.AST
}

// ParseSourceFile parses a JavaScript or TypeScript module. TypeScript and
// JSX syntax are enabled by the file extension.
func ParseSourceFile(name string, contents string) (*SourceFile, error) {
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	parserOpts := js_parser.OptionsFromConfig(&esbuild_config.Options{
		JSX: esbuild_config.JSXOptions{
			Parse: endsWith(name, ".jsx", ".tsx"),
		},
		TS: esbuild_config.TSOptions{
			Parse: endsWith(name, ".ts", ".mts", ".cts", ".tsx"),
		},
	})
	tree, pass := js_parser.Parse(log, logger.Source{
		Index:          0,
		KeyPath:        logger.Path{Text: name},
		PrettyPath:     name,
		IdentifierName: "stdin",
		Contents:       contents,
	}, parserOpts)
	if !pass {
		perr := &ParseError{}
		for _, msg := range log.Done() {
			if msg.Kind != logger.Error {
				continue
			}
			d := Diagnostic{File: name, Message: msg.Data.Text}
			if loc := msg.Data.Location; loc != nil {
				d.Position = Position{Line: loc.Line - 1, Character: loc.Column}
			}
			perr.Diagnostics = append(perr.Diagnostics, d)
		}
		return nil, perr
	}
	return &SourceFile{Name: name, Contents: contents, tree: tree}, nil
}

// Imports returns the static, dynamic and require specifiers of the file
// in source order.
func (f *SourceFile) Imports() []ImportRecord {
	records := make([]ImportRecord, 0, len(f.tree.ImportRecords))
	for _, r := range f.tree.ImportRecords {
		if r.Range.Len < 2 {
			continue
		}
		switch r.Kind {
		case ast.ImportStmt, ast.ImportDynamic, ast.ImportRequire:
		default:
			continue
		}
		start := int(r.Range.Loc.Start)
		end := start + int(r.Range.Len)
		if end > len(f.Contents) {
			continue
		}
		records = append(records, ImportRecord{
			Specifier: r.Path.Text,
			Start:     start,
			End:       end,
			Dynamic:   r.Kind == ast.ImportDynamic,
		})
	}
	return records
}

// UsesGlobal reports whether the file references the unbound global name.
func (f *SourceFile) UsesGlobal(name string) bool {
	for _, symbol := range f.tree.Symbols {
		if symbol.Kind == ast.SymbolUnbound && symbol.OriginalName == name {
			return true
		}
	}
	return false
}

// PositionAt converts a byte offset in the file to a Position.
func (f *SourceFile) PositionAt(offset int) Position {
	return positionAt(f.Contents, offset)
}

func positionAt(contents string, offset int) (pos Position) {
	if offset > len(contents) {
		offset = len(contents)
	}
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(contents[i:])
		i += size
		switch {
		case r == '\n':
			pos.Line++
			pos.Character = 0
		case r >= 0x10000:
			pos.Character += 2
		default:
			pos.Character++
		}
	}
	return
}

func endsWith(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
