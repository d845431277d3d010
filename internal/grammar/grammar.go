// Package grammar maps language names and file extensions to tree-sitter
// grammars and wraps parsing behind one small API.
package grammar

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"fskit/internal/errors"
)

// Language identifies a supported source language.
type Language string

const (
	Go         Language = "go"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Python     Language = "python"
	Rust       Language = "rust"
	Java       Language = "java"
	C          Language = "c"
	CPP        Language = "cpp"
)

// All lists the supported languages in a stable order.
var All = []Language{Go, JavaScript, TypeScript, TSX, Python, Rust, Java, C, CPP}

var aliases = map[string]Language{
	"go":         Go,
	"golang":     Go,
	"js":         JavaScript,
	"javascript": JavaScript,
	"jsx":        JavaScript,
	"ts":         TypeScript,
	"typescript": TypeScript,
	"tsx":        TSX,
	"py":         Python,
	"python":     Python,
	"rs":         Rust,
	"rust":       Rust,
	"java":       Java,
	"c":          C,
	"cpp":        CPP,
	"c++":        CPP,
	"cc":         CPP,
	"cxx":        CPP,
}

var extensions = map[string]Language{
	".go":   Go,
	".js":   JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".jsx":  JavaScript,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".py":   Python,
	".pyi":  Python,
	".rs":   Rust,
	".java": Java,
	".c":    C,
	".h":    C,
	".cpp":  CPP,
	".cc":   CPP,
	".cxx":  CPP,
	".hpp":  CPP,
	".hh":   CPP,
	".hxx":  CPP,
}

// FromName resolves a language name or common alias.
func FromName(name string) (Language, error) {
	if lang, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lang, nil
	}
	return "", errors.New(errors.UnsupportedLanguage, "unsupported language: "+name)
}

// FromExtension resolves a file extension (with leading dot) to a language.
func FromExtension(ext string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(ext)]
	return lang, ok
}

// DefaultExtensions returns the file extensions searched for a language
// when the caller supplies no explicit filter.
func DefaultExtensions(lang Language) []string {
	var out []string
	for ext, l := range extensions {
		if l == lang {
			out = append(out, ext)
		}
	}
	return out
}

// DollarIdentifierLegal reports whether $ may appear in identifiers of
// the language's grammar. Where it may not, wildcard slots in pattern
// snippets need substitution before parsing.
func DollarIdentifierLegal(lang Language) bool {
	switch lang {
	case JavaScript, TypeScript, TSX, Java:
		return true
	default:
		return false
	}
}

func sitterLanguage(lang Language) *sitter.Language {
	switch lang {
	case Go:
		return golang.GetLanguage()
	case JavaScript:
		return javascript.GetLanguage()
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	case Python:
		return python.GetLanguage()
	case Rust:
		return rust.GetLanguage()
	case Java:
		return java.GetLanguage()
	case C:
		return c.GetLanguage()
	case CPP:
		return cpp.GetLanguage()
	default:
		return nil
	}
}

// Parse parses source with the grammar for lang. A fresh parser is used
// per call; tree-sitter parsers are not safe for concurrent reuse.
func Parse(ctx context.Context, source []byte, lang Language) (*sitter.Tree, error) {
	sl := sitterLanguage(lang)
	if sl == nil {
		return nil, errors.New(errors.UnsupportedLanguage, "unsupported language: "+string(lang))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sl)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.Wrap(errors.OperationFailed, "parse failed", err)
	}
	return tree, nil
}
