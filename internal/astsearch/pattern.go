// Package astsearch implements structural code search over tree-sitter
// syntax trees. A pattern is a source snippet in the target language with
// wildcard slots: $NAME matches any single node, $$NAME matches a run of
// sibling nodes, and a repeated name must bind identical source text.
package astsearch

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"fskit/internal/errors"
	"fskit/internal/grammar"
)

// expando stands in for $ inside pattern snippets for grammars where $ is
// not legal in identifiers. It is substituted before parsing and mapped
// back during wildcard recognition.
const expando = "µ"

var wildcardName = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)?$`)

// Wrapper node types stripped from the top of a parsed pattern so that a
// snippet like `foo($A)` matches call expressions, not whole files.
var wrapperTypes = map[string]struct{}{
	"program":              {},
	"source_file":          {},
	"module":               {},
	"translation_unit":     {},
	"expression_statement": {},
}

// Pattern is a compiled structural search pattern.
type Pattern struct {
	lang   grammar.Language
	source []byte
	tree   *sitter.Tree
	root   *sitter.Node
}

// CompilePattern parses snippet as lang source and prepares it for
// matching. The snippet must contain exactly one top-level construct.
func CompilePattern(ctx context.Context, snippet string, lang grammar.Language) (*Pattern, error) {
	if strings.TrimSpace(snippet) == "" {
		return nil, errors.New(errors.MalformedSource, "empty pattern")
	}

	text := snippet
	if !grammar.DollarIdentifierLegal(lang) {
		text = strings.ReplaceAll(text, "$", expando)
	}

	source := []byte(text)
	tree, err := grammar.Parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}

	root := tree.RootNode()
	if root.HasError() {
		tree.Close()
		return nil, errors.New(errors.MalformedSource, "pattern does not parse as "+string(lang)+" source: "+snippet)
	}
	if root.NamedChildCount() == 0 {
		tree.Close()
		return nil, errors.New(errors.MalformedSource, "pattern contains no code: "+snippet)
	}
	if root.NamedChildCount() > 1 {
		tree.Close()
		return nil, errors.New(errors.MalformedSource, "pattern must be a single expression or declaration: "+snippet)
	}

	node := root.NamedChild(0)
	for {
		if _, ok := wrapperTypes[node.Type()]; !ok || node.NamedChildCount() != 1 {
			break
		}
		node = node.NamedChild(0)
	}

	return &Pattern{lang: lang, source: source, tree: tree, root: node}, nil
}

// Root returns the significant pattern node with wrappers stripped.
func (p *Pattern) Root() *sitter.Node { return p.root }

// Language returns the pattern's language.
func (p *Pattern) Language() grammar.Language { return p.lang }

// Close releases the underlying parse tree.
func (p *Pattern) Close() {
	if p.tree != nil {
		p.tree.Close()
		p.tree = nil
	}
}

// classifyWildcard inspects a pattern token. kind is 0 for a regular
// token, 1 for a single-node wildcard, 2 for a spread.
func classifyWildcard(token string) (name string, kind int) {
	rest := token
	switch {
	case strings.HasPrefix(rest, expando+expando):
		rest, kind = rest[len(expando)*2:], 2
	case strings.HasPrefix(rest, "$$"):
		rest, kind = rest[2:], 2
	case strings.HasPrefix(rest, expando):
		rest, kind = rest[len(expando):], 1
	case strings.HasPrefix(rest, "$"):
		rest, kind = rest[1:], 1
	default:
		return "", 0
	}
	if !wildcardName.MatchString(rest) {
		return "", 0
	}
	return rest, kind
}
