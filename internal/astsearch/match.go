package astsearch

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Match is one structural match in a candidate source file.
type Match struct {
	// StartLine and StartCol are 1-based.
	StartLine int `json:"startLine"`
	StartCol  int `json:"startCol"`
	EndLine   int `json:"endLine"`
	// Text is the matched source span.
	Text string `json:"text"`
	// Captures maps wildcard names to the source text they bound.
	Captures  map[string]string `json:"captures,omitempty"`
	ByteStart int               `json:"-"`
	ByteEnd   int               `json:"-"`
}

type bindings map[string]string

func (b bindings) clone() bindings {
	out := make(bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// bind records a capture, enforcing that a repeated name binds identical
// source text.
func (b bindings) bind(name, text string) bool {
	if name == "" {
		return true
	}
	if prev, ok := b[name]; ok {
		return prev == text
	}
	b[name] = text
	return true
}

// FindAll returns every node in tree that matches the pattern. Nested
// matches inside a matched node are reported too.
func (p *Pattern) FindAll(tree *sitter.Tree, source []byte) []Match {
	var out []Match
	p.findIn(tree.RootNode(), source, &out)
	return out
}

func (p *Pattern) findIn(node *sitter.Node, source []byte, out *[]Match) {
	b := bindings{}
	if matchNode(p.root, p.source, node, source, b) {
		m := Match{
			StartLine: int(node.StartPoint().Row) + 1,
			StartCol:  int(node.StartPoint().Column) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
			Text:      node.Content(source),
			ByteStart: int(node.StartByte()),
			ByteEnd:   int(node.EndByte()),
		}
		if len(b) > 0 {
			m.Captures = b
		}
		*out = append(*out, m)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.findIn(node.NamedChild(i), source, out)
	}
}

// matchNode structurally compares a pattern node against a candidate node,
// accumulating wildcard bindings.
func matchNode(pat *sitter.Node, psrc []byte, cand *sitter.Node, csrc []byte, b bindings) bool {
	ptext := pat.Content(psrc)
	if name, kind := classifyWildcard(ptext); kind == 1 {
		return b.bind(name, cand.Content(csrc))
	}

	if pat.Type() != cand.Type() {
		return false
	}

	pKids := allChildren(pat)
	if len(pKids) == 0 {
		// Leaf tokens (identifiers, literals, operators) must match
		// textually.
		return ptext == cand.Content(csrc)
	}

	return matchSeq(pKids, allChildren(cand), psrc, csrc, b)
}

// matchSeq aligns a pattern child sequence against a candidate child
// sequence. Spread wildcards consume zero or more candidates with
// backtracking; everything else matches one-to-one, so without a spread
// the child counts must agree exactly.
func matchSeq(pats, cands []*sitter.Node, psrc, csrc []byte, b bindings) bool {
	if len(pats) == 0 {
		return len(cands) == 0
	}

	head := pats[0]
	if name, kind := classifyWildcard(head.Content(psrc)); kind == 2 {
		for take := 0; take <= len(cands); take++ {
			trial := b.clone()
			if !trial.bind(name, spanText(cands[:take], csrc)) {
				continue
			}
			if matchSeq(pats[1:], cands[take:], psrc, csrc, trial) {
				merge(b, trial)
				return true
			}
		}
		return false
	}

	if len(cands) == 0 {
		return false
	}
	trial := b.clone()
	if matchNode(head, psrc, cands[0], csrc, trial) && matchSeq(pats[1:], cands[1:], psrc, csrc, trial) {
		merge(b, trial)
		return true
	}
	return false
}

func merge(dst, src bindings) {
	for k, v := range src {
		dst[k] = v
	}
}

// spanText returns the candidate source covered by a run of siblings.
func spanText(nodes []*sitter.Node, src []byte) string {
	if len(nodes) == 0 {
		return ""
	}
	start := nodes[0].StartByte()
	end := nodes[len(nodes)-1].EndByte()
	return string(src[start:end])
}

// allChildren returns every child, anonymous tokens included. Operators
// and punctuation take part in matching so `$A + $B` never matches
// `x - y`.
func allChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	if count == 0 {
		return nil
	}
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}
