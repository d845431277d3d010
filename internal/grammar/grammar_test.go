package grammar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fskit/internal/errors"
)

func TestFromName(t *testing.T) {
	cases := map[string]Language{
		"go":         Go,
		"golang":     Go,
		"TS":         TypeScript,
		"tsx":        TSX,
		"py":         Python,
		"rs":         Rust,
		"c++":        CPP,
		"javascript": JavaScript,
		" java ":     Java,
	}
	for name, want := range cases {
		got, err := FromName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FromName("cobol")
	assert.True(t, errors.IsCode(err, errors.UnsupportedLanguage))
}

func TestFromExtension(t *testing.T) {
	lang, ok := FromExtension(".go")
	require.True(t, ok)
	assert.Equal(t, Go, lang)

	lang, ok = FromExtension(".TSX")
	require.True(t, ok)
	assert.Equal(t, TSX, lang)

	_, ok = FromExtension(".bin")
	assert.False(t, ok)
}

func TestDefaultExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".go"}, DefaultExtensions(Go))
	assert.ElementsMatch(t, []string{".py", ".pyi"}, DefaultExtensions(Python))
	assert.Contains(t, DefaultExtensions(CPP), ".cpp")
}

func TestDollarIdentifierLegal(t *testing.T) {
	assert.True(t, DollarIdentifierLegal(JavaScript))
	assert.True(t, DollarIdentifierLegal(Java))
	assert.False(t, DollarIdentifierLegal(Go))
	assert.False(t, DollarIdentifierLegal(Python))
	assert.False(t, DollarIdentifierLegal(Rust))
}

func TestParse(t *testing.T) {
	tree, err := Parse(context.Background(), []byte("package main\n\nfunc main() {}\n"), Go)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "source_file", root.Type())
	assert.Greater(t, int(root.NamedChildCount()), 0)
}

func TestParseAllLanguages(t *testing.T) {
	samples := map[Language]string{
		Go:         "package p\nvar x = 1\n",
		JavaScript: "const x = 1;\n",
		TypeScript: "const x: number = 1;\n",
		TSX:        "const x = <div/>;\n",
		Python:     "x = 1\n",
		Rust:       "fn main() {}\n",
		Java:       "class A {}\n",
		C:          "int x = 1;\n",
		CPP:        "int x = 1;\n",
	}
	for _, lang := range All {
		tree, err := Parse(context.Background(), []byte(samples[lang]), lang)
		require.NoError(t, err, lang)
		tree.Close()
	}
}
