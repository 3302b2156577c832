package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAdapter struct {
	name string
}

func (m mockAdapter) Name() string {
	return m.name
}

func (m mockAdapter) Parse(ctx context.Context, file string, flags []string) (*Node, error) {
	return &Node{Kind: KindTranslationUnit}, nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(mockAdapter{name: "b"})
	r.Register(mockAdapter{name: "a"})

	a, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name())
	assert.Equal(t, []string{"a", "b"}, r.Names())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestFindAllDocumentOrder(t *testing.T) {
	root := &Node{Kind: KindTranslationUnit, Inner: []*Node{
		{Kind: KindFunctionDecl, Name: "f", Inner: []*Node{
			{Kind: KindStringLiteral, Value: `"one"`},
			{Kind: KindCompoundStmt, Inner: []*Node{{Kind: KindStringLiteral, Value: `"two"`}}},
		}},
		{Kind: KindStringLiteral, Value: `"three"`},
	}}

	found := FindAll(root, func(n *Node) bool { return n.Is(KindStringLiteral) })
	require.Len(t, found, 3)
	assert.Equal(t, "one", found[0].StringValue())
	assert.Equal(t, "two", found[1].StringValue())
	assert.Equal(t, "three", found[2].StringValue())

	first := FindFirst(root, func(n *Node) bool { return n.Is(KindCompoundStmt) })
	require.NotNil(t, first)
	assert.Nil(t, FindFirst(root, func(n *Node) bool { return n.Is(KindRecordDecl) }))
	assert.NotNil(t, FindIn(root.Inner, func(n *Node) bool { return n.Name == "f" }))
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindFunctionDecl, ParseKind("FunctionDecl"))
	assert.Equal(t, KindUnknown, ParseKind("IfStmt"))
	assert.Equal(t, "Unknown", KindUnknown.String())
}
