package languages

import (
	"context"
	"testing"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `#include <stdint.h>

SERIALIZE(GROUP(grp));

typedef void (*ready_cb_t)(int err);

struct point {
	int32_t x;
	uint8_t tag[4];
};

struct forward;

const char *name_get(void);

int32_t foo(const char *name, struct point *p)
{
	SERIALIZE(STR(name));
	return 0;
}
`

func TestTreeSitterAdapterBuildsNodeModel(t *testing.T) {
	adapter := NewTreeSitterAdapter()
	root, err := adapter.ParseSource(context.Background(), "sample.c", []byte(sampleSource))
	require.NoError(t, err)

	funcs := parser.FindAll(root, func(n *parser.Node) bool { return n.Is(parser.KindFunctionDecl) })
	require.Len(t, funcs, 2)
	assert.Equal(t, "name_get", funcs[0].Name)
	assert.Equal(t, "const char *(void)", funcs[0].Type)
	assert.Nil(t, funcs[0].Child(parser.KindCompoundStmt))

	foo := funcs[1]
	assert.Equal(t, "foo", foo.Name)
	assert.Equal(t, "int32_t (const char *, struct point *)", foo.Type)
	params := foo.Children(parser.KindParmVarDecl)
	require.Len(t, params, 2)
	assert.Equal(t, "name", params[0].Name)
	assert.Equal(t, "const char *", params[0].Type)
	assert.Equal(t, "struct point *", params[1].Type)

	body := foo.Child(parser.KindCompoundStmt)
	require.NotNil(t, body)
	lit := body.Child(parser.KindStringLiteral)
	require.NotNil(t, lit)
	assert.Equal(t, `"__SERIALIZE__:STR=name"`, lit.Value)
	assert.Equal(t, byte('{'), sampleSource[body.Range.Begin.Offset])
	assert.Equal(t, byte('}'), sampleSource[body.Range.End.Offset-1])

	records := root.Children(parser.KindRecordDecl)
	require.Len(t, records, 2)
	assert.Equal(t, "point", records[0].Name)
	assert.True(t, records[0].CompleteDefinition)
	fields := records[0].Children(parser.KindFieldDecl)
	require.Len(t, fields, 2)
	assert.Equal(t, "uint8_t [4]", fields[1].Type)
	assert.False(t, records[1].CompleteDefinition)

	typedef := root.Child(parser.KindTypedefDecl)
	require.NotNil(t, typedef)
	assert.Equal(t, "ready_cb_t", typedef.Name)
	proto := parser.FindFirst(typedef, func(n *parser.Node) bool { return n.Is(parser.KindFunctionProtoType) })
	assert.NotNil(t, proto)

	vars := root.Children(parser.KindVarDecl)
	require.Len(t, vars, 1)
	assert.Equal(t, "_serialize_unique_0_3", vars[0].Name)
	assert.Equal(t, `"__SERIALIZE__:GROUP=grp"`, vars[0].Inner[0].Value)
	assert.True(t, vars[0].Loc.IsInput)
	assert.Equal(t, 3, vars[0].Loc.Line)
}
