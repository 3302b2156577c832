package languages

import (
	"context"
	"errors"
	"testing"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clangFixture = `{
  "id": "0x1", "kind": "TranslationUnitDecl", "loc": {}, "range": {"begin": {}, "end": {}},
  "inner": [
    {"id": "0x2", "kind": "TypedefDecl",
     "loc": {"offset": 10, "file": "/inc/header.h", "line": 3, "col": 1, "tokLen": 7},
     "range": {"begin": {"offset": 10, "col": 1, "tokLen": 7}, "end": {"offset": 30, "col": 21, "tokLen": 1}},
     "name": "cb_t", "type": {"qualType": "int (*)(int)"},
     "inner": [{"id": "0x3", "kind": "PointerType", "type": {"qualType": "int (*)(int)"},
       "inner": [{"id": "0x4", "kind": "ParenType", "type": {"qualType": "int (int)"},
         "inner": [{"id": "0x5", "kind": "FunctionProtoType", "type": {"qualType": "int (int)"}}]}]}]},
    {"id": "0x6", "kind": "VarDecl",
     "loc": {"spellingLoc": {"offset": 500, "file": "<scratch space>", "line": 2, "col": 1, "tokLen": 20},
             "expansionLoc": {"offset": 40, "file": "/src/a.c", "line": 4, "col": 1, "tokLen": 9}},
     "range": {"begin": {"spellingLoc": {"offset": 10, "file": "/tmp/rp_ser_gen_intern.h", "line": 1, "col": 1, "tokLen": 6},
                         "expansionLoc": {"offset": 40, "file": "/src/a.c", "line": 4, "col": 1, "tokLen": 9}},
               "end": {"spellingLoc": {"offset": 90, "col": 1, "tokLen": 5},
                       "expansionLoc": {"offset": 60, "file": "/src/a.c", "line": 4, "col": 21, "tokLen": 1}}},
     "name": "_serialize_unique_0_4", "type": {"qualType": "const char *"},
     "inner": [{"id": "0x7", "kind": "StringLiteral", "range": {"begin": {"offset": 90, "col": 1, "tokLen": 5}, "end": {"offset": 90, "col": 1, "tokLen": 5}},
       "value": "\"__SERIALIZE__:GROUP=grp\""}]},
    {"id": "0x8", "kind": "FunctionDecl",
     "loc": {"offset": 70, "line": 6, "col": 5, "tokLen": 3},
     "range": {"begin": {"offset": 66, "col": 1, "tokLen": 3}, "end": {"offset": 95, "line": 9, "col": 1, "tokLen": 1}},
     "name": "foo", "type": {"qualType": "int (int)"},
     "inner": [
       {"id": "0x9", "kind": "ParmVarDecl", "loc": {"offset": 78, "col": 13, "tokLen": 1},
        "range": {"begin": {"offset": 74, "col": 9, "tokLen": 3}, "end": {"offset": 78, "col": 13, "tokLen": 1}},
        "name": "x", "type": {"qualType": "int"}},
       {"id": "0xa", "kind": "CompoundStmt",
        "range": {"begin": {"offset": 81, "line": 7, "col": 1, "tokLen": 1}, "end": {"offset": 95, "line": 9, "col": 1, "tokLen": 1}}},
       {"id": "0xb", "kind": "IfStmt", "range": {"begin": {"offset": 82, "col": 1, "tokLen": 2}, "end": {"offset": 83, "col": 1, "tokLen": 1}}}
     ]}
  ]
}`

func TestDecodeClangJSON(t *testing.T) {
	root, err := DecodeClangJSON([]byte(clangFixture), "/src/a.c")
	require.NoError(t, err)
	require.Len(t, root.Inner, 3)

	typedef := root.Inner[0]
	assert.Equal(t, parser.KindTypedefDecl, typedef.Kind)
	assert.False(t, typedef.Loc.IsInput)
	assert.Equal(t, "/inc/header.h", typedef.Range.End.File)
	assert.Equal(t, 31, typedef.Range.End.Offset)

	v := root.Inner[1]
	assert.True(t, v.Loc.IsInput)
	assert.Equal(t, 40, v.Loc.Offset)
	assert.Equal(t, 4, v.Loc.Line)
	assert.Equal(t, 61, v.Range.End.Offset)
	assert.Equal(t, "GROUP=grp", v.Inner[0].StringValue()[len(AnnotationPrefix):])

	fn := root.Inner[2]
	assert.True(t, fn.Loc.IsInput, "file is inherited from the previous location")
	assert.Equal(t, "/src/a.c", fn.Loc.File)
	assert.Equal(t, 6, fn.Loc.Line)
	body := fn.Child(parser.KindCompoundStmt)
	require.NotNil(t, body)
	assert.Equal(t, 81, body.Range.Begin.Offset)
	assert.Equal(t, 96, body.Range.End.Offset)
	assert.Equal(t, parser.KindUnknown, fn.Inner[2].Kind)
	assert.Equal(t, "IfStmt", fn.Inner[2].RawKind)
}

func TestDecodeClangJSONRejectsGarbage(t *testing.T) {
	_, err := DecodeClangJSON([]byte("not json"), "a.c")
	assert.Error(t, err)
}

func TestClangAdapterMissingBinary(t *testing.T) {
	adapter := NewClangAdapter("/nonexistent/clang-binary", nil)
	_, err := adapter.Parse(context.Background(), "a.c", nil)
	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, "clang", adapterErr.Backend)
}
