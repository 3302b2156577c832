package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAndParse(t *testing.T) {
	f := NewFormatter(40, 8)
	line := f.Mark(RegionLocals, "\tint x;   ")

	code, r, machine := f.Parse(line)
	assert.True(t, machine)
	assert.Equal(t, RegionLocals, r)
	assert.Equal(t, "\tint x;", code)

	idx := strings.Index(line, "/*##")
	assert.Equal(t, 40, f.width(line[:idx]))

	edited := strings.Replace(line, "int x;", "int y;", 1)
	code, r, machine = f.Parse(edited)
	assert.True(t, machine, "edited generated line stays machine-owned")
	assert.Equal(t, RegionLocals, r)
	assert.Equal(t, "\tint y;", code)
	assert.Equal(t, 0, f.Edited(line))
	assert.Equal(t, 1, f.Edited(line+"\n"+edited+"\n\tint z;"))

	_, _, machine = f.Parse("\tint z;")
	assert.False(t, machine)
}

func TestMarkLongLineUsesSingleSpace(t *testing.T) {
	f := NewFormatter(10, 8)
	line := f.Mark(RegionEncode, "a_really_long_statement();")
	assert.Contains(t, line, "(); /*##")
}

func TestMarkerUsesStripAlphabet(t *testing.T) {
	f := NewFormatter(0, 0)
	for r := Region(0); r < regionCount; r++ {
		line := f.Mark(r, "x = y;")
		tag := line[strings.Index(line, "/*##")+4 : len(line)-2]
		assert.Regexp(t, `^[A-Za-z0-9+/]{7}$`, tag)
		back, ok := RegionFromCode(tag[0])
		require.True(t, ok)
		assert.Equal(t, r, back)
	}
}

func TestExtractGenerateRoundTrip(t *testing.T) {
	f := NewFormatter(0, 0)
	order := []Region{RegionBegin, RegionLocals, RegionEncode, RegionReturn}
	generated := map[Region]string{
		RegionLocals: "\tint a;\n\tint b;",
		RegionEncode: "\tencode(a);\n\n\tencode(b);",
		RegionReturn: "\treturn a;",
	}
	user := UserBlocks{RegionBegin: "\tSERIALIZE();"}

	first := f.Generate(order, generated, user)
	assert.Equal(t, 4, strings.Count(first, "\n\n")+1)

	extracted := f.Extract(first, RegionBegin)
	assert.Equal(t, user, extracted)

	second := f.Generate(order, generated, extracted)
	assert.Equal(t, first, second)
}

func TestExtractKeepsUserTextAfterRegion(t *testing.T) {
	f := NewFormatter(0, 0)
	order := []Region{RegionBegin, RegionDecode, RegionExecute}
	generated := map[Region]string{
		RegionDecode:  "\tdecode(x);",
		RegionExecute: "\tcall(x);",
	}
	text := f.Generate(order, generated, nil)
	text = strings.Replace(text, f.Mark(RegionDecode, "\tdecode(x);")+"\n", f.Mark(RegionDecode, "\tdecode(x);")+"\n\n\t/* user note */\n\tlog(x);\n\n", 1)

	blocks := f.Extract(text, RegionBegin)
	assert.Equal(t, "\t/* user note */\n\tlog(x);", blocks[RegionDecode])
	assert.NotContains(t, blocks, RegionBegin)

	regenerated := f.Generate(order, generated, blocks)
	assert.Contains(t, regenerated, "\tlog(x);\n\n")
	assert.Equal(t, regenerated, f.Generate(order, generated, f.Extract(regenerated, RegionBegin)))
}

func TestGenerateEmpty(t *testing.T) {
	f := NewFormatter(0, 0)
	assert.Equal(t, "", f.Generate([]Region{RegionBegin}, nil, nil))
}

func TestHasMarks(t *testing.T) {
	f := NewFormatter(0, 0)
	assert.False(t, f.HasMarks("static void f(void)\n{\n}\n"))
	assert.True(t, f.HasMarks("x\n"+f.Mark(RegionFooter, "}")+"\n"))
	assert.True(t, f.HasMarks(strings.Replace(f.Mark(RegionFooter, "}"), "}", "};", 1)))
	assert.False(t, f.HasMarks("x = 1; /*##!AAAAAA*/"))
}

func TestEditedGeneratedLineIsReplaced(t *testing.T) {
	f := NewFormatter(0, 0)
	order := []Region{RegionBegin, RegionDecodeDone, RegionExecute}
	generated := map[Region]string{
		RegionDecodeDone: "\tnrf_rpc_cbor_decoding_done(group, ctx);",
		RegionExecute:    "\t_result = foo(a);",
	}
	first := f.Generate(order, generated, nil)
	edited := strings.Replace(first, "foo(a);", "foo(a + 1);", 1)
	require.NotEqual(t, first, edited)

	blocks := f.Extract(edited, RegionBegin)
	assert.Empty(t, blocks)

	second := f.Generate(order, generated, blocks)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, strings.Count(second, "foo("))
}

func TestExtractNormalizesCRLF(t *testing.T) {
	f := NewFormatter(0, 0)
	order := []Region{RegionBegin, RegionDecode}
	generated := map[Region]string{RegionDecode: "\tdecode(x);"}
	text := strings.ReplaceAll(f.Generate(order, generated, UserBlocks{RegionDecode: "\tlog(x);\n\tlog(y);"}), "\n", "\r\n")

	blocks := f.Extract(text, RegionBegin)
	assert.Equal(t, "\tlog(x);\n\tlog(y);", blocks[RegionDecode])
	assert.NotContains(t, f.Generate(order, generated, blocks), "\r")
}
