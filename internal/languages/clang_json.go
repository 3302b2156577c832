package languages

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

type clangLoc struct {
	Offset       *int      `json:"offset"`
	File         string    `json:"file"`
	Line         int       `json:"line"`
	Col          int       `json:"col"`
	TokLen       int       `json:"tokLen"`
	SpellingLoc  *clangLoc `json:"spellingLoc"`
	ExpansionLoc *clangLoc `json:"expansionLoc"`
}

type clangNode struct {
	ID    string   `json:"id"`
	Kind  string   `json:"kind"`
	Loc   clangLoc `json:"loc"`
	Range struct {
		Begin clangLoc `json:"begin"`
		End   clangLoc `json:"end"`
	} `json:"range"`
	Name string `json:"name"`
	Type struct {
		QualType string `json:"qualType"`
	} `json:"type"`
	TagUsed            string       `json:"tagUsed"`
	CompleteDefinition bool         `json:"completeDefinition"`
	Value              string       `json:"value"`
	Inner              []*clangNode `json:"inner"`
}

// locState carries the values clang omits when they repeat the previously
// printed location.
type locState struct {
	input   string
	file    string
	line    int
	isInput bool
}

// DecodeClangJSON converts a clang -ast-dump=json document into the node
// model. Only nodes located in inputFile are flagged IsInput.
func DecodeClangJSON(data []byte, inputFile string) (*parser.Node, error) {
	var raw clangNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid clang AST JSON: %w", err)
	}
	st := &locState{input: filepath.Clean(inputFile)}
	return convertClangNode(&raw, st), nil
}

func convertClangNode(raw *clangNode, st *locState) *parser.Node {
	n := &parser.Node{
		ID:                 raw.ID,
		Kind:               parser.ParseKind(raw.Kind),
		RawKind:            raw.Kind,
		Name:               raw.Name,
		Type:               raw.Type.QualType,
		TagUsed:            raw.TagUsed,
		CompleteDefinition: raw.CompleteDefinition,
		Value:              raw.Value,
	}
	n.Loc = st.resolve(&raw.Loc)
	n.Range.Begin = st.resolve(&raw.Range.Begin)
	n.Range.End = st.resolve(&raw.Range.End)
	n.Range.End.Offset += n.Range.End.TokLen
	if raw.Loc.Offset == nil && raw.Loc.ExpansionLoc == nil {
		n.Loc = n.Range.Begin
	}
	for _, child := range raw.Inner {
		n.Inner = append(n.Inner, convertClangNode(child, st))
	}
	return n
}

func (st *locState) resolve(raw *clangLoc) parser.Loc {
	if raw.SpellingLoc != nil || raw.ExpansionLoc != nil {
		var loc parser.Loc
		if raw.SpellingLoc != nil {
			loc = st.resolve(raw.SpellingLoc)
		}
		if raw.ExpansionLoc != nil {
			loc = st.resolve(raw.ExpansionLoc)
		}
		return loc
	}
	if raw.Offset == nil {
		return parser.Loc{}
	}
	if raw.File != "" {
		st.file = raw.File
		st.isInput = filepath.Clean(raw.File) == st.input
	}
	if raw.Line != 0 {
		st.line = raw.Line
	}
	return parser.Loc{
		File:    st.file,
		Line:    st.line,
		Col:     raw.Col,
		Offset:  *raw.Offset,
		TokLen:  raw.TokLen,
		IsInput: st.isInput,
	}
}
