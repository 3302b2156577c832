package units

import (
	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
)

// place fills the missing entries of an ordered member list with
// placeholders: before the next existing member, else after the previous
// one, else where fallback says.
func place(file *symbols.File, side symbols.Side, members []*symbols.Target, fallback func() *symbols.Target) {
	for i, t := range members {
		if t != nil {
			continue
		}
		if next := nextExisting(members, i); next != nil {
			members[i] = symbols.PlaceholderBefore(file, side, next.Anchor())
		} else if prev := prevExisting(members, i); prev != nil {
			members[i] = prev.Following()
		} else {
			members[i] = fallback()
		}
	}
}

func nextExisting(members []*symbols.Target, i int) *symbols.Target {
	for _, t := range members[i+1:] {
		if t != nil && !t.IsPlaceholder() {
			return t
		}
	}
	return nil
}

func prevExisting(members []*symbols.Target, i int) *symbols.Target {
	for j := i - 1; j >= 0; j-- {
		if t := members[j]; t != nil && !t.IsPlaceholder() {
			return t
		}
	}
	return nil
}

// firstDefinition returns the first function defined in the file itself.
func firstDefinition(file *symbols.File) *parser.Node {
	for _, n := range file.Root.Inner {
		if n.Is(parser.KindFunctionDecl) && n.Loc.IsInput && n.Child(parser.KindCompoundStmt) != nil {
			return n
		}
	}
	return nil
}

func reserve(targets ...*symbols.Target) error {
	for _, t := range targets {
		if err := t.Reserve(); err != nil {
			return err
		}
	}
	return nil
}
