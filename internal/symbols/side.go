package symbols

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/parser"
)

// Side is the RPC side a declaration belongs to.
type Side int

const (
	SideOther Side = iota
	SideClient
	SideHost
)

func (s Side) String() string {
	switch s {
	case SideClient:
		return "CLIENT"
	case SideHost:
		return "HOST"
	default:
		return "OTHER"
	}
}

// Opposite returns the other cooperating side.
func (s Side) Opposite() Side {
	switch s {
	case SideClient:
		return SideHost
	case SideHost:
		return SideClient
	default:
		return SideOther
	}
}

var (
	ErrSideUnknown   = errors.New("cannot detect which side the input file is; use one of 'SERIALIZE(HOST_FILE(...))' or 'SERIALIZE(CLI_FILE(...))'")
	ErrNoCounterpart = errors.New("counterpart file is unknown; use 'SERIALIZE(HOST_FILE(...))' or 'SERIALIZE(CLI_FILE(...))'")
)

var (
	hostFilePattern = regexp.MustCompile(`SERIALIZE\s*\(\s*HOST_FILE\s*\(.*?\)\s*\)`)
	cliFilePattern  = regexp.MustCompile(`SERIALIZE\s*\(\s*CLI_FILE\s*\(.*?\)\s*\)`)
	unescapePattern = regexp.MustCompile(`\\(["'\\])`)
)

// DetectSide tells the side of a file from its raw text. A file naming its
// host counterpart is the client and the other way around.
func DetectSide(src string) (Side, error) {
	cli := hostFilePattern.MatchString(src)
	host := cliFilePattern.MatchString(src)
	switch {
	case cli && !host:
		return SideClient, nil
	case host && !cli:
		return SideHost, nil
	}
	return SideOther, ErrSideUnknown
}

// CounterpartPath returns the path named by the HOST_FILE or CLI_FILE
// annotation of a parsed file, resolved relative to that file.
func CounterpartPath(file string, root *parser.Node) (string, error) {
	node := parser.FindFirst(root, func(n *parser.Node) bool {
		if !n.Is(parser.KindStringLiteral) {
			return false
		}
		key, _, ok := parseLiteral(n)
		return ok && (key == "HOST_FILE" || key == "CLI_FILE")
	})
	if node == nil {
		return "", ErrNoCounterpart
	}
	_, value, _ := parseLiteral(node)
	value = unescapePattern.ReplaceAllString(value, "$1")
	if value == "" {
		return "", ErrNoCounterpart
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value), nil
	}
	return filepath.Join(filepath.Dir(file), filepath.FromSlash(strings.TrimSpace(value))), nil
}
