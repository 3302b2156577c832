// Package marker tags generated source lines with compiler-inert comments so
// a later run can tell machine-owned lines from user text.
//
// A generated line looks like
//
//	code<spaces>/*##RHHHHHH*/
//
// where R is the region code and HHHHHH are six base64 digits of a
// highwayhash of the code. A line without a marker belongs to the user. A
// marked line is always machine-owned and regenerated; the hash only tells
// whether someone edited it since the last run.
package marker

import (
	"regexp"
	"strings"

	"github.com/minio/highwayhash"
)

const (
	DefaultColumn   = 80
	DefaultTabWidth = 8
	hashDigits      = 6
	markerOpen      = "/*##"
	markerClose     = "*/"
)

var hashKey = []byte("nrf-rpc-generator noiseless tags")

var linePattern = regexp.MustCompile(`^(.*?)[ \t]*/\*##([A-Za-z0-9+/])([A-Za-z0-9+/]{6})\*/[ \t\r]*$`)

// Formatter writes and reads marked lines.
type Formatter struct {
	Column   int
	TabWidth int
}

// NewFormatter creates a formatter aligning markers at column.
func NewFormatter(column, tabWidth int) *Formatter {
	if column <= 0 {
		column = DefaultColumn
	}
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	return &Formatter{Column: column, TabWidth: tabWidth}
}

// Mark appends the marker of region r to one line of code.
func (f *Formatter) Mark(r Region, code string) string {
	code = strings.TrimRight(code, " \t")
	pad := f.Column - f.width(code)
	if pad < 1 {
		pad = 1
	}
	return code + strings.Repeat(" ", pad) + markerOpen + string(r.Code()) + digest(r, code) + markerClose
}

// Parse splits a line into code and region. machine is false for user
// lines. A marked line stays machine-owned after its code was edited.
func (f *Formatter) Parse(line string) (code string, r Region, machine bool) {
	code, r, _, machine = f.parse(line)
	return code, r, machine
}

// Edited counts the marked lines of text whose code no longer matches the
// hash in their marker.
func (f *Formatter) Edited(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if _, _, intact, machine := f.parse(line); machine && !intact {
			n++
		}
	}
	return n
}

func (f *Formatter) parse(line string) (code string, r Region, intact, machine bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return line, 0, false, false
	}
	r, ok := RegionFromCode(m[2][0])
	if !ok {
		return line, 0, false, false
	}
	code = strings.TrimRight(m[1], " \t")
	return code, r, digest(r, code) == m[3], true
}

func (f *Formatter) width(code string) int {
	w := 0
	for _, ch := range code {
		if ch == '\t' {
			w += f.TabWidth - w%f.TabWidth
		} else {
			w++
		}
	}
	return w
}

func digest(r Region, code string) string {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		panic("marker: invalid highwayhash key: " + err.Error())
	}
	h.Write([]byte{r.Code()})
	h.Write([]byte(code))
	sum := h.Sum64()
	out := make([]byte, hashDigits)
	for i := range out {
		out[i] = alphabet[(sum>>(58-6*i))&63]
	}
	return string(out)
}
