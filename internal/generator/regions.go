package generator

import (
	"fmt"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/marker"
)

// line is either literal code or a running total rendered once all of its
// contributions are known.
type line struct {
	code  string
	total *total
}

// total is a numeric region value such as the constant part of a buffer
// size. It is printed through format after the declaration is complete.
type total struct {
	format string
	n      int
}

func (t *total) add(n int) {
	t.n += n
}

// regions collects the generated lines of one declaration.
type regions struct {
	lines map[marker.Region][]line
}

func newRegions() *regions {
	return &regions{lines: make(map[marker.Region][]line)}
}

// raw appends lines at file scope.
func (r *regions) raw(region marker.Region, code ...string) {
	for _, c := range code {
		r.lines[region] = append(r.lines[region], line{code: c})
	}
}

// body appends lines indented into a function body.
func (r *regions) body(region marker.Region, code ...string) {
	for _, c := range code {
		r.lines[region] = append(r.lines[region], line{code: "\t" + c})
	}
}

// total appends an accumulator line. format takes the final value.
func (r *regions) total(region marker.Region, format string) *total {
	t := &total{format: format}
	r.lines[region] = append(r.lines[region], line{total: t})
	return t
}

func (r *regions) has(region marker.Region) bool {
	return len(r.lines[region]) > 0
}

// render returns the text of every region.
func (r *regions) render() map[marker.Region]string {
	out := make(map[marker.Region]string, len(r.lines))
	for region, lines := range r.lines {
		texts := make([]string, 0, len(lines))
		for _, l := range lines {
			if l.total != nil {
				texts = append(texts, fmt.Sprintf(l.total.format, l.total.n))
				continue
			}
			texts = append(texts, l.code)
		}
		out[region] = strings.Join(texts, "\n")
	}
	return out
}
