package units

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
	"github.com/doki-nordic/nrf-rpc-generator/internal/templates"
)

// Param is a parameter of an operation or a field of a structure.
type Param struct {
	templates.Param

	// Index is the position in the C declaration, -1 for added parameters
	// and the return value.
	Index   int
	IsAdded bool
	IsSize  bool
	Sizes   []string // arrays whose element count this parameter holds
	Bundle  *templates.Bundle
}

// Surfaced reports whether the response parser needs the parameter: it is
// returned, or it sizes a returned array.
func (p *Param) Surfaced(list []*Param) bool {
	if p.Dir.Returned() || p.IsReturn {
		return true
	}
	for _, name := range p.Sizes {
		if a := findParam(list, name); a != nil && a.Dir.Returned() {
			return true
		}
	}
	return false
}

func findParam(list []*Param, name string) *Param {
	for _, p := range list {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// directives applies parameter annotations, one kind at a time.
type directives struct {
	unit   string
	fields bool
	params []*Param
	anns   []*symbols.Annotation
}

func (d *directives) of(key string) []*symbols.Annotation {
	out := make([]*symbols.Annotation, 0)
	for _, a := range d.anns {
		if a.Key == key {
			out = append(out, a)
		}
	}
	return out
}

func (d *directives) find(name, key string) (*Param, error) {
	if p := findParam(d.params, name); p != nil {
		return p, nil
	}
	what := "Parameter"
	if d.fields {
		what = "Field"
	}
	return nil, modelErrorf(d.unit, "%s '%s' not found for SERIALIZE(%s(...))", what, name, key)
}

func (d *directives) args(a *symbols.Annotation, count int) ([]string, error) {
	fields := a.Fields()
	if len(fields) != count {
		return nil, modelErrorf(d.unit, "SERIALIZE(%s(...)) expects %d arguments, got '%s'", a.Key, count, a.Value)
	}
	return fields, nil
}

// apply runs TYPE, OUT/INOUT, DEL, ADD, STR, SIZE*, NULLABLE in that order
// and then moves size parameters in front of the arrays they size.
func (d *directives) apply() ([]*Param, error) {
	steps := []func() error{d.typeOverrides, d.directions, d.deletes, d.adds, d.stringFlags, d.sizes, d.nullables}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	d.promoteSizes()
	d.relocateSizes()
	return d.params, nil
}

func (d *directives) typeOverrides() error {
	for _, a := range d.of("TYPE") {
		args, err := d.args(a, 2)
		if err != nil {
			return err
		}
		p, err := d.find(args[0], a.Key)
		if err != nil {
			return err
		}
		p.Type = args[1]
	}
	return nil
}

func (d *directives) directions() error {
	steps := []struct {
		key string
		dir templates.Dir
	}{{"OUT", templates.DirOut}, {"INOUT", templates.DirInOut}}
	for _, step := range steps {
		key, dir := step.key, step.dir
		for _, a := range d.of(key) {
			if d.fields {
				return modelErrorf(d.unit, "SERIALIZE(%s(%s)) is not allowed for structure fields", key, a.Value)
			}
			p, err := d.find(a.Value, key)
			if err != nil {
				return err
			}
			if p.IsReturn {
				return modelErrorf(d.unit, "direction of the return value cannot be changed")
			}
			p.Dir = dir
		}
	}
	return nil
}

func (d *directives) deletes() error {
	for _, a := range d.of("DEL") {
		p, err := d.find(a.Value, a.Key)
		if err != nil {
			return err
		}
		out := make([]*Param, 0, len(d.params))
		for _, other := range d.params {
			if other != p {
				out = append(out, other)
			}
		}
		d.params = out
	}
	return nil
}

func (d *directives) adds() error {
	for _, a := range d.of("ADD") {
		if d.fields {
			return modelErrorf(d.unit, "SERIALIZE(ADD(...)) is not allowed for structure fields")
		}
		args, err := d.args(a, 3)
		if err != nil {
			return err
		}
		var dir templates.Dir
		switch strings.ToUpper(args[0]) {
		case "IN":
			dir = templates.DirIn
		case "OUT":
			dir = templates.DirOut
		case "INOUT":
			dir = templates.DirInOut
		default:
			return modelErrorf(d.unit, "unknown direction '%s' in SERIALIZE(ADD(...))", args[0])
		}
		if findParam(d.params, args[2]) != nil {
			return modelErrorf(d.unit, "SERIALIZE(ADD(...)) adds '%s' which already exists", args[2])
		}
		d.params = append(d.params, &Param{
			Param:   templates.Param{Name: args[2], Type: args[1], Dir: dir},
			Index:   -1,
			IsAdded: true,
		})
	}
	return nil
}

func (d *directives) stringFlags() error {
	for _, a := range d.of("STR") {
		p, err := d.find(a.Value, a.Key)
		if err != nil {
			return err
		}
		p.IsString = true
	}
	return nil
}

func (d *directives) sizes() error {
	for _, a := range d.anns {
		var array, sizeParam string
		var size templates.Size
		switch a.Key {
		case "SIZE":
			args, err := d.args(a, 2)
			if err != nil {
				return err
			}
			array = args[0]
			size.Expr = args[1]
		case "SIZE_PARAM":
			args, err := d.args(a, 2)
			if err != nil {
				return err
			}
			array, sizeParam = args[0], args[1]
		case "SIZE_PARAM_EX":
			args, err := d.args(a, 3)
			if err != nil {
				return err
			}
			array, sizeParam = args[0], args[2]
			size.Pattern = args[1]
		default:
			continue
		}
		p, err := d.find(array, a.Key)
		if err != nil {
			return err
		}
		if p.Size.IsSet() {
			return modelErrorf(d.unit, "size of '%s' is given more than once", array)
		}

		refs := make([]string, 0)
		if sizeParam != "" {
			s, err := d.find(sizeParam, a.Key)
			if err != nil {
				return err
			}
			size.Param = s.Name
			size.Ptr = ctypes.Parse(s.Type).Ptr > 0
			refs = append(refs, s.Name)
		} else {
			ctypes.RewriteIdents(size.Expr, func(name string) (string, bool) {
				if findParam(d.params, name) != nil {
					refs = append(refs, name)
				}
				return "", false
			})
		}
		p.Size = size
		for _, name := range refs {
			if name == p.Name {
				return modelErrorf(d.unit, "'%s' cannot be its own size", name)
			}
			s := findParam(d.params, name)
			s.IsSize = true
			s.Sizes = append(s.Sizes, p.Name)
		}
	}
	return nil
}

func (d *directives) nullables() error {
	for _, a := range d.of("NULLABLE") {
		p, err := d.find(a.Value, a.Key)
		if err != nil {
			return err
		}
		p.IsNullable = true
	}
	return nil
}

// promoteSizes makes an output size parameter of a returned array carry the
// buffer capacity to the other side too.
func (d *directives) promoteSizes() {
	for _, s := range d.params {
		if !s.IsSize || s.Dir != templates.DirOut || s.IsReturn {
			continue
		}
		for _, name := range s.Sizes {
			if a := findParam(d.params, name); a != nil && a.Dir.Returned() {
				s.Dir = templates.DirInOut
				break
			}
		}
	}
}

// relocateSizes moves every size parameter declared after an array it sizes
// to just before the first such array. Other parameters keep their order.
func (d *directives) relocateSizes() {
	for i := 0; i < len(d.params); i++ {
		s := d.params[i]
		if !s.IsSize {
			continue
		}
		target := -1
		for j := 0; j < i; j++ {
			if containsString(s.Sizes, d.params[j].Name) {
				target = j
				break
			}
		}
		if target < 0 {
			continue
		}
		copy(d.params[target+1:i+1], d.params[target:i])
		d.params[target] = s
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
