package units

import (
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/symbols"
	"github.com/doki-nordic/nrf-rpc-generator/internal/templates"
)

// UnitFunc is one remote operation.
//
// The sender file holds the result structure, the response parser and the
// send function, in this order. The receiver file holds the handler and its
// decoder registration.
type UnitFunc struct {
	Name   string
	ID     string
	Group  string
	Sender symbols.Side

	Decl   *symbols.Func // declaration giving the signature
	Params []*Param

	Event          bool
	InlineResponse bool
	CustomResponse bool
	CustomExecute  bool

	// Callback invocation units call the callback passed in CallbackParam.
	CallbackType  string
	CallbackParam string

	// SendCreated is set when the send function does not exist yet and is
	// generated in place of its FUNC annotation.
	SendCreated bool

	Res      *symbols.Target
	Rsp      *symbols.Target
	Send     *symbols.Target
	Handler  *symbols.Target
	Register *symbols.Target
}

// RspName is the name of the response parser.
func (u *UnitFunc) RspName() string {
	return u.Name + RspFuncPostfix
}

// ResName is the tag of the result structure.
func (u *UnitFunc) ResName() string {
	return u.Name + ResStructPostfix
}

// HandlerName is the name of the receiving function.
func (u *UnitFunc) HandlerName() string {
	if u.CallbackType != "" {
		return u.Name + CbkHandlerPostfix
	}
	return u.Name + HandlerPostfix
}

// Result returns the return value parameter or nil.
func (u *UnitFunc) Result() *Param {
	for _, p := range u.Params {
		if p.IsReturn {
			return p
		}
	}
	return nil
}

// Sent returns parameters travelling with the command.
func (u *UnitFunc) Sent() []*Param {
	out := make([]*Param, 0, len(u.Params))
	for _, p := range u.Params {
		if !p.IsReturn && p.Dir.Sent() {
			out = append(out, p)
		}
	}
	return out
}

// Returned returns values travelling with the response, the return value
// first.
func (u *UnitFunc) Returned() []*Param {
	out := make([]*Param, 0, len(u.Params))
	if r := u.Result(); r != nil {
		out = append(out, r)
	}
	for _, p := range u.Params {
		if !p.IsReturn && p.Dir.Returned() {
			out = append(out, p)
		}
	}
	return out
}

// Surfaced returns the members of the result structure.
func (u *UnitFunc) Surfaced() []*Param {
	out := make([]*Param, 0, len(u.Params))
	if r := u.Result(); r != nil {
		out = append(out, r)
	}
	for _, p := range u.Params {
		if !p.IsReturn && p.Surfaced(u.Params) {
			out = append(out, p)
		}
	}
	return out
}

// CallOrder returns the declared parameters in C declaration order followed
// by added ones, which is how the implementation is called.
func (u *UnitFunc) CallOrder() []*Param {
	out := make([]*Param, 0, len(u.Params))
	for _, p := range u.Params {
		if !p.IsReturn && !p.IsAdded {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Index < out[j-1].Index; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	for _, p := range u.Params {
		if p.IsAdded {
			out = append(out, p)
		}
	}
	return out
}

// annotated reports whether a flag annotation is present.
func annotated(anns []*symbols.Annotation, key string) bool {
	for _, a := range anns {
		if a.Key == key {
			return true
		}
	}
	return false
}

func newUnitFunc(m *Module, name string) (*UnitFunc, error) {
	r := m.Resolver
	u := &UnitFunc{Name: name, Group: m.Group}

	decl := m.function(name)
	if decl == nil {
		return nil, modelErrorf(name, "generation of function '%s' was requested, but the function is undefined", name)
	}
	u.Decl = decl

	var funcAnn *symbols.Annotation
	for _, a := range r.Globals("FUNC") {
		if a.Value == name {
			funcAnn = a
			break
		}
	}
	switch {
	case decl.Exists():
		u.Sender = decl.Side
		u.Send = symbols.BodyTarget(decl)
	case funcAnn != nil:
		u.Sender = funcAnn.Side
		u.Send = symbols.AnnotationTarget(funcAnn)
		u.SendCreated = true
	default:
		return nil, modelErrorf(name, "function '%s' generation location is unknown; use 'SERIALIZE(FUNC(%s))'", name, name)
	}

	anns := make([]*symbols.Annotation, 0)
	if decl.Exists() {
		anns = append(anns, decl.Annotations("")...)
	}
	for _, a := range decl.Annotations("CALLBACK") {
		u.CallbackType = a.Value
	}
	receiver := r.Table(u.Sender.Opposite())
	handler := receiver.Functions[u.HandlerName()]
	if handler.Exists() && handler.Side == u.Sender.Opposite() {
		anns = append(anns, handler.Annotations("")...)
	} else {
		handler = nil
	}

	u.Event = annotated(anns, "EVENT")
	u.InlineResponse = annotated(anns, "INLINE_RESPONSE")
	u.CustomResponse = annotated(anns, "CUSTOM_RESPONSE")
	u.CustomExecute = annotated(anns, "CUSTOM_EXECUTE")
	if u.Event && u.InlineResponse {
		return nil, modelErrorf(name, "inline response is not possible for an event")
	}
	u.ID = m.ID(name, u.Event)

	params, err := u.buildParams(anns)
	if err != nil {
		return nil, err
	}
	u.Params = params
	if u.Event && len(u.Returned()) > 0 {
		return nil, modelErrorf(name, "an event cannot return values; use SERIALIZE(IGNORE_RETURN) or drop the output parameters")
	}
	if err := m.classify(name, u.Params); err != nil {
		return nil, err
	}

	u.bindSender(r)
	u.bindReceiver(r, handler)
	if err := reserve(u.Res, u.Rsp, u.Send, u.Handler, u.Register); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *UnitFunc) buildParams(anns []*symbols.Annotation) ([]*Param, error) {
	params := make([]*Param, 0)
	ret := u.Decl.ReturnType()
	if ret != "void" && !annotated(anns, "IGNORE_RETURN") {
		params = append(params, &Param{
			Param: templates.Param{Name: "_result", Type: ret, Dir: templates.DirOut, IsReturn: true},
			Index: -1,
		})
	}
	for i, p := range u.Decl.Params() {
		if p.Name == "" {
			return nil, modelErrorf(u.Name, "all parameters must be named")
		}
		if u.CallbackType != "" && strings.HasPrefix(p.Name, CallbackParamPrefix) {
			if u.CallbackParam == "" {
				u.CallbackParam = p.Name
			}
			continue
		}
		params = append(params, &Param{
			Param: templates.Param{Name: p.Name, Type: p.Type, Dir: templates.DirIn},
			Index: i,
		})
	}
	if u.CallbackType != "" && u.CallbackParam == "" {
		return nil, modelErrorf(u.Name, "callback invocation needs a parameter named '%s...' holding the callback", CallbackParamPrefix)
	}
	d := &directives{unit: u.Name, params: params, anns: anns}
	return d.apply()
}

// bindSender finds or places the result structure and response parser.
func (u *UnitFunc) bindSender(r *symbols.Resolver) {
	file := r.File(u.Sender)
	table := r.Table(u.Sender)
	if st := table.Structures["struct "+u.ResName()]; st.Exists() && st.Side == u.Sender {
		u.Res = symbols.DeclTarget(st.Node, u.Sender, file)
	}
	if fn := table.Functions[u.RspName()]; fn.Exists() && fn.Side == u.Sender {
		u.Rsp = symbols.DeclTarget(fn.Node, u.Sender, file)
	}
	members := []*symbols.Target{u.Res, u.Rsp, u.Send}
	place(file, u.Sender, members, nil)
	u.Res, u.Rsp = members[0], members[1]
}

// bindReceiver finds or places the handler and its registration.
func (u *UnitFunc) bindReceiver(r *symbols.Resolver, handler *symbols.Func) {
	side := u.Sender.Opposite()
	file := r.File(side)
	if handler != nil {
		u.Handler = symbols.DeclTarget(handler.Node, side, file)
	}
	for _, a := range r.Globals("REGISTER_DECODER") {
		if a.Value == u.HandlerName() && a.Side == side {
			u.Register = symbols.AnnotationTarget(a)
			break
		}
	}
	members := []*symbols.Target{u.Handler, u.Register}
	place(file, side, members, func() *symbols.Target {
		return symbols.PlaceholderEOF(file, side)
	})
	u.Handler, u.Register = members[0], members[1]
}
