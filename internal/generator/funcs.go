package generator

import (
	"fmt"
	"strings"

	"github.com/doki-nordic/nrf-rpc-generator/internal/ctypes"
	"github.com/doki-nordic/nrf-rpc-generator/internal/marker"
	"github.com/doki-nordic/nrf-rpc-generator/internal/templates"
	"github.com/doki-nordic/nrf-rpc-generator/internal/units"
	"github.com/doki-nordic/nrf-rpc-generator/internal/wire"
)

var (
	sendOrder = []marker.Region{
		marker.RegionBegin, marker.RegionLocals, marker.RegionPrepare, marker.RegionAllocate,
		marker.RegionEncode, marker.RegionResInit, marker.RegionSend, marker.RegionRspDecode,
		marker.RegionReturn, marker.RegionEnd,
	}
	resOrder = []marker.Region{
		marker.RegionBegin, marker.RegionHeader, marker.RegionFields, marker.RegionFooter, marker.RegionEnd,
	}
	rspOrder = []marker.Region{
		marker.RegionBegin, marker.RegionHeader, marker.RegionLocals, marker.RegionRspDecode,
		marker.RegionFooter, marker.RegionEnd,
	}
	handlerOrder = []marker.Region{
		marker.RegionBegin, marker.RegionHeader, marker.RegionLocals, marker.RegionScratchpad,
		marker.RegionDecode, marker.RegionDecodeDone, marker.RegionOutPrepare, marker.RegionExecute,
		marker.RegionRspPrepare, marker.RegionRspAllocate, marker.RegionRspEncode, marker.RegionRspSend,
		marker.RegionSpFree, marker.RegionEpilogue, marker.RegionFooter, marker.RegionEnd,
	}
	registerOrder = []marker.Region{marker.RegionBegin, marker.RegionDecl, marker.RegionEnd}
)

// responseMode is how the result of an operation travels back.
type responseMode int

const (
	responseNone   responseMode = iota // event
	responseSimple                     // built-in parser of nrf_rpc
	responseInline                     // decoded by the send function
	responseStruct                     // generated parser filling a result structure
)

// response picks the response mode and, for the simple one, the parser.
func response(u *units.UnitFunc) (responseMode, string) {
	switch {
	case u.Event:
		return responseNone, ""
	case u.InlineResponse:
		return responseInline, ""
	case u.CustomResponse:
		return responseStruct, ""
	}
	returned := u.Returned()
	if len(returned) == 0 {
		return responseSimple, templates.SimpleVoidResponse
	}
	if len(returned) == 1 && returned[0].IsReturn {
		if parser, ok := returned[0].Bundle.SimpleResponse(); ok {
			return responseSimple, parser
		}
	}
	return responseStruct, ""
}

// simpleSenders maps built-in response parsers to the matching handler
// reply.
var simpleSenders = map[string]string{
	templates.SimpleVoidResponse: "ser_rsp_send_void();",
	"ser_rsp_simple_bool":        "ser_rsp_send_bool(_result);",
	"ser_rsp_simple_i8":          "ser_rsp_send_int(_result);",
	"ser_rsp_simple_i16":         "ser_rsp_send_int(_result);",
	"ser_rsp_simple_i32":         "ser_rsp_send_int(_result);",
	"ser_rsp_simple_u8":          "ser_rsp_send_uint(_result);",
	"ser_rsp_simple_u16":         "ser_rsp_send_uint(_result);",
	"ser_rsp_simple_u32":         "ser_rsp_send_uint(_result);",
	"ser_rsp_simple_i64":         "ser_rsp_send_int64(_result);",
	"ser_rsp_simple_u64":         "ser_rsp_send_uint64(_result);",
}

// needsScratchpad reports whether the receiving side of a command decodes
// into a scratchpad.
func needsScratchpad(u *units.UnitFunc) bool {
	for _, p := range u.Params {
		if !p.IsReturn && p.Bundle.NeedsScratchpad() {
			return true
		}
	}
	return false
}

func (g *generator) funcUnit(u *units.UnitFunc) error {
	mode, parser := response(u)
	g.logger.Debug("function unit", "name", u.Name, "response", mode, "parser", parser)
	if err := g.send(u, mode, parser); err != nil {
		return err
	}
	if err := g.res(u, mode); err != nil {
		return err
	}
	if err := g.rsp(u, mode); err != nil {
		return err
	}
	if err := g.handler(u, mode, parser); err != nil {
		return err
	}
	return g.register(u)
}

func (g *generator) send(u *units.UnitFunc, mode responseMode, parser string) error {
	r := newRegions()
	env := templates.SendEnv()
	scratch := needsScratchpad(u)

	r.body(marker.RegionLocals, "struct nrf_rpc_cbor_ctx _ctx;")
	bufMax := r.total(marker.RegionLocals, "\tsize_t _buffer_size_max = %d;")
	if scratch {
		r.body(marker.RegionLocals, "size_t _scratchpad_size = 0;")
		bufMax.add(wire.IntSize(4, false))
		r.body(marker.RegionEncode, "ser_encode_uint(&_ctx.encoder, _scratchpad_size);")
	}
	if u.CallbackType != "" {
		bufMax.add(wire.IntSize(4, false))
		r.body(marker.RegionEncode, fmt.Sprintf("ser_encode_callback_call(&_ctx.encoder, %s);", u.CallbackParam))
	}
	for _, p := range u.Sent() {
		r.body(marker.RegionLocals, p.Bundle.Locals()...)
	}
	result := u.Result()
	switch {
	case mode == responseStruct:
		r.body(marker.RegionLocals, fmt.Sprintf("struct %s _result;", u.ResName()))
	case result != nil && mode != responseNone:
		r.body(marker.RegionLocals, result.Bundle.HandlerLocals()...)
	}

	for _, p := range u.Params {
		if p.IsReturn {
			continue
		}
		if p.Dir.Sent() {
			bufMax.add(p.Bundle.BufConst())
			r.body(marker.RegionPrepare, p.Bundle.Prepare(env)...)
		}
		r.body(marker.RegionPrepare, p.Bundle.Scratch(env)...)
	}
	r.body(marker.RegionAllocate, "NRF_RPC_CBOR_ALLOC(_ctx, _buffer_size_max);")
	for _, p := range u.Sent() {
		r.body(marker.RegionEncode, p.Bundle.Encode(env)...)
	}

	id := u.ID
	group := "&" + u.Group
	switch mode {
	case responseNone:
		r.body(marker.RegionSend, fmt.Sprintf("nrf_rpc_cbor_evt_no_err(%s,", group), fmt.Sprintf("\t%s, &_ctx);", id))
	case responseInline:
		r.body(marker.RegionSend, fmt.Sprintf("nrf_rpc_cbor_cmd_rsp_no_err(%s, %s, &_ctx);", group, id))
		for _, p := range u.Returned() {
			r.body(marker.RegionRspDecode, p.Bundle.Decode(templates.InlineEnv())...)
		}
		r.body(marker.RegionRspDecode, "nrf_rpc_cbor_decoding_done(&_ctx.value);")
	case responseSimple:
		data := "&_result"
		if result == nil {
			data = "NULL"
		}
		r.body(marker.RegionSend, fmt.Sprintf("nrf_rpc_cbor_cmd_no_err(%s, %s,", group, id), fmt.Sprintf("\t&_ctx, %s, %s);", parser, data))
	case responseStruct:
		for _, p := range u.Surfaced() {
			if assign := p.Bundle.ResAssign(); assign != "" {
				r.body(marker.RegionResInit, assign)
			}
		}
		r.body(marker.RegionSend, fmt.Sprintf("nrf_rpc_cbor_cmd_no_err(%s, %s,", group, id), fmt.Sprintf("\t&_ctx, %s, &_result);", u.RspName()))
	}
	if result != nil && mode != responseNone {
		r.body(marker.RegionReturn, result.Bundle.Return(mode == responseStruct))
	}

	if !u.SendCreated {
		return g.emit(u.Send, kindBody, sendOrder, r, nil)
	}
	user := marker.UserBlocks{marker.RegionBegin: "\tSERIALIZE();"}
	text := signature(u) + "\n{\n" + g.marks.Generate(sendOrder, r.render(), user) + "}\n"
	return u.Send.Write(text)
}

// signature declares a send function that exists only as a FUNC annotation.
func signature(u *units.UnitFunc) string {
	params := make([]string, 0)
	for _, p := range u.Decl.Params() {
		params = append(params, ctypes.Declare(p.Type, p.Name))
	}
	list := "void"
	if len(params) > 0 {
		list = strings.Join(params, ", ")
	}
	return ctypes.Declare(u.Decl.ReturnType(), u.Name+"("+list+")")
}

func (g *generator) res(u *units.UnitFunc, mode responseMode) error {
	if mode != responseStruct {
		return g.clear(u.Res)
	}
	r := newRegions()
	r.raw(marker.RegionHeader, fmt.Sprintf("struct %s {", u.ResName()))
	for _, p := range u.Surfaced() {
		r.body(marker.RegionFields, p.Bundle.ResField())
	}
	r.raw(marker.RegionFooter, "};")
	return g.emit(u.Res, kindDecl, resOrder, r, nil)
}

func (g *generator) rsp(u *units.UnitFunc, mode responseMode) error {
	if mode != responseStruct {
		return g.clear(u.Rsp)
	}
	if u.CustomResponse && !u.Rsp.IsPlaceholder() {
		return u.Rsp.Reserve()
	}
	names := make(map[string]bool)
	for _, p := range u.Surfaced() {
		names[p.Name] = true
	}
	r := newRegions()
	r.raw(marker.RegionHeader, fmt.Sprintf("static void %s(CborValue *_value, void *_handler_data)", u.RspName()), "{")
	r.body(marker.RegionLocals, fmt.Sprintf("struct %s *_res =", u.ResName()), fmt.Sprintf("\t(struct %s *)_handler_data;", u.ResName()))
	for _, p := range u.Returned() {
		r.body(marker.RegionRspDecode, p.Bundle.Decode(templates.ResultEnv(names))...)
	}
	r.raw(marker.RegionFooter, "}")
	return g.emit(u.Rsp, kindFunc, rspOrder, r, nil)
}

func (g *generator) handler(u *units.UnitFunc, mode responseMode, parser string) error {
	r := newRegions()
	env := templates.HandlerEnv()
	scratch := needsScratchpad(u)
	general := mode == responseStruct || mode == responseInline

	r.raw(marker.RegionHeader, fmt.Sprintf("static void %s(CborValue *_value, void *_handler_data)", u.HandlerName()), "{")
	var bufMax *total
	if general {
		r.body(marker.RegionLocals, "struct nrf_rpc_cbor_ctx _ctx;")
		bufMax = r.total(marker.RegionLocals, "\tsize_t _buffer_size_max = %d;")
	}
	if scratch {
		r.body(marker.RegionLocals, "struct ser_scratchpad _scratchpad;")
		r.body(marker.RegionScratchpad, "SER_SCRATCHPAD_DECLARE(&_scratchpad, _value);")
	}
	if u.CallbackType != "" {
		r.body(marker.RegionLocals, fmt.Sprintf("%s %s;", u.CallbackType, u.CallbackParam))
		r.body(marker.RegionDecode, fmt.Sprintf("%s = (%s)ser_decode_callback_call(_value);", u.CallbackParam, u.CallbackType))
	}
	for _, p := range u.Params {
		r.body(marker.RegionLocals, p.Bundle.HandlerLocals()...)
	}
	if general {
		for _, p := range u.Returned() {
			r.body(marker.RegionLocals, p.Bundle.Locals()...)
		}
	}

	for _, p := range u.Sent() {
		r.body(marker.RegionDecode, p.Bundle.Decode(env)...)
	}
	if r.has(marker.RegionDecode) || scratch {
		label := "decoding_error"
		if scratch {
			label = "decoding_error_free"
		}
		r.body(marker.RegionDecodeDone, "if (!ser_decoding_done_and_check(_value)) {", "\tgoto "+label+";", "}")
	} else {
		r.body(marker.RegionDecodeDone, "nrf_rpc_cbor_decoding_done(_value);")
	}

	for _, p := range u.Params {
		r.body(marker.RegionOutPrepare, p.Bundle.OutPrepare(env)...)
	}
	if !u.CustomExecute {
		r.body(marker.RegionExecute, call(u))
	}

	switch {
	case mode == responseSimple:
		r.body(marker.RegionRspSend, simpleSenders[parser])
	case general:
		for _, p := range u.Returned() {
			bufMax.add(p.Bundle.BufConst())
			r.body(marker.RegionRspPrepare, p.Bundle.Prepare(env)...)
			r.body(marker.RegionRspEncode, p.Bundle.Encode(env)...)
		}
		r.body(marker.RegionRspAllocate, "NRF_RPC_CBOR_ALLOC(_ctx, _buffer_size_max);")
		r.body(marker.RegionRspSend, "nrf_rpc_cbor_rsp_no_err(&_ctx);")
	}
	if scratch {
		r.body(marker.RegionSpFree, "SER_SCRATCHPAD_FREE(&_scratchpad);")
	}
	r.raw(marker.RegionFooter, "}")

	return g.emit(u.Handler, kindFunc, handlerOrder, r, func(r *regions, user marker.UserBlocks) {
		epilogue(r, user, u.ID)
	})
}

// call invokes the implementation, or the decoded callback.
func call(u *units.UnitFunc) string {
	args := make([]string, 0, len(u.Params))
	for _, p := range u.CallOrder() {
		args = append(args, p.Bundle.CallArg())
	}
	callee := u.Name
	if u.CallbackType != "" {
		callee = u.CallbackParam
	}
	stmt := fmt.Sprintf("%s(%s);", callee, strings.Join(args, ", "))
	if u.Result() != nil {
		stmt = "_result = " + stmt
	}
	return stmt
}

// epilogue adds the error exits that generated or user code jumps to.
func epilogue(r *regions, user marker.UserBlocks, id string) {
	var text strings.Builder
	for _, l := range r.render() {
		text.WriteString(l)
		text.WriteByte('\n')
	}
	for _, u := range user {
		text.WriteString(u)
		text.WriteByte('\n')
	}
	free := strings.Contains(text.String(), "goto decoding_error_free;")
	plain := strings.Contains(text.String(), "goto decoding_error;")
	if !free && !plain {
		return
	}
	r.body(marker.RegionEpilogue, "return;")
	if free {
		r.raw(marker.RegionEpilogue, "decoding_error_free:")
		r.body(marker.RegionEpilogue, "SER_SCRATCHPAD_FREE(&_scratchpad);")
	}
	if plain {
		r.raw(marker.RegionEpilogue, "decoding_error:")
	}
	r.body(marker.RegionEpilogue, fmt.Sprintf("report_decoding_error(%s, _handler_data);", id))
}

func (g *generator) register(u *units.UnitFunc) error {
	macro := "NRF_RPC_CBOR_CMD_DECODER"
	if u.Event {
		macro = "NRF_RPC_CBOR_EVT_DECODER"
	}
	r := newRegions()
	r.raw(marker.RegionDecl, fmt.Sprintf("%s(%s, %s, %s, %s, NULL);", macro, u.Group, u.Name, u.ID, u.HandlerName()))
	return g.emit(u.Register, kindDecl, registerOrder, r, nil)
}
