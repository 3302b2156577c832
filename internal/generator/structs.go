package generator

import (
	"fmt"

	"github.com/doki-nordic/nrf-rpc-generator/internal/marker"
	"github.com/doki-nordic/nrf-rpc-generator/internal/templates"
	"github.com/doki-nordic/nrf-rpc-generator/internal/units"
)

var (
	constOrder = []marker.Region{marker.RegionBegin, marker.RegionDecl, marker.RegionEnd}
	codecOrder = []marker.Region{
		marker.RegionBegin, marker.RegionHeader, marker.RegionLocals, marker.RegionPrepare,
		marker.RegionScratchpad, marker.RegionEncode, marker.RegionDecode, marker.RegionReturn,
		marker.RegionFooter, marker.RegionEnd,
	}
)

// structUnit writes the five codec declarations on both sides.
func (g *generator) structUnit(u *units.UnitStruct) error {
	for _, s := range u.Sides {
		for _, c := range units.Codecs {
			kind := kindFunc
			order := codecOrder
			if c == units.CodecBufSizeConst {
				kind, order = kindDecl, constOrder
			}
			if err := g.emit(s.Targets[c], kind, order, codec(u, c), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// codec renders one codec declaration of a structure.
func codec(u *units.UnitStruct, c units.Codec) *regions {
	r := newRegions()
	env := templates.StructEnv()
	name := c.Name(u.Prefix)
	header := func(format string) {
		r.raw(marker.RegionHeader, fmt.Sprintf(format, name, u.ConstType()), "{")
		r.raw(marker.RegionFooter, "}")
	}

	switch c {
	case units.CodecBufSizeConst:
		size := r.total(marker.RegionDecl, "static const size_t "+name+" = %d;")
		for _, f := range u.Fields {
			size.add(f.Bundle.BufConst())
		}
	case units.CodecBufSize:
		header("static size_t %s(%s *_data)")
		r.body(marker.RegionLocals, "size_t _buffer_size_max = "+units.CodecBufSizeConst.Name(u.Prefix)+";")
		for _, f := range u.Fields {
			r.body(marker.RegionPrepare, f.Bundle.Prepare(env)...)
		}
		r.body(marker.RegionReturn, "return _buffer_size_max;")
	case units.CodecSpSize:
		header("static size_t %s(%s *_data)")
		r.body(marker.RegionLocals, "size_t _scratchpad_size = 0;")
		for _, f := range u.Fields {
			r.body(marker.RegionScratchpad, f.Bundle.Scratch(env)...)
		}
		r.body(marker.RegionReturn, "return _scratchpad_size;")
	case units.CodecEnc:
		header("static void %s(CborEncoder *_encoder, %s *_data)")
		for _, f := range u.Fields {
			r.body(marker.RegionEncode, f.Bundle.Encode(env)...)
		}
	case units.CodecDec:
		r.raw(marker.RegionHeader, fmt.Sprintf("static void %s(CborValue *_value, struct ser_scratchpad *_scratchpad, %s *_data)", name, u.Type), "{")
		r.raw(marker.RegionFooter, "}")
		for _, f := range u.Fields {
			r.body(marker.RegionDecode, f.Bundle.Decode(env)...)
		}
	}
	return r
}
