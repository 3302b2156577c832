package marker

// Region identifies the code region that produced a generated line. The
// numeric values are part of the on-disk marker encoding and must not be
// reordered.
type Region int

const (
	RegionBegin Region = iota
	RegionHeader
	RegionLocals
	RegionPrepare
	RegionAllocate
	RegionEncode
	RegionResInit
	RegionSend
	RegionRspDecode
	RegionReturn
	RegionScratchpad
	RegionDecode
	RegionDecodeDone
	RegionOutPrepare
	RegionExecute
	RegionRspPrepare
	RegionRspAllocate
	RegionRspEncode
	RegionRspSend
	RegionSpFree
	RegionEpilogue
	RegionFooter
	RegionFields
	RegionDecl
	RegionEnd
	regionCount
)

var regionNames = [...]string{
	RegionBegin:       "BEGIN",
	RegionHeader:      "HEADER",
	RegionLocals:      "LOCALS",
	RegionPrepare:     "PREPARE",
	RegionAllocate:    "ALLOCATE",
	RegionEncode:      "ENCODE",
	RegionResInit:     "RES_INIT",
	RegionSend:        "SEND",
	RegionRspDecode:   "RSP_DECODE",
	RegionReturn:      "RETURN",
	RegionScratchpad:  "SCRATCHPAD",
	RegionDecode:      "DECODE",
	RegionDecodeDone:  "DECODE_DONE",
	RegionOutPrepare:  "OUT_PREPARE",
	RegionExecute:     "EXECUTE",
	RegionRspPrepare:  "RSP_PREPARE",
	RegionRspAllocate: "RSP_ALLOCATE",
	RegionRspEncode:   "RSP_ENCODE",
	RegionRspSend:     "RSP_SEND",
	RegionSpFree:      "SP_FREE",
	RegionEpilogue:    "EPILOGUE",
	RegionFooter:      "FOOTER",
	RegionFields:      "FIELDS",
	RegionDecl:        "DECL",
	RegionEnd:         "END",
}

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func (r Region) String() string {
	if r >= 0 && r < regionCount {
		return regionNames[r]
	}
	return "UNKNOWN"
}

// Code returns the single character that encodes the region in a marker.
func (r Region) Code() byte {
	return alphabet[r]
}

// RegionFromCode decodes a marker region character.
func RegionFromCode(code byte) (Region, bool) {
	for i := 0; i < int(regionCount); i++ {
		if alphabet[i] == code {
			return Region(i), true
		}
	}
	return 0, false
}
