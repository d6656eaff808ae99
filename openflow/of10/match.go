package of10

import (
	"encoding/binary"
	"net"

	"github.com/ofdp/switchd/openflow"
)

// Match is ofp_match: a 40-byte, fixed-layout wildcard match key. Every
// field is present on the wire regardless of whether its wildcard bit is
// set; the wildcard bitmap tells a reader which fields to ignore.
type Match struct {
	Wildcards uint32
	InPort    uint16
	DLSrc     net.HardwareAddr
	DLDst     net.HardwareAddr
	DLVLAN    uint16
	DLVLANPCP uint8
	DLType    uint16
	NWTos     uint8
	NWProto   uint8
	NWSrc     uint32
	NWDst     uint32
	NWSrcBits uint8 // significant prefix length, 0..32; encoded in Wildcards
	NWDstBits uint8
	TPSrc     uint16
	TPDst     uint16
}

const matchLength = 40

func (m *Match) MarshalBinary() ([]byte, error) {
	v := make([]byte, matchLength)

	wildcards := m.Wildcards &^ (OFPFW_NW_SRC_MASK | OFPFW_NW_DST_MASK)
	wildcards |= uint32(32-clampBits(m.NWSrcBits)) << OFPFW_NW_SRC_SHIFT
	wildcards |= uint32(32-clampBits(m.NWDstBits)) << OFPFW_NW_DST_SHIFT

	binary.BigEndian.PutUint32(v[0:4], wildcards)
	binary.BigEndian.PutUint16(v[4:6], m.InPort)
	copyMAC(v[6:12], m.DLSrc)
	copyMAC(v[12:18], m.DLDst)
	binary.BigEndian.PutUint16(v[18:20], m.DLVLAN)
	v[20] = m.DLVLANPCP
	// v[21] padding
	binary.BigEndian.PutUint16(v[22:24], m.DLType)
	v[24] = m.NWTos
	v[25] = m.NWProto
	// v[26:28] padding
	binary.BigEndian.PutUint32(v[28:32], m.NWSrc)
	binary.BigEndian.PutUint32(v[32:36], m.NWDst)
	binary.BigEndian.PutUint16(v[36:38], m.TPSrc)
	binary.BigEndian.PutUint16(v[38:40], m.TPDst)

	return v, nil
}

func (m *Match) UnmarshalBinary(data []byte) error {
	if len(data) < matchLength {
		return openflow.ErrInvalidPacketLength
	}

	m.Wildcards = binary.BigEndian.Uint32(data[0:4])
	m.InPort = binary.BigEndian.Uint16(data[4:6])
	m.DLSrc = append(net.HardwareAddr{}, data[6:12]...)
	m.DLDst = append(net.HardwareAddr{}, data[12:18]...)
	m.DLVLAN = binary.BigEndian.Uint16(data[18:20])
	m.DLVLANPCP = data[20]
	m.DLType = binary.BigEndian.Uint16(data[22:24])
	m.NWTos = data[24]
	m.NWProto = data[25]
	m.NWSrc = binary.BigEndian.Uint32(data[28:32])
	m.NWDst = binary.BigEndian.Uint32(data[32:36])
	m.TPSrc = binary.BigEndian.Uint16(data[36:38])
	m.TPDst = binary.BigEndian.Uint16(data[38:40])

	srcBits := 32 - int((m.Wildcards&OFPFW_NW_SRC_MASK)>>OFPFW_NW_SRC_SHIFT)
	dstBits := 32 - int((m.Wildcards&OFPFW_NW_DST_MASK)>>OFPFW_NW_DST_SHIFT)
	m.NWSrcBits = uint8(clampRange(srcBits))
	m.NWDstBits = uint8(clampRange(dstBits))

	return nil
}

// Matches reports whether this wildcard match key accepts the given
// concrete field values, honoring the wildcard bits of the fields it
// compares. VLAN id, VLAN priority and IP ToS are not compared.
func (m *Match) Matches(inPort uint16, dlSrc, dlDst net.HardwareAddr, dlType uint16, nwProto uint8, nwSrc, nwDst uint32, tpSrc, tpDst uint16) bool {
	w := m.Wildcards
	if w&OFPFW_IN_PORT == 0 && m.InPort != inPort {
		return false
	}
	if w&OFPFW_DL_SRC == 0 && !bytesEqual(m.DLSrc, dlSrc) {
		return false
	}
	if w&OFPFW_DL_DST == 0 && !bytesEqual(m.DLDst, dlDst) {
		return false
	}
	if w&OFPFW_DL_TYPE == 0 && m.DLType != dlType {
		return false
	}
	if w&OFPFW_NW_PROTO == 0 && m.NWProto != nwProto {
		return false
	}
	if !prefixMatch(m.NWSrc, nwSrc, m.NWSrcBits) {
		return false
	}
	if !prefixMatch(m.NWDst, nwDst, m.NWDstBits) {
		return false
	}
	if w&OFPFW_TP_SRC == 0 && m.TPSrc != tpSrc {
		return false
	}
	if w&OFPFW_TP_DST == 0 && m.TPDst != tpDst {
		return false
	}
	return true
}

func prefixMatch(want, have uint32, bits uint8) bool {
	if bits == 0 {
		return true
	}
	shift := 32 - bits
	mask := ^uint32(0) << shift
	return want&mask == have&mask
}

func clampBits(b uint8) uint8 {
	if b > 32 {
		return 32
	}
	return b
}

func clampRange(b int) int {
	if b < 0 {
		return 0
	}
	if b > 32 {
		return 32
	}
	return b
}

func copyMAC(dst []byte, mac net.HardwareAddr) {
	if len(mac) >= 6 {
		copy(dst, mac[:6])
	}
}

func bytesEqual(a, b net.HardwareAddr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
