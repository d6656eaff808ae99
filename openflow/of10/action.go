package of10

import (
	"encoding/binary"
	"net"

	"github.com/ofdp/switchd/openflow"
)

// Action is one ofp_action_header-prefixed action TLV. Only the fields
// relevant to the action's Type are meaningful; this mirrors the
// teacher's single-struct-many-optional-fields approach to actions
// (cherryd/openflow/of10/action.go) rather than a Go interface per
// action kind, since the wire format itself is a flat TLV stream.
type Action struct {
	Type      uint16
	OutPort   openflow.OutPort
	MaxLen    uint16 // meaningful when OutPort.IsController()
	Queue     int32  // -1 when absent
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
}

func NewOutputAction(port openflow.OutPort, maxLen uint16) Action {
	return Action{Type: OFPAT_OUTPUT, OutPort: port, MaxLen: maxLen, Queue: -1}
}

func marshalOutPort(p openflow.OutPort) uint16 {
	switch {
	case p.IsTable():
		return OFPP_TABLE
	case p.IsFlood():
		return OFPP_FLOOD
	case p.IsAll():
		return OFPP_ALL
	case p.IsController():
		return OFPP_CONTROLLER
	case p.IsInPort():
		return OFPP_IN_PORT
	case p.IsLocal():
		return OFPP_LOCAL
	case p.IsNormal():
		return OFPP_NORMAL
	case p.IsNone():
		return OFPP_NONE
	default:
		return uint16(p.Value())
	}
}

func unmarshalOutPort(v uint16) openflow.OutPort {
	switch v {
	case OFPP_TABLE:
		return openflow.NewOutPortNumber(openflow.PortTable)
	case OFPP_FLOOD:
		return openflow.NewOutPortNumber(openflow.PortFlood)
	case OFPP_ALL:
		return openflow.NewOutPortNumber(openflow.PortAll)
	case OFPP_CONTROLLER:
		return openflow.NewOutPortNumber(openflow.PortController)
	case OFPP_IN_PORT:
		return openflow.NewOutPortNumber(openflow.PortInPort)
	case OFPP_LOCAL:
		return openflow.NewOutPortNumber(openflow.PortLocal)
	case OFPP_NORMAL:
		return openflow.NewOutPortNumber(openflow.PortNormal)
	case OFPP_NONE:
		return openflow.NewOutPortNumber(openflow.PortNone)
	default:
		return openflow.NewOutPortNumber(uint32(v))
	}
}

func (a Action) marshalOutput() []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint16(v[0:2], OFPAT_OUTPUT)
	binary.BigEndian.PutUint16(v[2:4], 8)
	binary.BigEndian.PutUint16(v[4:6], marshalOutPort(a.OutPort))
	binary.BigEndian.PutUint16(v[6:8], a.MaxLen)
	return v
}

func (a Action) marshalEnqueue() []byte {
	v := make([]byte, 16)
	binary.BigEndian.PutUint16(v[0:2], OFPAT_ENQUEUE)
	binary.BigEndian.PutUint16(v[2:4], 16)
	binary.BigEndian.PutUint16(v[4:6], marshalOutPort(a.OutPort))
	binary.BigEndian.PutUint32(v[12:16], uint32(a.Queue))
	return v
}

func marshalMAC(t uint16, mac net.HardwareAddr) []byte {
	v := make([]byte, 16)
	binary.BigEndian.PutUint16(v[0:2], t)
	binary.BigEndian.PutUint16(v[2:4], 16)
	if len(mac) >= 6 {
		copy(v[4:10], mac[:6])
	}
	return v
}

// MarshalBinary encodes this one action as its ofp_action_header TLV.
func (a Action) MarshalBinary() ([]byte, error) {
	switch a.Type {
	case OFPAT_OUTPUT:
		if a.Queue >= 0 {
			return a.marshalEnqueue(), nil
		}
		return a.marshalOutput(), nil
	case OFPAT_SET_DL_SRC:
		return marshalMAC(OFPAT_SET_DL_SRC, a.SrcMAC), nil
	case OFPAT_SET_DL_DST:
		return marshalMAC(OFPAT_SET_DL_DST, a.DstMAC), nil
	default:
		return nil, openflow.ErrUnsupportedMessage
	}
}

// ActionList marshals/unmarshals the variable-length action array carried
// by FlowMod and PacketOut.
type ActionList []Action

func (l ActionList) MarshalBinary() ([]byte, error) {
	var out []byte
	for _, a := range l {
		v, err := a.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, v...)
	}
	return out, nil
}

func UnmarshalActions(data []byte) (ActionList, error) {
	var actions ActionList
	buf := data
	for len(buf) >= 4 {
		t := binary.BigEndian.Uint16(buf[0:2])
		length := binary.BigEndian.Uint16(buf[2:4])
		if length < 4 || int(length) > len(buf) {
			return nil, openflow.ErrInvalidPacketLength
		}

		switch t {
		case OFPAT_OUTPUT:
			if length < 8 {
				return nil, openflow.ErrInvalidPacketLength
			}
			actions = append(actions, Action{
				Type:    OFPAT_OUTPUT,
				OutPort: unmarshalOutPort(binary.BigEndian.Uint16(buf[4:6])),
				MaxLen:  binary.BigEndian.Uint16(buf[6:8]),
				Queue:   -1,
			})
		case OFPAT_ENQUEUE:
			if length < 16 {
				return nil, openflow.ErrInvalidPacketLength
			}
			actions = append(actions, Action{
				Type:    OFPAT_OUTPUT,
				OutPort: unmarshalOutPort(binary.BigEndian.Uint16(buf[4:6])),
				Queue:   int32(binary.BigEndian.Uint32(buf[12:16])),
			})
		case OFPAT_SET_DL_SRC:
			if length < 16 {
				return nil, openflow.ErrInvalidPacketLength
			}
			actions = append(actions, Action{Type: OFPAT_SET_DL_SRC, SrcMAC: append(net.HardwareAddr{}, buf[4:10]...), Queue: -1})
		case OFPAT_SET_DL_DST:
			if length < 16 {
				return nil, openflow.ErrInvalidPacketLength
			}
			actions = append(actions, Action{Type: OFPAT_SET_DL_DST, DstMAC: append(net.HardwareAddr{}, buf[4:10]...), Queue: -1})
		default:
			// Unknown action kind: skip it rather than failing the whole
			// flow-mod, matching the spec's "ignore what you don't act on"
			// tolerance for forward-compatible controllers.
		}

		buf = buf[length:]
	}
	return actions, nil
}
