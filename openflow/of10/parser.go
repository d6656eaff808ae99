package of10

import "github.com/ofdp/switchd/openflow"

func init() {
	openflow.RegisterParser(openflow.Version, parse)
}

// parse dispatches a raw OpenFlow 1.0 packet to the concrete Incoming
// type for its header's message type byte, mirroring the
// switch-on-packet[1] idiom in the teacher's openflow.ReadMessage.
func parse(packet []byte) (openflow.Incoming, error) {
	if len(packet) < 2 {
		return nil, openflow.ErrInvalidPacketLength
	}

	var msg openflow.Incoming
	switch packet[1] {
	case OFPT_HELLO:
		msg = new(Hello)
	case OFPT_ERROR:
		msg = new(Error)
	case OFPT_ECHO_REQUEST:
		msg = new(EchoRequest)
	case OFPT_ECHO_REPLY:
		msg = new(EchoReply)
	case OFPT_FEATURES_REQUEST:
		msg = new(FeaturesRequest)
	case OFPT_GET_CONFIG_REQUEST:
		msg = new(GetConfigRequest)
	case OFPT_SET_CONFIG:
		msg = new(SetConfig)
	case OFPT_PACKET_OUT:
		msg = new(PacketOut)
	case OFPT_FLOW_MOD:
		msg = new(FlowMod)
	case OFPT_PORT_MOD:
		msg = new(PortMod)
	case OFPT_STATS_REQUEST:
		msg = new(StatsRequest)
	case OFPT_BARRIER_REQUEST:
		msg = new(BarrierRequest)
	default:
		return nil, openflow.ErrUnsupportedMessage
	}

	if err := msg.UnmarshalBinary(packet); err != nil {
		return nil, err
	}
	return msg, nil
}
