package ball_est

import (
	"net"

	"ball-estimation/estimate"
)

// UDPSink sends each result over UDP as three CSV datagrams.
type UDPSink struct {
	conn *net.UDPConn
}

// NewUDPSink creates a UDP sender for the given address. An empty address
// yields a sink that discards everything.
func NewUDPSink(addr string) (*UDPSink, error) {
	if addr == "" {
		return &UDPSink{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDPSink{conn: conn}, nil
}

// Close releases the UDP socket.
func (s *UDPSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Publish writes the kf, nv and kf_vel records, one datagram each.
func (s *UDPSink) Publish(res estimate.Result) error {
	if s == nil || s.conn == nil {
		return nil
	}
	for _, line := range formatResult(res) {
		if _, err := s.conn.Write([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}
