package hitio

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/banshee-data/trigger.stream/internal/dbscan"
	"github.com/banshee-data/trigger.stream/internal/monitoring"
)

// UDPListener receives hit records over UDP. Each datagram carries one or
// more ASCII "channel time_ticks" lines, the same format as hit files.
// Timestamps are normalized against the first record the listener sees.
//
// The handler is called from the receive goroutine, so a single listener
// feeding a single engine needs no further serialization.
type UDPListener struct {
	conn    *net.UDPConn
	stats   *monitoring.IngestStats
	handler func(dbscan.Point)

	firstTicks uint64
	haveFirst  bool
}

// NewUDPListener binds a UDP socket on addr ("" means all interfaces) and
// port. rcvbuf sizes the kernel receive buffer; pass 0 to keep the system
// default. Received points are handed to handler in arrival order.
func NewUDPListener(addr string, port, rcvbuf int, stats *monitoring.IngestStats, handler func(dbscan.Point)) (*UDPListener, error) {
	udpAddr := &net.UDPAddr{Port: port}
	if addr != "" {
		udpAddr.IP = net.ParseIP(addr)
		if udpAddr.IP == nil {
			return nil, fmt.Errorf("hitio: invalid UDP bind address %q", addr)
		}
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("hitio: listen udp: %w", err)
	}
	if rcvbuf > 0 {
		if err := conn.SetReadBuffer(rcvbuf); err != nil {
			monitoring.Logf("hitio: could not set receive buffer to %d: %v", rcvbuf, err)
		}
	}

	return &UDPListener{conn: conn, stats: stats, handler: handler}, nil
}

// Serve receives datagrams until the listener is closed. It returns nil on
// a clean close.
func (l *UDPListener) Serve() error {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("hitio: udp read: %w", err)
		}
		l.handlePacket(buf[:n])
	}
}

// Close shuts the socket down and unblocks Serve.
func (l *UDPListener) Close() error { return l.conn.Close() }

// Addr returns the bound local address, useful when listening on port 0.
func (l *UDPListener) Addr() net.Addr { return l.conn.LocalAddr() }

func (l *UDPListener) handlePacket(packet []byte) {
	if l.stats != nil {
		l.stats.AddPacket(len(packet))
	}
	for _, line := range bytes.Split(packet, []byte{'\n'}) {
		fields := bytes.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			if l.stats != nil {
				l.stats.AddDropped()
			}
			continue
		}
		channel, err1 := strconv.Atoi(string(fields[0]))
		ticks, err2 := strconv.ParseUint(string(fields[1]), 10, 64)
		if err1 != nil || err2 != nil {
			if l.stats != nil {
				l.stats.AddDropped()
			}
			continue
		}

		if !l.haveFirst {
			l.firstTicks = ticks
			l.haveFirst = true
		}

		if l.stats != nil {
			l.stats.AddHits(1)
		}
		l.handler(dbscan.Point{
			Time: float64(int64(ticks)-int64(l.firstTicks)) / TickScale,
			Chan: channel,
		})
	}
}
