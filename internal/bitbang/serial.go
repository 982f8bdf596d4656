package bitbang

import (
	"fmt"

	"github.com/cesanta/go-serial/serial"
	"github.com/golang/glog"
)

// ServeSerial runs a session over a serial device instead of TCP, for
// debuggers attached through a UART-style transport.
func (s *Server) ServeSerial(port string, baud uint) error {
	glog.Infof("opening %s at %d baud", port, baud)
	sp, err := serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		ParityMode:      serial.PARITY_NONE,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return fmt.Errorf("bitbang: open %s: %w", port, err)
	}
	defer sp.Close()
	return s.Handle(sp)
}
