package cmd

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRVBridge/internal/bitbang"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/dmi"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/idcode"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/vdtm"
)

var (
	serveListen string
	serveSerial string
	serveBaud   uint
	serveIDCode uint32
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve OpenOCD remote_bitbang against the virtual DTM",
	Long: `Serve OpenOCD's remote_bitbang protocol over TCP or a serial
device. Each debugger session drives a virtual JTAG Debug Transport
Module whose DMI accesses are forwarded to the target over SWD.

Point OpenOCD at the bridge with:
  adapter driver remote_bitbang
  remote_bitbang host localhost
  remote_bitbang port 3335

Examples:
  # Serve the simulator on the default port
  rvbridge serve

  # Bridge real hardware to OpenOCD
  rvbridge serve --pins rpi --listen localhost:3335

  # Serve a debugger attached over a UART
  rvbridge serve --serial /dev/ttyUSB0 --baud 115200`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "localhost:3335",
		"TCP address to listen on")
	serveCmd.Flags().StringVar(&serveSerial, "serial", "",
		"serve over this serial device instead of TCP")
	serveCmd.Flags().UintVar(&serveBaud, "baud", 115200,
		"serial baud rate")
	serveCmd.Flags().Uint32Var(&serveIDCode, "idcode", 0x10e31913,
		"IDCODE reported by the virtual TAP")
}

// bindDTM forwards the virtual DTM's DMI traffic to the SWD client. The DTM
// callbacks cannot report errors, so failures are logged and reads return
// zero, which debuggers treat as an unresponsive DM.
func bindDTM(dtm *vdtm.DTM, client *dmi.Client) {
	dtm.BindDMIWrite(func(addr uint8, data uint32) {
		if err := client.Write(addr, data); err != nil {
			glog.Errorf("dmi write %#02x: %v", addr, err)
		}
	})
	dtm.BindDMIRead(func(addr uint8) uint32 {
		data, err := client.Read(addr)
		if err != nil {
			glog.Errorf("dmi read %#02x: %v", addr, err)
			return 0
		}
		return data
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	pins, err := newPins()
	if err != nil {
		return err
	}
	client := newClient(pins)
	defer client.Close()

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	glog.Infof("virtual TAP IDCODE: %s", idcode.ParseIDCode(serveIDCode))
	dtm := vdtm.New(serveIDCode)
	bindDTM(dtm, client)
	srv := bitbang.NewServer(dtm)

	if serveSerial != "" {
		return srv.ServeSerial(serveSerial, serveBaud)
	}
	return srv.ListenAndServe(serveListen)
}
