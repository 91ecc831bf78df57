// mcuflash is a command-line tool for flashing firmware to
// microcontrollers over a serial bootloader.
//
// Usage:
//
//	mcuflash <command> [flags] [args]
//
// Commands:
//
//	flash <image.bin>  Write a firmware image to the device
//	erase              Erase the device flash
//	info               Query and print the device identity
//	monitor            Attach the serial monitor and stream device output
//	console            Start the interactive console
//	ports              List available serial ports
//
// Examples:
//
//	mcuflash flash -port /dev/ttyUSB0 firmware.bin
//	mcuflash erase -port /dev/ttyUSB0
//	mcuflash info -sim
//	mcuflash monitor -port /dev/ttyUSB0 -baud 115200
//	mcuflash flash -config mcuflash.yaml -trace session.ftrace firmware.bin
package main

import (
	"fmt"
	"os"
)

const usage = `mcuflash - MCU firmware flashing tool

Usage:
  mcuflash <command> [flags] [args]

Commands:
  flash <image.bin>  Write a firmware image to the device
  erase              Erase the device flash
  info               Query and print the device identity
  monitor            Attach the serial monitor and stream device output
  console            Start the interactive console
  ports              List available serial ports

Run 'mcuflash <command> -h' for command-specific flags.

Examples:
  mcuflash flash -port /dev/ttyUSB0 firmware.bin
  mcuflash erase -sim
  mcuflash monitor -port /dev/ttyUSB0
  mcuflash flash -config mcuflash.yaml -trace session.ftrace firmware.bin
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "flash":
		runFlash(args)
	case "erase":
		runErase(args)
	case "info":
		runInfo(args)
	case "monitor":
		runMonitor(args)
	case "console":
		runConsole(args)
	case "ports":
		runPorts(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}
