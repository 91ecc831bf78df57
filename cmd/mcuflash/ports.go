package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

func runPorts(args []string) {
	fs := flag.NewFlagSet("ports", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcuflash ports")
		fmt.Fprintln(os.Stderr, "\nLists available serial ports.")
	}
	fs.Parse(args)

	ports, err := transport.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return
	}

	for _, p := range ports {
		fmt.Println(p)
	}
}
