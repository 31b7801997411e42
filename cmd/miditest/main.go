package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go-pianoroll/midi"
	"go-pianoroll/theory"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		preferred := ""
		if len(os.Args) > 2 {
			preferred = os.Args[2]
		}
		monitor(preferred)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list             - List all MIDI ports")
	fmt.Println("  monitor [name]   - Connect to an input and print what it sends")
	fmt.Println("  poll             - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, outs, ok := midi.Ports(3 * time.Second)
	if !ok {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	fmt.Println("Inputs:")
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\nOutputs:")
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

// monitor connects the way the sequencer does and prints each message with
// its note name. Unplugging the device ends it.
func monitor(preferred string) {
	access, err := midi.NewRtMIDI()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer access.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	conn := midi.NewConnection(access, preferred)
	conn.OnDisconnect(func(name string) {
		fmt.Printf("\n%s disconnected\n", name)
		cancel()
	})
	name, err := conn.Connect(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer conn.Disconnect()
	fmt.Printf("Listening to %s. Ctrl+C to exit.\n", name)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.Messages():
			line := msg.String()
			if msg.Kind() != midi.KindOther {
				line += "  " + theory.MIDIToNoteName(int(msg.Note))
			}
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), line)
		}
	}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a keyboard to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		inNames, outNames, ok := midi.Ports(3 * time.Second)
		if !ok {
			fmt.Println("port listing timed out")
			time.Sleep(2 * time.Second)
			continue
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
