package midi

import (
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-pianoroll/debug"
)

var (
	// ErrPermissionDenied means the MIDI subsystem refused access.
	ErrPermissionDenied = fault.New("midi access denied", fmsg.WithDesc("midi access denied",
		"MIDI access was denied. Check that this user may open MIDI devices."))

	// ErrNoDeviceFound means access worked but no usable input exists.
	ErrNoDeviceFound = fault.New("no midi input", fmsg.WithDesc("no midi input",
		"No MIDI devices found. Please ensure a MIDI device is connected."))
)

// Port is one MIDI input
type Port interface {
	Name() string
	// Listen delivers messages until stop is called. onError is called from
	// the driver when the port fails, typically because it was unplugged.
	Listen(onMsg func(Message), onError func(error)) (stop func(), err error)
	Close() error
}

// Access enumerates MIDI inputs
type Access interface {
	Inputs() ([]Port, error)
}

// RtMIDI is the Access backed by the rtmidi driver.
type RtMIDI struct {
	drv *rtmididrv.Driver
}

// NewRtMIDI opens the driver. Failure is reported as ErrPermissionDenied
// because the platform gives us no finer reason.
func NewRtMIDI() (*RtMIDI, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fault.Wrap(ErrPermissionDenied, fmsg.With(err.Error()))
	}
	return &RtMIDI{drv: drv}, nil
}

func (r *RtMIDI) Inputs() ([]Port, error) {
	ins, err := r.drv.Ins()
	if err != nil {
		return nil, fault.Wrap(ErrPermissionDenied, fmsg.With(err.Error()))
	}
	ports := make([]Port, 0, len(ins))
	for _, in := range ins {
		ports = append(ports, &rtPort{in: in})
	}
	return ports, nil
}

// Close releases the driver
func (r *RtMIDI) Close() error {
	return r.drv.Close()
}

type rtPort struct {
	in drivers.In
}

func (p *rtPort) Name() string { return p.in.String() }

func (p *rtPort) Listen(onMsg func(Message), onError func(error)) (func(), error) {
	if !p.in.IsOpen() {
		if err := p.in.Open(); err != nil {
			return nil, err
		}
	}
	return gomidi.ListenTo(p.in, func(msg gomidi.Message, timestampms int32) {
		onMsg(FromGomidi(msg))
	}, gomidi.HandleError(onError))
}

func (p *rtPort) Close() error { return p.in.Close() }

// Ports lists input and output port names using the registered driver.
// CoreMIDI can hang, so the lookup gives up after timeout.
func Ports(timeout time.Duration) (ins, outs []string, ok bool) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		for _, p := range r.ins {
			ins = append(ins, p.String())
		}
		for _, p := range r.outs {
			outs = append(outs, p.String())
		}
		return ins, outs, true
	case <-time.After(timeout):
		debug.For("midi").Warn("port listing timed out", "timeout", timeout)
		return nil, nil, false
	}
}

// excluded are virtual/system ports that are never auto-connected
var excluded = []string{"Midi Through", "Through Port"}

func isExcluded(name string) bool {
	for _, pat := range excluded {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
