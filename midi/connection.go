package midi

import (
	"context"
	"sync"
	"time"

	"go-pianoroll/debug"
)

// Connection binds one MIDI input, forwards its messages and notices when
// the device goes away.
type Connection struct {
	access    Access
	preferred string
	pollRate  time.Duration

	mu       sync.Mutex
	port     Port
	stopFn   func()
	cancel   context.CancelFunc
	watching sync.WaitGroup

	messages     chan Message
	onDisconnect func(name string)
}

// NewConnection creates an unconnected Connection. preferred is a
// case-insensitive substring; a matching input wins over the first one.
func NewConnection(access Access, preferred string) *Connection {
	return &Connection{
		access:    access,
		preferred: preferred,
		pollRate:  time.Second,
		messages:  make(chan Message, 64),
	}
}

// Messages returns the channel of incoming messages. It is never closed.
func (c *Connection) Messages() <-chan Message {
	return c.messages
}

// OnDisconnect registers fn, called from the watcher goroutine when the
// bound device disappears.
func (c *Connection) OnDisconnect(fn func(name string)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetPollRate changes how often the watcher rescans ports
func (c *Connection) SetPollRate(d time.Duration) {
	c.mu.Lock()
	c.pollRate = d
	c.mu.Unlock()
}

// Connected returns the bound port name
func (c *Connection) Connected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return "", false
	}
	return c.port.Name(), true
}

// Connect binds the first usable input and starts the watcher. Connecting
// while connected rebinds.
func (c *Connection) Connect(ctx context.Context) (string, error) {
	c.Disconnect()

	ports, err := c.access.Inputs()
	if err != nil {
		return "", err
	}
	port := c.pick(ports)
	if port == nil {
		return "", ErrNoDeviceFound
	}

	name := port.Name()
	stop, err := port.Listen(c.deliver, func(err error) {
		debug.For("midi").Warn("listener error, device likely disconnected", "device", name, "err", err)
		// Never tear down from inside the driver's callback goroutine.
		go c.lost(name)
	})
	if err != nil {
		port.Close()
		return "", err
	}

	wctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.port = port
	c.stopFn = stop
	c.cancel = cancel
	rate := c.pollRate
	c.mu.Unlock()

	c.watching.Add(1)
	go c.watch(wctx, name, rate)

	debug.For("midi").Info("input connected", "device", name)
	return name, nil
}

// Disconnect stops listening and closes the port. Safe to call repeatedly.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	name := c.closeLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.watching.Wait()
	}
	if name != "" {
		debug.For("midi").Info("input disconnected", "device", name)
	}
}

func (c *Connection) closeLocked() string {
	if c.port == nil {
		return ""
	}
	name := c.port.Name()
	if c.stopFn != nil {
		c.stopFn()
		c.stopFn = nil
	}
	c.port.Close()
	c.port = nil
	return name
}

func (c *Connection) pick(ports []Port) Port {
	var usable []Port
	for _, p := range ports {
		if isExcluded(p.Name()) {
			debug.For("midi").Debug("input excluded", "device", p.Name())
			continue
		}
		usable = append(usable, p)
	}
	if c.preferred != "" {
		for _, p := range usable {
			if containsCI(p.Name(), c.preferred) {
				return p
			}
		}
	}
	if len(usable) > 0 {
		return usable[0]
	}
	return nil
}

func (c *Connection) deliver(m Message) {
	select {
	case c.messages <- m:
	default:
		// Drop if channel full
		debug.LogEvery(16, "midi", "input buffer full, dropping %s", m)
	}
}

func (c *Connection) watch(ctx context.Context, name string, rate time.Duration) {
	defer c.watching.Done()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.present(name) {
				debug.For("midi").Warn("device disappeared", "device", name)
				go c.lost(name)
				return
			}
		}
	}
}

func (c *Connection) present(name string) bool {
	ports, err := c.access.Inputs()
	if err != nil {
		return false
	}
	for _, p := range ports {
		if p.Name() == name {
			return true
		}
	}
	return false
}

// lost tears down the connection if it is still bound to name, then fires
// OnDisconnect once.
func (c *Connection) lost(name string) {
	c.mu.Lock()
	if c.port == nil || c.port.Name() != name {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.cancel = nil
	c.closeLocked()
	fn := c.onDisconnect
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.watching.Wait()
	}
	if fn != nil {
		fn(name)
	}
}
