// Package bustest provides a scripted in-memory bus.Transport for tests.
package bustest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Kind is the type of a recorded transaction.
type Kind int

// Transaction kinds.
const (
	KindProbe Kind = iota
	KindRead
	KindWrite
)

// Tx is one recorded transaction.
type Tx struct {
	Kind     Kind
	Addr     byte
	Register byte
	Len      int
	Data     []byte
}

func (t Tx) String() string {
	switch t.Kind {
	case KindProbe:
		return fmt.Sprintf("probe 0x%02x", t.Addr)
	case KindRead:
		return fmt.Sprintf("read 0x%02x[0x%02x]x%d", t.Addr, t.Register, t.Len)
	default:
		return fmt.Sprintf("write 0x%02x %x", t.Addr, t.Data)
	}
}

// Device is the register file of one scripted chip.
type Device struct {
	// Registers holds the byte returned for each register address. Multi-byte reads walk
	// consecutive addresses.
	Registers map[byte]byte
	// Ports are registers backed by a queue, like a FIFO data register: each byte read pops
	// the next queued byte instead of walking addresses.
	Ports map[byte][]byte
	// ReadErrors and WriteErrors fail any transaction touching that register.
	ReadErrors  map[byte]error
	WriteErrors map[byte]error
}

// NewDevice returns a device whose register reg holds id.
func NewDevice(reg, id byte) *Device {
	return &Device{Registers: map[byte]byte{reg: id}}
}

// Set stores vals at consecutive registers starting at reg.
func (d *Device) Set(reg byte, vals ...byte) *Device {
	if d.Registers == nil {
		d.Registers = map[byte]byte{}
	}
	for i, v := range vals {
		d.Registers[reg+byte(i)] = v
	}
	return d
}

// Queue appends vals to the port at reg.
func (d *Device) Queue(reg byte, vals ...byte) *Device {
	if d.Ports == nil {
		d.Ports = map[byte][]byte{}
	}
	d.Ports[reg] = append(d.Ports[reg], vals...)
	return d
}

// Scripted is a bus.Transport over a set of scripted devices.
type Scripted struct {
	mu      sync.Mutex
	devices map[byte]*Device
	log     []Tx
}

// New returns an empty bus.
func New() *Scripted {
	return &Scripted{devices: map[byte]*Device{}}
}

// Attach places dev at addr and returns it.
func (s *Scripted) Attach(addr byte, dev *Device) *Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[addr] = dev
	return dev
}

// Probe reports whether a device is attached at addr.
func (s *Scripted) Probe(_ context.Context, addr byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, Tx{Kind: KindProbe, Addr: addr})
	_, ok := s.devices[addr]
	return ok
}

// ReadRegister copies register contents into buf.
func (s *Scripted) ReadRegister(_ context.Context, addr, register byte, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, Tx{Kind: KindRead, Addr: addr, Register: register, Len: len(buf)})

	dev, ok := s.devices[addr]
	if !ok {
		return errors.Errorf("no device at 0x%02x", addr)
	}
	if err := dev.ReadErrors[register]; err != nil {
		return err
	}
	if queue, ok := dev.Ports[register]; ok {
		for i := range buf {
			if len(queue) == 0 {
				buf[i] = 0
				continue
			}
			buf[i] = queue[0]
			queue = queue[1:]
		}
		dev.Ports[register] = queue
		return nil
	}
	for i := range buf {
		buf[i] = dev.Registers[register+byte(i)]
	}
	return nil
}

// WriteRegister stores data[1:] at consecutive registers starting at data[0]. Writes to a
// port register are appended to the port instead.
func (s *Scripted) WriteRegister(_ context.Context, addr byte, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, Tx{Kind: KindWrite, Addr: addr, Register: data[0], Len: len(data) - 1, Data: append([]byte(nil), data...)})

	dev, ok := s.devices[addr]
	if !ok {
		return errors.Errorf("no device at 0x%02x", addr)
	}
	if err := dev.WriteErrors[data[0]]; err != nil {
		return err
	}
	if queue, ok := dev.Ports[data[0]]; ok {
		dev.Ports[data[0]] = append(queue, data[1:]...)
		return nil
	}
	if dev.Registers == nil {
		dev.Registers = map[byte]byte{}
	}
	for i, v := range data[1:] {
		dev.Registers[data[0]+byte(i)] = v
	}
	return nil
}

// Log returns every transaction so far.
func (s *Scripted) Log() []Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tx(nil), s.log...)
}

// Writes returns the payload of every write, register address first.
func (s *Scripted) Writes() [][]byte {
	var out [][]byte
	for _, tx := range s.Log() {
		if tx.Kind == KindWrite {
			out = append(out, tx.Data)
		}
	}
	return out
}

// Reads returns every register read.
func (s *Scripted) Reads() []Tx {
	var out []Tx
	for _, tx := range s.Log() {
		if tx.Kind == KindRead {
			out = append(out, tx)
		}
	}
	return out
}

// Reset forgets the transaction log.
func (s *Scripted) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}
