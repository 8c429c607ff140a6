package pca9685

import (
	"errors"
	"fmt"
	"time"

	"github.com/antongulenko/pca9685-driver/ft260"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidInput rejects values outside the chip's value ranges before any
// bus transaction is issued.
var ErrInvalidInput = errors.New("invalid input value")

// Time for the chip oscillator to stabilize after clearing the SLEEP bit,
// before the RESTART bit may be written.
const oscillatorStartupDelay = 500 * time.Microsecond

// Device drives one PCA9685 chip through an I2C bus transport. All methods
// are synchronous and issue their bus transactions immediately - no register
// state is cached, except for the auto-increment mode bit.
//
// A Device must not be used from multiple goroutines without external
// locking: multi-step operations (read-modify-write, bulk transfers) are
// separate bus transactions and are not atomic.
type Device struct {
	bus  ft260.I2cBus
	addr byte

	// Tracks whether MODE1_AI is known to be set, to avoid re-enabling it
	// before every bulk transfer. Reset when a bulk transaction fails.
	autoIncrement bool
}

func NewDevice(bus ft260.I2cBus, addr byte) *Device {
	return &Device{
		bus:  bus,
		addr: addr,
	}
}

// Init puts the chip into the configuration used throughout this package:
// responding to the ALLCALL address and auto-incrementing register addresses.
func (d *Device) Init() error {
	log.Printf("Initializing PCA9685 at %#02x...", d.addr)
	if err := d.WriteRegister(MODE1, MODE1_ALLCALL|MODE1_AI); err != nil {
		return err
	}
	d.autoIncrement = true
	return nil
}

func (d *Device) Address() byte {
	return d.addr
}

func (d *Device) WriteRegister(register byte, value byte) error {
	return d.bus.I2cWrite(d.addr, register, value)
}

func (d *Device) ReadRegister(register byte) (byte, error) {
	v, err := d.bus.I2cGet(d.addr, register, 1)
	if err == nil && len(v) != 1 {
		err = fmt.Errorf("PCA9685 register read returned %v byte (need 1)", len(v))
	}
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadDoubleRegister reads a 16-bit value from two adjacent registers
// (low byte first). The value is returned raw, including the flag bit.
func (d *Device) ReadDoubleRegister(register byte) (uint16, error) {
	v, err := d.bus.I2cGet(d.addr, register, 2)
	if err == nil && len(v) != 2 {
		err = fmt.Errorf("PCA9685 double register read returned %v byte (need 2)", len(v))
	}
	if err != nil {
		return 0, err
	}
	return uint16(v[0]) | uint16(v[1])<<8, nil
}

// WriteDoubleRegister writes a 16-bit value to two adjacent registers as one
// bus transaction (low byte first).
func (d *Device) WriteDoubleRegister(register byte, value uint16) error {
	return d.bus.I2cWrite(d.addr, register, byte(value), byte(value>>8))
}

// ReadTwoDoubleRegisters reads two adjacent 16-bit values (4 byte) in one bus
// transaction.
func (d *Device) ReadTwoDoubleRegisters(register byte) (uint16, uint16, error) {
	v, err := d.bus.I2cGet(d.addr, register, 4)
	if err == nil && len(v) != 4 {
		err = fmt.Errorf("PCA9685 double register pair read returned %v byte (need 4)", len(v))
	}
	if err != nil {
		return 0, 0, err
	}
	return uint16(v[0]) | uint16(v[1])<<8, uint16(v[2]) | uint16(v[3])<<8, nil
}

// WriteTwoDoubleRegisters writes two adjacent 16-bit values (4 byte) in one
// bus transaction.
func (d *Device) WriteTwoDoubleRegisters(register byte, value1, value2 uint16) error {
	return d.bus.I2cWrite(d.addr, register,
		byte(value1), byte(value1>>8), byte(value2), byte(value2>>8))
}

// EnableAutoIncrement sets the MODE1_AI bit, if it is not known to be set
// already. Required before any bulk transfer.
func (d *Device) EnableAutoIncrement() error {
	if d.autoIncrement {
		return nil
	}
	mode, err := d.ReadRegister(MODE1)
	if err != nil {
		return err
	}
	if mode&MODE1_AI == 0 {
		if err := d.WriteRegister(MODE1, mode|MODE1_AI); err != nil {
			return err
		}
	}
	d.autoIncrement = true
	return nil
}

// Sleep sets or clears the SLEEP bit, turning the chip oscillator off or on.
// All PWM outputs stop while sleeping.
//
// RESTART reads as 1 when a restart is pending, but writing 1 to it is an
// action that consumes the pending state, so it is always masked out of the
// MODE1 write-back here.
func (d *Device) Sleep(sleep bool) error {
	mode, err := d.ReadRegister(MODE1)
	if err != nil {
		return err
	}
	mode &^= MODE1_RESTART
	if sleep {
		mode |= MODE1_SLEEP
	} else {
		mode &^= MODE1_SLEEP
	}
	return d.WriteRegister(MODE1, mode)
}

// Restart wakes the chip up from sleep mode and restarts the PWM channels
// that were active before sleeping.
func (d *Device) Restart() error {
	mode, err := d.ReadRegister(MODE1)
	if err != nil {
		return err
	}
	// The wake write must not carry the RESTART bit: writing 1 consumes the
	// pending restart state before the oscillator is running again
	wake := mode &^ (MODE1_SLEEP | MODE1_RESTART)
	if err := d.WriteRegister(MODE1, wake); err != nil {
		return err
	}
	if mode&MODE1_RESTART != 0 {
		// The restart bit may only be written after the oscillator settled
		time.Sleep(oscillatorStartupDelay)
		return d.WriteRegister(MODE1, wake|MODE1_RESTART)
	}
	return nil
}

// SetPwmFrequency programs the prescaler for the given PWM frequency, based
// on the internal 25 MHz oscillator. The prescaler can only be written in
// sleep mode, so all outputs are stopped and restarted by this call.
func (d *Device) SetPwmFrequency(hz float64) error {
	if hz < FREQ_MIN || hz > FREQ_MAX {
		return fmt.Errorf("%w: frequency %v outside of %v..%v Hz", ErrInvalidInput, hz, FREQ_MIN, FREQ_MAX)
	}
	if err := d.Sleep(true); err != nil {
		return err
	}
	if err := d.WriteRegister(PRE_SCALE, Prescaler(hz)); err != nil {
		return err
	}
	return d.Restart()
}
