package pca9685

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoubleRegisterFraming(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	a.NoError(dev.WriteDoubleRegister(0x10, 0xABCD))
	a.Equal(byte(0xCD), bus.registers[0x10], "low byte at the lower address")
	a.Equal(byte(0xAB), bus.registers[0x11])

	v, err := dev.ReadDoubleRegister(0x10)
	a.NoError(err)
	a.Equal(uint16(0xABCD), v)

	a.NoError(dev.WriteTwoDoubleRegisters(0x20, 0x1234, 0x5678))
	a.Equal([]byte{0x34, 0x12, 0x78, 0x56}, bus.registers[0x20:0x24])

	v1, v2, err := dev.ReadTwoDoubleRegisters(0x20)
	a.NoError(err)
	a.Equal(uint16(0x1234), v1)
	a.Equal(uint16(0x5678), v2)
}

func TestInit(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	r.NoError(dev.Init())
	r.Len(bus.writes, 1)
	a.Equal([]byte{MODE1, MODE1_ALLCALL | MODE1_AI}, bus.writes[0].data)

	// Init already enabled auto increment, bulk transfers skip the extra write
	a.NoError(dev.SetAllChannelsOnOff(make([]uint16, NumChannelRegisters)))
	a.Equal(1, bus.writesTo(MODE1))
}

func TestRestartSequence(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	// Sleeping chip with a pending restart: RESTART reads as 1
	bus.registers[MODE1] = MODE1_SLEEP | MODE1_RESTART | MODE1_ALLCALL

	r.NoError(dev.Restart())
	r.Len(bus.writes, 2)

	// The wake write must clear SLEEP without consuming the pending restart
	a.Equal([]byte{MODE1, MODE1_ALLCALL}, bus.writes[0].data)
	// The deliberate restart write follows after the oscillator settled
	a.Equal([]byte{MODE1, MODE1_ALLCALL | MODE1_RESTART}, bus.writes[1].data)
}

func TestRestartWithoutPendingRestart(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	bus.registers[MODE1] = MODE1_SLEEP
	a.NoError(dev.Restart())
	a.Len(bus.writes, 1, "no restart write when RESTART reads as 0")
	a.Equal([]byte{MODE1, 0}, bus.writes[0].data)
}

func TestSleepMasksRestartBit(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	bus.registers[MODE1] = MODE1_SLEEP | MODE1_RESTART
	r.NoError(dev.Sleep(false))
	r.Len(bus.writes, 1)
	a.Equal(byte(0), bus.writes[0].data[1]&MODE1_RESTART, "wake write must not carry RESTART")
	a.Equal(byte(0), bus.writes[0].data[1]&MODE1_SLEEP)

	bus.registers[MODE1] = MODE1_RESTART
	r.NoError(dev.Sleep(true))
	r.Len(bus.writes, 2)
	a.Equal([]byte{MODE1, MODE1_SLEEP}, bus.writes[1].data)
}

func TestSetPwmFrequency(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	for _, hz := range []float64{0, 1, 23, 1526, 100000} {
		err := dev.SetPwmFrequency(hz)
		a.Error(err)
		a.True(errors.Is(err, ErrInvalidInput), "expected invalid-input error, got: %v", err)
	}
	a.Empty(bus.writes, "invalid frequencies must not cause bus writes")

	// Example from the PCA9685 manual page 25
	a.NoError(dev.SetPwmFrequency(200))
	a.Equal(byte(0x1E), bus.registers[PRE_SCALE])
	a.Equal(byte(0), bus.registers[MODE1]&MODE1_SLEEP, "chip must be awake again")
}
