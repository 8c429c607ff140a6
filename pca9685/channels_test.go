package pca9685

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAddressing(t *testing.T) {
	a := assert.New(t)
	a.Equal(LED0_ON_L, RegisterOn(C0))
	a.Equal(LED0_OFF_L, RegisterOff(C0))
	a.Equal(LED0_ON_L+BYTE_PER_OUTPUT, RegisterOn(C1))
	a.Equal(byte(0x42), RegisterOn(C15))
	a.Equal(byte(0x44), RegisterOff(C15))
	a.Equal(ALL_ON_L, RegisterOn(AllChannels))
	a.Equal(ALL_OFF_L, RegisterOff(AllChannels))

	a.Equal("C0", C0.String())
	a.Equal("C15", C15.String())
	a.Equal("ALL", AllChannels.String())
}

func TestCounterRoundTrip(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	test := func(channel Channel, value uint16) {
		a.NoError(dev.SetChannelOn(channel, value))
		v, err := dev.ChannelOn(channel)
		a.NoError(err)
		a.Equal(value, v, "ON counter of %v", channel)

		a.NoError(dev.SetChannelOff(channel, value))
		v, err = dev.ChannelOff(channel)
		a.NoError(err)
		a.Equal(value, v, "OFF counter of %v", channel)
	}
	test(C0, 0)
	test(C3, 1)
	test(C7, 0x555)
	test(C15, TIMER_MAX)
}

func TestCounterWritePreservesFlag(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	// The full ON flag was set earlier, a counter update must not touch it
	bus.registers[RegisterOn(C2)+1] = FULL_ON_BIT
	a.NoError(dev.SetChannelOn(C2, 1234))

	a.Equal(byte(0xD2), bus.registers[RegisterOn(C2)])
	a.Equal(FULL_ON_BIT|byte(0x04), bus.registers[RegisterOn(C2)+1])

	v, err := dev.ChannelOn(C2)
	a.NoError(err)
	a.Equal(uint16(1234), v, "counter getter must mask the flag")

	onT, _, err := dev.ChannelOnOffWithFlags(C2)
	a.NoError(err)
	a.True(IsFullFlagSet(onT), "raw getter must expose the flag")
}

func TestCounterRangeValidation(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	test := func(err error) {
		a.Error(err)
		a.True(errors.Is(err, ErrInvalidInput), "expected invalid-input error, got: %v", err)
	}
	for _, value := range []uint16{TIMER_MAX + 1, 0x8000, 0xFFFF} {
		test(dev.SetChannelOn(C0, value))
		test(dev.SetChannelOff(C0, value))
		test(dev.SetChannelOnOff(C0, value, 0))
		test(dev.SetChannelOnOff(C0, 0, value))
	}
	a.Empty(bus.writes, "invalid values must not cause bus writes")
}

func TestFullFlagWrites(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	highOn := RegisterOn(C1) + 1
	bus.registers[highOn] = 0x0A // counter bits in the high byte

	// Clearing an already-clear flag is a no-op without bus I/O
	a.NoError(dev.SetChannelFullOn(C1, false))
	a.Empty(bus.writes)

	// Setting the flag writes exactly the high byte, counter bits preserved
	a.NoError(dev.SetChannelFullOn(C1, true))
	r.Len(bus.writes, 1)
	a.Equal([]byte{highOn, 0x0A | FULL_ON_BIT}, bus.writes[0].data)

	// Setting it again is a no-op
	a.NoError(dev.SetChannelFullOn(C1, true))
	a.Len(bus.writes, 1)

	// Clearing restores the counter bits only
	a.NoError(dev.SetChannelFullOn(C1, false))
	r.Len(bus.writes, 2)
	a.Equal([]byte{highOn, 0x0A}, bus.writes[1].data)

	// The same routine serves the OFF register
	highOff := RegisterOff(C1) + 1
	a.NoError(dev.SetChannelFullOff(C1, true))
	r.Len(bus.writes, 3)
	a.Equal([]byte{highOff, FULL_OFF_BIT}, bus.writes[2].data)
	a.NoError(dev.SetChannelFullOff(C1, true))
	a.Len(bus.writes, 3)
}

func TestSetOnOffOverwritesFlags(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	a.NoError(dev.SetChannelFullOff(C4, true))
	pulse, err := dev.EffectivePulse(C4)
	a.NoError(err)
	a.Equal(uint16(0), pulse)

	// The combined setter replaces the flag bits along with the counters
	a.NoError(dev.SetChannelOnOff(C4, 100, 2000))
	onT, offT, err := dev.ChannelOnOffWithFlags(C4)
	a.NoError(err)
	a.False(IsFullFlagSet(onT))
	a.False(IsFullFlagSet(offT))
	a.Equal(uint16(100), onT)
	a.Equal(uint16(2000), offT)

	pulse, err = dev.EffectivePulse(C4)
	a.NoError(err)
	a.Equal(uint16(1900), pulse)
}

func TestSetOnOffSingleTransaction(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	a.NoError(dev.SetChannelOnOff(C9, 0x123, 0xABC))
	r.Len(bus.writes, 1)
	a.Equal([]byte{RegisterOn(C9), 0x23, 0x01, 0xBC, 0x0A}, bus.writes[0].data)
}

func TestBroadcastChannel(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	a.NoError(dev.SetChannelOnOff(AllChannels, 0, 2048))
	r.Len(bus.writes, 1)
	a.Equal(ALL_ON_L, bus.writes[0].data[0])
}

func TestPulseLength(t *testing.T) {
	a := assert.New(t)
	a.Equal(uint16(0), PulseLength(0, 0))
	a.Equal(uint16(0), PulseLength(5, 5))
	a.Equal(uint16(1900), PulseLength(100, 2000))
	a.Equal(uint16(195), PulseLength(4000, 100), "wraparound over the period boundary")
	a.Equal(uint16(TIMER_MAX-1), PulseLength(1, 0))
}

func TestEffectivePulsePrecedence(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	test := func(onT, offT, expected uint16) {
		a.Equal(expected, EffectivePulseOf(onT, offT), "on=%04x off=%04x", onT, offT)

		a.NoError(dev.WriteTwoDoubleRegisters(RegisterOn(C5), onT, offT))
		pulse, err := dev.EffectivePulse(C5)
		a.NoError(err)
		a.Equal(expected, pulse, "on=%04x off=%04x", onT, offT)
	}

	// Full OFF wins regardless of everything else
	test(fullFlag|100, fullFlag|2000, 0)
	test(100, fullFlag|2000, 0)
	test(fullFlag, fullFlag, 0)

	// Full ON wins over the counters
	test(fullFlag|100, 2000, TIMER_MAX)
	test(fullFlag, 0, TIMER_MAX)

	// Both flags clear: counted pulse
	test(100, 2000, 1900)
	test(4000, 100, 195)
}

func TestTransportErrorPropagation(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	boom := errors.New("bus gone")
	bus.fail = boom

	_, err := dev.ChannelOn(C0)
	a.Equal(boom, err)
	a.Equal(boom, dev.SetChannelOn(C0, 1))
	a.Equal(boom, dev.SetChannelFullOn(C0, true))
	_, _, err = dev.ChannelOnOffWithFlags(C0)
	a.Equal(boom, err)
}
