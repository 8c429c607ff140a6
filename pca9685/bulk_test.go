package pca9685

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBulkValues() []uint16 {
	values := make([]uint16, NumChannelRegisters)
	for i := range values {
		values[i] = uint16(i*113) & counterMask
		if i%5 == 0 {
			values[i] |= fullFlag
		}
	}
	return values
}

func TestBulkWriteLength(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	for _, count := range []int{0, 1, 31, 33, 64} {
		err := dev.SetAllChannelsOnOff(make([]uint16, count))
		a.Error(err)
		a.True(errors.Is(err, ErrInvalidInput), "expected invalid-input error, got: %v", err)
	}
	a.Error(dev.SetAllChannelsOnOff(nil))
	a.Empty(bus.writes, "invalid payloads must not cause bus writes")
}

func TestBulkRoundTrip(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	values := testBulkValues()
	a.NoError(dev.SetAllChannelsOnOff(values))

	read, err := dev.AllChannelsOnOff()
	a.NoError(err)
	a.Equal(values, read[:], "flag bits must survive the round trip")
}

func TestBulkWriteFraming(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	values := testBulkValues()
	r.NoError(dev.SetAllChannelsOnOff(values))

	// One MODE1 write for auto-increment, one 65-byte payload write
	r.Len(bus.writes, 2)
	payload := bus.writes[1].data
	r.Len(payload, 1+2*NumChannelRegisters)
	a.Equal(RegisterOn(C0), payload[0])
	for i, value := range values {
		a.Equal(byte(value), payload[1+2*i], "low byte of value %v", i)
		a.Equal(byte(value>>8), payload[2+2*i], "high byte of value %v", i)
	}

	// The payload lands in the channel registers, little endian
	a.Equal(byte(values[0]), bus.registers[RegisterOn(C0)])
	a.Equal(byte(values[0]>>8), bus.registers[RegisterOn(C0)+1])
	a.Equal(byte(values[31]>>8), bus.registers[RegisterOff(C15)+1])
}

func TestBulkMatchesChannelCodec(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	values := make([]uint16, NumChannelRegisters)
	values[2*9] = 4000  // C9 ON
	values[2*9+1] = 100 // C9 OFF
	a.NoError(dev.SetAllChannelsOnOff(values))

	onT, offT, err := dev.ChannelOnOffWithFlags(C9)
	a.NoError(err)
	a.Equal(uint16(4000), onT)
	a.Equal(uint16(100), offT)

	pulse, err := dev.EffectivePulse(C9)
	a.NoError(err)
	a.Equal(uint16(195), pulse)
}

func TestBulkAutoIncrementEnabledOnce(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	values := make([]uint16, NumChannelRegisters)
	a.NoError(dev.SetAllChannelsOnOff(values))
	_, err := dev.AllChannelsOnOff()
	a.NoError(err)
	a.NoError(dev.SetAllChannelsOnOff(values))

	a.Equal(1, bus.writesTo(MODE1), "MODE1_AI must only be enabled once")
	a.Equal(byte(MODE1_AI), bus.registers[MODE1]&MODE1_AI)
}

func TestBulkAutoIncrementRetryAfterFailure(t *testing.T) {
	a := assert.New(t)
	bus := new(mockBus)
	dev := NewDevice(bus, ADDRESS)

	values := make([]uint16, NumChannelRegisters)
	a.NoError(dev.SetAllChannelsOnOff(values))
	a.Equal(1, bus.writesTo(MODE1))

	// A failed bulk transfer invalidates the cached auto-increment state
	boom := errors.New("bus gone")
	bus.fail = boom
	a.Equal(boom, dev.SetAllChannelsOnOff(values))
	bus.fail = nil

	a.NoError(dev.SetAllChannelsOnOff(values))
	a.Equal(1, bus.writesTo(MODE1), "MODE1_AI still set on the chip, no extra write needed")
}
