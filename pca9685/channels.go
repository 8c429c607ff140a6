package pca9685

import "fmt"

// In the 16-bit double register value, bits 0-11 hold the counter, bit 12 is
// the full ON/OFF flag, bits 13-15 are reserved and must not be modified.
const (
	counterMask = uint16(TIMER_MAX)
	fullFlag    = uint16(FULL_ON_BIT) << 8
)

// IsFullFlagSet reports whether a raw double register value has the full
// ON/OFF flag (bit 12) set.
func IsFullFlagSet(value uint16) bool {
	return value&fullFlag != 0
}

func (d *Device) readCounter(register byte) (uint16, error) {
	value, err := d.ReadDoubleRegister(register)
	if err != nil {
		return 0, err
	}
	return value & counterMask, nil
}

// Replace the counter bits of a double register while keeping the current
// flag bit: read the high byte to recover the flag, merge, write back both
// bytes. Two bus transactions, not atomic.
func (d *Device) writeCounter(register byte, value uint16) error {
	if value > TIMER_MAX {
		return fmt.Errorf("%w: counter value %v exceeds %v", ErrInvalidInput, value, TIMER_MAX)
	}
	high, err := d.ReadRegister(register + 1)
	if err != nil {
		return err
	}
	return d.WriteDoubleRegister(register, uint16(high&FULL_ON_BIT)<<8|value)
}

// Set or clear the full ON/OFF flag in the high byte of a double register.
// If the flag already has the requested value, no bus write is issued. The
// counter and reserved bits of the high byte are preserved.
func (d *Device) writeFullFlag(register byte, flag bool) error {
	register++ // The flag lives in the high byte
	high, err := d.ReadRegister(register)
	if err != nil {
		return err
	}
	switch {
	case flag && high&FULL_ON_BIT == 0:
		return d.WriteRegister(register, high|FULL_ON_BIT)
	case !flag && high&FULL_ON_BIT != 0:
		return d.WriteRegister(register, high&^FULL_ON_BIT)
	}
	return nil
}

// ChannelOn returns the ON counter for the selected channel, with the full ON
// flag masked out.
func (d *Device) ChannelOn(channel Channel) (uint16, error) {
	return d.readCounter(RegisterOn(channel))
}

// SetChannelOn sets the ON counter for the selected channel, leaving the full
// ON flag untouched. Values above 4095 are rejected without bus access.
//
// Note that the full OFF setting takes precedence over all ON settings, see
// section 7.3.3 "LED output and PWM control" of the datasheet.
func (d *Device) SetChannelOn(channel Channel, value uint16) error {
	return d.writeCounter(RegisterOn(channel), value)
}

// ChannelOff returns the OFF counter for the selected channel, with the full
// OFF flag masked out.
func (d *Device) ChannelOff(channel Channel) (uint16, error) {
	return d.readCounter(RegisterOff(channel))
}

// SetChannelOff sets the OFF counter for the selected channel, leaving the
// full OFF flag untouched. Values above 4095 are rejected without bus access.
func (d *Device) SetChannelOff(channel Channel, value uint16) error {
	return d.writeCounter(RegisterOff(channel), value)
}

// SetChannelFullOn forces the channel output permanently high (or releases
// it). Writing the flag to its current state performs no bus write.
//
// The full OFF setting takes precedence over full ON.
func (d *Device) SetChannelFullOn(channel Channel, flag bool) error {
	return d.writeFullFlag(RegisterOn(channel), flag)
}

// SetChannelFullOff forces the channel output permanently low (or releases
// it). Writing the flag to its current state performs no bus write.
//
// This takes precedence over all ON settings.
func (d *Device) SetChannelFullOff(channel Channel, flag bool) error {
	return d.writeFullFlag(RegisterOff(channel), flag)
}

// SetChannelOnOff sets both counters of a channel in a single bus
// transaction. Unlike the single-counter setters, this overwrites the full
// ON/OFF flags: callers must use SetChannelOn/SetChannelOff to preserve
// previously set flags.
func (d *Device) SetChannelOnOff(channel Channel, onValue, offValue uint16) error {
	if onValue > TIMER_MAX || offValue > TIMER_MAX {
		return fmt.Errorf("%w: counter values %v/%v exceed %v", ErrInvalidInput, onValue, offValue, TIMER_MAX)
	}
	return d.WriteTwoDoubleRegisters(RegisterOn(channel), onValue, offValue)
}

// ChannelOnOffWithFlags returns the raw ON and OFF double register values of
// a channel, including the full ON/OFF flag bits.
func (d *Device) ChannelOnOffWithFlags(channel Channel) (uint16, uint16, error) {
	return d.ReadTwoDoubleRegisters(RegisterOn(channel))
}

// PulseLength computes the pulse width in timer ticks from raw ON and OFF
// counters. Both full ON/OFF flags must be clear. If the OFF event precedes
// the ON event, the pulse wraps around the 4096-tick period boundary.
func PulseLength(onT, offT uint16) uint16 {
	if offT >= onT {
		return offT - onT
	}
	return TIMER_MAX - onT + offT
}

// EffectivePulseOf computes the effective pulse width from raw double
// register values, honoring the flag precedence: full OFF forces 0, otherwise
// full ON forces 4095, otherwise the width follows from the counters.
func EffectivePulseOf(onT, offT uint16) uint16 {
	switch {
	case IsFullFlagSet(offT):
		return 0
	case IsFullFlagSet(onT):
		return TIMER_MAX
	}
	return PulseLength(onT, offT)
}

// EffectivePulse reads the raw register pair of a channel and returns its
// effective pulse width, see EffectivePulseOf.
func (d *Device) EffectivePulse(channel Channel) (uint16, error) {
	onT, offT, err := d.ChannelOnOffWithFlags(channel)
	if err != nil {
		return 0, err
	}
	return EffectivePulseOf(onT, offT), nil
}
