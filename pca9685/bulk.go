package pca9685

import (
	"encoding/binary"
	"fmt"
)

// NumChannelRegisters is the number of double registers moved by a bulk
// transfer: 16 channels times the ON and OFF register pair.
const NumChannelRegisters = 2 * NumChannels

// AllChannelsOnOff reads the raw ON/OFF double registers of all 16 channels
// in a single auto-increment bus transaction. The returned values alternate
// channel0-ON, channel0-OFF, channel1-ON, ... and include the full ON/OFF
// flag bits.
func (d *Device) AllChannelsOnOff() ([NumChannelRegisters]uint16, error) {
	var values [NumChannelRegisters]uint16
	if err := d.EnableAutoIncrement(); err != nil {
		return values, err
	}
	raw, err := d.bus.I2cGet(d.addr, RegisterOn(C0), 2*NumChannelRegisters)
	if err != nil {
		d.autoIncrement = false
		return values, err
	}
	if len(raw) != 2*NumChannelRegisters {
		return values, fmt.Errorf("PCA9685 bulk read returned %v byte (need %v)", len(raw), 2*NumChannelRegisters)
	}
	// The chip register layout is little endian: low byte at the lower address
	for i := range values {
		values[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return values, nil
}

// SetAllChannelsOnOff writes the raw ON/OFF double registers of all 16
// channels in a single auto-increment bus transaction. Exactly 32 values must
// be given, in the same order AllChannelsOnOff returns them.
//
// This is a raw overwrite: previously set full ON/OFF flags are replaced by
// whatever flag bits the given values carry.
func (d *Device) SetAllChannelsOnOff(values []uint16) error {
	if len(values) != NumChannelRegisters {
		return fmt.Errorf("%w: need %v register values, got %v", ErrInvalidInput, NumChannelRegisters, len(values))
	}
	if err := d.EnableAutoIncrement(); err != nil {
		return err
	}
	data := make([]byte, 1+2*NumChannelRegisters)
	data[0] = RegisterOn(C0)
	for i, value := range values {
		binary.LittleEndian.PutUint16(data[1+2*i:], value)
	}
	if err := d.bus.I2cWrite(d.addr, data...); err != nil {
		d.autoIncrement = false
		return err
	}
	return nil
}
