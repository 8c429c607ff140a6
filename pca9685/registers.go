// Register-level driver for the PCA9685 16-channel, 12-bit PWM controller.
package pca9685

import "strconv"

const (
	MODE1 = byte(iota)
	MODE2

	// The I2C addresses are stored in the 7 MSBs. Addresses must be left-shifted once.
	SUBADR1
	SUBADR2
	SUBADR3
	ALLCALLADR

	// Default for LEDn_...: all zero, except for FULL_OFF_BIT in LEDn_OFF_H.
	LED0_ON_L
	LED0_ON_H
	LED0_OFF_L
	LED0_OFF_H
)

const (
	ALL_ON_L = byte(0xFA + iota)
	ALL_ON_H
	ALL_OFF_L
	ALL_OFF_H
	PRE_SCALE // Only settable in SLEEP mode. Default value: 0x30
	TEST_MODE
)

// Default values all zero, except ALLCALL and SLEEP
const (
	MODE1_ALLCALL = byte(1 << iota) // 1: Respond to ALLCALL address
	MODE1_SUB3                      // 1: Respond to SUB3 address
	MODE1_SUB2                      // 1: Respond to SUB2 address
	MODE1_SUB1                      // 1: Respond to SUB1 address
	MODE1_SLEEP                     // 0: normal mode 1: oscillator off, low power mode
	MODE1_AI                        // 1: Register auto increment
	MODE1_EXTCLK                    // 1: use EXTCLK pin as clock source. Enable sequence: First set SLEEP, then set (SLEEP | EXTCLK). Can only be cleared by power cycle or software reset.
	MODE1_RESTART                   // Write 1: wake up from SLEEP (write 0 no effect). Only possible if read as 1, after setting SLEEP.
)

// Default values all zero, except OUTDRV
const (
	// Control led state for OE pin = 1 (leds disabled)
	MODE2_OUTNE0 = byte(1 << iota) // (only for OUTNE1=0) 0: leds off 1: [leds on if OUTDRV=1, high-impedance if OUTDRV=0]
	MODE2_OUTNE1                   // 1: high impedance 0: see OUTNE0

	MODE2_OUTDRV // 0: outputs are open drain 1: outputs are totem pole
	MODE2_OCH    // 0: output change on STOP 1: output change on ACK (after writing all 4 registers of an LED)
	MODE2_INVRT  // 1: invert output logic
)

const (
	ADDRESS     = byte(0x40) // 0100 0000
	ADDRESS_MAX = byte(0x7F) // 0111 1111

	DEFAULT_ALLCALL_ADDRESS  = byte(0x70) // 0111 0000
	DEFAULT_SUBCALL1_ADDRESS = byte(0x71) // 0111 0001
	DEFAULT_SUBCALL2_ADDRESS = byte(0x72) // 0111 0010
	DEFAULT_SUBCALL3_ADDRESS = byte(0x74) // 0111 0100
	SOFTWARE_RESET_ADDRESS   = byte(0x03) // 0000 0011 // READ to trigger reset
)

const (
	NumChannels     = 16
	BYTE_PER_OUTPUT = 4

	TIMER_MAX        = 4095
	TIMER_RESOLUTION = TIMER_MAX + 1

	FULL_ON_BIT  = byte(0x10) // bit 4 of LEDn_ON_H.
	FULL_OFF_BIT = byte(0x10) // bit 4 of LEDn_OFF_H. Takes precedence over the FULL_ON_BIT.

	FREQ_MIN          = 23.84185791
	FREQ_MAX          = 1525.87890625
	FREQ_MIN_PRESALE  = byte(0xFF)
	FREQ_MAX_PRESCALE = byte(0x03) // Minimum value asserted by hardware
	DEFAULT_PRESCALE  = byte(0x30) // Default PRE_SCALE value, results in 200Hz with the internal oscillator

	INTERNAL_OSCILLATOR = 25000000 // 25 MHz
)

// Channel identifies one of the 16 PWM outputs, or all of them at once.
type Channel int

const (
	C0 Channel = iota
	C1
	C2
	C3
	C4
	C5
	C6
	C7
	C8
	C9
	C10
	C11
	C12
	C13
	C14
	C15

	// AllChannels addresses the broadcast register pair: writes are applied to
	// every channel simultaneously. It must not be used for reads.
	AllChannels
)

func (c Channel) String() string {
	if c == AllChannels {
		return "ALL"
	}
	return "C" + strconv.Itoa(int(c))
}

// The channel-to-register mapping is fixed by the chip's memory map: each
// channel owns 4 consecutive byte registers (ON_L, ON_H, OFF_L, OFF_H)
// starting at LED0_ON_L, plus the separate broadcast slot at ALL_ON_L.
var registersOn = [NumChannels + 1]byte{
	LED0_ON_L + 0*BYTE_PER_OUTPUT, LED0_ON_L + 1*BYTE_PER_OUTPUT,
	LED0_ON_L + 2*BYTE_PER_OUTPUT, LED0_ON_L + 3*BYTE_PER_OUTPUT,
	LED0_ON_L + 4*BYTE_PER_OUTPUT, LED0_ON_L + 5*BYTE_PER_OUTPUT,
	LED0_ON_L + 6*BYTE_PER_OUTPUT, LED0_ON_L + 7*BYTE_PER_OUTPUT,
	LED0_ON_L + 8*BYTE_PER_OUTPUT, LED0_ON_L + 9*BYTE_PER_OUTPUT,
	LED0_ON_L + 10*BYTE_PER_OUTPUT, LED0_ON_L + 11*BYTE_PER_OUTPUT,
	LED0_ON_L + 12*BYTE_PER_OUTPUT, LED0_ON_L + 13*BYTE_PER_OUTPUT,
	LED0_ON_L + 14*BYTE_PER_OUTPUT, LED0_ON_L + 15*BYTE_PER_OUTPUT,
	ALL_ON_L,
}

var registersOff = [NumChannels + 1]byte{
	LED0_OFF_L + 0*BYTE_PER_OUTPUT, LED0_OFF_L + 1*BYTE_PER_OUTPUT,
	LED0_OFF_L + 2*BYTE_PER_OUTPUT, LED0_OFF_L + 3*BYTE_PER_OUTPUT,
	LED0_OFF_L + 4*BYTE_PER_OUTPUT, LED0_OFF_L + 5*BYTE_PER_OUTPUT,
	LED0_OFF_L + 6*BYTE_PER_OUTPUT, LED0_OFF_L + 7*BYTE_PER_OUTPUT,
	LED0_OFF_L + 8*BYTE_PER_OUTPUT, LED0_OFF_L + 9*BYTE_PER_OUTPUT,
	LED0_OFF_L + 10*BYTE_PER_OUTPUT, LED0_OFF_L + 11*BYTE_PER_OUTPUT,
	LED0_OFF_L + 12*BYTE_PER_OUTPUT, LED0_OFF_L + 13*BYTE_PER_OUTPUT,
	LED0_OFF_L + 14*BYTE_PER_OUTPUT, LED0_OFF_L + 15*BYTE_PER_OUTPUT,
	ALL_OFF_L,
}

// RegisterOn returns the base address (low byte) of the ON double register
// for the given channel.
func RegisterOn(c Channel) byte {
	return registersOn[c]
}

// RegisterOff returns the base address (low byte) of the OFF double register
// for the given channel.
func RegisterOff(c Channel) byte {
	return registersOff[c]
}
