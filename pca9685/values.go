package pca9685

import (
	"fmt"
	"math"
)

// The helpers in this file convert duty-cycle fractions in [0; 1] into the
// 4-byte register tuple (ON_L, ON_H, OFF_L, OFF_H) of one channel. They are
// convenience encoders on top of the counter/flag layout handled by the
// channel codec: the produced bytes can be written to a channel's register
// base directly or packed for a bulk transfer.

func ValuesInto(onTime float64, target []byte) {
	ValuesDelayedInto(0, onTime, target)
}

// Target byte slice is suitable to write into a channel's or the broadcast
// register base address
func ValuesDelayedInto(delayTime, onTime float64, target []byte) {
	target[0], target[1], target[2], target[3] = ValuesDelayed(delayTime, onTime)
}

func Values(onTime float64) (byte, byte, byte, byte) {
	return ValuesDelayed(0, onTime)
}

// delay and onTime must be in [0; 1]
func ValuesDelayed(delayTime, onTime float64) (onL, onH, offL, offH byte) {
	if delayTime < 0 || delayTime > 1 || onTime < 0 || onTime > 1 {
		panic(fmt.Sprintf("Invalid timer values delay=%v onTime=%v", delayTime, onTime))
	}
	delayCount := round(delayTime*TIMER_RESOLUTION - 1)
	onCount := round(onTime * TIMER_RESOLUTION) // The onCount is added to delayCount, so the -1 correction is not required anymore
	if delayTime == 0 {
		delayCount = 0
		if onCount > 0 {
			onCount-- // Apply -1 correction since delayCount is zero
		}
	}
	if onTime == 0 {
		onCount = 0
	}

	on := delayCount
	off := on + onCount
	if off > TIMER_RESOLUTION {
		// Because of the delay, the first on-time is pushed into the second PWM cycle, and must be corrected
		off -= TIMER_RESOLUTION
	}
	onL, onH = byte(on), byte(on>>8)
	offL, offH = byte(off), byte(off>>8)
	return
}

func round(f float64) int {
	return int(math.Floor(f + .5))
}

// FullOnValues returns the register tuple with the full ON flag set.
func FullOnValues() (byte, byte, byte, byte) {
	return 0, FULL_ON_BIT, 0, 0
}

func FullOnValuesInto(target []byte) {
	target[0], target[1], target[2], target[3] = FullOnValues()
}

// FullOffValues returns the register tuple with the full OFF flag set.
func FullOffValues() (byte, byte, byte, byte) {
	return 0, 0, 0, FULL_OFF_BIT
}

func FullOffValuesInto(target []byte) {
	target[0], target[1], target[2], target[3] = FullOffValues()
}

func FullValues(on bool) (byte, byte, byte, byte) {
	if on {
		return FullOnValues()
	} else {
		return FullOffValues()
	}
}

func FullValuesInto(on bool, target []byte) {
	if on {
		FullOnValuesInto(target)
	} else {
		FullOffValuesInto(target)
	}
}

func PrescalerExternalClock(externalOscillator float64, frequency float64) byte {
	v := externalOscillator / (float64(TIMER_RESOLUTION) * frequency)
	return byte(round(v)) - 1
}

func Prescaler(frequency float64) byte {
	return PrescalerExternalClock(INTERNAL_OSCILLATOR, frequency)
}

// PwmOutput tracks the last duty cycles written to a range of consecutive
// channels and computes minimal update transactions.
type PwmOutput struct {
	CurrentState   []float64
	OptimizeUpdate bool
}

// FillCurrentState pads or truncates the given state to the known number of
// outputs, reusing the last written values for missing entries.
func (m *PwmOutput) FillCurrentState(newState []float64) []float64 {
	if m.CurrentState != nil {
		if len(newState) < len(m.CurrentState) {
			newState = append(newState, m.CurrentState[len(newState):]...)
		} else if len(newState) > len(m.CurrentState) {
			return newState[:len(m.CurrentState)]
		}
	}
	return newState
}

// Update computes the smallest register write covering all changed outputs.
// The result starts with the first register address to write, followed by the
// packed 4-byte tuples, ready to be passed to I2cBus.I2cWrite. A nil result
// means the desired state is already deployed.
func (m *PwmOutput) Update(firstRegister byte, newState []float64) []byte {
	if len(m.CurrentState) != len(newState) {
		m.CurrentState = make([]float64, len(newState))
		m.OptimizeUpdate = false
	}
	numOutputs := len(newState)

	// Compute smallest possible range of values to be updated
	updateFrom := 0
	updateTo := numOutputs
	if m.OptimizeUpdate {
		for i := range newState {
			if m.CurrentState[i] == newState[i] {
				updateFrom++
			} else {
				break
			}
		}
		for i := range newState {
			if m.CurrentState[numOutputs-1-i] == newState[numOutputs-1-i] {
				updateTo--
			} else {
				break
			}
		}
		if updateFrom >= updateTo {
			// The desired state is already deployed
			return nil
		}
	}
	copy(m.CurrentState, newState)
	m.OptimizeUpdate = true
	numChanges := updateTo - updateFrom

	// Compute raw bytes to be sent to the device
	pwmValues := make([]byte, BYTE_PER_OUTPUT*numChanges)
	for i, val := range newState[updateFrom:updateTo] {
		ValuesInto(val, pwmValues[BYTE_PER_OUTPUT*i:])
	}

	return append([]byte{firstRegister + byte(updateFrom)*BYTE_PER_OUTPUT}, pwmValues...)
}
