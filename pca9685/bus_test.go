package pca9685

import (
	"errors"
	"fmt"
)

// mockBus simulates the chip's register bank behind the I2cBus interface.
// Writes land in the register array starting at the first payload byte (the
// register address), mimicking the chip's auto-increment addressing. All
// I2cWrite calls are recorded to verify transaction counts and framing.
type mockBus struct {
	registers [256]byte
	writes    []mockWrite
	fail      error
}

type mockWrite struct {
	addr byte
	data []byte
}

func (m *mockBus) I2cWrite(addr byte, data ...byte) error {
	if m.fail != nil {
		return m.fail
	}
	if len(data) == 0 {
		return errors.New("mock: empty I2C write")
	}
	m.writes = append(m.writes, mockWrite{addr, append([]byte(nil), data...)})
	register := int(data[0])
	for i, value := range data[1:] {
		m.registers[register+i] = value
	}
	return nil
}

func (m *mockBus) I2cRead(addr byte, data []byte) error {
	return errors.New("mock: plain I2C read not expected by the driver")
}

func (m *mockBus) I2cWriteRead(addr byte, out, in []byte) error {
	if m.fail != nil {
		return m.fail
	}
	if len(out) != 1 {
		return fmt.Errorf("mock: unexpected write-read request of %v byte", len(out))
	}
	register := int(out[0])
	copy(in, m.registers[register:register+len(in)])
	return nil
}

func (m *mockBus) I2cGet(addr byte, registerAddr byte, size int) ([]byte, error) {
	data := make([]byte, size)
	err := m.I2cWriteRead(addr, []byte{registerAddr}, data)
	return data, err
}

// writesTo counts recorded writes whose first payload byte targets the given
// register.
func (m *mockBus) writesTo(register byte) int {
	count := 0
	for _, w := range m.writes {
		if w.data[0] == register {
			count++
		}
	}
	return count
}
