package ft260

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// I2cBus is the transport interface consumed by the chip driver packages.
// All operations are synchronous and return after the bus transaction
// completed or failed.
type I2cBus interface {
	I2cWrite(addr byte, data ...byte) error
	I2cRead(addr byte, data []byte) error

	// I2cWriteRead writes the given bytes and immediately reads into the given
	// buffer with a repeated start condition, as one logical bus operation.
	I2cWriteRead(addr byte, out, in []byte) error

	// I2cGet writes the single register address and reads back the requested
	// number of bytes.
	I2cGet(addr byte, registerAddr byte, size int) ([]byte, error)
}

const (
	ReportID_I2CStatus    = 0xC0 // Feature In
	ReportID_I2CRead      = 0xC2 // Output
	ReportID_I2CInOut     = 0xD0 // 0xD0 - 0xDE, Input, Output
	ReportID_I2CInOut_Max = 0xDE
	// Max size of I2C write payload: (1 + Report ID - 0xD0) * 4 byte

	I2CMaxPayload = (1 + ReportID_I2CInOut_Max - ReportID_I2CInOut) * 4
)

const (
	I2C_StatusControllerBusy = byte(1 << iota)
	I2C_StatusError
	I2C_StatusNoSlaveAck
	I2C_StatusNoDataAck
	I2C_StatusArbitrationLost
	I2C_StatusControllerIdle
	I2C_StatusBusBusy
)

const (
	I2C_MasterNone         = 0x0
	I2C_MasterStart        = 0x2
	I2C_MasterRepStart     = 0x3
	I2C_MasterStop         = 0x4
	I2C_MasterStartStop    = 0x6
	I2C_MasterRepStartStop = 0x7
)

func I2cMasterCodeString(code byte) string {
	switch code {
	case I2C_MasterNone:
		return "Nothing"
	case I2C_MasterStart:
		return "Start"
	case I2C_MasterRepStart:
		return "Repeated Start"
	case I2C_MasterStop:
		return "Stop"
	case I2C_MasterStartStop:
		return "Start + Stop"
	case I2C_MasterRepStartStop:
		return "Repeated Start + Stop"
	default:
		return fmt.Sprintf("Unknown I2C Master code %v", code)
	}
}

// I2cStatusError reports a failed bus transaction, based on the error bits of
// the I2C controller status.
type I2cStatusError struct {
	Status byte
}

func (e *I2cStatusError) Error() string {
	var flags []string
	if e.Status&I2C_StatusNoSlaveAck != 0 {
		flags = append(flags, "slave address not acknowledged")
	}
	if e.Status&I2C_StatusNoDataAck != 0 {
		flags = append(flags, "data not acknowledged")
	}
	if e.Status&I2C_StatusArbitrationLost != 0 {
		flags = append(flags, "arbitration lost")
	}
	if len(flags) == 0 {
		flags = append(flags, "unspecified error")
	}
	return fmt.Sprintf("I2C bus error (status %02x): %v", e.Status, strings.Join(flags, ", "))
}

// Result of ReportID_I2CStatus Feature In
type ReportI2cStatus struct {
	BusStatus byte   // Bitmask of I2C_Status...
	BusSpeed  uint16 // 2 byte: LSB+MSB
	// 1 reserved
}

func (r *ReportI2cStatus) ReportID() byte {
	return ReportID_I2CStatus
}

func (r *ReportI2cStatus) ReportLen() int {
	return 4
}

func (r *ReportI2cStatus) Unmarshall(b []byte) error {
	r.BusStatus = b[0]
	r.BusSpeed = uint16(b[1]) + uint16(b[2])<<8
	return nil
}

// Data of ReportID_I2CRead Interrupt Out
type OperationI2cRead struct {
	SlaveAddr byte   // 0..127
	Condition byte   // I2C_Master...
	Len       uint16 // data length (little endian)
}

func (r *OperationI2cRead) ReportID() byte {
	return ReportID_I2CRead
}

func (r *OperationI2cRead) ReportLen() int {
	return 4
}

func (r *OperationI2cRead) Marshall(b []byte) error {
	if r.SlaveAddr&0x80 != 0 {
		return fmt.Errorf("Invalid I2C slave address: %02x", r.SlaveAddr)
	}
	b[0] = r.SlaveAddr
	b[1] = r.Condition
	b[2], b[3] = byte(r.Len), byte(r.Len>>8)
	return nil
}

// Data of ReportID_I2CInOut Interrupt Out
type OperationI2cWrite struct {
	SlaveAddr byte // 0..127
	Condition byte // I2C_Master...
	// 1 byte payload len
	Payload []byte
}

func (r *OperationI2cWrite) ReportID() byte {
	return ReportID_I2CInOut + byte(len(r.Payload)-1)/4
}

func (r *OperationI2cWrite) ReportLen() int {
	return len(r.Payload) + 3
}

func (r *OperationI2cWrite) Marshall(b []byte) error {
	if len(r.Payload) > I2CMaxPayload {
		return fmt.Errorf("Payload len %v exceeds maximum size of %v", len(r.Payload), I2CMaxPayload)
	}
	if r.SlaveAddr&0x80 != 0 {
		return fmt.Errorf("Invalid I2C slave address: %02x", r.SlaveAddr)
	}
	b[0] = r.SlaveAddr
	b[1] = r.Condition
	b[2] = byte(len(r.Payload))
	copy(b[3:], r.Payload)
	return nil
}

// Split an I2C write payload into chunks that fit the HID report size. The
// returned conditions carry the start condition on the first chunk and the
// stop condition (if requested) on the last chunk.
func i2cSplitTransaction(stop bool, data []byte) (payloads [][]byte, conditions []byte) {
	for len(data) > 0 {
		chunk := data
		if len(chunk) > I2CMaxPayload {
			chunk = chunk[:I2CMaxPayload]
		}
		cond := byte(I2C_MasterNone)
		if len(payloads) == 0 {
			cond = I2C_MasterStart
		}
		if stop && len(chunk) == len(data) {
			cond |= I2C_MasterStop
		}
		payloads = append(payloads, chunk)
		conditions = append(conditions, cond)
		data = data[len(chunk):]
	}
	return
}

func (f *Ft260) i2cWriteSplit(addr byte, stop bool, data []byte) error {
	payloads, conditions := i2cSplitTransaction(stop, data)
	for i, payload := range payloads {
		op := &OperationI2cWrite{
			SlaveAddr: addr,
			Condition: conditions[i],
			Payload:   payload,
		}
		if err := f.Write(op); err != nil {
			return err
		}
	}
	return nil
}

func (f *Ft260) I2cWrite(addr byte, data ...byte) error {
	if err := f.i2cWriteSplit(addr, true, data); err != nil {
		return err
	}
	return f.i2cAwaitIdle()
}

func (f *Ft260) I2cRead(addr byte, data []byte) error {
	return f.i2cReceive(addr, I2C_MasterStartStop, data)
}

func (f *Ft260) I2cWriteRead(addr byte, out, in []byte) error {
	if err := f.i2cWriteSplit(addr, false, out); err != nil {
		return err
	}
	return f.i2cReceive(addr, I2C_MasterRepStartStop, in)
}

func (f *Ft260) I2cGet(addr byte, registerAddr byte, size int) ([]byte, error) {
	data := make([]byte, size)
	err := f.I2cWriteRead(addr, []byte{registerAddr}, data)
	return data, err
}

func (f *Ft260) i2cReceive(addr byte, condition byte, data []byte) error {
	if len(data) == 0 {
		return f.i2cAwaitIdle()
	}
	req := &OperationI2cRead{
		SlaveAddr: addr,
		Condition: condition,
		Len:       uint16(len(data)),
	}
	if err := f.Write(req); err != nil {
		return err
	}
	received := 0
	buf := make([]byte, I2CMaxPayload+2)
	for received < len(data) {
		n, err := f.Device.Read(buf)
		if err != nil {
			return err
		}
		if n < 2 {
			return fmt.Errorf("Short I2C input report (%v byte)", n)
		}
		id := buf[0]
		if id < ReportID_I2CInOut || id > ReportID_I2CInOut_Max {
			return fmt.Errorf("Unexpected report id %02x while reading I2C data", id)
		}
		payloadLen := int(buf[1])
		if payloadLen+2 > n {
			return fmt.Errorf("Short I2C read (%v byte, needed at least %v)", n, payloadLen+2)
		}
		received += copy(data[received:], buf[2:2+payloadLen])
	}
	return f.i2cAwaitIdle()
}

// Poll the I2C controller status until the transaction is finished, then
// translate the error bits.
func (f *Ft260) i2cAwaitIdle() error {
	var status ReportI2cStatus
	for {
		if err := f.Read(&status); err != nil {
			return err
		}
		if status.BusStatus&I2C_StatusControllerBusy == 0 {
			break
		}
		time.Sleep(100 * time.Microsecond)
	}
	if status.BusStatus&I2C_StatusError != 0 {
		return &I2cStatusError{Status: status.BusStatus}
	}
	return nil
}

// I2cScan probes all valid slave addresses and returns those that acknowledge
// a one-byte read. Addresses that do not respond are skipped, any other
// transport failure aborts the scan.
func I2cScan(bus I2cBus) ([]byte, error) {
	var slaves []byte
	buf := make([]byte, 1)
	for addr := byte(1); addr < 0x7F; addr++ {
		err := bus.I2cRead(addr, buf)
		if err == nil {
			slaves = append(slaves, addr)
			continue
		}
		var statusErr *I2cStatusError
		if !errors.As(err, &statusErr) {
			return nil, err
		}
	}
	return slaves, nil
}
