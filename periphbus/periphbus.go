// Package periphbus implements the ft260.I2cBus transport on top of a kernel
// I2C adapter (e.g. /dev/i2c-1 on a Raspberry Pi), using periph.io.
package periphbus

import (
	"fmt"

	"github.com/antongulenko/pca9685-driver/ft260"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

type Bus struct {
	bus i2c.BusCloser
}

var _ ft260.I2cBus = new(Bus)

// Open initializes the periph host drivers and opens the I2C bus with the
// given registry name or device path. An empty name selects the default bus.
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("Could not initialize periph host drivers: %v", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("Could not open I2C bus %q: %v", name, err)
	}
	log.Printf("Opened I2C bus %v", bus)
	return &Bus{bus: bus}, nil
}

func (b *Bus) I2cWrite(addr byte, data ...byte) error {
	return b.bus.Tx(uint16(addr), data, nil)
}

func (b *Bus) I2cRead(addr byte, data []byte) error {
	return b.bus.Tx(uint16(addr), nil, data)
}

func (b *Bus) I2cWriteRead(addr byte, out, in []byte) error {
	return b.bus.Tx(uint16(addr), out, in)
}

func (b *Bus) I2cGet(addr byte, registerAddr byte, size int) ([]byte, error) {
	data := make([]byte, size)
	err := b.bus.Tx(uint16(addr), []byte{registerAddr}, data)
	return data, err
}

func (b *Bus) Close() error {
	return b.bus.Close()
}
