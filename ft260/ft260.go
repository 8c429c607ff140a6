package ft260

import (
	"errors"
	"fmt"

	"github.com/antongulenko/hid"
	log "github.com/sirupsen/logrus"
)

const (
	FTDIVendorId   = 0x0403
	FT260ProductId = 0x6030

	FT260_CHIP_CODE = uint32(0x02600200)
)

type Ft260Driver struct {
	Vendor  uint16
	Product uint16
}

func (d *Ft260Driver) Open() (*Ft260, error) {
	return d.OpenPath("")
}

// OpenPath opens the FT260 device at the given USB path. An empty path selects
// the first matching device.
func (d *Ft260Driver) OpenPath(path string) (*Ft260, error) {
	if !hid.Supported() {
		return nil, errors.New("This library github.com/antongulenko/hid is not supported on this platform")
	}
	vendor, product := d.Vendor, d.Product
	if vendor == 0 {
		vendor = FTDIVendorId
	}
	if product == 0 {
		product = FT260ProductId
	}
	devices := hid.Enumerate(vendor, product)
	if len(devices) == 0 {
		return nil, fmt.Errorf("No USB HID device found with vendorID=%04x productID=%04x", vendor, product)
	}
	var info *hid.DeviceInfo
	if path == "" {
		if len(devices) > 1 {
			log.Warnf("Multiple devices connected with vendorID=%04x productID=%04x, using first", vendor, product)
		}
		info = &devices[0]
	} else {
		for i := range devices {
			if devices[i].Path == path {
				info = &devices[i]
				break
			}
		}
		if info == nil {
			return nil, fmt.Errorf("No USB HID device with vendorID=%04x productID=%04x at path %v", vendor, product, path)
		}
	}
	log.Printf("Opening USB HID device %v (USB %v): %v (%04x) from %v (%04x), Release %v",
		info.Path, info.Interface, info.Product, info.ProductID, info.Manufacturer, info.VendorID, info.Release)
	dev, err := info.Open()
	if err != nil {
		return nil, err
	}
	return &Ft260{
		Device: dev,
	}, nil
}

func Open() (*Ft260, error) {
	return (&Ft260Driver{}).Open()
}

func OpenPath(path string) (*Ft260, error) {
	return (&Ft260Driver{}).OpenPath(path)
}

type Ft260 struct {
	*hid.Device
}

type ReportIn interface {
	Unmarshall(data []byte) error
	ReportID() byte
	ReportLen() int
}

type ReportOut interface {
	Marshall(data []byte) error
	ReportID() byte
	ReportLen() int
}

func (f *Ft260) Write(input interface{}) error {
	var data []byte
	switch v := input.(type) {
	case []byte:
		data = v
	case ReportOut:
		data = make([]byte, v.ReportLen()+1)
		err := v.Marshall(data[1:])
		if err != nil {
			return err
		}
		data[0] = v.ReportID()
	default:
		return fmt.Errorf("Unexpected type for writing to FT260: %T", input)
	}
	n, err := f.Device.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("ft260: wrong write len (%v instead of %v)", n, len(data))
	}
	return err
}

func (f *Ft260) Read(report ReportIn) error {
	data := make([]byte, report.ReportLen()+1)
	data[0] = report.ReportID()
	n, err := f.Device.Read(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("ft260: wrong read len (%v instead of %v)", n, len(data))
	}
	if err == nil && data[0] != report.ReportID() {
		return fmt.Errorf("Unexpected report id (expected %v, received %v)", report.ReportID(), data[0])
	}
	if err == nil {
		err = report.Unmarshall(data[1:])
	}
	return err
}

// Setup brings the chip into a known state for I2C master operation: validate
// the chip code, configure the system clock and I2C bus speed, set all GPIO
// pins to normal operation and verify the resulting system status.
func (f *Ft260) Setup(i2cFreq uint16) error {
	var code ReportChipCode
	if err := f.Read(&code); err != nil {
		return err
	}
	if code.ChipCode != FT260_CHIP_CODE {
		return fmt.Errorf("Unexpected chip code %08x (expected %08x)", code.ChipCode, FT260_CHIP_CODE)
	}

	var err error
	f.writeConfigValue(&err, SetSystemSetting_Clock, Clock48MHz)
	f.writeConfigValue(&err, SetSystemSetting_I2CReset, nil) // Reset i2c bus in case it was disturbed
	f.writeConfigValue(&err, SetSystemSetting_I2CSetClock, i2cFreq)
	f.writeConfigValue(&err, SetSystemSetting_GPIO_2, GPIO_2_Normal) // Set all GPIO pins to normal operation
	f.writeConfigValue(&err, SetSystemSetting_GPIO_A, GPIO_A_Normal)
	f.writeConfigValue(&err, SetSystemSetting_GPIO_G, GPIO_G_Normal)
	f.writeConfigValue(&err, SetSystemSetting_EnableWakeupInt, false)
	if err != nil {
		return err
	}
	return f.validate(i2cFreq)
}

func (f *Ft260) writeConfigValue(outErr *error, address byte, val interface{}) {
	if *outErr == nil {
		*outErr = f.Write(&SetSystemStatus{
			Request: address,
			Value:   val,
		})
	}
}

func (f *Ft260) validate(i2cFreq uint16) error {
	var status ReportSystemStatus
	if err := f.Read(&status); err != nil {
		return err
	}
	if status.ChipMode != 0x01 {
		return fmt.Errorf("FT260: unexpected chip mode %02x (expected %02x)", status.ChipMode, 0x01)
	}
	if status.Clock != Clock48MHz {
		return fmt.Errorf("FT260: unexpected clock value %02x (expected %02x)", status.Clock, Clock48MHz)
	}
	if status.GPIO2Function != GPIO_2_Normal {
		return fmt.Errorf("FT260: unexpected GPIO 2 function %02x (expected %02x)", status.GPIO2Function, GPIO_2_Normal)
	}
	if status.GPIOAFunction != GPIO_A_Normal {
		return fmt.Errorf("FT260: unexpected GPIO A function %02x (expected %02x)", status.GPIOAFunction, GPIO_A_Normal)
	}
	if status.GPIOGFunction != GPIO_G_Normal {
		return fmt.Errorf("FT260: unexpected GPIO G function %02x (expected %02x)", status.GPIOGFunction, GPIO_G_Normal)
	}
	if status.EnableWakeupInt {
		return fmt.Errorf("FT260: unexpected wakeup interrupt setting %v (expected %v)", status.EnableWakeupInt, false)
	}
	if status.Suspended {
		return errors.New("FT260: device is suspended")
	}
	if !status.PowerStatus {
		return errors.New("FT260: device is powered off")
	}
	if !status.I2CEnable {
		return errors.New("FT260: I2C is not enabled on the device")
	}

	var i2cStatus ReportI2cStatus
	if err := f.Read(&i2cStatus); err != nil {
		return err
	}
	if i2cStatus.BusSpeed != i2cFreq {
		return fmt.Errorf("FT260: unexpected I2C bus speed %v (expected %v)", i2cStatus.BusSpeed, i2cFreq)
	}
	return nil
}

func _readBool(b []byte, index int, e *error) bool {
	if *e == nil {
		val := b[index]
		if val == 0 {
			return false
		} else if val == 1 {
			return true
		} else {
			*e = fmt.Errorf("Expected 0 or 1 for byte at index %v, but got %02x", index, val)
		}
	}
	return false
}
