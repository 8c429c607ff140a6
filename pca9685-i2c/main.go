package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/hid"
	"github.com/antongulenko/pca9685-driver/ft260"
	"github.com/antongulenko/pca9685-driver/pca9685"
	"github.com/antongulenko/pca9685-driver/periphbus"
	log "github.com/sirupsen/logrus"
)

type commandFunc func() error

var (
	usbDevice   = ""
	platformBus = ""
	i2cFreq     = uint(400)
	chipAddr    = uint(pca9685.ADDRESS)
	command     = "dump"
	channelNr   = -1
	onValue     = uint(0)
	offValue    = uint(0)
	clearFlag   = false
	pwmFreq     = float64(200)

	commands = map[string]commandFunc{
		"none":     func() error { return nil },
		"scan":     scan,
		"init":     initChip,
		"dump":     dumpChannels,
		"read":     readChannel,
		"set":      setOnOff,
		"on":       setOnCounter,
		"off":      setOffCounter,
		"full-on":  setFullOn,
		"full-off": setFullOff,
		"pulse":    readPulse,
		"freq":     setFrequency,
	}

	bus ft260.I2cBus
	dev *pca9685.Device
)

func main() {
	flag.StringVar(&usbDevice, "dev", usbDevice, "Specify a USB path for the FT260 bridge")
	flag.StringVar(&platformBus, "bus", platformBus, "Use a kernel I2C adapter (e.g. /dev/i2c-1) instead of the FT260 bridge")
	flag.UintVar(&i2cFreq, "i2cFreq", i2cFreq, "The I2C bus frequency for the FT260 bridge (60 - 3400)")
	flag.UintVar(&chipAddr, "addr", chipAddr, "I2C address of the PCA9685 chip")
	flag.IntVar(&channelNr, "ch", channelNr, "Target channel (0-15, negative for the ALL broadcast channel)")
	flag.UintVar(&onValue, "on", onValue, "ON counter value (0-4095)")
	flag.UintVar(&offValue, "off", offValue, "OFF counter value (0-4095)")
	flag.BoolVar(&clearFlag, "clear", clearFlag, "Clear the full ON/OFF flag instead of setting it (full-on/full-off commands)")
	flag.Float64Var(&pwmFreq, "pwmFreq", pwmFreq, "PWM output frequency in Hz (freq command)")
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	golib.RegisterLogFlags()
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	cleanup, err := openBus()
	if err != nil {
		return err
	}
	defer cleanup()
	dev = pca9685.NewDevice(bus, byte(chipAddr))

	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}
	return commandFunc()
}

func openBus() (func(), error) {
	if platformBus != "" {
		platform, err := periphbus.Open(platformBus)
		if err != nil {
			return nil, err
		}
		bus = platform
		return func() {
			golib.Printerr(platform.Close())
		}, nil
	}

	if err := hid.Init(); err != nil {
		return nil, err
	}
	usb, err := ft260.OpenPath(usbDevice)
	if err != nil {
		golib.Printerr(hid.Shutdown())
		return nil, err
	}
	if err := usb.Setup(uint16(i2cFreq)); err != nil {
		golib.Printerr(usb.Close())
		golib.Printerr(hid.Shutdown())
		return nil, err
	}
	bus = usb
	return func() {
		golib.Printerr(usb.Close())
		golib.Printerr(hid.Shutdown())
	}, nil
}

func targetChannel() (pca9685.Channel, error) {
	if channelNr < 0 {
		return pca9685.AllChannels, nil
	}
	if channelNr >= pca9685.NumChannels {
		return 0, fmt.Errorf("Invalid channel %v (0-%v or negative for ALL)", channelNr, pca9685.NumChannels-1)
	}
	return pca9685.Channel(channelNr), nil
}

func readableChannel() (pca9685.Channel, error) {
	channel, err := targetChannel()
	if err == nil && channel == pca9685.AllChannels {
		err = fmt.Errorf("The ALL broadcast channel cannot be read, specify -ch 0..%v", pca9685.NumChannels-1)
	}
	return channel, err
}

func scan() error {
	slaves, err := ft260.I2cScan(bus)
	if err != nil {
		return err
	}
	log.Printf("Scanned slaves: %#02v", slaves)
	return nil
}

func initChip() error {
	return dev.Init()
}

func dumpChannels() error {
	values, err := dev.AllChannelsOnOff()
	if err != nil {
		return err
	}
	for channel := pca9685.C0; channel < pca9685.NumChannels; channel++ {
		onT, offT := values[2*channel], values[2*channel+1]
		log.Printf("%4v: on=%#04x off=%#04x fullOn=%v fullOff=%v pulse=%v",
			channel, onT, offT, pca9685.IsFullFlagSet(onT), pca9685.IsFullFlagSet(offT),
			pca9685.EffectivePulseOf(onT, offT))
	}
	return nil
}

func readChannel() error {
	channel, err := readableChannel()
	if err != nil {
		return err
	}
	onT, offT, err := dev.ChannelOnOffWithFlags(channel)
	if err != nil {
		return err
	}
	pulse, err := dev.EffectivePulse(channel)
	if err != nil {
		return err
	}
	log.Printf("%v: on=%#04x off=%#04x fullOn=%v fullOff=%v pulse=%v",
		channel, onT, offT, pca9685.IsFullFlagSet(onT), pca9685.IsFullFlagSet(offT), pulse)
	return nil
}

func setOnOff() error {
	channel, err := targetChannel()
	if err != nil {
		return err
	}
	log.Printf("Setting %v to on=%v off=%v (overwriting flags)", channel, onValue, offValue)
	return dev.SetChannelOnOff(channel, uint16(onValue), uint16(offValue))
}

func setOnCounter() error {
	channel, err := targetChannel()
	if err != nil {
		return err
	}
	log.Printf("Setting ON counter of %v to %v", channel, onValue)
	return dev.SetChannelOn(channel, uint16(onValue))
}

func setOffCounter() error {
	channel, err := targetChannel()
	if err != nil {
		return err
	}
	log.Printf("Setting OFF counter of %v to %v", channel, offValue)
	return dev.SetChannelOff(channel, uint16(offValue))
}

func setFullOn() error {
	channel, err := targetChannel()
	if err != nil {
		return err
	}
	log.Printf("Setting full ON flag of %v to %v", channel, !clearFlag)
	return dev.SetChannelFullOn(channel, !clearFlag)
}

func setFullOff() error {
	channel, err := targetChannel()
	if err != nil {
		return err
	}
	log.Printf("Setting full OFF flag of %v to %v", channel, !clearFlag)
	return dev.SetChannelFullOff(channel, !clearFlag)
}

func readPulse() error {
	channel, err := readableChannel()
	if err != nil {
		return err
	}
	pulse, err := dev.EffectivePulse(channel)
	if err != nil {
		return err
	}
	log.Printf("Effective pulse of %v: %v of %v ticks", channel, pulse, pca9685.TIMER_RESOLUTION)
	return nil
}

func setFrequency() error {
	log.Printf("Setting PWM frequency to %v Hz (prescaler %#02x)", pwmFreq, pca9685.Prescaler(pwmFreq))
	return dev.SetPwmFrequency(pwmFreq)
}
