package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/device"
	"github.com/robotalks/thermo.go/pkg/device/ads1115"
	"github.com/robotalks/thermo.go/pkg/device/sim"
	"github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/serial"
	"github.com/robotalks/thermo.go/pkg/thermistor"
)

func init() {
	if err := device.LoadDefaults(); err != nil {
		log.Fatalln(err)
	}
	device.SetupFlags()
}

func openADC(conf *device.Config) (device.ADC, func() error, error) {
	switch conf.ADC {
	case "ads1115":
		adc, err := ads1115.Open(ads1115.Config{
			Bus:       conf.I2CBus,
			Address:   conf.I2CAddress,
			VRefMilli: conf.VRefMilli,
		})
		if err != nil {
			return nil, nil, err
		}
		return adc, adc.Close, nil
	case "sim":
		divider, err := thermistor.ParseDivider(conf.Divider)
		if err != nil {
			return nil, nil, err
		}
		return sim.New(conf.Parameters, conf.Pull, divider, conf.SimTemp), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown adc %q", conf.ADC)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := device.NewConfig()
	adc, closeADC, err := openADC(conf)
	if err != nil {
		log.Fatalln(err)
	}
	defer closeADC()

	port, err := serial.Open(&serial.Config{Name: conf.Serial, Baud: conf.Baud})
	if err != nil {
		log.Fatalln(err)
	}
	defer port.Close()

	wake := device.NewWakeSignal()
	loop, err := conf.NewLoop(adc, port, wake.C())
	if err != nil {
		log.Fatalln(err)
	}
	ticker := device.NewTicker(conf.Interval, wake)

	if err := framework.NewRunner().HandleSignals().Go(ticker, loop).Wait(); err != nil {
		glog.Flush()
		log.Fatalln(err)
	}
}
