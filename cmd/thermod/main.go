package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/host"
	"github.com/robotalks/thermo.go/pkg/hwmon"
	"github.com/robotalks/thermo.go/pkg/live"
	"github.com/robotalks/thermo.go/pkg/metrics"
	"github.com/robotalks/thermo.go/pkg/serial"
	"github.com/robotalks/thermo.go/pkg/telemetry"
	"github.com/robotalks/thermo.go/pkg/usbreset"
)

func init() {
	if err := host.LoadDefaults(); err != nil {
		log.Fatalln(err)
	}
	host.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := host.Default()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}

	dir, err := hwmon.Find(conf.HwmonRoot, conf.SensorName)
	if err != nil {
		log.Fatalln(err)
	}
	glog.Infof("using hwmon %s", dir)
	fan := hwmon.NewFan(dir, conf.ControlFile, conf.ControlValue, conf.PWMFile)

	match, err := usbreset.ParseMatch(conf.USBVendor, conf.USBProduct, conf.USBSerial)
	if err != nil {
		log.Fatalln(err)
	}
	resetter := usbreset.NewResetter(match)
	resetter.SysfsRoot = conf.USBRoot

	dialer := serial.NewDialer(conf.Serial, conf.Baud, conf.ReadTimeout)
	ctl := conf.NewController(dialer, resetter, fan)

	var observers host.Observers
	runnables := []framework.Runnable{ctl}
	if conf.MetricsAddr != "" {
		m, hub := metrics.New(), live.NewHub()
		observers = append(observers, m, hub)
		runnables = append(runnables, hub, &metrics.Server{
			Addr:    conf.MetricsAddr,
			Metrics: m,
			Routes:  map[string]http.Handler{"/live": hub.Handler()},
		})
	}
	if conf.MQTTBrokerURL != "" {
		id := conf.ID
		if id == "" {
			id = telemetry.HostID()
		}
		pub, err := telemetry.NewPublisher(conf.MQTTBrokerURL, id)
		if err != nil {
			log.Fatalln(err)
		}
		pub.SetControl(conf.Curve.String(), conf.Range)
		observers = append(observers, pub)
		runnables = append(runnables, pub)
	}
	if len(observers) > 0 {
		ctl.Observer = observers
	}

	if err := framework.NewRunner().HandleSignals().Go(runnables...).Wait(); err != nil {
		glog.Flush()
		log.Fatalln(err)
	}
}
