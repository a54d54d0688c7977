package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/telemetry"
	"github.com/robotalks/thermo.go/pkg/telemetry/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/thermo/"
	filter  = "#"
)

func init() {
	if val := os.Getenv("THERMO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&filter, "filter", filter, "Topic filter relative to the URL prefix, e.g. HOSTID/#.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		out, err := telemetry.Format(topic, payload)
		if err != nil {
			log.Println(err)
			return
		}
		log.Println(out)
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	err = framework.NewRunner().HandleSignals().Go(framework.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})).Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
