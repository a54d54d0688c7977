// Package telemetry publishes host readings and link events over MQTT.
package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/host"
	"github.com/robotalks/thermo.go/pkg/thermistor"
	"github.com/robotalks/thermo.go/pkg/telemetry/mqtt"
	"github.com/robotalks/thermo.go/pkg/watchdog"
)

const appID = "thermo.go"

// DefaultQueueSize is the number of events buffered for publishing.
const DefaultQueueSize = 64

// HostID returns an ID of the machine safe to publish.
func HostID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "unknown"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// Meta is published retained to <id>/meta.
type Meta struct {
	ID         string                 `json:"id"`
	Curve      string                 `json:"curve,omitempty"`
	Range      *thermistor.Range      `json:"range,omitempty"`
	Sensor     string                 `json:"sensor,omitempty"`
	Parameters *thermistor.Parameters `json:"parameters,omitempty"`
}

// Publisher implements host.Observer and publishes events to MQTT.
// Events are queued and dropped when the queue is full.
type Publisher struct {
	host.NopObserver

	Queue *mqtt.Queue
	ID    string

	metaLock sync.Mutex
	meta     Meta
	events   chan *Event
	now      func() time.Time
}

// NewPublisher creates a Publisher connecting to the broker URL, e.g.
// mqtt://localhost:1883/thermo/
func NewPublisher(brokerURL, id string) (*Publisher, error) {
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+id+"/meta", nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("thermo:" + id)
	}
	p := newPublisher(mqtt.NewQueue(opts, topicPrefix), id)
	return p, nil
}

func newPublisher(q *mqtt.Queue, id string) *Publisher {
	p := &Publisher{
		Queue:  q,
		ID:     id,
		meta:   Meta{ID: id},
		events: make(chan *Event, DefaultQueueSize),
		now:    time.Now,
	}
	q.OnConnect = func(*mqtt.Queue) { p.publishMeta() }
	return p
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// SetControl adds control settings to meta.
func (p *Publisher) SetControl(curve string, r thermistor.Range) {
	p.metaLock.Lock()
	p.meta.Curve, p.meta.Range = curve, &r
	p.metaLock.Unlock()
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	for {
		select {
		case <-ctx.Done():
			p.Queue.PubWith(p.ID+"/meta", nil, 1, true)
			p.Queue.Close()
			return ctx.Err()
		case e := <-p.events:
			p.publish(e)
		}
	}
}

func (p *Publisher) publish(e *Event) {
	payload, err := e.Encode()
	if err != nil {
		glog.Errorf("encode %s event error: %v", e.Kind, err)
		return
	}
	if err := p.Queue.Pub(p.ID+"/"+e.Kind, payload).Error(); err != nil {
		glog.V(1).Infof("publish %s error: %v", e.Kind, err)
	}
}

func (p *Publisher) publishMeta() {
	p.metaLock.Lock()
	data, err := json.Marshal(&p.meta)
	p.metaLock.Unlock()
	if err != nil {
		glog.Errorf("encode meta error: %v", err)
		return
	}
	p.Queue.PubWith(p.ID+"/meta", data, 1, true)
}

func (p *Publisher) enqueue(e *Event) {
	select {
	case p.events <- e:
	default:
		glog.V(2).Infof("telemetry queue full, %s event dropped", e.Kind)
	}
}

// ReadingDecoded implements host.Observer.
func (p *Publisher) ReadingDecoded(rec *thermistor.Thermistor, temp float64, valid bool) {
	p.metaLock.Lock()
	changed := p.meta.Sensor != rec.Name || p.meta.Parameters == nil || *p.meta.Parameters != rec.Parameters
	if changed {
		params := rec.Parameters
		p.meta.Sensor, p.meta.Parameters = rec.Name, &params
	}
	p.metaLock.Unlock()
	if changed {
		p.publishMeta()
	}
	r := &Reading{
		Name:        rec.Name,
		Resistance:  rec.Resistance,
		Temperature: temp,
		Valid:       valid,
		Time:        p.now(),
	}
	p.enqueue(r.Event())
}

// DutyApplied implements host.Observer.
func (p *Publisher) DutyApplied(duty uint8, temp float64) {
	p.enqueue(&Event{
		Kind:   KindDuty,
		Time:   p.now(),
		Fields: map[string]interface{}{"duty": duty, "temperature": temp},
	})
}

// LinkChanged implements host.Observer.
func (p *Publisher) LinkChanged(from, to watchdog.Phase) {
	p.enqueue(&Event{
		Kind:   KindLink,
		Time:   p.now(),
		Fields: map[string]interface{}{"from": from.String(), "phase": to.String()},
	})
}

// LinkReset implements host.Observer.
func (p *Publisher) LinkReset(err error) {
	fields := map[string]interface{}{"phase": watchdog.PhaseResetting.String(), "reset": true}
	if err != nil {
		fields["error"] = err.Error()
	}
	p.enqueue(&Event{Kind: KindLink, Time: p.now(), Fields: fields})
}
