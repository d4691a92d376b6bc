// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const EventQueueSize = 20

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// EventBus delivers ledger notifications to subscribers. Events published
// for a particular type are delivered to every subscriber of that type in
// publish order.
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]chan Event
	metrics     *eventMetrics
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
}

type eventMetrics struct {
	eventsTotal    *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
}

func NewEventBus(promRegistry prometheus.Registerer) *EventBus {
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]chan Event),
	}
	if promRegistry != nil {
		e.metrics = &eventMetrics{
			eventsTotal: promauto.With(promRegistry).NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritrust_events_total",
					Help: "total events published by type",
				},
				[]string{"type"},
			),
			subscribers: promauto.With(promRegistry).NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "veritrust_event_subscribers",
					Help: "current event subscribers by type",
				},
				[]string{"type"},
			),
			deliveryErrors: promauto.With(promRegistry).NewCounterVec(
				prometheus.CounterOpts{
					Name: "veritrust_event_delivery_errors_total",
					Help: "total event delivery failures by type",
				},
				[]string{"type"},
			),
		}
	}
	return e
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subId := e.lastSubId + 1
	e.lastSubId = subId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]chan Event)
	}
	evtCh := make(chan Event, EventQueueSize)
	e.subscribers[eventType][subId] = evtCh
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId, evtCh
}

// SubscribeFunc allows a consumer to receive events of a particular type via a callback function
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for {
			evt, ok := <-evtCh
			if !ok {
				return
			}
			handlerFunc(evt)
		}
	}()
	return subId
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var chToClose chan Event
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		if ch, ok2 := evtTypeSubs[subId]; ok2 {
			chToClose = ch
			delete(evtTypeSubs, subId)
			if len(evtTypeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
			if e.metrics != nil {
				e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
			}
		}
	}
	e.mu.Unlock()
	if chToClose != nil {
		close(chToClose)
	}
}

// Publish sends an event of a particular type to all current subscribers.
// Delivery blocks per subscriber once its channel buffer fills, so each
// successful ledger transition produces exactly one delivery per subscriber.
// A subscriber whose channel is closed mid-send is dropped rather than
// panicking the publisher.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	type subItem struct {
		id EventSubscriberId
		ch chan Event
	}
	e.mu.RLock()
	subs := make([]subItem, 0, len(e.subscribers[eventType]))
	for id, ch := range e.subscribers[eventType] {
		subs = append(subs, subItem{id: id, ch: ch})
	}
	e.mu.RUnlock()
	for _, item := range subs {
		if err := deliver(item.ch, evt); err != nil {
			// Subscriber went away mid-send, unregister it
			e.Unsubscribe(eventType, item.id)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType)).
					Inc()
			}
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// deliver sends on the subscriber channel, converting a send on a channel
// closed by a concurrent Unsubscribe or Stop into an error
func deliver(ch chan Event, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event deliver panic: %v", r)
		}
	}()
	ch <- evt
	return nil
}

// Stop closes all subscriber channels and clears the subscribers map.
// This ensures that SubscribeFunc goroutines exit cleanly during shutdown.
func (e *EventBus) Stop() {
	e.mu.Lock()
	subsCopy := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]chan Event)
	e.mu.Unlock()
	for _, evtTypeSubs := range subsCopy {
		for _, ch := range evtTypeSubs {
			close(ch)
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
