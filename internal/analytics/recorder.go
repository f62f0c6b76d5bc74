package analytics

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ifoundit/checkout-api/internal/events"
	"github.com/ifoundit/checkout-api/internal/pricing"
)

// Version is the envelope version attached to every recorded event.
const Version = "v1"

// Analytics event names.
const (
	EventImplicitApplied   = "FREE_HALO_IMPLICIT_APPLIED"
	EventFreeToPaidUpgrade = "FREE_TO_PAID_UPGRADE"
	EventTagMixSelected    = "TAG_MIX_SELECTED"
)

// Envelope is the versioned wrapper around every analytics event.
type Envelope struct {
	Version string `json:"version"`
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// ImplicitAppliedPayload records an order priced with the implicit default tag.
type ImplicitAppliedPayload struct {
	Capacity int    `json:"capacity"`
	TagType  string `json:"tagType"`
}

// FreeToPaidUpgradePayload records a capacity upgrade off the free plan.
type FreeToPaidUpgradePayload struct {
	PreviousCapacity int            `json:"previousCapacity"`
	NewCapacity      int            `json:"newCapacity"`
	PreservedTags    map[string]int `json:"preservedTags"`
}

// TagMixSelectedPayload records the final tag mix of a checkout.
type TagMixSelectedPayload struct {
	TagTypes      []string       `json:"tagTypes"`
	Quantities    map[string]int `json:"quantities"`
	TotalTagCount int            `json:"totalTagCount"`
}

// Recorder collects analytics events. Tracking must never break a checkout:
// every failure is swallowed after logging.
type Recorder struct {
	Log zerolog.Logger

	mu       sync.Mutex
	recorded []Envelope
}

// Track wraps the payload in the versioned envelope and records it.
func (r *Recorder) Track(name string, payload any) {
	if r == nil || name == "" {
		return
	}
	env := Envelope{Version: Version, Name: name, Payload: payload}
	if _, err := json.Marshal(env); err != nil {
		r.Log.Debug().Err(err).Str("event", name).Msg("analytics event dropped")
		return
	}
	r.mu.Lock()
	r.recorded = append(r.recorded, env)
	r.mu.Unlock()
	r.Log.Debug().Str("event", name).Msg("analytics event recorded")
}

// Recorded returns a snapshot of everything tracked so far.
func (r *Recorder) Recorded() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.recorded...)
}

// Notify adapts domain events into analytics events so the recorder can
// subscribe to the event bus. It always reports success.
func (r *Recorder) Notify(_ context.Context, ev events.Event) error {
	if r == nil {
		return nil
	}
	switch ev.Topic {
	case events.TopicImplicitSelection:
		r.Track(EventImplicitApplied, ImplicitAppliedPayload{TagType: pricing.DefaultTagID})
	case events.TopicSessionCreated:
		var payload struct {
			TagCapacity int `json:"tagCapacity"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err == nil && payload.TagCapacity > 1 {
			r.Track(EventFreeToPaidUpgrade, FreeToPaidUpgradePayload{
				PreviousCapacity: 1,
				NewCapacity:      payload.TagCapacity,
			})
		}
	}
	return nil
}

// TrackTagMix derives and records the tag-mix event for a priced order.
func (r *Recorder) TrackTagMix(order pricing.PricedOrder) {
	if r == nil {
		return
	}
	types := make([]string, 0, len(order.TagItems))
	quantities := make(map[string]int, len(order.TagItems))
	for _, item := range order.TagItems {
		types = append(types, item.ID)
		quantities[item.ID] = item.Quantity
	}
	r.Track(EventTagMixSelected, TagMixSelectedPayload{
		TagTypes:      types,
		Quantities:    quantities,
		TotalTagCount: order.TotalSelectedQuantity,
	})
}
