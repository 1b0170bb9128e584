// Package registry holds the bounded set of devices the hub is responsible
// for and the rotating queue used to spread connections across them.
package registry

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/hubtime"
	"github.com/srg/blehub/internal/wire"
)

// MaxDevices is the default registry capacity.
const MaxDevices = 64

// ErrTooManyDevices is matched by every CapacityError.
var ErrTooManyDevices = errors.New("too many devices")

// CapacityError reports an insertion that would exceed a bounded collection.
type CapacityError struct {
	Capacity int
	// Accepted is how many distinct entries fit before the overflow.
	Accepted int
}

func (e *CapacityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("too many devices: capacity %d, accepted %d", e.Capacity, e.Accepted)
}

func (e *CapacityError) Is(target error) bool {
	return e != nil && target == ErrTooManyDevices
}

// State is a point-in-time copy of the registry.
type State struct {
	Devices   []device.Device
	UpdatedAt hubtime.Time
}

// Registry is a bounded, insertion-ordered collection of devices keyed by
// address. It is not safe for concurrent use; the hub guards it with an
// async mutex.
type Registry struct {
	capacity  int
	devices   *orderedmap.OrderedMap[uint64, device.Device]
	updatedAt hubtime.Time
}

// New creates an empty registry. A non-positive capacity means MaxDevices.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = MaxDevices
	}
	return &Registry{
		capacity: capacity,
		devices:  orderedmap.New[uint64, device.Device](capacity),
	}
}

func (r *Registry) Len() int { return r.devices.Len() }
func (r *Registry) Cap() int { return r.capacity }

// UpdatedAt is the time of the last successful Replace.
func (r *Registry) UpdatedAt() hubtime.Time { return r.updatedAt }

// Contains reports whether a device with d's address is present.
func (r *Registry) Contains(d device.Device) bool {
	_, ok := r.devices.Get(device.Key(d))
	return ok
}

// Devices returns the devices in insertion order.
func (r *Registry) Devices() []device.Device {
	out := make([]device.Device, 0, r.devices.Len())
	for pair := r.devices.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Snapshot copies the devices and the update time together.
func (r *Registry) Snapshot() State {
	return State{Devices: r.Devices(), UpdatedAt: r.updatedAt}
}

// Replace makes list the registry's contents. Entries are validated and
// converted in order; an entry whose address is already present is skipped.
//
// The replacement is all or nothing: on any error the registry keeps its
// previous contents and update time. Unknown devices are rejected with
// device.ErrUnknownDevice. Overflow fails with a *CapacityError.
func (r *Registry) Replace(list []wire.DeviceInfo, now hubtime.Time) error {
	staged := orderedmap.New[uint64, device.Device](r.capacity)

	for i, info := range list {
		d, err := device.FromWire(info)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if d.Kind() == device.KindUnknown {
			return fmt.Errorf("entry %d: %w", i, device.ErrUnknownDevice)
		}

		key := device.Key(d)
		if _, dup := staged.Get(key); dup {
			continue
		}
		if staged.Len() >= r.capacity {
			return &CapacityError{Capacity: r.capacity, Accepted: staged.Len()}
		}
		staged.Set(key, d)
	}

	r.devices = staged
	r.updatedAt = now
	return nil
}
