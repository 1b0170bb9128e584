package registry

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blehub/internal/device"
)

// Queue is the working connection queue. Devices are taken from the front
// and rotated to the back, so every device is serviced in turn.
//
// Entries are keyed by address, which makes re-adding a device an update in
// place rather than a second copy. Unknown devices share device.UnknownKey.
type Queue struct {
	capacity int
	entries  *orderedmap.OrderedMap[uint64, device.Device]
}

// NewQueue creates an empty queue. A non-positive capacity means MaxDevices.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = MaxDevices
	}
	return &Queue{
		capacity: capacity,
		entries:  orderedmap.New[uint64, device.Device](capacity),
	}
}

func (q *Queue) Len() int { return q.entries.Len() }

// Push adds d at the back, or replaces the stored value in place when its
// address is already queued.
func (q *Queue) Push(d device.Device) error {
	key := device.Key(d)
	if _, ok := q.entries.Get(key); !ok && q.entries.Len() >= q.capacity {
		return &CapacityError{Capacity: q.capacity, Accepted: q.entries.Len()}
	}
	q.entries.Set(key, d)
	return nil
}

// Front returns the device at the front of the queue.
func (q *Queue) Front() (device.Device, bool) {
	pair := q.entries.Oldest()
	if pair == nil {
		return nil, false
	}
	return pair.Value, true
}

// Rotate moves the front device to the back.
func (q *Queue) Rotate() {
	if pair := q.entries.Oldest(); pair != nil {
		_ = q.entries.MoveToBack(pair.Key)
	}
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.entries = orderedmap.New[uint64, device.Device](q.capacity)
}

// Refill discards the queue and loads devices in order.
func (q *Queue) Refill(devices []device.Device) error {
	q.Clear()
	return q.Merge(devices)
}

// Merge pushes every device. Queued devices keep their position.
func (q *Queue) Merge(devices []device.Device) error {
	for _, d := range devices {
		if err := q.Push(d); err != nil {
			return err
		}
	}
	return nil
}

// SameMembers reports whether devices holds exactly the queued addresses,
// ignoring order.
func (q *Queue) SameMembers(devices []device.Device) bool {
	if len(devices) != q.entries.Len() {
		return false
	}
	seen := make(map[uint64]struct{}, len(devices))
	for _, d := range devices {
		key := device.Key(d)
		if _, ok := q.entries.Get(key); !ok {
			return false
		}
		seen[key] = struct{}{}
	}
	return len(seen) == q.entries.Len()
}

// Devices returns the queued devices front to back.
func (q *Queue) Devices() []device.Device {
	out := make([]device.Device, 0, q.entries.Len())
	for pair := q.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Has reports whether key is queued.
func (q *Queue) Has(key uint64) bool {
	_, ok := q.entries.Get(key)
	return ok
}
