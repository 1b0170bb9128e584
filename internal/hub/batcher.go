package hub

import (
	"fmt"
	"slices"

	"github.com/srg/blehub/internal/device"
	"github.com/srg/blehub/internal/host"
	"github.com/srg/blehub/internal/registry"
)

// ConnectBatch takes up to limit devices from the front of q, rotating each
// to the back, and asks h to connect to exactly that set. A device seen
// twice in one batch ends the batch early. A queue holding an Unknown
// device is refused before anything is rotated or connected.
func ConnectBatch(h host.Host, q *registry.Queue, limit int) error {
	if q.Has(device.UnknownKey) {
		return fmt.Errorf("connect batch: %w", device.ErrUnknownDevice)
	}

	keys := make([]uint64, 0, limit)
	for i := 0; i < limit; i++ {
		d, ok := q.Front()
		if !ok {
			break
		}
		key := device.Key(d)
		q.Rotate()
		if slices.Contains(keys, key) {
			break
		}
		keys = append(keys, key)
	}

	h.ConnectDevices(keys)
	return nil
}
