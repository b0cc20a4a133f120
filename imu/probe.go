package imu

import (
	"context"

	"github.com/viam-modules/inertial/bus"
)

// identify walks the address candidates and then the descriptors in priority order, returning
// the first descriptor whose identification register holds one of its IDs. A failed read
// counts as an absent device.
func identify(ctx context.Context, t bus.Transport, descriptors []*Descriptor) (*Descriptor, byte, error) {
	var id [1]byte
	for offset := range 2 {
		for _, desc := range descriptors {
			addr := desc.Addresses[offset]
			if !t.Probe(ctx, addr) {
				continue
			}
			id[0] = 0
			if err := t.ReadRegister(ctx, addr, desc.IDRegister, id[:]); err != nil {
				continue
			}
			if desc.matchesID(id[0]) {
				return desc, addr, nil
			}
		}
	}
	return nil, 0, ErrNotFound
}
