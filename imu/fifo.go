package imu

import "context"

// perSampleWords is the number of 16-bit words one FIFO sample occupies: three per running
// accelerometer or gyroscope.
func (d *Device) perSampleWords() int {
	n := 0
	if d.running(ModeAccel) {
		n += 3
	}
	if d.running(ModeGyro) {
		n += 3
	}
	return n
}

func (d *Device) fifoWords(ctx context.Context, layout *StreamLayout, perSample int) (int, error) {
	width := layout.CountWidth
	if width < 1 {
		width = 1
	}
	buf := make([]byte, width)
	if err := d.read(ctx, layout.CountReg, buf); err != nil {
		return 0, err
	}
	var count uint16
	if width == 1 {
		count = uint16(buf[0])
	} else {
		count = d.desc.Order.uint16(buf[:2])
	}
	count &= layout.CountMask

	switch layout.Unit {
	case CountBytes:
		return int(count) / 2, nil
	case CountSamples:
		return int(count) * perSample, nil
	default:
		return int(count), nil
	}
}

// QueuedSamples drains up to maxSamples samples from the chip's FIFO and returns the raw words in
// FIFO order along with the number of whole samples they hold. Families without a FIFO
// return nothing.
func (d *Device) QueuedSamples(ctx context.Context, maxSamples int) ([]int16, int, error) {
	layout := d.desc.Stream
	perSample := d.perSampleWords()
	if d.desc.Caps&CapFIFO == 0 || layout == nil || perSample == 0 || maxSamples <= 0 {
		return nil, 0, nil
	}

	words, err := d.fifoWords(ctx, layout, perSample)
	if err != nil {
		return nil, 0, err
	}
	words -= words % perSample
	if limit := maxSamples * perSample; words > limit {
		words = limit
	}
	if words == 0 {
		return nil, 0, nil
	}
	if layout.Split {
		out, err := d.splitSamples(ctx, words/perSample)
		if err != nil {
			return nil, 0, err
		}
		return out, words / perSample, nil
	}

	chunk := 1
	if layout.PerSample {
		chunk = perSample
	}
	out := make([]int16, 0, words)
	buf := make([]byte, 2*chunk)
	for len(out) < words {
		if err := d.read(ctx, layout.DataReg, buf); err != nil {
			return nil, 0, err
		}
		for i := 0; i < chunk; i++ {
			out = append(out, d.desc.Order.int16(buf[2*i:2*i+2]))
		}
	}
	return out, words / perSample, nil
}

// splitSamples drains n samples from a FIFO that surfaces through the separate accelerometer
// and gyroscope output registers. The registers are read in address order and each sample is
// returned accelerometer first.
func (d *Device) splitSamples(ctx context.Context, n int) ([]int16, error) {
	accel, gyro := d.running(ModeAccel), d.running(ModeGyro)
	first, second := d.desc.Gyro.Addr, d.desc.Accel.Addr
	if first > second {
		first, second = second, first
	}
	out := make([]int16, 0, n*d.perSampleWords())
	var a, g [6]byte
	for i := 0; i < n; i++ {
		for _, reg := range []byte{first, second} {
			switch {
			case reg == d.desc.Accel.Addr && accel:
				if err := d.read(ctx, reg, a[:]); err != nil {
					return nil, err
				}
			case reg == d.desc.Gyro.Addr && gyro:
				if err := d.read(ctx, reg, g[:]); err != nil {
					return nil, err
				}
			}
		}
		if accel {
			out = append(out, d.words(a[:])...)
		}
		if gyro {
			out = append(out, d.words(g[:])...)
		}
	}
	return out, nil
}

func (d *Device) words(buf []byte) []int16 {
	w := make([]int16, 0, len(buf)/2)
	for i := 0; i+1 < len(buf); i += 2 {
		w = append(w, d.desc.Order.int16(buf[i:i+2]))
	}
	return w
}
