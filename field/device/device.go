// Package device provides a field whose authoritative copy lives in OCCA
// device memory. The host mirror is only coherent between Pull and Push.
package device

import (
	"fmt"
	"github.com/notargets/DGHalo/field"
	"github.com/notargets/gocca"
	"unsafe"
)

// Field mirrors a CSR field into a single OCCA allocation
type Field struct {
	*field.CSR
	Device *gocca.OCCADevice
	Memory *gocca.OCCAMemory
}

var (
	_ field.Field        = (*Field)(nil)
	_ field.Synchronizer = (*Field)(nil)
)

// NewField allocates device memory for ndofs[k] values on node k and copies
// the zeroed host mirror to it
func NewField(device *gocca.OCCADevice, ndofs []int) (*Field, error) {
	if device == nil {
		return nil, fmt.Errorf("nil device")
	}
	host, err := field.NewCSR(ndofs)
	if err != nil {
		return nil, err
	}
	f := &Field{CSR: host, Device: device}
	if len(host.Data) == 0 {
		return f, nil
	}
	f.Memory = device.Malloc(f.bytes(), unsafe.Pointer(&host.Data[0]), nil)
	if f.Memory == nil {
		return nil, fmt.Errorf("failed to allocate %d bytes on %s device", f.bytes(), device.Mode())
	}
	return f, nil
}

func (f *Field) bytes() int64 {
	return int64(len(f.Data) * 8)
}

// Pull copies device values into the host mirror
func (f *Field) Pull() error {
	if f.Memory == nil {
		return nil
	}
	f.Device.Finish()
	f.Memory.CopyTo(unsafe.Pointer(&f.Data[0]), f.bytes())
	return nil
}

// Push copies the host mirror to device memory
func (f *Field) Push() error {
	if f.Memory == nil {
		return nil
	}
	f.Memory.CopyFrom(unsafe.Pointer(&f.Data[0]), f.bytes())
	return nil
}

// Free releases the device allocation
func (f *Field) Free() {
	if f.Memory != nil {
		f.Memory.Free()
		f.Memory = nil
	}
}
