// Package dmaheap allocates named, kernel-backed DMA-shared buffers used by
// the camera pipeline and referenced (without being owned) by the encoder
// input queues.
package dmaheap

/*
#include <fcntl.h>
#include <stdlib.h>
#include <linux/dma-heap.h>
#include <linux/dma-buf.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"
	sys "golang.org/x/sys/unix"
)

// ErrUnavailableHeap is returned when none of the candidate heap devices
// could be opened.
var ErrUnavailableHeap = errors.New("dmaheap: no heap device available")

// ErrAllocFailed is returned when the allocation ioctl itself fails on an
// otherwise-open heap device.
var ErrAllocFailed = errors.New("dmaheap: allocation failed")

// candidates lists heap devices in preference order: the cached video
// buffer heap first (if the platform exposes one), falling back to the
// generic contiguous-memory allocator heap.
var candidates = []string{
	"/dev/dma_heap/vidbuf_cached",
	"/dev/dma_heap/linux,cma",
}

// Heap wraps an open DMA heap device. It is read-only after construction and
// therefore safe for concurrent use by multiple goroutines calling Alloc.
type Heap struct {
	fd   uintptr
	name string
	log  zerolog.Logger
}

// Buffer describes one allocation returned by Heap.Alloc: a DMA-BUF file
// descriptor plus its length. The descriptor stays valid until Close is
// called on it directly by the owner (the camera pipeline); encoders that
// reference it by FD never close it.
type Buffer struct {
	FD     uintptr
	Length uint32
	Name   string
}

// Open tries each candidate heap device in order and returns the first one
// that opens successfully.
func Open(log zerolog.Logger) (*Heap, error) {
	var lastErr error
	for _, path := range candidates {
		fd, err := sys.Openat(sys.AT_FDCWD, path, sys.O_RDWR|sys.O_CLOEXEC, 0)
		if err != nil {
			lastErr = err
			log.Debug().Str("path", path).Err(err).Msg("dma heap candidate unavailable")
			continue
		}
		log.Info().Str("path", path).Msg("opened dma heap")
		return &Heap{fd: uintptr(fd), name: path, log: log}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailableHeap, lastErr)
}

// Close releases the heap device descriptor itself (not any buffers
// allocated from it).
func (h *Heap) Close() error {
	return sys.Close(int(h.fd))
}

// Path reports which candidate device this heap ended up using.
func (h *Heap) Path() string {
	return h.name
}

// Alloc requests sizeBytes from the heap and names the resulting DMA-BUF
// descriptor, matching DmaHeap::alloc in the reference implementation this
// was modeled on: DMA_HEAP_IOCTL_ALLOC then DMA_BUF_SET_NAME.
func (h *Heap) Alloc(name string, sizeBytes uint32) (Buffer, error) {
	var allocData C.struct_dma_heap_allocation_data
	allocData.len = C.ulonglong(sizeBytes)
	allocData.fd_flags = C.uint(sys.O_CLOEXEC | sys.O_RDWR)

	if err := ioctl(h.fd, C.DMA_HEAP_IOCTL_ALLOC, uintptr(unsafe.Pointer(&allocData))); err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %v", ErrAllocFailed, name, err)
	}

	bufFD := uintptr(allocData.fd)

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if err := ioctl(bufFD, C.DMA_BUF_SET_NAME, uintptr(unsafe.Pointer(cname))); err != nil {
		h.log.Warn().Str("name", name).Err(err).Msg("failed to name dma-buf, continuing unnamed")
	}

	h.log.Info().Str("name", name).Uint32("size", sizeBytes).Uintptr("fd", bufFD).Msg("allocated dma buffer")
	return Buffer{FD: bufFD, Length: sizeBytes, Name: name}, nil
}

func ioctl(fd, req, arg uintptr) error {
	if _, _, errno := sys.Syscall(sys.SYS_IOCTL, fd, req, arg); errno != 0 {
		return errno
	}
	return nil
}
