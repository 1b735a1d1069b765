package v4l2

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

// BufferPlane carries per-plane queue/dequeue information for a multiplanar
// buffer: how much of the plane is valid (BytesUsed), its backing length,
// and — for DMA-BUF memory — the offset of valid data within the shared
// buffer (DataOffset) plus the donor file descriptor (FD).
type BufferPlane struct {
	BytesUsed  uint32
	Length     uint32
	DataOffset uint32
	MemOffset  uint32
	FD         int32
}

// BufferMP mirrors struct v4l2_buffer for V4L2_BUF_TYPE_VIDEO_{CAPTURE,OUTPUT}_MPLANE
// queues, where buffer memory is described per-plane rather than via the
// single m.offset/m.fd union member that single-plane queues use.
type BufferMP struct {
	Index     uint32
	BufType   BufType
	Flags     uint32
	Field     FieldType
	Timestamp sys.Timeval
	Sequence  uint32
	Memory    StreamType
	Planes    []BufferPlane
}

// RequestBuffersMP issues VIDIOC_REQBUFS for a multiplanar queue with the
// given memory type (StreamTypeDMABuf for encoder inputs, StreamTypeMMAP for
// encoder outputs per the hardware encoder core design). The driver may
// return fewer buffers than requested; callers must check the returned
// count.
func RequestBuffersMP(fd uintptr, bufType BufType, memory StreamType, count uint32) (uint32, error) {
	var req C.struct_v4l2_requestbuffers
	req.count = C.uint(count)
	req._type = C.uint(bufType)
	req.memory = C.uint(memory)

	if err := send(fd, C.VIDIOC_REQBUFS, uintptr(unsafe.Pointer(&req))); err != nil {
		return 0, fmt.Errorf("request mplane buffers: %w", err)
	}
	return uint32(req.count), nil
}

// QueryBufferMP retrieves plane offsets/lengths for an MMAP-memory buffer
// previously allocated with RequestBuffersMP, used to mmap each output
// buffer of a hardware encoder during initialization.
func QueryBufferMP(fd uintptr, bufType BufType, memory StreamType, index uint32, numPlanes int) (BufferMP, error) {
	planes := make([]C.struct_v4l2_plane, numPlanes)

	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(bufType)
	v4l2Buf.memory = C.uint(memory)
	v4l2Buf.index = C.uint(index)
	v4l2Buf.length = C.uint(numPlanes)
	setBufferPlanesPointer(&v4l2Buf, planes)

	if err := send(fd, C.VIDIOC_QUERYBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return BufferMP{}, fmt.Errorf("query mplane buffer: %w", err)
	}

	return makeBufferMP(v4l2Buf, planes), nil
}

// QueueBufferMP enqueues a multiplanar buffer. For DMA-BUF memory, callers
// populate plane FD/DataOffset/BytesUsed/Length; for MMAP memory used on
// output queues only Index is required.
func QueueBufferMP(fd uintptr, bufType BufType, memory StreamType, buf BufferMP) error {
	planes := make([]C.struct_v4l2_plane, len(buf.Planes))
	for i, p := range buf.Planes {
		planes[i].bytesused = C.uint(p.BytesUsed)
		planes[i].length = C.uint(p.Length)
		planes[i].data_offset = C.uint(p.DataOffset)
		if memory == StreamTypeDMABuf {
			setPlaneFD(&planes[i], p.FD)
		} else {
			setPlaneMemOffset(&planes[i], p.MemOffset)
		}
	}

	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(bufType)
	v4l2Buf.memory = C.uint(memory)
	v4l2Buf.index = C.uint(buf.Index)
	v4l2Buf.length = C.uint(len(planes))
	v4l2Buf.timestamp.tv_sec = C.long(buf.Timestamp.Sec)
	v4l2Buf.timestamp.tv_usec = C.long(buf.Timestamp.Usec)
	if len(planes) > 0 {
		setBufferPlanesPointer(&v4l2Buf, planes)
	}

	if err := send(fd, C.VIDIOC_QBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return fmt.Errorf("queue mplane buffer: %w", err)
	}
	return nil
}

// DequeueBufferMP dequeues one completed buffer from bufType's queue. When
// no buffer is ready and the device was opened non-blocking, the returned
// error wraps ErrorTemporary (EAGAIN). The hardware encoder core tries both
// of its queues after every POLLIN, so it sees this whenever one of them has
// nothing ready.
func DequeueBufferMP(fd uintptr, bufType BufType, memory StreamType, numPlanes int) (BufferMP, error) {
	planes := make([]C.struct_v4l2_plane, numPlanes)

	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(bufType)
	v4l2Buf.memory = C.uint(memory)
	v4l2Buf.length = C.uint(numPlanes)
	setBufferPlanesPointer(&v4l2Buf, planes)

	if err := send(fd, C.VIDIOC_DQBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return BufferMP{}, fmt.Errorf("dequeue mplane buffer: %w", err)
	}

	return makeBufferMP(v4l2Buf, planes), nil
}

func makeBufferMP(v4l2Buf C.struct_v4l2_buffer, planes []C.struct_v4l2_plane) BufferMP {
	buf := BufferMP{
		Index:   uint32(v4l2Buf.index),
		BufType: uint32(v4l2Buf._type),
		Flags:   uint32(v4l2Buf.flags),
		Field:   FieldType(v4l2Buf.field),
		Timestamp: sys.Timeval{
			Sec:  int64(v4l2Buf.timestamp.tv_sec),
			Usec: int64(v4l2Buf.timestamp.tv_usec),
		},
		Sequence: uint32(v4l2Buf.sequence),
		Memory:   uint32(v4l2Buf.memory),
	}
	for _, p := range planes {
		buf.Planes = append(buf.Planes, BufferPlane{
			BytesUsed:  uint32(p.bytesused),
			Length:     uint32(p.length),
			DataOffset: uint32(p.data_offset),
			MemOffset:  planeMemOffset(p),
		})
	}
	return buf
}

// StreamOnType/StreamOffType issue VIDIOC_STREAMON/OFF for an explicit
// buffer type, for the M2M case where input and output queues are
// started/stopped independently.
func StreamOnType(fd uintptr, bufType BufType) error {
	bt := bufType
	if err := send(fd, C.VIDIOC_STREAMON, uintptr(unsafe.Pointer(&bt))); err != nil {
		return fmt.Errorf("stream on: %w", err)
	}
	return nil
}

func StreamOffType(fd uintptr, bufType BufType) error {
	bt := bufType
	if err := send(fd, C.VIDIOC_STREAMOFF, uintptr(unsafe.Pointer(&bt))); err != nil {
		return fmt.Errorf("stream off: %w", err)
	}
	return nil
}

// SetOutputFrameInterval sets V4L2_CID-independent frame timing for an
// OUTPUT_MPLANE queue via VIDIOC_S_PARM, used by the H.264 encoder core to
// request 30fps (90000/30 over a 90000 time base).
func SetOutputFrameInterval(fd uintptr, numerator, denominator uint32) error {
	var param C.struct_v4l2_streamparm
	param._type = C.uint(BufTypeVideoOutputMPlane)
	outParam := (*C.struct_v4l2_outputparm)(unsafe.Pointer(&param.parm[0]))
	outParam.timeperframe.numerator = C.uint(numerator)
	outParam.timeperframe.denominator = C.uint(denominator)

	if err := send(fd, C.VIDIOC_S_PARM, uintptr(unsafe.Pointer(&param))); err != nil {
		return fmt.Errorf("set output frame interval: %w", err)
	}
	return nil
}

// PollDeviceRead blocks on poll(2) until the device fd reports POLLIN or the
// timeout elapses. Unlike the select(2)-based WaitForRead in syscalls.go,
// this distinguishes EINTR explicitly rather
// than folding it into a generic error, so callers can retry without
// re-deriving the remaining timeout.
func PollDeviceRead(fd uintptr, timeout time.Duration) (ready bool, err error) {
	fds := []sys.PollFd{{Fd: int32(fd), Events: sys.POLLIN}}
	n, err := sys.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, sys.EINTR) {
			return false, ErrorInterrupted
		}
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return fds[0].Revents&sys.POLLIN != 0, nil
}
