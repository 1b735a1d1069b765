package v4l2

/*
#include <linux/videodev2.h>
*/
import "C"

import "unsafe"

// The helpers below reach into the anonymous unions of struct v4l2_buffer
// (member "m", which holds either offset/userptr/fd/planes depending on
// memory type) and struct v4l2_plane (same shape, per-plane), the same way
// format.go and control.go reach into their structs' unions: cgo
// represents an anonymous C union as a Go byte-array field, reinterpreted
// in place via unsafe.Pointer.

func setBufferPlanesPointer(buf *C.struct_v4l2_buffer, planes []C.struct_v4l2_plane) {
	if len(planes) == 0 {
		return
	}
	*(**C.struct_v4l2_plane)(unsafe.Pointer(&buf.m[0])) = &planes[0]
}

func setPlaneFD(p *C.struct_v4l2_plane, fd int32) {
	*(*C.int)(unsafe.Pointer(&p.m[0])) = C.int(fd)
}

func setPlaneMemOffset(p *C.struct_v4l2_plane, offset uint32) {
	*(*C.uint)(unsafe.Pointer(&p.m[0])) = C.uint(offset)
}

func planeMemOffset(p C.struct_v4l2_plane) uint32 {
	return uint32(*(*C.uint)(unsafe.Pointer(&p.m[0])))
}
