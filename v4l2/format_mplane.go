package v4l2

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// maxPlanes mirrors VIDEO_MAX_PLANES from linux/videodev2.h.
const maxPlanes = 8

// BufTypeVideoCaptureMPlane and BufTypeVideoOutputMPlane are the multiplanar
// counterparts of BufTypeVideoCapture/BufTypeVideoOutput, required by M2M
// codec devices (encoders, decoders) which always expose multiplanar queues
// even for formats that only use a single plane.
const (
	BufTypeVideoCaptureMPlane BufType = C.V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE
	BufTypeVideoOutputMPlane  BufType = C.V4L2_BUF_TYPE_VIDEO_OUTPUT_MPLANE
)

// PixelFmtYUV420 is the planar YUV 4:2:0 FourCC, used by the sensor pipeline;
// it is not an entry of the PixelFormats map in format.go.
var PixelFmtYUV420 FourCCType = C.V4L2_PIX_FMT_YUV420

// PlaneFormat mirrors struct v4l2_plane_pix_format: per-plane stride and
// allocation size, used inside a multiplanar PixFormatMP.
type PlaneFormat struct {
	SizeImage uint32
	BytesPerLine uint32
}

// PixFormatMP mirrors struct v4l2_pix_format_mplane, the format descriptor
// required by V4L2_BUF_TYPE_VIDEO_{CAPTURE,OUTPUT}_MPLANE queues. Unlike
// PixFormat (single-plane), it carries one PlaneFormat per image plane.
type PixFormatMP struct {
	Width        uint32
	Height       uint32
	PixelFormat  FourCCType
	Field        FieldType
	Colorspace   ColorspaceType
	Planes       []PlaneFormat
	NumPlanes    uint32
	Flags        uint32
	YcbcrEnc     YCbCrEncodingType
	Quantization QuantizationType
	XferFunc     XferFunctionType
}

// GetPixFormatMP retrieves the current multiplanar pixel format for bufType
// (one of BufTypeVideoCaptureMPlane/BufTypeVideoOutputMPlane).
func GetPixFormatMP(fd uintptr, bufType BufType) (PixFormatMP, error) {
	var v4l2Format C.struct_v4l2_format
	v4l2Format._type = C.uint(bufType)

	if err := send(fd, C.VIDIOC_G_FMT, uintptr(unsafe.Pointer(&v4l2Format))); err != nil {
		return PixFormatMP{}, fmt.Errorf("get mplane format: %w", err)
	}

	pix := *(*C.struct_v4l2_pix_format_mplane)(unsafe.Pointer(&v4l2Format.fmt[0]))
	return fromCPixFormatMP(pix), nil
}

// SetPixFormatMP configures a multiplanar format on bufType. Only the first
// len(pf.Planes) plane entries are written; the driver may adjust sizes and
// strides, reflected in the returned PixFormatMP.
func SetPixFormatMP(fd uintptr, bufType BufType, pf PixFormatMP) (PixFormatMP, error) {
	var v4l2Format C.struct_v4l2_format
	v4l2Format._type = C.uint(bufType)

	pix := (*C.struct_v4l2_pix_format_mplane)(unsafe.Pointer(&v4l2Format.fmt[0]))
	pix.width = C.uint(pf.Width)
	pix.height = C.uint(pf.Height)
	pix.pixelformat = C.uint(pf.PixelFormat)
	pix.field = C.uint(pf.Field)
	pix.colorspace = C.uint(pf.Colorspace)
	pix.num_planes = C.uchar(len(pf.Planes))
	pix.ycbcr_enc = C.uchar(pf.YcbcrEnc)
	pix.quantization = C.uchar(pf.Quantization)
	pix.xfer_func = C.uchar(pf.XferFunc)
	for i, p := range pf.Planes {
		if i >= maxPlanes {
			break
		}
		pix.plane_fmt[i].sizeimage = C.uint(p.SizeImage)
		pix.plane_fmt[i].bytesperline = C.uint(p.BytesPerLine)
	}

	if err := send(fd, C.VIDIOC_S_FMT, uintptr(unsafe.Pointer(&v4l2Format))); err != nil {
		return PixFormatMP{}, fmt.Errorf("set mplane format: %w", err)
	}

	return fromCPixFormatMP(*pix), nil
}

func fromCPixFormatMP(pix C.struct_v4l2_pix_format_mplane) PixFormatMP {
	out := PixFormatMP{
		Width:        uint32(pix.width),
		Height:       uint32(pix.height),
		PixelFormat:  FourCCType(pix.pixelformat),
		Field:        FieldType(pix.field),
		Colorspace:   ColorspaceType(pix.colorspace),
		NumPlanes:    uint32(pix.num_planes),
		YcbcrEnc:     YCbCrEncodingType(pix.ycbcr_enc),
		Quantization: QuantizationType(pix.quantization),
		XferFunc:     XferFunctionType(pix.xfer_func),
	}
	for i := 0; i < int(pix.num_planes) && i < maxPlanes; i++ {
		out.Planes = append(out.Planes, PlaneFormat{
			SizeImage:    uint32(pix.plane_fmt[i].sizeimage),
			BytesPerLine: uint32(pix.plane_fmt[i].bytesperline),
		})
	}
	return out
}
