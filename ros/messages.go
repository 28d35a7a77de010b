package ros

import (
	"time"

	"go.viam.com/stereorepeater/calibration"
)

// Time is a ROS timestamp.
type Time struct {
	Secs  int `json:"secs"`
	Nsecs int `json:"nsecs"`
}

// NewTime converts t to a ROS timestamp.
func NewTime(t time.Time) Time {
	nanos := t.UnixNano()
	return Time{Secs: int(nanos / int64(time.Second)), Nsecs: int(nanos % int64(time.Second))}
}

// Time converts the timestamp back to a time.Time.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Secs), int64(t.Nsecs))
}

// Header is the std_msgs/Header carried by every stamped message.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Image mirrors sensor_msgs/Image. The pixel buffer is owned by whoever holds the message; a
// receiver that keeps it must not share it.
type Image struct {
	Header      Header `json:"header"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	Encoding    string `json:"encoding"`
	IsBigendian uint8  `json:"is_bigendian"`
	Step        int    `json:"step"`
	Data        []byte `json:"data"`
}

// CameraInfo mirrors sensor_msgs/CameraInfo.
type CameraInfo struct {
	Header          Header      `json:"header"`
	Height          int         `json:"height"`
	Width           int         `json:"width"`
	DistortionModel string      `json:"distortion_model"`
	D               []float64   `json:"D"`
	K               [9]float64  `json:"K"`
	R               [9]float64  `json:"R"`
	P               [12]float64 `json:"P"`
}

// NewCameraInfo stamps a copy of info. D is copied so the message never aliases the shared
// calibration record.
func NewCameraInfo(info *calibration.CameraInfo, stamp time.Time) *CameraInfo {
	return &CameraInfo{
		Header:          Header{Stamp: NewTime(stamp), FrameID: info.FrameID},
		Height:          info.Height,
		Width:           info.Width,
		DistortionModel: string(info.DistortionModel),
		D:               append([]float64(nil), info.D...),
		K:               info.K,
		R:               info.R,
		P:               info.P,
	}
}

// BagImageMessage is one sensor_msgs/Image record of a rosbag topic as exported to JSON.
type BagImageMessage struct {
	Meta Time  `json:"meta"`
	Data Image `json:"data"`
}
