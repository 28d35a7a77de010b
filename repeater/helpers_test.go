package repeater

import (
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/stereorepeater/calibration"
	"go.viam.com/stereorepeater/logging"
	"go.viam.com/stereorepeater/ros"
)

type fakeChannel[T any] struct {
	mu          sync.Mutex
	subscribers int
	published   []T
}

func (fc *fakeChannel[T]) NumSubscribers() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.subscribers
}

func (fc *fakeChannel[T]) Publish(msg T) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.published = append(fc.published, msg)
}

func (fc *fakeChannel[T]) messages() []T {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]T(nil), fc.published...)
}

type fakeOutputs struct {
	leftImage  *fakeChannel[*ros.Image]
	rightImage *fakeChannel[*ros.Image]
	leftInfo   *fakeChannel[*ros.CameraInfo]
	rightInfo  *fakeChannel[*ros.CameraInfo]
}

func newFakeOutputs(leftImage, rightImage, leftInfo, rightInfo int) *fakeOutputs {
	return &fakeOutputs{
		leftImage:  &fakeChannel[*ros.Image]{subscribers: leftImage},
		rightImage: &fakeChannel[*ros.Image]{subscribers: rightImage},
		leftInfo:   &fakeChannel[*ros.CameraInfo]{subscribers: leftInfo},
		rightInfo:  &fakeChannel[*ros.CameraInfo]{subscribers: rightInfo},
	}
}

func (fo *fakeOutputs) outputs() Outputs {
	return Outputs{LeftImage: fo.leftImage, RightImage: fo.rightImage, LeftInfo: fo.leftInfo, RightInfo: fo.rightInfo}
}

func testInfos() (*calibration.CameraInfo, *calibration.CameraInfo) {
	left := &calibration.CameraInfo{
		FrameID:         "left_camera",
		Width:           1280,
		Height:          720,
		DistortionModel: calibration.PlumbBob,
		D:               []float64{-0.17, 0.02, 0, 0, 0},
		K:               [9]float64{700, 0, 640, 0, 700, 360, 0, 0, 1},
		R:               [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		P:               [12]float64{700, 0, 640, 0, 0, 700, 360, 0, 0, 0, 1, 0},
	}
	right := left.Clone()
	right.FrameID = "right_camera"
	right.P[3] = -84
	return left, right
}

func newTestRepublisher(t *testing.T, clk clock.Clock, fo *fakeOutputs) *Republisher {
	t.Helper()
	left, right := testInfos()
	republisher, err := NewRepublisher(clk, RepublisherConfig{
		LeftInfo:          left,
		RightInfo:         right,
		LeftImageFrameID:  "left_frame",
		RightImageFrameID: "right_frame",
	}, fo.outputs(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return republisher
}

func testFrame(seq uint32) *ros.Image {
	return &ros.Image{
		Header:   ros.Header{Seq: seq},
		Height:   1,
		Width:    1,
		Encoding: ros.EncodingBGR8,
		Step:     3,
		Data:     []byte{byte(seq), 0, 0},
	}
}
