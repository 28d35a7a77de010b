// Package source produces the inbound left and right image streams of the repeater, either by
// replaying a rosbag or by watching a directory for still images.
package source

import (
	"go.viam.com/stereorepeater/ros"
)

// Publisher receives the frames of one side.
type Publisher interface {
	Publish(frame *ros.Image)
}

// Outputs are where a source delivers left and right frames.
type Outputs struct {
	Left  Publisher
	Right Publisher
}
