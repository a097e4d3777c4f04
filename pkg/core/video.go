package core

import "fmt"

// A video that may be stored in caches
type Video struct {
	id   int
	size int // storage units (MB in Hash Code datasets)
}

func NewVideo(id, size int) *Video {
	return &Video{
		id:   id,
		size: size,
	}
}

func (v *Video) ID() int {
	return v.id
}

func (v *Video) Size() int {
	return v.size
}

func (v *Video) String() string {
	return fmt.Sprintf("Video: id=%d; size=%d", v.id, v.size)
}
