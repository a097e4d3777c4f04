package core

import "fmt"

// An aggregated record of client requests for one video from one endpoint
type Request struct {
	id         int
	videoID    int
	endpointID int
	count      int
}

func NewRequest(id, videoID, endpointID, count int) *Request {
	return &Request{
		id:         id,
		videoID:    videoID,
		endpointID: endpointID,
		count:      count,
	}
}

func (r *Request) ID() int {
	return r.id
}

func (r *Request) VideoID() int {
	return r.videoID
}

func (r *Request) EndpointID() int {
	return r.endpointID
}

func (r *Request) Count() int {
	return r.count
}

func (r *Request) String() string {
	return fmt.Sprintf("Request: id=%d; video=%d; endpoint=%d; count=%d",
		r.id, r.videoID, r.endpointID, r.count)
}
