package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidJob = errors.New("invalid broadcast job")

// BroadcastJob is one deferred fan-out: Data is the serialized message
// delivered to every subscriber of Channels except SkipConnectionID.
type BroadcastJob struct {
	Channels         []string        `json:"channels"`
	Data             json.RawMessage `json:"data"`
	SkipConnectionID string          `json:"skipConnectionId,omitempty"`
}

func (j *BroadcastJob) Validate() error {
	if len(j.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidJob)
	}
	if len(j.Data) == 0 {
		return fmt.Errorf("%w: no data", ErrInvalidJob)
	}
	return nil
}

func decodeJob(b []byte) (*BroadcastJob, error) {
	var job BroadcastJob
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}
