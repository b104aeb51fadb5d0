package attribute

import "freeswim-tracker/internal/pipeline"

// Multi publishes every result to each sink in order. Each sink receives its
// own reference.
type Multi []pipeline.Sink

func (m Multi) Publish(result *pipeline.FrameResult) {
	if len(m) == 0 {
		result.Release()
		return
	}
	for i, sink := range m {
		if i < len(m)-1 {
			result.Retain()
		}
		sink.Publish(result)
	}
}
