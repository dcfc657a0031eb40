package realtime

import "context"

// PublishRecorder counts publishes per channel.
type PublishRecorder interface {
	RecordPublish(channel string)
}

type instrumentedPublisher struct {
	next     Publisher
	recorder PublishRecorder
}

// Instrument wraps a publisher so every successful publish is counted.
func Instrument(next Publisher, recorder PublishRecorder) Publisher {
	return &instrumentedPublisher{next: next, recorder: recorder}
}

func (p *instrumentedPublisher) Publish(ctx context.Context, channel string, payload any) error {
	if err := p.next.Publish(ctx, channel, payload); err != nil {
		return err
	}
	p.recorder.RecordPublish(channel)
	return nil
}
