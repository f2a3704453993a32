package nats

import (
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
)

const publishedAtHeader = "Parse-Published-At"

func newParseRequest(subject, jobID string, now time.Time) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = []byte(jobID)
	msg.Header.Set(publishedAtHeader, strconv.FormatInt(now.UnixNano(), 10))
	return msg
}

func decodeParseRequest(msg *nats.Msg) (string, time.Time) {
	jobID := string(msg.Data)
	if msg.Header == nil {
		return jobID, time.Time{}
	}
	nanos, err := strconv.ParseInt(msg.Header.Get(publishedAtHeader), 10, 64)
	if err != nil {
		return jobID, time.Time{}
	}
	return jobID, time.Unix(0, nanos)
}
