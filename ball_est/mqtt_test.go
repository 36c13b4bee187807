package ball_est

import (
	"encoding/json"
	"testing"
	"time"

	"ball-estimation/estimate"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	complete bool
	err      error
}

func (t *fakeToken) Wait() bool { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Error() error { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload pointMessage
}

type fakeClient struct {
	token        *fakeToken
	published    []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	var msg pointMessage
	if err := json.Unmarshal(payload.([]byte), &msg); err != nil {
		panic(err)
	}
	c.published = append(c.published, published{topic: topic, qos: qos, payload: msg})
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

var sampleResult = estimate.Result{
	T:           42.5,
	Trajectory:  estimate.TrajectoryState{Height: 1.2, Velocity: -0.5, Drag: 0.07},
	RawVelocity: -0.6,
	Smoothed:    estimate.SmoothedState{Height: 1.21, Velocity: -0.55},
}

func TestMQTTSinkPublishesThreeTopics(t *testing.T) {
	client := &fakeClient{token: &fakeToken{complete: true}}
	sink := newMQTTSink(client, "ball", 1, time.Second)

	require.NoError(t, sink.Publish(sampleResult))
	require.Equal(t, []published{
		{topic: "ball/kf", qos: 1, payload: pointMessage{Stamp: 42.5, X: 1.2, Y: -0.5, Z: 0.07}},
		{topic: "ball/nv", qos: 1, payload: pointMessage{Stamp: 42.5, Z: -0.6}},
		{topic: "ball/kf_vel", qos: 1, payload: pointMessage{Stamp: 42.5, Y: -0.55, Z: 1.21}},
	}, client.published)

	require.NoError(t, sink.Close())
	require.True(t, client.disconnected)
}

func TestMQTTSinkNoPrefix(t *testing.T) {
	client := &fakeClient{token: &fakeToken{}}
	sink := newMQTTSink(client, "", 0, time.Second)

	// QoS 0 never waits on the token.
	require.NoError(t, sink.Publish(sampleResult))
	require.Len(t, client.published, 3)
	require.Equal(t, "kf", client.published[0].topic)
}

func TestMQTTSinkPublishErrors(t *testing.T) {
	client := &fakeClient{token: &fakeToken{}}
	err := newMQTTSink(client, "ball", 1, time.Millisecond).Publish(sampleResult)
	require.ErrorContains(t, err, "ball/kf: timeout")
	require.Len(t, client.published, 1)

	client = &fakeClient{token: &fakeToken{complete: true, err: errors.New("not authorized")}}
	err = newMQTTSink(client, "ball", 2, time.Second).Publish(sampleResult)
	require.ErrorContains(t, err, "not authorized")
}
