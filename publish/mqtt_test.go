package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/icodeforyou/doctypes-dashboard/doctypes"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient only implements what the publisher uses.
type fakeClient struct {
	mqtt.Client
	messages []published
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return doneToken{err: c.err}
}

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, "doctypes/distribution")

	series := chartview.NewSeries([]doctypes.Record{
		{DocTypePredicted: " Invoice ", Count: 5},
		{DocTypePredicted: "Memo", Count: 2},
	})
	if err := p.Publish(series); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(client.messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "doctypes/distribution" || !msg.retained || msg.qos != 1 {
		t.Errorf("got %+v, want retained qos 1 message on doctypes/distribution", msg)
	}
	want := `{"labels":["Invoice","Memo"],"counts":[5,2]}`
	if string(msg.payload) != want {
		t.Errorf("got %s, want %s", msg.payload, want)
	}
}

func TestPublishEmptySeries(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, "t")
	p.OnLoaded(chartview.NewSeries(nil))

	var d Distribution
	if err := json.Unmarshal(client.messages[0].payload, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Labels == nil || len(d.Labels) != 0 {
		t.Errorf("got %v, want empty labels", d.Labels)
	}
}

func TestPublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := NewWithClient(client, "t")
	if err := p.Publish(chartview.NewSeries(nil)); err == nil {
		t.Error("expected an error")
	}
}
