package mqttclient

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// fakeToken is a paho token completed on demand.
type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements mqtt.Client.
type fakeClient struct {
	mu          sync.Mutex
	opts        *mqtt.ClientOptions
	connected   bool
	connectErr  error
	publishErr  error
	hangPublish bool
	published   []published
	disconnects int
}

func (f *fakeClient) IsConnected() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.connected }
func (f *fakeClient) IsConnectionOpen() bool { return f.IsConnected() }

func (f *fakeClient) Connect() mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return newToken(f.connectErr, true)
	}
	f.connected = true
	return newToken(nil, true)
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnects++
}

func (f *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hangPublish {
		return newToken(nil, false)
	}
	if f.publishErr != nil {
		return newToken(f.publishErr, true)
	}
	f.published = append(f.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(nil, true)
}

func (f *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return newToken(nil, true)
}
func (f *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return newToken(nil, true)
}
func (f *fakeClient) Unsubscribe(...string) mqtt.Token { return newToken(nil, true) }
func (f *fakeClient) AddRoute(string, mqtt.MessageHandler) {}
func (f *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.NewOptionsReader(f.opts)
}

func newTestClient(t *testing.T, fake *fakeClient, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient("tcp://broker.local:1883", opts...)
	require.NoError(t, err)
	c.newClient = func(o *mqtt.ClientOptions) mqtt.Client {
		fake.mu.Lock()
		fake.opts = o
		fake.mu.Unlock()
		return fake
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	_, err = NewClient("tcp://x:1883", WithKeepAlive(time.Millisecond))
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("tcp://x:1883", WithConnectTimeout(0))
	assert.True(t, errors.IsInvalid(err))
}

func TestClient_ConnectUsesCredentials(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(t, fake, WithKeepAlive(10*time.Second))
	require.NoError(t, c.Open(transport.Handlers{}))

	c.SetCredentials(transport.Credentials{Username: "access-token", ClientID: "StellaNowSDKGo_abc"})
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())

	reader := mqtt.NewOptionsReader(fake.opts)
	assert.Equal(t, "StellaNowSDKGo_abc", reader.ClientID())
	assert.Equal(t, "access-token", reader.Username())
	assert.Equal(t, 10*time.Second, reader.KeepAlive())
	assert.False(t, reader.AutoReconnect(), "the sink owns reconnection")
	assert.False(t, reader.ConnectRetry())
	assert.True(t, reader.CleanSession())
	require.Len(t, reader.Servers(), 1)
	assert.Equal(t, "broker.local:1883", reader.Servers()[0].Host)
}

func TestClient_ConnectFailure(t *testing.T) {
	fake := &fakeClient{connectErr: stderrors.New("not authorized")}
	c := newTestClient(t, fake)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.False(t, c.IsConnected())
}

func TestClient_Publish(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(t, fake)
	require.NoError(t, c.Connect(context.Background()))

	err := c.Publish(context.Background(), transport.Publication{
		Topic: "in/org-1", MessageID: "m-1", Payload: []byte(`{"a":1}`),
	})
	require.NoError(t, err)

	require.Len(t, fake.published, 1)
	assert.Equal(t, "in/org-1", fake.published[0].topic)
	assert.Equal(t, byte(1), fake.published[0].qos)
	assert.Equal(t, `{"a":1}`, string(fake.published[0].payload))
}

func TestClient_PublishErrors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		c := newTestClient(t, &fakeClient{})
		err := c.Publish(context.Background(), transport.Publication{Topic: "in/o"})
		assert.ErrorIs(t, err, errors.ErrNotConnected)
	})

	t.Run("broker error", func(t *testing.T) {
		fake := &fakeClient{}
		c := newTestClient(t, fake)
		require.NoError(t, c.Connect(context.Background()))
		fake.publishErr = stderrors.New("connection reset")

		err := c.Publish(context.Background(), transport.Publication{Topic: "in/o"})
		assert.ErrorIs(t, err, errors.ErrPublishFailed)
		assert.True(t, errors.IsTransient(err))
	})

	t.Run("context cancelled while awaiting PUBACK", func(t *testing.T) {
		fake := &fakeClient{}
		c := newTestClient(t, fake)
		require.NoError(t, c.Connect(context.Background()))
		fake.hangPublish = true

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := c.Publish(ctx, transport.Publication{Topic: "in/o"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_ConnectionLost(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(t, fake)

	lost := make(chan error, 1)
	require.NoError(t, c.Open(transport.Handlers{OnConnectionLost: func(err error) { lost <- err }}))
	require.NoError(t, c.Connect(context.Background()))

	c.handleConnectionLost(fake, stderrors.New("EOF"))

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, errors.ErrConnectionLost)
	default:
		t.Fatal("OnConnectionLost not called")
	}

	// Losses reported by a stale client are ignored
	c.handleConnectionLost(&fakeClient{}, stderrors.New("EOF"))
	assert.Empty(t, lost)
}

func TestClient_Close(t *testing.T) {
	fake := &fakeClient{}
	c := newTestClient(t, fake)

	assert.NoError(t, c.Close())

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
	assert.Equal(t, 1, fake.disconnects)

	assert.NoError(t, c.Close())
	assert.Equal(t, 1, fake.disconnects)
}

func TestWithInsecureSkipVerify(t *testing.T) {
	c, err := NewClient("ssl://broker:8883", WithInsecureSkipVerify())
	require.NoError(t, err)
	require.NotNil(t, c.tlsConfig)
	assert.True(t, c.tlsConfig.InsecureSkipVerify)
}
