// Package mqttclient provides an MQTT 3.1.1 transport for the connection sink,
// built on Eclipse Paho.
//
// Every publish uses QoS 1 and Publish returns only after the broker's PUBACK,
// so a nil error means the broker has taken responsibility for the message.
//
// Paho's own reconnect machinery is switched off (AutoReconnect and
// ConnectRetry are false). Connect creates a fresh paho client each time so
// credentials rotated by the auth strategy (a new access token as the MQTT
// username) are always the ones presented to the broker.
//
//	c, err := mqttclient.NewClient("ssl://ingestor.stellanow.io:8883",
//	    mqttclient.WithKeepAlive(30*time.Second))
//	if err != nil {
//	    return err
//	}
//	_ = c.Open(transport.Handlers{OnConnectionLost: onLost})
//	c.SetCredentials(transport.Credentials{Username: accessToken, ClientID: clientID})
//	err = c.Connect(ctx)
package mqttclient
