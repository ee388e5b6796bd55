package mq

import (
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubDial(t *testing.T, dial func(url string) (*amqp.Connection, error)) *[]time.Duration {
	t.Helper()
	origDial, origSleep := dialAMQP, sleep
	t.Cleanup(func() { dialAMQP, sleep = origDial, origSleep })

	var slept []time.Duration
	dialAMQP = dial
	sleep = func(d time.Duration) { slept = append(slept, d) }
	return &slept
}

func TestDialWithRetryNoSleepAfterFinalFailure(t *testing.T) {
	attempts := 0
	slept := stubDial(t, func(url string) (*amqp.Connection, error) {
		attempts++
		return nil, errors.New("connection refused")
	})

	_, err := dialWithRetry("amqp://nowhere")
	require.Error(t, err)

	assert.Equal(t, dialAttempts, attempts)
	// One backoff between attempts, none after the last one.
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, *slept)
}

func TestDialWithRetryStopsOnSuccess(t *testing.T) {
	attempts := 0
	slept := stubDial(t, func(url string) (*amqp.Connection, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return &amqp.Connection{}, nil
	})

	conn, err := dialWithRetry("amqp://nowhere")
	require.NoError(t, err)
	require.NotNil(t, conn)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}
