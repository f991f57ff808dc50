package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignPayload(t *testing.T) {
	payload := []byte(`{"job_id":"abc"}`)
	secret := "hunter2"

	got := signPayload(payload, secret)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got)

	assert.NotEqual(t, got, signPayload(payload, "other-secret"))
}

func TestIsClientError(t *testing.T) {
	assert.False(t, isClientError(nil))
	assert.True(t, isClientError(errors.New("http error: 404")))
	assert.True(t, isClientError(errors.New("http error: 422")))
	assert.False(t, isClientError(errors.New("http error: 500")))
	assert.False(t, isClientError(errors.New("connection refused")))
}

func TestNewSenderDefaults(t *testing.T) {
	s := NewSender(Config{})

	assert.Equal(t, 3, s.retryCount)
	assert.Equal(t, 5*time.Second, s.retryDelay)
	assert.Equal(t, 3, s.workers)
	assert.Equal(t, 100, cap(s.queue))
}
