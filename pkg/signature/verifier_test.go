package signature

import (
	"strconv"
	"testing"
	"time"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return fixedNow }

func validTimestamp() string {
	return strconv.FormatInt(fixedNow.Unix(), 10)
}

func TestVerify_ValidSignature(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	ts := validTimestamp()
	body := []byte(`{"type":"event_callback"}`)
	sig := Compute("secret", ts, body)

	if !v.Verify(ts, body, sig) {
		t.Fatal("Verify() = false for a valid signature")
	}
}

func TestVerify_Deterministic(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	ts := validTimestamp()
	body := []byte("payload")
	sig := Compute("secret", ts, body)

	for i := 0; i < 3; i++ {
		if !v.Verify(ts, body, sig) {
			t.Fatalf("Verify() flipped to false on call %d", i)
		}
	}
}

func TestVerify_SingleByteFlipRejects(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	ts := validTimestamp()
	body := []byte("payload")
	sig := Compute("secret", ts, body)

	mutated := []byte("qayload")
	if v.Verify(ts, mutated, sig) {
		t.Error("Verify() = true after mutating one body byte")
	}

	badSig := []byte(sig)
	badSig[len(badSig)-1] ^= 0x01
	if v.Verify(ts, body, string(badSig)) {
		t.Error("Verify() = true after mutating one signature byte")
	}
}

func TestVerify_LengthMismatchRejects(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	ts := validTimestamp()
	body := []byte("payload")
	sig := Compute("secret", ts, body)

	if v.Verify(ts, body, sig+"00") {
		t.Error("Verify() = true for a longer signature")
	}
	if v.Verify(ts, body, sig[:len(sig)-2]) {
		t.Error("Verify() = true for a shorter signature")
	}
}

func TestVerify_ReplayWindow(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	body := []byte("payload")

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"exactly at window past", -300 * time.Second, true},
		{"just outside window past", -301 * time.Second, false},
		{"exactly at window future", 300 * time.Second, true},
		{"just outside window future", 301 * time.Second, false},
		{"far past", -24 * time.Hour, false},
	}
	for _, tt := range tests {
		ts := strconv.FormatInt(fixedNow.Add(tt.offset).Unix(), 10)
		sig := Compute("secret", ts, body)
		if got := v.Verify(ts, body, sig); got != tt.want {
			t.Errorf("%s: Verify() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVerify_StaleButValidSignatureStillRejected(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	ts := strconv.FormatInt(fixedNow.Add(-time.Hour).Unix(), 10)
	body := []byte("payload")
	sig := Compute("secret", ts, body)

	if v.Verify(ts, body, sig) {
		t.Error("Verify() = true for a stale timestamp with a valid signature")
	}
}

func TestVerify_MalformedTimestamp(t *testing.T) {
	v := NewVerifierAt("secret", fixedClock)
	body := []byte("payload")
	if v.Verify("not-a-number", body, Compute("secret", "not-a-number", body)) {
		t.Error("Verify() = true for a non-numeric timestamp")
	}
}
