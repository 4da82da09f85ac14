package channel

import "testing"

func TestAuthSendChallengeSendsFixedBytes(t *testing.T) {
	s := &fakeSender{}
	a := NewAuth(s)
	if err := a.SendChallenge(ReceiverDestination); err != nil {
		t.Fatalf("SendChallenge: %v", err)
	}
	if len(s.binaryCalls) != 1 {
		t.Fatalf("expected 1 binary call, got %d", len(s.binaryCalls))
	}
	got := s.binaryCalls[0].payload
	if len(got) != 2 || got[0] != 0x0a || got[1] != 0x00 {
		t.Fatalf("unexpected challenge bytes: %v", got)
	}
}

func TestAuthHandleBinaryFiresOnErrorForErrorField(t *testing.T) {
	a := NewAuth(&fakeSender{})
	fired := false
	a.OnError(func() { fired = true })

	// DeviceAuthMessage{error: AuthError{error_type: 0}}:
	// field 3 (error), wire type 2, length 2, embedded {field1 varint 0}.
	errMsg := []byte{0x1a, 0x02, 0x08, 0x00}
	a.HandleBinary(errMsg, ReceiverDestination)

	if !fired {
		t.Fatal("expected OnError to fire when an AuthError field is present")
	}
}

func TestAuthHandleBinaryIgnoresResponseWithoutError(t *testing.T) {
	a := NewAuth(&fakeSender{})
	fired := false
	a.OnError(func() { fired = true })

	// DeviceAuthMessage{response: AuthResponse{...}}: field 2, no field 3.
	respMsg := []byte{0x12, 0x02, 0x08, 0x00}
	a.HandleBinary(respMsg, ReceiverDestination)

	if fired {
		t.Fatal("expected OnError not to fire when no AuthError field is present")
	}
}
