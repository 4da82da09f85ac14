package channel

import (
	"sync"

	"github.com/scobuck/CastKit/internal/dispatch"
)

// fakeSender records every call a channel makes through Sender,
// letting tests assert on outbound payloads and manually resolve
// request handlers without a real dispatcher or transport.
type fakeSender struct {
	mu sync.Mutex

	jsonCalls    []jsonCall
	messageCalls []messageCall
	binaryCalls  []binaryCall
}

type jsonCall struct {
	namespace, destination string
	payload                map[string]any
	handler                dispatch.Handler
}

type messageCall struct {
	namespace, destination string
	payload                map[string]any
}

type binaryCall struct {
	namespace, destination string
	payload                []byte
}

func (f *fakeSender) SendJSON(namespace, destination string, payload map[string]any, handler dispatch.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonCalls = append(f.jsonCalls, jsonCall{namespace, destination, payload, handler})
	return nil
}

func (f *fakeSender) SendJSONMessage(namespace, destination string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageCalls = append(f.messageCalls, messageCall{namespace, destination, payload})
	return nil
}

func (f *fakeSender) SendBinary(namespace, destination string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binaryCalls = append(f.binaryCalls, binaryCall{namespace, destination, payload})
	return nil
}

func (f *fakeSender) lastJSON() jsonCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jsonCalls[len(f.jsonCalls)-1]
}

func (f *fakeSender) lastMessage() messageCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageCalls[len(f.messageCalls)-1]
}
