package mocks

// MockMessageQueue is an in-process stand-in for queue.MessageQueue.
type MockMessageQueue struct {
	Published map[string][][]byte
	handlers  map[string]func(data []byte) error
}

func NewMockMessageQueue() *MockMessageQueue {
	return &MockMessageQueue{
		Published: make(map[string][][]byte),
		handlers:  make(map[string]func(data []byte) error),
	}
}

func (m *MockMessageQueue) Publish(subject string, data []byte) error {
	m.Published[subject] = append(m.Published[subject], data)
	if h, ok := m.handlers[subject]; ok {
		return h(data)
	}
	return nil
}

func (m *MockMessageQueue) Subscribe(subject string, handler func(data []byte) error) error {
	m.handlers[subject] = handler
	return nil
}

func (m *MockMessageQueue) Close() error { return nil }
