package analyzer

import "context"

// mockChat returns a canned completion or error; it records the last call.
type mockChat struct {
	response string
	err      error

	lastModel  string
	lastSystem string
	lastUser   string
}

func (m *mockChat) Complete(_ context.Context, model, system, user string) (string, error) {
	m.lastModel = model
	m.lastSystem = system
	m.lastUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}
