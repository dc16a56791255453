package factory

import (
	"context"
	"time"

	"github.com/mcoot/geoguess/internal/dependencies/mocks"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/storage/memory"
	"github.com/mcoot/geoguess/internal/testutil"
)

// Test configuration values
const (
	TestBotToken   = "123456:test-bot-token"
	TestOperatorID = model.ExternalID(1000)
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Broadcasts *mocks.RecordingPublisher
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Test authentication is enabled.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	recorder := mocks.NewRecordingPublisher()

	cfg := Config{
		BotToken:   TestBotToken,
		OperatorID: TestOperatorID,
	}
	app := newWithDependencies(store, mockClock, mockRandom, cfg, testutil.NopLogger(), recorder)
	app.Start(context.Background())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Broadcasts: recorder,
	}
}

// Assertion returns a correctly signed assertion for a user
func (t *TestApp) Assertion(id int64, firstName string) string {
	return testutil.SignAssertion(TestBotToken, testutil.UserFields(id, firstName))
}
