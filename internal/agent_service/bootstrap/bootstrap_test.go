package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/notifier"
	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/platform/config"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOpenStore_SQLite(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.StoreDriverSQLite, SQLitePath: ":memory:"}

	store, err := OpenStore(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Nil(t, store.Profiles)
	changeType, err := store.Agents.Upsert(context.Background(), &domain.AgentRecord{UserID: "u1", PhoneNumber: "+15550001111"})
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeInsert, changeType)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), &config.Config{StoreDriver: "mongo"}, testLogger())
	assert.ErrorContains(t, err, "mongo")
}

func TestNewNotifier_DefaultsToMemory(t *testing.T) {
	n, closeFn, err := NewNotifier(&config.Config{}, testLogger(), "test")
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &notifier.MemoryNotifier{}, n)
}

func TestNewOrchestrator(t *testing.T) {
	cfg := &config.Config{VoiceAPIBaseURL: "http://voice.invalid", VoiceAPIKey: "key", OpenAIAPIKey: "sk"}
	o, err := NewOrchestrator(cfg, nil, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, o)

	_, err = NewOrchestrator(&config.Config{}, nil, testLogger())
	assert.Error(t, err, "missing voice platform URL")
}
