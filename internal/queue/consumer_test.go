package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/school-api/internal/logger"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EntityCourse, EntityUpdated, 7, 3)
	assert.Equal(t, "course.updated", ev.Type)
	assert.EqualValues(t, 7, ev.EntityID)
	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)

	assert.Equal(t, UserRegistered, NewEvent(EntityUser, EntityCreated, 1, 0).Type)
}

func TestHandleMessage_AppendsAuditLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	a := &AuditConsumer{Dir: dir, Log: logger.Discard()}

	ev := NewEvent(EntityStudent, EntityDeleted, 42, 9)
	ev.OccurredAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, a.handleMessage(body))
	require.NoError(t, a.handleMessage(body))

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-05-01T10:00:00Z] student.deleted | id="+ev.ID+" | student_id=42 | actor_id=9", lines[0])
}

func TestHandleMessage_RejectsBadPayloads(t *testing.T) {
	a := &AuditConsumer{Dir: t.TempDir(), Log: logger.Discard()}
	assert.Error(t, a.handleMessage([]byte("{not json")))
	assert.Error(t, a.handleMessage([]byte(`{"id":"x"}`)))
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
