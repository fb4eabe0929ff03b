package conversation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/store"
)

// memKV is an in-memory store.KV that can be told to fail writes.
type memKV struct {
	data   map[string][]byte
	putErr error
	getErr error
	puts   int
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) Migrate(context.Context) error { return nil }

func (m *memKV) Close() error { return nil }

func testStore(t *testing.T, kv store.KV) *Store {
	t.Helper()
	n := 0
	clock := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return Open(context.Background(), kv,
		WithIDs(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
}

func TestCreate(t *testing.T) {
	kv := newMemKV()
	s := testStore(t, kv)
	ctx := context.Background()

	first := s.Create(ctx)
	second := s.Create(ctx)

	assert.Equal(t, DefaultTitle, first.Title)
	assert.Empty(t, first.Messages)
	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, second.ID, s.ActiveID())
	assert.Equal(t, 2, kv.puts)
}

func TestDelete_ActiveMovesToFirstRemaining(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()

	a := s.Create(ctx)
	b := s.Create(ctx)
	c := s.Create(ctx)
	require.Equal(t, c.ID, s.ActiveID())

	require.NoError(t, s.Delete(ctx, c.ID))
	assert.Equal(t, b.ID, s.ActiveID())

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.Equal(t, b.ID, s.ActiveID())

	require.NoError(t, s.Delete(ctx, b.ID))
	assert.Empty(t, s.ActiveID())
	_, ok := s.Active()
	assert.False(t, ok)

	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNotFound)
}

func TestRename(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()
	c := s.Create(ctx)

	got, err := s.Rename(ctx, c.ID, "Kharif planning")
	require.NoError(t, err)
	assert.Equal(t, "Kharif planning", got.Title)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))

	_, err = s.Rename(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetActive(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()
	a := s.Create(ctx)
	s.Create(ctx)

	require.NoError(t, s.SetActive(ctx, a.ID))
	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, a.ID, active.ID)

	require.NoError(t, s.SetActive(ctx, ""))
	assert.Empty(t, s.ActiveID())

	assert.ErrorIs(t, s.SetActive(ctx, "nope"), ErrNotFound)
}

func TestAddMessage_AutoTitle(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()
	c := s.Create(ctx)

	_, err := s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleAssistant, Content: "Namaste! How can I help?"})
	require.NoError(t, err)
	got, _ := s.Get(c.ID)
	assert.Equal(t, DefaultTitle, got.Title)

	m, err := s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleUser, Content: "## What is the **MSP** for wheat?"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Timestamp.IsZero())

	got, _ = s.Get(c.ID)
	assert.Equal(t, "What is the MSP for wheat?", got.Title)
	require.Len(t, got.Messages, 2)

	_, err = s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleUser, Content: "And for rice?"})
	require.NoError(t, err)
	got, _ = s.Get(c.ID)
	assert.Equal(t, "What is the MSP for wheat?", got.Title)
}

func TestAddMessage_RenamedKeepsTitle(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()
	c := s.Create(ctx)
	_, err := s.Rename(ctx, c.ID, "Soil tests")
	require.NoError(t, err)

	_, err = s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleUser, Content: "pH 8.2, what now?"})
	require.NoError(t, err)
	got, _ := s.Get(c.ID)
	assert.Equal(t, "Soil tests", got.Title)
}

func TestAddMessage_UnknownConversation(t *testing.T) {
	s := testStore(t, newMemKV())
	_, err := s.AddMessage(context.Background(), "nope", model.Message{Role: model.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()
	c := s.Create(ctx)
	_, err := s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleUser, Content: "Best time to sow mustard?"})
	require.NoError(t, err)

	got, err := s.Clear(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Equal(t, DefaultTitle, got.Title)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"`code` and ~strike~ _under_", "code and strike under"},
		{strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{strings.Repeat("a", 41), strings.Repeat("a", 37) + "..."},
		{strings.Repeat("गेहूं", 10), string([]rune(strings.Repeat("गेहूं", 10))[:37]) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.in))
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := testStore(t, newMemKV())
	ctx := context.Background()
	c := s.Create(ctx)
	_, err := s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleUser, Content: "one"})
	require.NoError(t, err)

	got, _ := s.Get(c.ID)
	got.Messages[0].Content = "mutated"

	again, _ := s.Get(c.ID)
	assert.Equal(t, "one", again.Messages[0].Content)
}

func TestPersistence_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	kv, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Migrate(ctx))

	s := Open(ctx, kv)
	c := s.Create(ctx)
	_, err = s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleUser, Content: "Onion prices in Nashik?"})
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, c.ID, model.Message{Role: model.RoleAssistant, Content: "About ₹1,800/quintal.", Error: false})
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv, err = store.NewSQLite(path)
	require.NoError(t, err)
	defer kv.Close() //nolint:errcheck

	reloaded := Open(ctx, kv)
	assert.Equal(t, c.ID, reloaded.ActiveID())
	got, err := reloaded.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Onion prices in Nashik?", got.Title)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleAssistant, got.Messages[1].Role)
}

func TestOpen_CorruptHistory(t *testing.T) {
	kv := newMemKV()
	kv.data[HistoryKey] = []byte("{not json")

	s := testStore(t, kv)
	assert.Empty(t, s.List())
	assert.Empty(t, s.ActiveID())
}

func TestOpen_ReadError(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk unavailable")

	s := testStore(t, kv)
	assert.Empty(t, s.List())
}

func TestOpen_NullActiveAndMessages(t *testing.T) {
	kv := newMemKV()
	kv.data[HistoryKey] = []byte(`{"conversations":[{"id":"c1","title":"Old","messages":null}],"activeConversationId":null}`)

	s := testStore(t, kv)
	require.Len(t, s.List(), 1)
	assert.Empty(t, s.ActiveID())
	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.NotNil(t, got.Messages)
}

func TestSaveFailureKeepsState(t *testing.T) {
	kv := newMemKV()
	kv.putErr = errors.New("quota exceeded")

	s := testStore(t, kv)
	c := s.Create(context.Background())

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Empty(t, kv.data)
}

func TestSavedDocumentShape(t *testing.T) {
	kv := newMemKV()
	s := testStore(t, kv)
	ctx := context.Background()
	c := s.Create(ctx)

	assert.JSONEq(t, fmt.Sprintf(`{
		"conversations": [{
			"id": %q, "title": "New Chat", "messages": [],
			"createdAt": "2026-10-16T09:00:01Z", "updatedAt": "2026-10-16T09:00:01Z"
		}],
		"activeConversationId": %q
	}`, c.ID, c.ID), string(kv.data[HistoryKey]))

	require.NoError(t, s.Delete(ctx, c.ID))
	assert.JSONEq(t, `{"conversations":[],"activeConversationId":null}`, string(kv.data[HistoryKey]))
}
