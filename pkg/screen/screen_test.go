package screen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/rbac-console/pkg/errors"
)

type item struct {
	ID   int      `json:"id"`
	Name string   `json:"name" validate:"required"`
	Tags []string `json:"tags"`
}

func (i item) RecordID() int { return i.ID }

func (i item) WithID(id int) item {
	i.ID = id
	return i
}

// fakeClient is an in-memory Client. When gate is set, mutations signal started and
// then block until gate is closed.
type fakeClient struct {
	mu        sync.Mutex
	records   []item
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	calls     []string
	created   []item
	updated   []item

	gate    chan struct{}
	started chan struct{}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeClient) wait() {
	if f.gate == nil {
		return
	}
	f.started <- struct{}{}
	<-f.gate
}

func (f *fakeClient) List(ctx context.Context) ([]item, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]item, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeClient) Create(ctx context.Context, r item) error {
	f.record("create")
	f.wait()
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.created = append(f.created, r)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Update(ctx context.Context, id int, r item) error {
	f.record("update")
	f.wait()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	f.updated = append(f.updated, r)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Delete(ctx context.Context, id int) error {
	f.record("delete")
	f.wait()
	return f.deleteErr
}

func (f *fakeClient) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func newLoadedScreen(t *testing.T, client *fakeClient) *Screen[item] {
	t.Helper()
	s := New(Config[item]{
		Resource: "items",
		Client:   client,
		Blank:    func() item { return item{Tags: []string{}} },
	})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func ids(records []item) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := &fakeClient{records: []item{{ID: 1, Name: "a", Tags: []string{"x"}}}}
		s := New(Config[item]{Resource: "items", Client: client})

		state, _ := s.State()
		assert.Equal(t, StateIdle, state)

		require.NoError(t, s.Load(context.Background()))
		state, loadErr := s.State()
		assert.Equal(t, StateLoaded, state)
		assert.NoError(t, loadErr)
		assert.Equal(t, []int{1}, ids(s.Records()))
	})

	t.Run("FailureLeavesEmptyCollection", func(t *testing.T) {
		client := &fakeClient{listErr: errors.Transport(nil, "connection refused")}
		s := New(Config[item]{Resource: "items", Client: client})

		err := s.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeTransport))

		state, loadErr := s.State()
		assert.Equal(t, StateFailed, state)
		assert.Equal(t, err, loadErr)
		assert.Empty(t, s.Records())
	})

	t.Run("OncePerMount", func(t *testing.T) {
		client := &fakeClient{listErr: errors.Transport(nil, "down")}
		s := New(Config[item]{Resource: "items", Client: client})

		require.Error(t, s.Load(context.Background()))
		err := s.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
		assert.Equal(t, 1, client.callCount("list"))
	})
}

func TestSubmitAdd_AssignsNextID(t *testing.T) {
	tests := []struct {
		name     string
		existing []item
		wantID   int
	}{
		{"empty collection", nil, 1},
		{"contiguous", []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, 3},
		{"gap", []item{{ID: 1, Name: "a"}, {ID: 5, Name: "b"}, {ID: 2, Name: "c"}}, 6},
		{"unordered", []item{{ID: 3, Name: "a"}, {ID: 1, Name: "b"}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{records: tt.existing}
			s := newLoadedScreen(t, client)

			s.OpenAdd()
			require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
				d.Name = "new"
				return d
			}))
			got, err := s.SubmitAdd(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantID, got.ID)
			require.Len(t, client.created, 1)
			assert.Equal(t, tt.wantID, client.created[0].ID, "create request carries the assigned id")

			records := s.Records()
			assert.Len(t, records, len(tt.existing)+1)
			assert.Equal(t, tt.wantID, records[len(records)-1].ID)

			mode, _ := s.Dialog()
			assert.Equal(t, DialogClosed, mode)
		})
	}
}

func TestSubmitAdd_FailureKeepsDialog(t *testing.T) {
	client := &fakeClient{
		records:   []item{{ID: 1, Name: "a", Tags: []string{"x"}}},
		createErr: errors.Transport(nil, "boom"),
	}
	s := newLoadedScreen(t, client)
	before := s.Records()

	s.OpenAdd()
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "b"
		return d
	}))
	_, err := s.SubmitAdd(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, s.Records())
	mode, draft := s.Dialog()
	assert.Equal(t, DialogAdd, mode)
	assert.Equal(t, "b", draft.Name)
	assert.False(t, s.InFlight(ActionCreate, 2))
}

func TestSubmitAdd_InvalidDraftSendsNothing(t *testing.T) {
	client := &fakeClient{}
	s := newLoadedScreen(t, client)

	s.OpenAdd()
	_, err := s.SubmitAdd(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	assert.Equal(t, "required", errors.GetDetails(err)["Name"])

	assert.Equal(t, 0, client.callCount("create"))
	assert.Empty(t, s.Records())
	mode, _ := s.Dialog()
	assert.Equal(t, DialogAdd, mode)
}

func TestSubmitAdd_CheckHook(t *testing.T) {
	client := &fakeClient{}
	var seen DialogMode
	s := New(Config[item]{
		Resource: "items",
		Client:   client,
		Check: func(mode DialogMode, d item) error {
			seen = mode
			if d.Name == "reserved" {
				return errors.InvalidInput("name", "reserved")
			}
			return nil
		},
	})
	require.NoError(t, s.Load(context.Background()))

	s.OpenAdd()
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "reserved"
		return d
	}))
	_, err := s.SubmitAdd(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, DialogAdd, seen)
	assert.Equal(t, 0, client.callCount("create"))
}

func TestSubmitWithoutDialog(t *testing.T) {
	s := newLoadedScreen(t, &fakeClient{})

	_, err := s.SubmitAdd(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
	_, err = s.SubmitEdit(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
	assert.True(t, errors.IsCode(s.EditDraft(func(_ DialogMode, d item) item { return d }), errors.ErrCodeInvalidState))
}

func TestOpenEdit_DraftIsDeepCopy(t *testing.T) {
	client := &fakeClient{records: []item{{ID: 1, Name: "a", Tags: []string{"x", "y"}}}}
	s := newLoadedScreen(t, client)

	require.NoError(t, s.OpenEdit(1))
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Tags[0] = "changed"
		d.Tags = append(d.Tags, "z")
		return d
	}))

	assert.Equal(t, []string{"x", "y"}, s.Records()[0].Tags)
	_, draft := s.Dialog()
	assert.Equal(t, []string{"changed", "y", "z"}, draft.Tags)
}

func TestOpenEdit_UnknownID(t *testing.T) {
	s := newLoadedScreen(t, &fakeClient{records: []item{{ID: 1, Name: "a"}}})

	err := s.OpenEdit(42)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	mode, _ := s.Dialog()
	assert.Equal(t, DialogClosed, mode)
}

func TestSubmitEdit_ReplacesExactlyOne(t *testing.T) {
	client := &fakeClient{records: []item{
		{ID: 1, Name: "a", Tags: []string{"x"}},
		{ID: 2, Name: "b", Tags: []string{"y"}},
		{ID: 3, Name: "c", Tags: []string{"z"}},
	}}
	s := newLoadedScreen(t, client)

	require.NoError(t, s.OpenEdit(2))
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "bee"
		return d
	}))
	got, err := s.SubmitEdit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.ID)

	records := s.Records()
	assert.Equal(t, []int{1, 2, 3}, ids(records))
	assert.Equal(t, "a", records[0].Name)
	assert.Equal(t, "bee", records[1].Name)
	assert.Equal(t, "c", records[2].Name)

	require.Len(t, client.updated, 1)
	assert.Equal(t, "bee", client.updated[0].Name)

	mode, _ := s.Dialog()
	assert.Equal(t, DialogClosed, mode)
}

func TestSubmitEdit_FailureKeepsDialog(t *testing.T) {
	client := &fakeClient{
		records:   []item{{ID: 1, Name: "a", Tags: []string{"x"}}},
		updateErr: errors.NotFound("items", "1"),
	}
	s := newLoadedScreen(t, client)

	require.NoError(t, s.OpenEdit(1))
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "renamed"
		return d
	}))
	_, err := s.SubmitEdit(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))

	assert.Equal(t, "a", s.Records()[0].Name)
	mode, draft := s.Dialog()
	assert.Equal(t, DialogEdit, mode)
	assert.Equal(t, "renamed", draft.Name)
}

func TestCancel(t *testing.T) {
	client := &fakeClient{records: []item{{ID: 1, Name: "a", Tags: []string{"x"}}}}
	s := newLoadedScreen(t, client)
	before := s.Records()

	require.NoError(t, s.OpenEdit(1))
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "discarded"
		return d
	}))
	s.Cancel()

	mode, draft := s.Dialog()
	assert.Equal(t, DialogClosed, mode)
	assert.Equal(t, item{}, draft)
	assert.Equal(t, before, s.Records())
	assert.Equal(t, 0, client.callCount("update"))
}

func TestDeleteRecord(t *testing.T) {
	t.Run("RemovesExactlyOne", func(t *testing.T) {
		client := &fakeClient{records: []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}}
		s := newLoadedScreen(t, client)

		require.NoError(t, s.DeleteRecord(context.Background(), 2))
		assert.Equal(t, []int{1, 3}, ids(s.Records()))
	})

	t.Run("FailureKeepsRow", func(t *testing.T) {
		client := &fakeClient{
			records:   []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
			deleteErr: errors.Transport(nil, "boom"),
		}
		s := newLoadedScreen(t, client)

		err := s.DeleteRecord(context.Background(), 2)
		require.Error(t, err)
		assert.Equal(t, []int{1, 2}, ids(s.Records()))
	})

	t.Run("UnknownIDRejectedByBackend", func(t *testing.T) {
		client := &fakeClient{
			records:   []item{{ID: 1, Name: "a"}},
			deleteErr: errors.NotFound("items", "9"),
		}
		s := newLoadedScreen(t, client)

		err := s.DeleteRecord(context.Background(), 9)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
		assert.Equal(t, []int{1}, ids(s.Records()))
		assert.Equal(t, 1, client.callCount("delete"))
	})
}

func gatedClient(records []item) *fakeClient {
	return &fakeClient{
		records: records,
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
}

func waitStarted(t *testing.T, client *fakeClient) {
	t.Helper()
	select {
	case <-client.started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the client")
	}
}

func TestDuplicateSubmitRejected(t *testing.T) {
	client := gatedClient([]item{{ID: 1, Name: "a"}})
	s := newLoadedScreen(t, client)

	s.OpenAdd()
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "b"
		return d
	}))

	type result struct {
		rec item
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := s.SubmitAdd(context.Background())
		done <- result{rec, err}
	}()
	waitStarted(t, client)
	assert.True(t, s.InFlight(ActionCreate, 2))

	_, err := s.SubmitAdd(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	close(client.gate)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, 2, first.rec.ID)

	assert.Equal(t, 1, client.callCount("create"))
	assert.Equal(t, []int{1, 2}, ids(s.Records()))
	assert.False(t, s.InFlight(ActionCreate, 2))
}

func TestDuplicateDeleteRejected(t *testing.T) {
	client := gatedClient([]item{{ID: 1, Name: "a"}})
	s := newLoadedScreen(t, client)

	done := make(chan error, 1)
	go func() { done <- s.DeleteRecord(context.Background(), 1) }()
	waitStarted(t, client)

	err := s.DeleteRecord(context.Background(), 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	close(client.gate)
	require.NoError(t, <-done)
	assert.Empty(t, s.Records())
}

func TestLateSuccessAfterDialogDismissed(t *testing.T) {
	client := gatedClient(nil)
	s := newLoadedScreen(t, client)

	s.OpenAdd()
	require.NoError(t, s.EditDraft(func(_ DialogMode, d item) item {
		d.Name = "late"
		return d
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitAdd(context.Background())
		done <- err
	}()
	waitStarted(t, client)

	// Dismiss, then open a fresh add dialog while the create is in flight.
	s.Cancel()
	s.OpenAdd()

	close(client.gate)
	require.NoError(t, <-done)

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "late", records[0].Name)

	mode, draft := s.Dialog()
	assert.Equal(t, DialogAdd, mode, "newer dialog stays open")
	assert.Empty(t, draft.Name)
}

func TestRecordsReturnsCopy(t *testing.T) {
	s := newLoadedScreen(t, &fakeClient{records: []item{{ID: 1, Name: "a", Tags: []string{"x"}}}})

	records := s.Records()
	records[0].Name = "mutated"
	records[0].Tags[0] = "mutated"

	fresh := s.Records()
	assert.Equal(t, "a", fresh[0].Name)
	assert.Equal(t, []string{"x"}, fresh[0].Tags)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "edit", DialogEdit.String())
}
