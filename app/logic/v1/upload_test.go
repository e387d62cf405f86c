package v1

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/app/core/srv"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/types"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeBrainUsers struct {
	log   *callLog
	roles map[string]string // brainID/userID -> role
}

func (f *fakeBrainUsers) GetBrainUser(ctx context.Context, brainID, userID string) (*types.BrainUser, error) {
	f.log.add("authorize")
	role, ok := f.roles[brainID+"/"+userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &types.BrainUser{BrainID: brainID, UserID: userID, Role: role}, nil
}

type fakeQuota struct {
	log      *callLog
	settings map[string]*types.UserSettings
}

func (f *fakeQuota) Get(ctx context.Context, userID string) (*types.UserSettings, error) {
	f.log.add("quota")
	s, ok := f.settings[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type fakeNotifications struct {
	log       *callLog
	getErr    error
	createErr error
	updateErr error
	items     map[string]*types.Notification
	seq       int
}

func (f *fakeNotifications) Get(ctx context.Context, id string) (*types.Notification, error) {
	f.log.add("notification.get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	n, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNotifications) Create(ctx context.Context, data *types.Notification) error {
	f.log.add("notification.create")
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	data.ID = fmt.Sprintf("n%d", f.seq)
	cp := *data
	f.items[data.ID] = &cp
	return nil
}

func (f *fakeNotifications) Update(ctx context.Context, id string, data types.NotificationUpdate) error {
	f.log.add("notification.update")
	if f.updateErr != nil {
		return f.updateErr
	}
	n, ok := f.items[id]
	if !ok {
		n = &types.Notification{ID: id}
		f.items[id] = n
	}
	n.Status = data.Status
	n.Description = data.Description
	return nil
}

type fakeStorage struct {
	log       *callLog
	objects   map[string][]byte
	err       error
	deleteErr error
}

func (f *fakeStorage) SaveFile(ctx context.Context, fullPath string, content []byte) error {
	f.log.add("storage")
	if f.err != nil {
		return f.err
	}
	if _, ok := f.objects[fullPath]; ok {
		return types.ErrObjectAlreadyExists
	}
	f.objects[fullPath] = content
	return nil
}

type fakeKnowledge struct {
	log       *callLog
	items     []*types.Knowledge
	seq       int
	deleteErr error
}

func (f *fakeKnowledge) Create(ctx context.Context, data *types.Knowledge) error {
	f.log.add("knowledge")
	f.seq++
	data.ID = fmt.Sprintf("k%d", f.seq)
	cp := *data
	f.items = append(f.items, &cp)
	return nil
}

type fakeQueue struct {
	log  *callLog
	jobs []types.ProcessingJob
	err  error
}

func (f *fakeQueue) EnqueueProcessFile(ctx context.Context, job types.ProcessingJob) error {
	f.log.add("enqueue")
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type ingestorFixture struct {
	log           *callLog
	users         *fakeBrainUsers
	quota         *fakeQuota
	notifications *fakeNotifications
	storage       *fakeStorage
	knowledge     *fakeKnowledge
	queue         *fakeQueue
	ingestor      *Ingestor
}

func newIngestorFixture() *ingestorFixture {
	log := &callLog{}
	f := &ingestorFixture{
		log: log,
		users: &fakeBrainUsers{log: log, roles: map[string]string{
			"B1/owner":  types.BRAIN_ROLE_OWNER,
			"B1/editor": types.BRAIN_ROLE_EDITOR,
			"B1/viewer": types.BRAIN_ROLE_VIEWER,
		}},
		quota:         &fakeQuota{log: log, settings: map[string]*types.UserSettings{}},
		notifications: &fakeNotifications{log: log, items: map[string]*types.Notification{}},
		storage:       &fakeStorage{log: log, objects: map[string][]byte{}},
		knowledge:     &fakeKnowledge{log: log},
		queue:         &fakeQueue{log: log},
	}
	f.ingestor = NewIngestor(IngestorDeps{
		Authorizer:    NewBrainAuthorizer(f.users, srv.SetupRBACSrv()),
		Quota:         f.quota,
		Notifications: f.notifications,
		Storage:       f.storage,
		Knowledge:     f.knowledge,
		Queue:         f.queue,
	})
	return f
}

// seedNotification 预置一个调用方自己创建的 notification
func (f *ingestorFixture) seedNotification(id, userID string) {
	f.notifications.items[id] = &types.Notification{
		ID:       id,
		UserID:   userID,
		BrainID:  "B1",
		Category: types.NOTIFICATION_CATEGORY_UPLOAD,
		Status:   types.NOTIFICATION_STATUS_INFO,
	}
}

func notesRequest(user string) types.UploadRequest {
	return types.UploadRequest{
		File:     make([]byte, 50),
		FileName: "notes.txt",
		BrainID:  "B1",
		UserID:   user,
	}
}

func customizedCode(t *testing.T, err error) int {
	t.Helper()
	var ce *errors.CustomizedError
	require.ErrorAs(t, err, &ce)
	return ce.GetCode()
}

func TestSubmitAcceptsUpload(t *testing.T) {
	f := newIngestorFixture()

	res, err := f.ingestor.Submit(context.Background(), notesRequest("owner"))
	require.NoError(t, err)
	assert.Equal(t, "File processing has started.", res.Message)
	assert.Equal(t, "k1", res.KnowledgeID)
	assert.NotEmpty(t, res.NotificationID)

	require.Len(t, f.knowledge.items, 1)
	k := f.knowledge.items[0]
	assert.Equal(t, "notes.txt", k.FileName)
	assert.Equal(t, ".txt", k.MimeType)
	assert.Equal(t, int64(50), k.FileSize)
	assert.Equal(t, "B1", k.BrainID)

	assert.Contains(t, f.storage.objects, "B1/notes.txt")

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, types.ProcessingJob{
		BrainID:          "B1",
		KnowledgeID:      "k1",
		FileName:         "B1/notes.txt",
		FileOriginalName: "notes.txt",
		NotificationID:   res.NotificationID,
	}, job)

	n := f.notifications.items[res.NotificationID]
	require.NotNil(t, n)
	assert.Equal(t, types.NOTIFICATION_STATUS_INFO, n.Status)
	assert.Equal(t, types.NOTIFICATION_CATEGORY_UPLOAD, n.Category)
	assert.Equal(t, "notes.txt", n.Title)
}

func TestSubmitStepOrder(t *testing.T) {
	f := newIngestorFixture()

	_, err := f.ingestor.Submit(context.Background(), notesRequest("editor"))
	require.NoError(t, err)

	assert.Equal(t, []string{"authorize", "quota", "notification.create", "storage", "knowledge", "enqueue"}, f.log.list())
}

func TestSubmitKeepsCallerNotification(t *testing.T) {
	f := newIngestorFixture()
	f.seedNotification("caller-n", "owner")

	req := notesRequest("owner")
	req.NotificationID = "caller-n"
	req.Integration = "notion"
	req.IntegrationLink = "https://notion.so/page"
	res, err := f.ingestor.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "caller-n", res.NotificationID)
	assert.Equal(t, "caller-n", f.queue.jobs[0].NotificationID)
	assert.Equal(t, []string{"notification.get", "authorize", "quota", "storage", "knowledge", "enqueue"}, f.log.list())
	assert.Equal(t, "notion", f.knowledge.items[0].Source)
	assert.Equal(t, "https://notion.so/page", f.queue.jobs[0].IntegrationLink)
}

func TestSubmitMimeTypeIsLowerCasedExtension(t *testing.T) {
	cases := map[string]string{
		"report.PDF":      ".pdf",
		"Deck.Final.PpTx": ".pptx",
		"README":          "",
		"voice.MP3":       ".mp3",
	}
	for name, want := range cases {
		f := newIngestorFixture()
		req := notesRequest("owner")
		req.FileName = name
		_, err := f.ingestor.Submit(context.Background(), req)
		require.NoError(t, err, name)
		assert.Equal(t, want, f.knowledge.items[0].MimeType, name)
	}
}

func TestSubmitForbidden(t *testing.T) {
	for _, user := range []string{"viewer", "stranger"} {
		f := newIngestorFixture()

		_, err := f.ingestor.Submit(context.Background(), notesRequest(user))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrForbidden), user)
		assert.Equal(t, http.StatusForbidden, customizedCode(t, err))
		assert.Equal(t, []string{"authorize"}, f.log.list())
	}
}

func TestSubmitQuotaExceeded(t *testing.T) {
	f := newIngestorFixture()
	f.quota.settings["owner"] = &types.UserSettings{UserID: "owner", MaxBrainSize: 10}
	f.seedNotification("caller-n", "owner")

	req := notesRequest("owner")
	req.NotificationID = "caller-n"
	_, err := f.ingestor.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrQuotaExceeded))
	assert.Equal(t, http.StatusForbidden, customizedCode(t, err))

	var ce *errors.CustomizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "10 B", ce.Data()["max_size"])

	assert.Empty(t, f.storage.objects)
	assert.Empty(t, f.knowledge.items)
	assert.Empty(t, f.queue.jobs)
	assert.Equal(t, types.NOTIFICATION_STATUS_ERROR, f.notifications.items["caller-n"].Status)
}

func TestSubmitDefaultQuota(t *testing.T) {
	f := newIngestorFixture()
	f.ingestor.DefaultMaxBrainSize = 20

	_, err := f.ingestor.Submit(context.Background(), notesRequest("owner"))
	assert.True(t, errors.Is(err, errors.ErrQuotaExceeded))
	assert.Empty(t, f.storage.objects)
}

func TestSubmitDuplicateFile(t *testing.T) {
	f := newIngestorFixture()

	_, err := f.ingestor.Submit(context.Background(), notesRequest("owner"))
	require.NoError(t, err)

	f.seedNotification("second", "owner")
	req := notesRequest("owner")
	req.NotificationID = "second"
	_, err = f.ingestor.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateFile))
	assert.Equal(t, http.StatusForbidden, customizedCode(t, err))

	n := f.notifications.items["second"]
	require.NotNil(t, n)
	assert.Equal(t, types.NOTIFICATION_STATUS_ERROR, n.Status)
	assert.Equal(t, "File notes.txt already exists in storage.", n.Description)

	assert.Len(t, f.knowledge.items, 1)
	assert.Len(t, f.queue.jobs, 1)
}

func TestSubmitStorageFailure(t *testing.T) {
	f := newIngestorFixture()
	cause := fmt.Errorf("connection reset")
	f.storage.err = cause

	res, err := f.ingestor.Submit(context.Background(), notesRequest("owner"))
	require.Error(t, err)
	assert.Empty(t, res.Message)
	assert.True(t, errors.Is(err, errors.ErrStorageFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, customizedCode(t, err))

	assert.Empty(t, f.knowledge.items)
	assert.Empty(t, f.queue.jobs)

	n := f.notifications.items["n1"]
	require.NotNil(t, n)
	assert.Equal(t, types.NOTIFICATION_STATUS_ERROR, n.Status)
	assert.Equal(t, "There was an error uploading the file", n.Description)
}

func TestSubmitNotificationFailureKeepsOriginalError(t *testing.T) {
	f := newIngestorFixture()
	f.storage.err = fmt.Errorf("disk full")
	f.notifications.updateErr = fmt.Errorf("db down")
	f.seedNotification("caller-n", "owner")

	req := notesRequest("owner")
	req.NotificationID = "caller-n"
	_, err := f.ingestor.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageFailure))
	assert.Contains(t, f.log.list(), "notification.update")
}

func TestSubmitNotificationCreateFailureDoesNotAbort(t *testing.T) {
	f := newIngestorFixture()
	f.notifications.createErr = fmt.Errorf("db down")

	res, err := f.ingestor.Submit(context.Background(), notesRequest("owner"))
	require.NoError(t, err)
	assert.Empty(t, res.NotificationID)
	assert.Len(t, f.queue.jobs, 1)
}

func TestSubmitEnqueueFailureKeepsKnowledge(t *testing.T) {
	f := newIngestorFixture()
	f.queue.err = fmt.Errorf("redis unavailable")

	_, err := f.ingestor.Submit(context.Background(), notesRequest("owner"))
	require.Error(t, err)
	assert.Len(t, f.knowledge.items, 1)
	assert.Contains(t, f.storage.objects, "B1/notes.txt")
}

func TestSubmitRejectsEmptyFile(t *testing.T) {
	f := newIngestorFixture()

	req := notesRequest("owner")
	req.File = nil
	_, err := f.ingestor.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, customizedCode(t, err))
	assert.Empty(t, f.log.list())
}

func TestSubmitRejectsForeignNotification(t *testing.T) {
	cases := map[string]*types.Notification{
		"other user":  {ID: "victim-n", UserID: "someone-else", BrainID: "B1", Status: types.NOTIFICATION_STATUS_INFO},
		"other brain": {ID: "victim-n", UserID: "owner", BrainID: "B2", Status: types.NOTIFICATION_STATUS_INFO},
		"missing":     nil,
	}
	for name, victim := range cases {
		t.Run(name, func(t *testing.T) {
			f := newIngestorFixture()
			if victim != nil {
				f.notifications.items["victim-n"] = victim
			}
			// an existing object would otherwise route the request into the duplicate branch
			f.storage.objects["B1/notes.txt"] = []byte("old")

			req := notesRequest("owner")
			req.NotificationID = "victim-n"
			_, err := f.ingestor.Submit(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, http.StatusNotFound, customizedCode(t, err))
			assert.Equal(t, []string{"notification.get"}, f.log.list())

			if victim != nil {
				n := f.notifications.items["victim-n"]
				assert.Equal(t, types.NOTIFICATION_STATUS_INFO, n.Status)
				assert.Empty(t, n.Description)
			} else {
				assert.NotContains(t, f.notifications.items, "victim-n")
			}
			assert.Empty(t, f.knowledge.items)
			assert.Empty(t, f.queue.jobs)
		})
	}
}

func TestSubmitNotificationLookupFailure(t *testing.T) {
	f := newIngestorFixture()
	f.notifications.getErr = fmt.Errorf("db down")

	req := notesRequest("owner")
	req.NotificationID = "caller-n"
	_, err := f.ingestor.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, customizedCode(t, err))
	assert.Empty(t, f.storage.objects)
}

func TestSubmitRejectsUnstorableFileName(t *testing.T) {
	cases := map[string]string{
		"long extension": "notes." + strings.Repeat("x", types.MAX_FILE_EXTENSION_LENGTH),
		"long name":      strings.Repeat("n", types.MAX_FILE_NAME_LENGTH) + ".txt",
	}
	for name, fileName := range cases {
		t.Run(name, func(t *testing.T) {
			f := newIngestorFixture()

			req := notesRequest("owner")
			req.FileName = fileName
			_, err := f.ingestor.Submit(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, customizedCode(t, err))
			assert.Empty(t, f.log.list())
			assert.Empty(t, f.storage.objects)
		})
	}

	f := newIngestorFixture()
	req := notesRequest("owner")
	// 31 个字符加上点号正好是列宽
	req.FileName = "notes." + strings.Repeat("x", types.MAX_FILE_EXTENSION_LENGTH-1)
	_, err := f.ingestor.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, f.knowledge.items[0].MimeType, types.MAX_FILE_EXTENSION_LENGTH)
}

func TestAdmitChecksDeclaredSize(t *testing.T) {
	f := newIngestorFixture()
	f.quota.settings["owner"] = &types.UserSettings{UserID: "owner", MaxBrainSize: 1024}
	f.seedNotification("caller-n", "owner")

	req := notesRequest("owner")
	req.File = nil
	req.NotificationID = "caller-n"

	err := f.ingestor.Admit(context.Background(), req, 4096)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrQuotaExceeded))
	assert.Equal(t, []string{"notification.get", "authorize", "quota", "notification.update"}, f.log.list())
	assert.Equal(t, types.NOTIFICATION_STATUS_ERROR, f.notifications.items["caller-n"].Status)
	assert.Empty(t, f.storage.objects)

	f.log.calls = nil
	require.NoError(t, f.ingestor.Admit(context.Background(), req, 1024))
	assert.Equal(t, []string{"notification.get", "authorize", "quota"}, f.log.list())
	assert.Empty(t, f.storage.objects)
	assert.Empty(t, f.knowledge.items)
}

func TestAdmitAuthorizesBeforeQuota(t *testing.T) {
	f := newIngestorFixture()

	err := f.ingestor.Admit(context.Background(), notesRequest("viewer"), 1<<40)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.Equal(t, []string{"authorize"}, f.log.list())
}
